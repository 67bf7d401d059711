package render

import "github.com/starford/myfview/internal/models"

// Redact returns a shallow copy of rec without the keys named in private.
// Only exact keys are matched. rec is never modified.
func Redact(rec models.Record, private []string) models.Record {
	out := rec.Clone()
	for _, k := range private {
		delete(out, k)
	}
	return out
}
