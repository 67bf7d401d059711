// Package render turns a myfile record into the bytes of one output format:
// templates for the human-facing formats (html, cli) and encoders for the
// structured ones (json, yaml, toml).
package render

import "github.com/starford/myfview/internal/models"

// NoDisplayName is shown when neither the record nor the request names the user.
const NoDisplayName = "No display name"

// RenderRecord is the per-request view handed to the html and cli templates:
// a copy of the stored record plus fields derived for presentation.
type RenderRecord struct {
	// Fields is a shallow copy of the stored record.
	Fields models.Record
	// DisplayName is the record's name, else the identifier, else NoDisplayName.
	DisplayName string
	// Username is the identifier as it appears in the URL.
	Username string
	// DarkFlag hints the html template to use dark mode. HTML only.
	DarkFlag bool
	// NoColor asks the cli template to omit ANSI styling. CLI only.
	NoColor bool
}

// NewHTMLRecord builds the view for the html template.
func NewHTMLRecord(rec models.Record, username string, dark bool) RenderRecord {
	return RenderRecord{
		Fields:      rec.Clone(),
		DisplayName: displayName(rec, username),
		Username:    username,
		DarkFlag:    dark,
	}
}

// NewCLIRecord builds the view for the cli template.
func NewCLIRecord(rec models.Record, username string, noColor bool) RenderRecord {
	return RenderRecord{
		Fields:      rec.Clone(),
		DisplayName: displayName(rec, username),
		Username:    username,
		NoColor:     noColor,
	}
}

// Chalk styles s unless the request asked for no colour.
func (r RenderRecord) Chalk(style, s string) string {
	if r.NoColor {
		return s
	}
	return chalk(style, s)
}

func displayName(rec models.Record, username string) string {
	if n := rec.Name(); n != "" {
		return n
	}
	if username != "" {
		return username
	}
	return NoDisplayName
}
