// Package negotiate decides which representation of a myfile to produce from
// the request's query string and headers. Everything here is pure.
package negotiate

// Format is the negotiated output representation.
type Format int

const (
	JSON Format = iota
	HTML
	CLI
	YAML
	TOML
)

var formatNames = [...]string{
	JSON: "json",
	HTML: "html",
	CLI:  "cli",
	YAML: "yaml",
	TOML: "toml",
}

func (f Format) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return "unknown"
	}
	return formatNames[f]
}

// Structured reports whether f is a serialised format subject to redaction.
func (f Format) Structured() bool {
	return f == JSON || f == YAML || f == TOML
}

// aliases maps every accepted alias, as received, to its format.
var aliases = map[string]Format{
	"html": HTML,
	"htm":  HTML,
	"web":  HTML,
	"gui":  HTML,

	"json": JSON,
	"js":   JSON,
	"raw":  JSON,

	"yaml": YAML,
	"yml":  YAML,
	"y":    YAML,

	"toml": TOML,
	"tml":  TOML,
	"ini":  TOML,

	"curl": CLI,
	"txt":  CLI,
	"text": CLI,
	"cli":  CLI,
}

// Lookup resolves an alias to its format.
func Lookup(alias string) (Format, bool) {
	f, ok := aliases[alias]
	return f, ok
}

// Aliases returns the alias table grouped by format, in table order.
func Aliases() map[Format][]string {
	return map[Format][]string{
		HTML: {"html", "htm", "web", "gui"},
		JSON: {"json", "js", "raw"},
		YAML: {"yaml", "yml", "y"},
		TOML: {"toml", "tml", "ini"},
		CLI:  {"curl", "txt", "text", "cli"},
	}
}
