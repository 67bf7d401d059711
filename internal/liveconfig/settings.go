// Package liveconfig holds the operator-editable viewer configuration: the
// active snapshot, its defaults, and the file watcher that hot-reloads it.
package liveconfig

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/myfview/internal/apperr"
	pkgconfig "github.com/starford/myfview/pkg/config"
)

// DefaultTemplatesPath is used when the config file does not name a templates directory.
const DefaultTemplatesPath = "./views"

// Settings is one immutable snapshot of the viewer configuration.
// Snapshots handed out by a Store must not be modified.
type Settings struct {
	// PrivateFields are removed from json, yaml and toml output.
	PrivateFields []string `json:"privateFields" yaml:"privateFields" toml:"privateFields"`
	// Watch enables hot reload of this file and the templates directory.
	// Only read at startup.
	Watch bool `json:"watch" yaml:"watch" toml:"watch"`
	// TemplatesPath is the directory holding html.tmpl and cli.tmpl.
	TemplatesPath string `json:"templatesPath" yaml:"templatesPath" toml:"templatesPath"`
	// ForceDark sets the HTML dark-mode hint for every request.
	ForceDark bool `json:"forceDark" yaml:"forceDark" toml:"forceDark"`

	Version  uint64    `json:"-" yaml:"-" toml:"-"`
	LoadedAt time.Time `json:"-" yaml:"-" toml:"-"`
}

// Defaults returns a Settings populated with the documented default values.
func Defaults() *Settings {
	return &Settings{
		PrivateFields: []string{},
		Watch:         true,
		TemplatesPath: DefaultTemplatesPath,
		ForceDark:     false,
	}
}

// Validate validates the settings.
func (s *Settings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.TemplatesPath, validation.Required),
		validation.Field(&s.PrivateFields, validation.Each(validation.Required)),
	)
}

// Private reports whether field is configured as private.
func (s *Settings) Private(field string) bool {
	for _, f := range s.PrivateFields {
		if f == field {
			return true
		}
	}
	return false
}

func (s *Settings) clone() *Settings {
	cp := *s
	cp.PrivateFields = append([]string(nil), s.PrivateFields...)
	return &cp
}

// Load reads the config file at path, applying defaults for missing fields.
// Any failure is returned as an *apperr.ConfigParseError.
func Load(path string) (*Settings, error) {
	s := Defaults()
	if err := pkgconfig.Load(path, s); err != nil {
		return nil, &apperr.ConfigParseError{Path: path, Err: err}
	}
	if s.PrivateFields == nil {
		s.PrivateFields = []string{}
	}
	return s, nil
}
