// SPDX-License-Identifier: MIT

package envmix

import (
	"strings"

	"github.com/rs/zerolog"
)

// Source identifies which layer supplied a binding's value.
type Source string

const (
	SourceOverride Source = "override"
	SourceEnv      Source = "env"
	SourceDotenv   Source = "dotenv"
	SourceDefault  Source = "default"
)

// Binding associates a schema field with the environment variable name
// resolved for it and the raw value found there. Bindings exist
// transiently during construction and are surfaced by Inspect.
type Binding struct {
	Field     string // Go field path, e.g. "DB.Host"
	Var       string // resolved variable name, e.g. "APP_DB_HOST"
	Value     string // raw string value ("" when unset)
	Found     bool   // a source supplied a value
	Default   string // envDefault tag, if any
	Source    Source
	Sensitive bool // name suggests a credential; value masked in logs

	// engineKey is the name the coercion engine looks up. It differs
	// from Var only for prefix-excluded fields.
	engineKey string
}

var sensitiveMarkers = []string{"token", "password", "secret", "key"}

// IsSensitive reports whether a variable name suggests a credential.
// Values of sensitive variables are masked wherever envmix prints or
// logs them.
func IsSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func (b Binding) log(logger zerolog.Logger) {
	e := logger.Debug().
		Str("field", b.Field).
		Str("key", b.Var).
		Str("source", string(b.Source))
	switch {
	case !b.Found:
		if b.Default != "" {
			e.Str("default", b.Default)
		}
		e.Msg("using default value")
	case b.Sensitive:
		e.Bool("sensitive", true).Msg("using resolved value")
	default:
		e.Str("value", b.Value).Msg("using resolved value")
	}
}
