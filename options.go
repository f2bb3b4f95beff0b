// SPDX-License-Identifier: MIT

package envmix

import (
	"os"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Option adjusts how a schema instance is constructed.
type Option func(*settings)

type settings struct {
	prefix         *string
	dotenvFiles    []string
	dotenvExplicit bool
	overrides      map[string]string
	lookup         func(string) (string, bool)
	logger         zerolog.Logger
	funcMap        map[reflect.Type]env.ParserFunc
	validator      *validator.Validate
}

var defaultValidator = sync.OnceValue(func() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
})

func newSettings(opts []Option) *settings {
	s := &settings{
		dotenvFiles: []string{".env"},
		lookup:      os.LookupEnv,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validator == nil {
		s.validator = defaultValidator()
	}
	return s
}

// WithPrefix overrides the class-level prefix declared via the Prefixed
// interface. An empty string disables the prefix entirely.
func WithPrefix(prefix string) Option {
	return func(s *settings) { s.prefix = &prefix }
}

// WithDotenvFiles sets the .env files FromDotenv reads, replacing the
// default ".env". Files merge first-file-wins. A listed file that does
// not exist is an error; only the implicit default is skipped silently.
// FromEnv ignores this option.
func WithDotenvFiles(paths ...string) Option {
	return func(s *settings) {
		s.dotenvFiles = paths
		s.dotenvExplicit = true
	}
}

// WithOverrides supplies raw string values that take precedence over
// every environment source. Keys live in the variable-name namespace,
// i.e. the caller passes the fully resolved name such as "APP_PORT".
func WithOverrides(vars map[string]string) Option {
	return func(s *settings) { s.overrides = vars }
}

// WithLookup replaces os.LookupEnv as the process-environment source.
func WithLookup(fn func(string) (string, bool)) Option {
	return func(s *settings) { s.lookup = fn }
}

// WithLogger sets the logger each binding is reported to at debug level.
// The default is a disabled logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithParser registers a coercion function for fields of type V,
// overriding or extending the engine's built-in parsers.
func WithParser[V any](fn func(string) (V, error)) Option {
	return func(s *settings) {
		if s.funcMap == nil {
			s.funcMap = make(map[reflect.Type]env.ParserFunc)
		}
		s.funcMap[reflect.TypeOf((*V)(nil)).Elem()] = func(raw string) (any, error) {
			return fn(raw)
		}
	}
}

// WithValidator substitutes the validation engine instance, e.g. one
// carrying custom rules or translations.
func WithValidator(v *validator.Validate) Option {
	return func(s *settings) { s.validator = v }
}
