// SPDX-License-Identifier: MIT

// Package envmix populates typed configuration structs from process
// environment variables and .env files.
//
// A schema is an ordinary Go struct. Field names map to environment
// variable names (upper snake case, e.g. LogPath -> LOG_PATH) with an
// optional class-level prefix; struct tags adjust the mapping per field:
//
//	type Settings struct {
//		Host    string        `envDefault:"localhost"`
//		Port    int           `envDefault:"8080" validate:"min=1,max=65535"`
//		Debug   bool          `env:"DEBUG_MODE"`
//		HomeDir string        `env:"HOME_DIR" prefix:"false"`
//		DB      DBSettings    `envPrefix:"DB_"`
//		Timeout time.Duration `envDefault:"5s"`
//	}
//
//	func (Settings) EnvPrefix() string { return "APP_" }
//
// FromEnv resolves only already-set process variables; FromDotenv layers
// one or more .env files below the process environment. Type coercion is
// delegated to github.com/caarlos0/env, constraint validation to
// github.com/go-playground/validator; envmix adds no error taxonomy of
// its own.
package envmix

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/c0sogi/envmix/internal/dotenv"
	"github.com/caarlos0/env/v11"
)

// Prefixed is implemented by schema types that declare a class-level
// environment variable prefix. It is checked on both T and *T;
// WithPrefix overrides it.
type Prefixed interface {
	EnvPrefix() string
}

// FromEnv constructs a T from already-set process environment variables.
// It never reads .env file contents, even when files are configured via
// WithDotenvFiles.
func FromEnv[T any](opts ...Option) (T, error) {
	return construct[T](false, opts)
}

// FromDotenv constructs a T like FromEnv, but first reads the configured
// .env files (default ".env") and layers them below the process
// environment: a variable set in both places resolves to the process
// value. The files are read exactly once; the process environment is
// never mutated.
func FromDotenv[T any](opts ...Option) (T, error) {
	return construct[T](true, opts)
}

// MustFromEnv is FromEnv, panicking on error.
func MustFromEnv[T any](opts ...Option) T {
	return env.Must(FromEnv[T](opts...))
}

// MustFromDotenv is FromDotenv, panicking on error.
func MustFromDotenv[T any](opts ...Option) T {
	return env.Must(FromDotenv[T](opts...))
}

// Inspect performs the full name resolution and source lookup for T and
// returns the resulting bindings without constructing an instance. The
// configured .env files are consulted only when WithDotenvFiles was
// given, so the report matches FromDotenv in that case and FromEnv
// otherwise.
func Inspect[T any](opts ...Option) ([]Binding, error) {
	s := newSettings(opts)
	return resolveBindings[T](s, s.dotenvExplicit)
}

func construct[T any](withDotenv bool, opts []Option) (T, error) {
	var out T

	s := newSettings(opts)
	bindings, err := resolveBindings[T](s, withDotenv)
	if err != nil {
		return out, err
	}

	environment := make(map[string]string, len(bindings))
	for _, b := range bindings {
		b.log(s.logger)
		if b.Found {
			// The engine looks up the prefixed key even for
			// prefix-excluded fields; install the resolved value
			// under the key it will use. Unset bindings stay
			// absent so an excluded field can never absorb an
			// unrelated prefixed variable.
			environment[b.engineKey] = b.Value
		}
	}

	if err := env.ParseWithOptions(&out, env.Options{
		Environment:           environment,
		Prefix:                classPrefix[T](s),
		UseFieldNameByDefault: true,
		FuncMap:               s.funcMap,
	}); err != nil {
		return out, fmt.Errorf("parse env: %w", err)
	}

	// The engine substitutes the declared default when a key is
	// present with an empty value; a set variable wins over the
	// default, so such fields are reset to the coercion of "" (the
	// type's zero value).
	for _, b := range bindings {
		if b.Found && b.Value == "" && b.Default != "" {
			zeroField(reflect.ValueOf(&out).Elem(), b.Field)
		}
	}

	if err := validateStruct(s, &out); err != nil {
		return out, fmt.Errorf("validate config: %w", err)
	}
	return out, nil
}

func zeroField(v reflect.Value, path string) {
	for _, name := range strings.Split(path, ".") {
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return
		}
		v = v.FieldByName(name)
		if !v.IsValid() {
			return
		}
	}
	if v.CanSet() {
		v.SetZero()
	}
}

// resolveBindings computes the variable name for every settable leaf
// field of T and looks it up across the configured sources in precedence
// order: overrides, process environment, .env files.
func resolveBindings[T any](s *settings, withDotenv bool) ([]Binding, error) {
	var fileVars map[string]string
	if withDotenv {
		var err error
		fileVars, err = dotenv.Read(s.dotenvFiles, s.dotenvExplicit)
		if err != nil {
			return nil, err
		}
	}

	prefix := classPrefix[T](s)
	bindings := resolveType(reflect.TypeOf((*T)(nil)).Elem(), prefix, s.funcMap)
	for i := range bindings {
		b := &bindings[i]
		if v, ok := s.overrides[b.Var]; ok {
			b.Value, b.Found, b.Source = v, true, SourceOverride
			continue
		}
		if v, ok := s.lookup(b.Var); ok {
			b.Value, b.Found, b.Source = v, true, SourceEnv
			continue
		}
		if v, ok := fileVars[b.Var]; ok {
			b.Value, b.Found, b.Source = v, true, SourceDotenv
			continue
		}
		b.Source = SourceDefault
	}
	return bindings, nil
}

func classPrefix[T any](s *settings) string {
	if s.prefix != nil {
		return *s.prefix
	}
	// Pointer schema types are checked through a freshly allocated
	// element so a value-receiver EnvPrefix is never invoked on a nil
	// pointer.
	var zero T
	v := reflect.ValueOf(&zero).Elem()
	for v.Kind() == reflect.Pointer {
		v = reflect.New(v.Type().Elem()).Elem()
	}
	if p, ok := v.Interface().(Prefixed); ok {
		return p.EnvPrefix()
	}
	if p, ok := v.Addr().Interface().(Prefixed); ok {
		return p.EnvPrefix()
	}
	return ""
}

func validateStruct(s *settings, out any) error {
	v := reflect.ValueOf(out).Elem()
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	return s.validator.Struct(v.Interface())
}
