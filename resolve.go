// SPDX-License-Identifier: MIT

package envmix

import (
	"encoding"
	"net/url"
	"reflect"
	"strings"
	"unicode"

	"github.com/caarlos0/env/v11"
)

var (
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	urlType             = reflect.TypeOf((*url.URL)(nil)).Elem()
)

// resolveType walks the schema type and produces one binding per
// settable leaf field, with names computed by the same rules the
// coercion engine applies: the env tag (or the upper-snake field name),
// enclosing envPrefix tags, then the class prefix. A prefix:"false" tag
// on the field or an enclosing struct field drops the class prefix from
// the resolved name only; the engine key always carries it.
func resolveType(t reflect.Type, classPrefix string, funcMap map[reflect.Type]env.ParserFunc) []Binding {
	w := walker{classPrefix: classPrefix, funcMap: funcMap}
	w.walk(t, "", "", false)
	return w.bindings
}

type walker struct {
	classPrefix string
	funcMap     map[reflect.Type]env.ParserFunc
	bindings    []Binding
}

func (w *walker) walk(t reflect.Type, path, envPrefix string, noPrefix bool) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		fieldPath := field.Name
		if path != "" {
			fieldPath = path + "." + field.Name
		}
		fieldNoPrefix := noPrefix || field.Tag.Get("prefix") == "false"

		if w.isNode(field.Type) {
			w.walk(field.Type, fieldPath, envPrefix+field.Tag.Get("envPrefix"), fieldNoPrefix)
			continue
		}

		name, _, _ := strings.Cut(field.Tag.Get("env"), ",")
		if name == "" {
			name = toEnvName(field.Name)
		}
		name = envPrefix + name

		b := Binding{
			Field:     fieldPath,
			Var:       w.classPrefix + name,
			engineKey: w.classPrefix + name,
		}
		if fieldNoPrefix {
			b.Var = name
		}
		b.Default, _ = field.Tag.Lookup("envDefault")
		b.Sensitive = IsSensitive(b.Var)
		w.bindings = append(w.bindings, b)
	}
}

// isNode reports whether the engine descends into the type rather than
// coercing it from a single string: struct types without a custom
// parser, a text unmarshaler, or a built-in parser (url.URL).
func (w *walker) isNode(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	if _, ok := w.funcMap[t]; ok {
		return false
	}
	if t == urlType || t.Implements(textUnmarshalerType) || reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return false
	}
	return true
}

// toEnvName converts a Go field name to upper snake case exactly the
// way the coercion engine derives names: underscores in the input are
// dropped, and an underscore is inserted before an upper-case letter
// adjacent to a lower-case one. LogPath -> LOG_PATH, HTTPPort ->
// HTTP_PORT, APIKey -> API_KEY.
func toEnvName(name string) string {
	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range runes {
		if r == '_' {
			continue
		}
		if i > 0 && unicode.IsUpper(r) &&
			(unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
