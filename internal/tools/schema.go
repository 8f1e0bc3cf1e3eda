package tools

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// inputSchemaFor builds a JSON Schema for T using the base generator and
// enriches it with defaults from `default` struct tags.
func inputSchemaFor[T any]() *jsonschema.Schema {
	sch, err := jsonschema.For[T](nil)
	if err != nil {
		panic(err)
	}

	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		panic("tool arguments must be a struct, got " + t.String())
	}

	if sch.Properties == nil {
		sch.Properties = make(map[string]*jsonschema.Schema)
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		def := f.Tag.Get("default")
		if def == "" {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}

		p, ok := sch.Properties[name]
		if !ok || p == nil {
			p = &jsonschema.Schema{}
			sch.Properties[name] = p
		}
		p.Default = defaultLiteral(def)
	}

	return sch
}

// defaultLiteral encodes a `default` tag value: numbers and booleans verbatim, anything else as a string.
func defaultLiteral(def string) json.RawMessage {
	if _, err := strconv.ParseFloat(def, 64); err == nil {
		return json.RawMessage(def)
	}
	if def == "true" || def == "false" {
		return json.RawMessage(def)
	}
	b, _ := json.Marshal(def)
	return json.RawMessage(b)
}
