package resume

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"launchpadResume/internal/apperr"
)

const (
	maxFieldLength  = 20000
	maxListEntries  = 200
	rootSchemaField = "(root)"
)

var (
	schemasOnce sync.Once
	schemas     map[string]*gojsonschema.Schema
	schemasErr  error
)

// ValidateSection checks raw against the JSON schema derived from the section's entry type.
// Entries may carry extra keys (client-side ids, flags); known keys must be strings or numbers.
func ValidateSection(s Section, raw []byte) error {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return schemasErr
	}

	schema, ok := schemas[s.Key]
	if !ok {
		return fmt.Errorf("no schema for section %q", s.Key)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return apperr.Invalid(s.Key, "must be valid JSON")
	}
	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" || field == rootSchemaField {
			messages = append(messages, desc.Description())
			continue
		}
		messages = append(messages, fmt.Sprintf("%s: %s", field, desc.Description()))
	}
	return &apperr.ValidationError{Field: s.Key, Message: strings.Join(messages, "; ")}
}

func compileSchemas() {
	compiled := make(map[string]*gojsonschema.Schema, len(Sections))
	for _, s := range Sections {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(sectionSchema(s)))
		if err != nil {
			schemasErr = fmt.Errorf("compile schema for %s: %w", s.Key, err)
			return
		}
		compiled[s.Key] = schema
	}
	schemas = compiled
}

func sectionSchema(s Section) map[string]any {
	entry := entrySchema(s.item)
	if s.Kind == KindObject {
		return entry
	}
	return map[string]any{
		"type":     "array",
		"maxItems": maxListEntries,
		"items":    entry,
	}
}

func entrySchema(t reflect.Type) map[string]any {
	properties := map[string]any{}
	required := []string{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		if f.Tag.Get("schema") == "required" {
			required = append(required, name)
			properties[name] = map[string]any{
				"type":      "string",
				"minLength": 1,
				"maxLength": maxFieldLength,
			}
			continue
		}
		properties[name] = map[string]any{
			"type":      []string{"string", "number", "null"},
			"maxLength": maxFieldLength,
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
