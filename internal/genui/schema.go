package genui

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// PageSchema returns the JSON Schema of a composed page whose component types
// are restricted to the catalog.
func PageSchema(c *Catalog) *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
	}
	s := r.Reflect(&Page{})
	s.Title = "Composed page"
	s.Description = "A learning page: dialogue, ordered UI components, and suggested next actions."
	s.Properties.Set("components", &jsonschema.Schema{
		Type:  "array",
		Items: componentSchema(c),
	})
	return s
}

// PageSchemaJSON renders PageSchema as indented JSON.
func PageSchemaJSON(c *Catalog) ([]byte, error) {
	return json.MarshalIndent(PageSchema(c), "", "  ")
}

func componentSchema(c *Catalog) *jsonschema.Schema {
	enum := make([]any, 0, len(c.order))
	for _, t := range c.order {
		enum = append(enum, string(t))
	}
	props := jsonschema.NewProperties()
	props.Set("type", &jsonschema.Schema{
		Type: "string",
		Enum: enum,
	})
	props.Set("props", &jsonschema.Schema{
		Type:        "object",
		Description: "Type-specific properties.",
	})
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   []string{"type", "props"},
	}
}
