package genui

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ComponentSpec describes one allow-listed component type.
type ComponentSpec struct {
	Type        ComponentType
	Description string

	validate func(props map[string]any) error
	decode   func(raw json.RawMessage) (Props, error)
}

// Catalog is the closed set of component types shared with the rendering
// layer. Types outside the catalog are passed through with raw props and are
// never validated.
type Catalog struct {
	specs map[ComponentType]ComponentSpec
	order []ComponentType
}

var defaultCatalog = mustCatalog(builtinSpecs())

// DefaultCatalog returns the built-in allow-list.
func DefaultCatalog() *Catalog { return defaultCatalog }

// NewCatalog builds a catalog from the given specs, in order. Specs for types
// that have a built-in contract inherit its validator and decoder.
func NewCatalog(specs ...ComponentSpec) (*Catalog, error) {
	builtin := make(map[ComponentType]ComponentSpec)
	for _, s := range builtinSpecs() {
		builtin[s.Type] = s
	}
	c := &Catalog{specs: make(map[ComponentType]ComponentSpec, len(specs))}
	for _, s := range specs {
		t := ComponentType(strings.TrimSpace(string(s.Type)))
		if t == "" {
			return nil, errors.New("catalog: component type is required")
		}
		if _, dup := c.specs[t]; dup {
			return nil, fmt.Errorf("catalog: duplicate component type %q", t)
		}
		s.Type = t
		if b, ok := builtin[t]; ok {
			if s.validate == nil {
				s.validate = b.validate
			}
			if s.decode == nil {
				s.decode = b.decode
			}
			if s.Description == "" {
				s.Description = b.Description
			}
		}
		c.specs[t] = s
		c.order = append(c.order, t)
	}
	if len(c.order) == 0 {
		return nil, errors.New("catalog: at least one component type is required")
	}
	return c, nil
}

func mustCatalog(specs []ComponentSpec) *Catalog {
	c, err := NewCatalog(specs...)
	if err != nil {
		panic(err)
	}
	return c
}

type catalogFile struct {
	Components []struct {
		Type        string `yaml:"type"`
		Description string `yaml:"description"`
	} `yaml:"components"`
}

// ParseCatalog reads a YAML allow-list:
//
//	components:
//	  - type: dynamicLedger
//	  - type: storyPanel
//	    description: A comic-style panel with a caption.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse yaml: %w", err)
	}
	specs := make([]ComponentSpec, 0, len(f.Components))
	for _, c := range f.Components {
		specs = append(specs, ComponentSpec{
			Type:        ComponentType(c.Type),
			Description: strings.TrimSpace(c.Description),
		})
	}
	return NewCatalog(specs...)
}

// LoadCatalog reads a YAML allow-list from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return ParseCatalog(data)
}

// Types returns the allow-listed types in declaration order.
func (c *Catalog) Types() []ComponentType {
	out := make([]ComponentType, len(c.order))
	copy(out, c.order)
	return out
}

// Allowed reports whether t is on the allow-list.
func (c *Catalog) Allowed(t ComponentType) bool {
	_, ok := c.specs[t]
	return ok
}

// Specs returns the allow-listed specs in declaration order.
func (c *Catalog) Specs() []ComponentSpec {
	out := make([]ComponentSpec, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, c.specs[t])
	}
	return out
}

// DecodeComponent decodes a {"type","props"} object. Allow-listed types with a
// typed representation get typed props; everything else keeps raw props.
// Per-type contracts are not checked; see ParseComponent.
func (c *Catalog) DecodeComponent(data []byte) (Component, error) {
	env, props, extra, err := decodeEnvelope(data)
	if err != nil {
		return Component{}, err
	}
	comp, err := c.decodeProps(env.Type, props)
	comp.extra = extra
	return comp, err
}

// ParseComponent decodes a component and enforces its type's contract.
func (c *Catalog) ParseComponent(data []byte) (Component, error) {
	env, props, extra, err := decodeEnvelope(data)
	if err != nil {
		return Component{}, err
	}
	if spec, ok := c.specs[env.Type]; ok && spec.validate != nil {
		var m map[string]any
		if err := json.Unmarshal(props, &m); err != nil {
			return Component{}, fmt.Errorf("%s: props: %w", env.Type, err)
		}
		if err := spec.validate(m); err != nil {
			return Component{}, fmt.Errorf("%s: %w", env.Type, err)
		}
	}
	comp, err := c.decodeProps(env.Type, props)
	comp.extra = extra
	return comp, err
}

// check runs a built component through its type's contract.
func (c *Catalog) check(comp Component) error {
	spec, ok := c.specs[comp.Type]
	if !ok || spec.validate == nil {
		return nil
	}
	raw := comp.raw
	if len(raw) == 0 {
		b, err := json.Marshal(comp.Props)
		if err != nil {
			return fmt.Errorf("%s: encode props: %w", comp.Type, err)
		}
		raw = b
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("%s: props must be an object", comp.Type)
	}
	if err := spec.validate(m); err != nil {
		return fmt.Errorf("%s: %w", comp.Type, err)
	}
	return nil
}

func (c *Catalog) decodeProps(t ComponentType, props json.RawMessage) (Component, error) {
	spec, ok := c.specs[t]
	if !ok || spec.decode == nil {
		return Component{Type: t, Props: RawProps(props), raw: props}, nil
	}
	p, err := spec.decode(props)
	if err != nil {
		return Component{}, fmt.Errorf("%s: props: %w", t, err)
	}
	return Component{Type: t, Props: p, raw: props}, nil
}

// decodeEnvelope splits a component object into its type, its props (an
// empty object when missing or null) and any sibling keys such as "id".
func decodeEnvelope(data []byte) (componentEnvelope, json.RawMessage, map[string]json.RawMessage, error) {
	var env componentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, nil, nil, fmt.Errorf("component: %w", err)
	}
	if strings.TrimSpace(string(env.Type)) == "" {
		return env, nil, nil, errors.New("component: type is required")
	}
	props := bytes.TrimSpace(env.Props)
	if len(props) == 0 || bytes.Equal(props, []byte("null")) {
		props = []byte("{}")
	}
	if props[0] != '{' {
		return env, nil, nil, fmt.Errorf("%s: props must be an object", env.Type)
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return env, nil, nil, fmt.Errorf("component: %w", err)
	}
	delete(all, "type")
	delete(all, "props")
	if len(all) == 0 {
		all = nil
	}
	return env, json.RawMessage(props), all, nil
}

func decodeAs[T Props](raw json.RawMessage) (Props, error) {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func builtinSpecs() []ComponentSpec {
	return []ComponentSpec{
		{
			Type:        TypeIllustration,
			Description: "A hand-drawn style illustration. props: description (string), optional style, caption.",
			validate: func(p map[string]any) error {
				return requireString(p, "description", true)
			},
			decode: decodeAs[IllustrationProps],
		},
		{
			Type:        TypeLedger,
			Description: "An editable price ledger. props: scenario (string), items (non-empty array of {name, wholesalePrice:number, retailPrice:number}), learningGoal (string).",
			validate:    validateLedger,
			decode:      decodeAs[LedgerProps],
		},
		{
			Type:        TypeQuestion,
			Description: "A Socratic guiding question. props: text (string), optional hint.",
			validate: func(p map[string]any) error {
				return requireString(p, "text", true)
			},
			decode: decodeAs[QuestionProps],
		},
		{
			Type:        TypeConceptCard,
			Description: "A short concept explanation. props: title (string), body (string).",
			validate: func(p map[string]any) error {
				if err := requireString(p, "title", true); err != nil {
					return err
				}
				return requireString(p, "body", true)
			},
			decode: decodeAs[ConceptCardProps],
		},
		{
			Type:        TypeSlider,
			Description: "A numeric slider to explore a quantity. props: label (string), min (number), max (number), optional step, value.",
			validate:    validateSlider,
			decode:      decodeAs[SliderProps],
		},
		{
			Type:        TypeMultipleChoice,
			Description: "A quick check question. props: question (string), options (non-empty string array), optional answer (option index).",
			validate:    validateMultipleChoice,
			decode:      decodeAs[MultipleChoiceProps],
		},
		{
			Type:        TypeProgress,
			Description: "A step tracker. props: steps (non-empty string array), current (step index).",
			validate:    validateProgress,
			decode:      decodeAs[ProgressProps],
		},
	}
}

func validateLedger(p map[string]any) error {
	if err := requireString(p, "scenario", false); err != nil {
		return err
	}
	if err := requireString(p, "learningGoal", false); err != nil {
		return err
	}
	items, err := requireArray(p, "items", true)
	if err != nil {
		return err
	}
	for i, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			return fmt.Errorf("items[%d] must be an object", i)
		}
		if err := requireString(obj, "name", false); err != nil {
			return fmt.Errorf("items[%d]: %w", i, err)
		}
		if _, err := requireNumber(obj, "wholesalePrice"); err != nil {
			return fmt.Errorf("items[%d]: %w", i, err)
		}
		if _, err := requireNumber(obj, "retailPrice"); err != nil {
			return fmt.Errorf("items[%d]: %w", i, err)
		}
	}
	return nil
}

func validateSlider(p map[string]any) error {
	if err := requireString(p, "label", true); err != nil {
		return err
	}
	lo, err := requireNumber(p, "min")
	if err != nil {
		return err
	}
	hi, err := requireNumber(p, "max")
	if err != nil {
		return err
	}
	if lo >= hi {
		return fmt.Errorf("min (%g) must be below max (%g)", lo, hi)
	}
	if _, present := p["value"]; present {
		v, err := requireNumber(p, "value")
		if err != nil {
			return err
		}
		if v < lo || v > hi {
			return fmt.Errorf("value %g is outside [%g, %g]", v, lo, hi)
		}
	}
	return nil
}

func validateMultipleChoice(p map[string]any) error {
	if err := requireString(p, "question", true); err != nil {
		return err
	}
	opts, err := requireArray(p, "options", true)
	if err != nil {
		return err
	}
	for i, o := range opts {
		if _, ok := o.(string); !ok {
			return fmt.Errorf("options[%d] must be a string", i)
		}
	}
	if _, present := p["answer"]; present {
		if _, err := requireIndex(p, "answer", len(opts)); err != nil {
			return err
		}
	}
	return nil
}

func validateProgress(p map[string]any) error {
	steps, err := requireArray(p, "steps", true)
	if err != nil {
		return err
	}
	for i, s := range steps {
		if _, ok := s.(string); !ok {
			return fmt.Errorf("steps[%d] must be a string", i)
		}
	}
	_, err = requireIndex(p, "current", len(steps))
	return err
}

func requireString(p map[string]any, key string, nonEmpty bool) error {
	v, ok := p[key]
	if !ok {
		return fmt.Errorf("%s is required", key)
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("%s must be a string", key)
	}
	if nonEmpty && strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s must not be empty", key)
	}
	return nil
}

func requireNumber(p map[string]any, key string) (float64, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return f, nil
}

func requireArray(p map[string]any, key string, nonEmpty bool) ([]any, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("%s is required", key)
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array", key)
	}
	if nonEmpty && len(arr) == 0 {
		return nil, fmt.Errorf("%s must not be empty", key)
	}
	return arr, nil
}

func requireIndex(p map[string]any, key string, n int) (int, error) {
	f, err := requireNumber(p, key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f < 0 || int(f) >= n {
		return 0, fmt.Errorf("%s must be an index in [0, %d)", key, n)
	}
	return int(f), nil
}
