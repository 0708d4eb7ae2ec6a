package genui

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Page is a composed learning page: a short dialogue, the ordered widgets to
// render, and the affordances offered next. Pages are built fresh per request
// and are not modified after they are returned.
type Page struct {
	Dialogue    string       `json:"dialogue"`
	Components  []Component  `json:"components"`
	NextActions []NextAction `json:"nextActions"`
}

type NextAction struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Action string `json:"action"`
}

// RequestContext describes the learner a page is composed for.
type RequestContext struct {
	UserID           string            `json:"userId"`
	CurrentInterests []string          `json:"currentInterests"`
	RecentActivity   []json.RawMessage `json:"recentActivity"`
}

// InteractionEvent is a single manipulation of an already rendered component.
type InteractionEvent struct {
	ComponentType string         `json:"componentType"`
	Action        string         `json:"action"`
	Data          map[string]any `json:"data"`
	Timestamp     float64        `json:"timestamp"`
}

const ResponseTypeAcknowledgement = "acknowledgement"

type Acknowledgement struct {
	ResponseType string     `json:"responseType"`
	Content      AckContent `json:"content"`
}

type AckContent struct {
	Dialogue string `json:"dialogue"`
}

type ComponentType string

const (
	TypeIllustration   ComponentType = "handDrawnIllustration"
	TypeLedger         ComponentType = "dynamicLedger"
	TypeQuestion       ComponentType = "guidingQuestion"
	TypeConceptCard    ComponentType = "conceptCard"
	TypeSlider         ComponentType = "interactiveSlider"
	TypeMultipleChoice ComponentType = "multipleChoice"
	TypeProgress       ComponentType = "progressTracker"
)

// Props is the payload of a component. Known component types carry one of the
// typed structs below; anything else is kept verbatim as RawProps.
type Props interface {
	isProps()
}

type IllustrationProps struct {
	Description string `json:"description"`
	Style       string `json:"style,omitempty"`
	Caption     string `json:"caption,omitempty"`
}

type LedgerItem struct {
	Name           string  `json:"name"`
	WholesalePrice float64 `json:"wholesalePrice"`
	RetailPrice    float64 `json:"retailPrice"`
}

// Profit is the per-unit margin in currency units.
func (i LedgerItem) Profit() float64 { return i.RetailPrice - i.WholesalePrice }

type LedgerProps struct {
	Scenario     string       `json:"scenario"`
	Items        []LedgerItem `json:"items"`
	LearningGoal string       `json:"learningGoal"`
}

type QuestionProps struct {
	Text string `json:"text"`
	Hint string `json:"hint,omitempty"`
}

type ConceptCardProps struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type SliderProps struct {
	Label string   `json:"label"`
	Min   float64  `json:"min"`
	Max   float64  `json:"max"`
	Step  float64  `json:"step,omitempty"`
	Value *float64 `json:"value,omitempty"`
}

type MultipleChoiceProps struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   *int     `json:"answer,omitempty"`
}

type ProgressProps struct {
	Steps   []string `json:"steps"`
	Current int      `json:"current"`
}

// RawProps holds the untouched props object of a component type that has no
// typed representation.
type RawProps json.RawMessage

func (IllustrationProps) isProps()   {}
func (LedgerProps) isProps()         {}
func (QuestionProps) isProps()       {}
func (ConceptCardProps) isProps()    {}
func (SliderProps) isProps()         {}
func (MultipleChoiceProps) isProps() {}
func (ProgressProps) isProps()       {}
func (RawProps) isProps()            {}

func (r RawProps) MarshalJSON() ([]byte, error) {
	if len(bytes.TrimSpace(r)) == 0 {
		return []byte("{}"), nil
	}
	return json.RawMessage(r).MarshalJSON()
}

func (r *RawProps) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

// Component is one typed widget description. The JSON form is
// {"type": "...", "props": {...}}. Other keys the model puts next to type
// and props (an "id", say) are carried through untouched.
type Component struct {
	Type  ComponentType
	Props Props

	// raw keeps the props exactly as received so re-encoding a decoded
	// component reproduces its input.
	raw   json.RawMessage
	extra map[string]json.RawMessage
}

// NewComponent builds a component from typed props.
func NewComponent(t ComponentType, p Props) Component {
	return Component{Type: t, Props: p}
}

type componentEnvelope struct {
	Type  ComponentType   `json:"type"`
	Props json.RawMessage `json:"props"`
}

func (c Component) MarshalJSON() ([]byte, error) {
	props := c.raw
	if len(props) == 0 {
		if c.Props == nil {
			props = json.RawMessage("{}")
		} else {
			b, err := json.Marshal(c.Props)
			if err != nil {
				return nil, fmt.Errorf("encode %s props: %w", c.Type, err)
			}
			props = b
		}
	}
	if len(c.extra) == 0 {
		return json.Marshal(componentEnvelope{Type: c.Type, Props: props})
	}
	typ, err := json.Marshal(c.Type)
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(c.extra)+2)
	for k, v := range c.extra {
		out[k] = v
	}
	out["type"] = typ
	out["props"] = props
	return json.Marshal(out)
}

// UnmarshalJSON decodes against the default catalog. Use Catalog.DecodeComponent
// to decode against a configured allow-list.
func (c *Component) UnmarshalJSON(data []byte) error {
	out, err := defaultCatalog.DecodeComponent(data)
	if err != nil {
		return err
	}
	*c = out
	return nil
}
