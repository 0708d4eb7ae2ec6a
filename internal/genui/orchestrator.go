package genui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tutorui/internal/util/jsonutil"
)

var (
	// ErrAdapter wraps failures of the content generator itself.
	ErrAdapter = errors.New("genui: content generation failed")
	// ErrParse reports model output that is not JSON once code fences are stripped.
	ErrParse = errors.New("genui: model output is not valid JSON")
	// ErrValidation reports JSON that does not have the composed page shape.
	ErrValidation = errors.New("genui: model output does not match the page shape")
)

// Generator produces raw model text for a prompt. The text is expected to be
// JSON, optionally wrapped in a Markdown code fence.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Orchestrator turns a learner utterance into a composed page and reacts to
// interaction events. It holds no per-request state and is safe for
// concurrent use.
type Orchestrator struct {
	gen     Generator
	catalog *Catalog
	rules   *RuleSet
	log     *zap.Logger
}

type Option func(*Orchestrator)

func WithCatalog(c *Catalog) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.catalog = c
		}
	}
}

func WithRules(rs *RuleSet) Option {
	return func(o *Orchestrator) {
		if rs != nil {
			o.rules = rs
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// New builds an orchestrator. gen may be nil, in which case every model call
// fails with ErrAdapter and the safe path always serves the baseline page.
func New(gen Generator, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		gen:     gen,
		catalog: DefaultCatalog(),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.rules == nil {
		rs, err := DefaultRuleSet()
		if err != nil {
			return nil, err
		}
		o.rules = rs
	}
	return o, nil
}

func (o *Orchestrator) Catalog() *Catalog { return o.catalog }

// ComposePage returns the deterministic baseline page. It never fails.
func (o *Orchestrator) ComposePage(utterance string, rc RequestContext) Page {
	return ComposePage(utterance, rc)
}

// ComposeStrict asks the model for a page and returns it exactly as parsed.
// It makes one generator call and never retries. Errors wrap ErrAdapter,
// ErrParse or ErrValidation.
func (o *Orchestrator) ComposeStrict(ctx context.Context, utterance string, rc RequestContext) (Page, error) {
	prompt := BuildPrompt(utterance, rc, o.catalog)
	text, err := o.generate(ctx, prompt)
	if err != nil {
		return Page{}, err
	}
	page, err := ParsePage(text, o.catalog)
	if err != nil {
		return Page{}, err
	}
	unknown := 0
	for _, c := range page.Components {
		if !o.catalog.Allowed(c.Type) {
			unknown++
		}
	}
	o.log.Debug("composed page from model",
		zap.String("user_id", rc.UserID),
		zap.Int("components", len(page.Components)),
		zap.Int("unknown_components", unknown),
		zap.Int("next_actions", len(page.NextActions)),
	)
	return page, nil
}

// ComposeSafe is ComposeStrict with the baseline page substituted on any
// failure, including a model page without components. It never returns an
// error and never returns an empty page.
func (o *Orchestrator) ComposeSafe(ctx context.Context, utterance string, rc RequestContext) Page {
	page, err := o.ComposeStrict(ctx, utterance, rc)
	if err != nil {
		o.log.Warn("model page rejected, serving baseline",
			zap.String("user_id", rc.UserID),
			zap.Error(err),
		)
		return ComposePage(utterance, rc)
	}
	if len(page.Components) == 0 {
		o.log.Warn("model page has no components, serving baseline",
			zap.String("user_id", rc.UserID),
		)
		return ComposePage(utterance, rc)
	}
	return page
}

// ProcessInteractionEvent returns an acknowledgement when the event matches
// one of the configured rules, or nil when there is nothing to say.
func (o *Orchestrator) ProcessInteractionEvent(ev InteractionEvent, rc RequestContext) *Acknowledgement {
	ack, rule := o.rules.Match(ev)
	if ack != nil {
		o.log.Debug("interaction acknowledged",
			zap.String("user_id", rc.UserID),
			zap.String("rule", rule),
			zap.String("component_type", ev.ComponentType),
			zap.String("action", ev.Action),
		)
	}
	return ack
}

func (o *Orchestrator) generate(ctx context.Context, prompt string) (text string, err error) {
	if o.gen == nil {
		return "", fmt.Errorf("%w: no generator configured", ErrAdapter)
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: generator panicked: %v", ErrAdapter, r)
		}
	}()
	text, err = o.gen.GenerateContent(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAdapter, err)
	}
	return text, nil
}

// ParsePage strips code fences from model text, parses it as JSON and checks
// the page shape. Allow-listed component types must satisfy their contract;
// other types are kept with raw props.
func ParsePage(text string, c *Catalog) (Page, error) {
	body := jsonutil.StripCodeFence(text)
	if !json.Valid([]byte(body)) {
		return Page{}, fmt.Errorf("%w: %s", ErrParse, preview(body))
	}
	var top map[string]json.RawMessage
	if err := jsonutil.UnmarshalFlex([]byte(body), &top); err != nil {
		return Page{}, fmt.Errorf("%w: top-level value must be an object", ErrValidation)
	}
	for _, key := range []string{"dialogue", "components", "nextActions"} {
		if _, ok := top[key]; !ok {
			return Page{}, fmt.Errorf("%w: missing %q", ErrValidation, key)
		}
	}

	var page Page
	if err := json.Unmarshal(top["dialogue"], &page.Dialogue); err != nil {
		return Page{}, fmt.Errorf("%w: dialogue must be a string", ErrValidation)
	}

	var rawComponents []json.RawMessage
	if err := json.Unmarshal(top["components"], &rawComponents); err != nil || rawComponents == nil {
		return Page{}, fmt.Errorf("%w: components must be an array", ErrValidation)
	}
	page.Components = make([]Component, 0, len(rawComponents))
	for i, raw := range rawComponents {
		comp, err := c.ParseComponent(raw)
		if err != nil {
			return Page{}, fmt.Errorf("%w: components[%d]: %v", ErrValidation, i, err)
		}
		page.Components = append(page.Components, comp)
	}

	if err := json.Unmarshal(top["nextActions"], &page.NextActions); err != nil || page.NextActions == nil {
		return Page{}, fmt.Errorf("%w: nextActions must be an array of {id, label, action}", ErrValidation)
	}
	return page, nil
}

func preview(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
