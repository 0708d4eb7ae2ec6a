package genui

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	panicky bool
	prompts []string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	if s.panicky {
		panic("adapter blew up")
	}
	return s.text, s.err
}

func (s *stubGenerator) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func newTestOrchestrator(t *testing.T, gen Generator) *Orchestrator {
	t.Helper()
	o, err := New(gen)
	require.NoError(t, err)
	return o
}

const modelPage = `{
  "dialogue": "Let's price some lemonade!",
  "components": [
    {"type": "handDrawnIllustration", "props": {"description": "a lemon with sunglasses"}},
    {"type": "dynamicLedger", "props": {
      "scenario": "Lemonade stand",
      "items": [{"name": "Lemonade", "wholesalePrice": 0.4, "retailPrice": 1.5}],
      "learningGoal": "profit",
      "theme": "summer"
    }},
    {"type": "mysteryWidget", "props": {"anything": [1, 2, 3]}}
  ],
  "nextActions": [{"id": "a1", "label": "Go", "action": "next"}]
}`

func TestComposeStrictRoundTrip(t *testing.T) {
	for name, text := range map[string]string{
		"plain":        modelPage,
		"json fence":   "```json\n" + modelPage + "\n```",
		"bare fence":   "```\n" + modelPage + "\n```",
		"with prelude": "Sure! Here is the page:\n```json\n" + modelPage + "\n```",
	} {
		t.Run(name, func(t *testing.T) {
			gen := &stubGenerator{text: text}
			o := newTestOrchestrator(t, gen)

			page, err := o.ComposeStrict(context.Background(), "lemonade", emptyContext())
			require.NoError(t, err)
			assert.Equal(t, 1, gen.calls())

			assert.Equal(t, "Let's price some lemonade!", page.Dialogue)
			require.Len(t, page.Components, 3)
			assert.Equal(t, TypeLedger, page.Components[1].Type)
			ledger, ok := page.Components[1].Props.(LedgerProps)
			require.True(t, ok)
			assert.Equal(t, []LedgerItem{{Name: "Lemonade", WholesalePrice: 0.4, RetailPrice: 1.5}}, ledger.Items)

			_, raw := page.Components[2].Props.(RawProps)
			assert.True(t, raw, "unknown type keeps raw props")

			if diff := cmp.Diff([]NextAction{{ID: "a1", Label: "Go", Action: "next"}}, page.NextActions); diff != "" {
				t.Fatalf("nextActions mismatch (-want +got):\n%s", diff)
			}

			got, err := json.Marshal(page)
			require.NoError(t, err)
			assert.JSONEq(t, modelPage, string(got))
		})
	}
}

func TestComposeStrictKeepsBackticksInStrings(t *testing.T) {
	text := "{\"dialogue\":\"In Python you write ```print(1)``` to show code\"," +
		"\"components\":[{\"type\":\"guidingQuestion\",\"props\":{\"text\":\"What does ```x``` print?\"}}]," +
		"\"nextActions\":[]}"
	for name, in := range map[string]string{
		"plain":      text,
		"json fence": "```json\n" + text + "\n```",
	} {
		t.Run(name, func(t *testing.T) {
			o := newTestOrchestrator(t, &stubGenerator{text: in})
			page, err := o.ComposeStrict(context.Background(), "python", emptyContext())
			require.NoError(t, err)
			assert.Equal(t, "In Python you write ```print(1)``` to show code", page.Dialogue)
			assert.Equal(t, QuestionProps{Text: "What does ```x``` print?"}, page.Components[0].Props)

			got, err := json.Marshal(page)
			require.NoError(t, err)
			assert.JSONEq(t, text, string(got))
		})
	}
}

func TestComposeStrictKeepsComponentSiblingKeys(t *testing.T) {
	text := `{"dialogue":"x","components":[{"type":"guidingQuestion","id":"q1","props":{"text":"why?"},"meta":{"step":2}}],"nextActions":[]}`
	o := newTestOrchestrator(t, &stubGenerator{text: text})
	page, err := o.ComposeStrict(context.Background(), "why", emptyContext())
	require.NoError(t, err)
	assert.Equal(t, QuestionProps{Text: "why?"}, page.Components[0].Props)

	got, err := json.Marshal(page)
	require.NoError(t, err)
	assert.JSONEq(t, text, string(got))
}

func TestComposeStrictFencedEmptyPage(t *testing.T) {
	gen := &stubGenerator{text: "```json\n{\"dialogue\":\"Hi\",\"components\":[],\"nextActions\":[]}\n```"}
	o := newTestOrchestrator(t, gen)

	page, err := o.ComposeStrict(context.Background(), "hello", emptyContext())
	require.NoError(t, err)
	want := Page{Dialogue: "Hi", Components: []Component{}, NextActions: []NextAction{}}
	if diff := cmp.Diff(want, page, cmp.AllowUnexported(Component{})); diff != "" {
		t.Fatalf("page mismatch (-want +got):\n%s", diff)
	}
}

func TestComposeStrictErrors(t *testing.T) {
	cases := []struct {
		name string
		gen  *stubGenerator
		want error
	}{
		{name: "adapter error", gen: &stubGenerator{err: errors.New("timeout")}, want: ErrAdapter},
		{name: "adapter panic", gen: &stubGenerator{panicky: true}, want: ErrAdapter},
		{name: "garbage", gen: &stubGenerator{text: "I'm sorry, I can't do that."}, want: ErrParse},
		{name: "fenced garbage", gen: &stubGenerator{text: "```json\n{dialogue: oops\n```"}, want: ErrParse},
		{name: "empty", gen: &stubGenerator{text: ""}, want: ErrParse},
		{name: "top-level array", gen: &stubGenerator{text: `[1,2]`}, want: ErrValidation},
		{name: "missing dialogue", gen: &stubGenerator{text: `{"components":[],"nextActions":[]}`}, want: ErrValidation},
		{name: "missing components", gen: &stubGenerator{text: `{"dialogue":"x","nextActions":[]}`}, want: ErrValidation},
		{name: "missing nextActions", gen: &stubGenerator{text: `{"dialogue":"x","components":[]}`}, want: ErrValidation},
		{name: "components not array", gen: &stubGenerator{text: `{"dialogue":"x","components":{},"nextActions":[]}`}, want: ErrValidation},
		{name: "components null", gen: &stubGenerator{text: `{"dialogue":"x","components":null,"nextActions":[]}`}, want: ErrValidation},
		{name: "dialogue not string", gen: &stubGenerator{text: `{"dialogue":3,"components":[],"nextActions":[]}`}, want: ErrValidation},
		{name: "component without type", gen: &stubGenerator{text: `{"dialogue":"x","components":[{"props":{}}],"nextActions":[]}`}, want: ErrValidation},
		{name: "ledger price as string", gen: &stubGenerator{text: `{"dialogue":"x","components":[{"type":"dynamicLedger","props":{"scenario":"s","learningGoal":"g","items":[{"name":"a","wholesalePrice":"1","retailPrice":2}]}}],"nextActions":[]}`}, want: ErrValidation},
		{name: "ledger without items", gen: &stubGenerator{text: `{"dialogue":"x","components":[{"type":"dynamicLedger","props":{"scenario":"s","learningGoal":"g","items":[]}}],"nextActions":[]}`}, want: ErrValidation},
		{name: "bad next action", gen: &stubGenerator{text: `{"dialogue":"x","components":[],"nextActions":[{"id":1}]}`}, want: ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := newTestOrchestrator(t, tc.gen)
			_, err := o.ComposeStrict(context.Background(), "money", emptyContext())
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, 1, tc.gen.calls(), "exactly one adapter call, no retries")
		})
	}
}

func TestComposeStrictKeepsAdapterCause(t *testing.T) {
	cause := context.DeadlineExceeded
	o := newTestOrchestrator(t, &stubGenerator{err: cause})
	_, err := o.ComposeStrict(context.Background(), "money", emptyContext())
	assert.ErrorIs(t, err, ErrAdapter)
	assert.ErrorIs(t, err, cause)
}

func TestComposeStrictWithoutGenerator(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	_, err := o.ComposeStrict(context.Background(), "money", emptyContext())
	assert.ErrorIs(t, err, ErrAdapter)
}

func TestComposeSafeFallsBackToBaseline(t *testing.T) {
	rc := RequestContext{UserID: "u1", CurrentInterests: []string{"skateboarding"}}
	for name, gen := range map[string]*stubGenerator{
		"timeout":       {err: errors.New("timeout")},
		"garbage":       {text: "<html>502 Bad Gateway</html>"},
		"shape":         {text: `{"dialogue":"x"}`},
		"panic":         {panicky: true},
		"no components": {text: `{"dialogue":"Hi","components":[],"nextActions":[]}`},
	} {
		t.Run(name, func(t *testing.T) {
			o := newTestOrchestrator(t, gen)
			got := o.ComposeSafe(context.Background(), "I want to learn about money", rc)
			want := o.ComposePage("I want to learn about money", rc)
			if diff := cmp.Diff(want, got, cmp.AllowUnexported(Component{})); diff != "" {
				t.Fatalf("fallback differs from baseline (-want +got):\n%s", diff)
			}
			assert.NotEmpty(t, got.Dialogue)
			assert.NotEmpty(t, got.Components)
		})
	}
}

func TestComposeSafeReturnsModelPage(t *testing.T) {
	o := newTestOrchestrator(t, &stubGenerator{text: modelPage})
	page := o.ComposeSafe(context.Background(), "lemonade", emptyContext())
	assert.Equal(t, "Let's price some lemonade!", page.Dialogue)
}

func TestPromptEmbedsRequestInterestsAndTypes(t *testing.T) {
	gen := &stubGenerator{text: modelPage}
	o := newTestOrchestrator(t, gen)
	rc := RequestContext{
		UserID:           "u1",
		CurrentInterests: []string{"basketball", "drawing"},
		RecentActivity:   []json.RawMessage{json.RawMessage(`{"componentType":"dynamicLedger","action":"slider_change"}`)},
	}
	_, err := o.ComposeStrict(context.Background(), "How do shops decide prices?", rc)
	require.NoError(t, err)

	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "How do shops decide prices?")
	assert.Contains(t, prompt, "basketball, drawing")
	assert.Contains(t, prompt, "slider_change")
	for _, typ := range DefaultCatalog().Types() {
		assert.Contains(t, prompt, string(typ))
	}
	for _, key := range []string{`"dialogue"`, `"components"`, `"nextActions"`} {
		assert.Contains(t, prompt, key)
	}
}

func TestCustomCatalogTreatsOtherTypesAsUnknown(t *testing.T) {
	cat, err := NewCatalog(ComponentSpec{Type: TypeQuestion})
	require.NoError(t, err)
	o, err := New(&stubGenerator{text: `{"dialogue":"x","components":[{"type":"dynamicLedger","props":{"items":"nope"}}],"nextActions":[]}`}, WithCatalog(cat))
	require.NoError(t, err)

	page, err := o.ComposeStrict(context.Background(), "money", emptyContext())
	require.NoError(t, err)
	_, raw := page.Components[0].Props.(RawProps)
	assert.True(t, raw)
}
