package llm

import (
	"context"
	"sync"
)

// FakeResponse is one scripted reply of a FakeClient.
type FakeResponse struct {
	Text string
	Err  error
}

// FakeClient replays scripted responses in order for offline runs and tests.
// Once the script is exhausted the last response repeats; with no script it
// answers with a small valid page.
type FakeClient struct {
	mu      sync.Mutex
	script  []FakeResponse
	prompts []string
}

const fakePage = `{
  "dialogue": "Here is a quick activity to get you started.",
  "components": [
    {"type": "guidingQuestion", "props": {"text": "What would you like to discover first?"}}
  ],
  "nextActions": [
    {"id": "start", "label": "Let's begin", "action": "ask:Let's begin"}
  ]
}`

func NewFakeClient(script ...FakeResponse) *FakeClient {
	return &FakeClient{script: script}
}

// NewFakeText is shorthand for a client that always answers text.
func NewFakeText(text string) *FakeClient {
	return NewFakeClient(FakeResponse{Text: text})
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	if len(f.script) == 0 {
		return fakePage, nil
	}
	if n >= len(f.script) {
		n = len(f.script) - 1
	}
	r := f.script[n]
	return r.Text, r.Err
}

// Prompts returns the prompts received so far.
func (f *FakeClient) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.prompts))
	copy(out, f.prompts)
	return out
}
