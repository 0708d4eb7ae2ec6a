package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = errors.New("llm: empty response from model")

// Client generates raw text for a single prompt.
type Client interface {
	Name() string
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Close() error
}
