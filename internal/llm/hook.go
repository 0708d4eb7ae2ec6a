package llm

import (
	"context"

	"go.uber.org/zap"
)

// PromptHook observes every model call made with a context carrying it.
type PromptHook interface {
	Before(ctx context.Context, phase, prompt string)
	After(ctx context.Context, phase, text string, err error)
}

type ctxKeyHook struct{}
type ctxKeyPhase struct{}

// WithHook attaches a PromptHook to ctx. WithHooks middleware invokes it.
func WithHook(ctx context.Context, hook PromptHook) context.Context {
	return context.WithValue(ctx, ctxKeyHook{}, hook)
}

// WithPhase labels the calls made with ctx, e.g. "compose".
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, ctxKeyPhase{}, phase)
}

// HookFrom returns the hook stored in the context.
func HookFrom(ctx context.Context) PromptHook {
	if h, ok := ctx.Value(ctxKeyHook{}).(PromptHook); ok {
		return h
	}
	return nil
}

// PhaseFrom returns the phase string stored in the context.
func PhaseFrom(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyPhase{}).(string); ok && s != "" {
		return s
	}
	return "unknown"
}

// LogHook writes prompts and model output to a logger at debug level, so it
// only produces output when LOG_LEVEL=debug.
type LogHook struct {
	log *zap.Logger
}

func NewLogHook(logger *zap.Logger) *LogHook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogHook{log: logger}
}

func (h *LogHook) Before(_ context.Context, phase, prompt string) {
	h.log.Debug("llm prompt", zap.String("phase", phase), zap.String("prompt", prompt))
}

func (h *LogHook) After(_ context.Context, phase, text string, err error) {
	if err != nil {
		h.log.Debug("llm output", zap.String("phase", phase), zap.Error(err))
		return
	}
	h.log.Debug("llm output", zap.String("phase", phase), zap.String("text", text))
}
