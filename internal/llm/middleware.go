package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (rate limiting, retries, timeouts, logging, hooks).
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Rate Limiting --------

// RateLimit limits the request rate to rps with the given burst.
// If rps <= 0, the limiter is disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Client) Client {
		if rps <= 0 {
			return next
		}
		if burst < 1 {
			burst = 1
		}
		return &rateLimited{next: next, rl: rate.NewLimiter(rate.Limit(rps), burst)}
	}
}

type rateLimited struct {
	next Client
	rl   *rate.Limiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error { return c.next.Close() }
func (c *rateLimited) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return "", err
	}
	return c.next.GenerateContent(ctx, prompt)
}

// -------- Timeout --------

// WithTimeout bounds every call to d. d <= 0 disables it.
func WithTimeout(d time.Duration) Middleware {
	return func(next Client) Client {
		if d <= 0 {
			return next
		}
		return &timed{next: next, d: d}
	}
}

type timed struct {
	next Client
	d    time.Duration
}

func (t *timed) Name() string { return t.next.Name() }
func (t *timed) Close() error { return t.next.Close() }
func (t *timed) GenerateContent(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.GenerateContent(ctx, prompt)
}

// -------- Retry with exponential backoff --------

// Retry retries GenerateContent up to maxAttempts with exponential backoff
// starting at baseDelay. If the context is canceled, it stops immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next Client) Client {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next Client
	max  int
	base time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }
func (r *retrying) GenerateContent(ctx context.Context, prompt string) (string, error) {
	var last error
	for i := 0; i < r.max; i++ {
		text, err := r.next.GenerateContent(ctx, prompt)
		if err == nil {
			return text, nil
		}
		last = err
		if i == r.max-1 {
			break
		}
		timer := time.NewTimer(r.base * time.Duration(1<<i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return "", last
}

// -------- Logging & Hooks --------

// WithLogging logs request size, latency and errors. A nil logger disables it.
func WithLogging(logger *zap.Logger) Middleware {
	return func(next Client) Client {
		if logger == nil {
			return next
		}
		return &logging{next: next, log: logger.With(zap.String("model", next.Name()))}
	}
}

type logging struct {
	next Client
	log  *zap.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }
func (l *logging) GenerateContent(ctx context.Context, prompt string) (string, error) {
	phase := PhaseFrom(ctx)
	start := time.Now()
	l.log.Debug("llm request", zap.String("phase", phase), zap.Int("prompt_bytes", len(prompt)))
	text, err := l.next.GenerateContent(ctx, prompt)
	if err != nil {
		l.log.Warn("llm error", zap.String("phase", phase), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return text, err
	}
	l.log.Info("llm response", zap.String("phase", phase), zap.Duration("elapsed", time.Since(start)), zap.Int("response_bytes", len(text)))
	return text, nil
}

// WithHooks calls HookFrom(ctx).Before/After around GenerateContent.
// If no hook is present in the context, it is a no-op.
func WithHooks() Middleware {
	return func(next Client) Client {
		return &hooked{next: next}
	}
}

type hooked struct{ next Client }

func (h *hooked) Name() string { return h.next.Name() }
func (h *hooked) Close() error { return h.next.Close() }
func (h *hooked) GenerateContent(ctx context.Context, prompt string) (string, error) {
	hook := HookFrom(ctx)
	if hook != nil {
		hook.Before(ctx, PhaseFrom(ctx), prompt)
	}
	text, err := h.next.GenerateContent(ctx, prompt)
	if hook != nil {
		hook.After(ctx, PhaseFrom(ctx), text, err)
	}
	return text, err
}
