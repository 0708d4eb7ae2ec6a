package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingHook struct {
	mu     sync.Mutex
	before []string
	after  []error
}

func (h *recordingHook) Before(_ context.Context, phase, _ string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.before = append(h.before, phase)
}

func (h *recordingHook) After(_ context.Context, _ string, _ string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.after = append(h.after, err)
}

// slowClient blocks until its context is done.
type slowClient struct{}

func (slowClient) Name() string { return "slow" }
func (slowClient) Close() error { return nil }
func (slowClient) GenerateContent(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestWrapOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Client) Client {
			order = append(order, name)
			return next
		}
	}
	Wrap(NewFakeClient(), mark("outer"), mark("inner"))
	assert.Equal(t, []string{"inner", "outer"}, order, "inner middleware wraps first")
}

func TestRetryRecoversFromTransientErrors(t *testing.T) {
	fake := NewFakeClient(
		FakeResponse{Err: errors.New("503")},
		FakeResponse{Err: errors.New("503")},
		FakeResponse{Text: "ok"},
	)
	cli := Retry(3, time.Millisecond)(fake)
	text, err := cli.GenerateContent(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Len(t, fake.Prompts(), 3)
}

func TestRetryGivesUp(t *testing.T) {
	boom := errors.New("boom")
	fake := NewFakeClient(FakeResponse{Err: boom})
	cli := Retry(2, time.Millisecond)(fake)
	_, err := cli.GenerateContent(context.Background(), "p")
	assert.ErrorIs(t, err, boom)
	assert.Len(t, fake.Prompts(), 2)
}

func TestRetryStopsOnCanceledContext(t *testing.T) {
	fake := NewFakeClient(FakeResponse{Err: errors.New("boom")})
	cli := Retry(5, time.Hour)(fake)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := cli.GenerateContent(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, fake.Prompts(), 1)
}

func TestWithTimeout(t *testing.T) {
	cli := WithTimeout(20 * time.Millisecond)(slowClient{})
	start := time.Now()
	_, err := cli.GenerateContent(context.Background(), "p")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWithTimeoutDisabled(t *testing.T) {
	inner := NewFakeClient()
	assert.Same(t, Client(inner), WithTimeout(0)(inner))
}

func TestRateLimitThrottles(t *testing.T) {
	cli := RateLimit(20, 1)(NewFakeText("ok"))
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := cli.GenerateContent(ctx, "p")
		require.NoError(t, err)
	}
	// burst 1 at 20 rps: the 2nd and 3rd calls wait ~50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestRateLimitHonoursContext(t *testing.T) {
	cli := RateLimit(0.001, 1)(NewFakeText("ok"))
	_, err := cli.GenerateContent(context.Background(), "p")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = cli.GenerateContent(ctx, "p")
	require.Error(t, err)
}

func TestWithHooks(t *testing.T) {
	hook := &recordingHook{}
	boom := errors.New("boom")
	cli := WithHooks()(NewFakeClient(FakeResponse{Text: "a"}, FakeResponse{Err: boom}))

	ctx := WithPhase(WithHook(context.Background(), hook), "compose")
	_, _ = cli.GenerateContent(ctx, "p1")
	_, _ = cli.GenerateContent(ctx, "p2")
	_, _ = cli.GenerateContent(context.Background(), "no hook")

	assert.Equal(t, []string{"compose", "compose"}, hook.before)
	require.Len(t, hook.after, 2)
	assert.NoError(t, hook.after[0])
	assert.ErrorIs(t, hook.after[1], boom)
}

func TestLogHookLogsAtDebugOnly(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	boom := errors.New("boom")
	cli := WithHooks()(NewFakeClient(FakeResponse{Text: "page"}, FakeResponse{Err: boom}))
	ctx := WithPhase(WithHook(context.Background(), NewLogHook(zap.New(core))), "compose")

	_, _ = cli.GenerateContent(ctx, "the prompt")
	_, _ = cli.GenerateContent(ctx, "again")

	prompts := logs.FilterMessage("llm prompt").All()
	require.Len(t, prompts, 2)
	assert.Equal(t, "the prompt", prompts[0].ContextMap()["prompt"])
	outputs := logs.FilterMessage("llm output").All()
	require.Len(t, outputs, 2)
	assert.Equal(t, "page", outputs[0].ContextMap()["text"])
	assert.Equal(t, "boom", outputs[1].ContextMap()["error"])

	infoCore, infoLogs := observer.New(zap.InfoLevel)
	ctx = WithHook(context.Background(), NewLogHook(zap.New(infoCore)))
	_, _ = WithHooks()(NewFakeText("x")).GenerateContent(ctx, "p")
	assert.Zero(t, infoLogs.Len())
}

func TestPhaseDefaults(t *testing.T) {
	assert.Equal(t, "unknown", PhaseFrom(context.Background()))
	assert.Nil(t, HookFrom(context.Background()))
}

func TestWithLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	boom := errors.New("boom")
	cli := WithLogging(zap.New(core))(NewFakeClient(FakeResponse{Text: "ok"}, FakeResponse{Err: boom}))

	ctx := WithPhase(context.Background(), "compose")
	_, err := cli.GenerateContent(ctx, "p")
	require.NoError(t, err)
	_, err = cli.GenerateContent(ctx, "p")
	require.ErrorIs(t, err, boom)

	assert.Equal(t, 1, logs.FilterMessage("llm response").Len())
	assert.Equal(t, 1, logs.FilterMessage("llm error").Len())
	assert.Equal(t, 2, logs.FilterMessage("llm request").Len())
}

func TestFakeClientDefaultsAndRepeats(t *testing.T) {
	text, err := NewFakeClient().GenerateContent(context.Background(), "p")
	require.NoError(t, err)
	assert.Contains(t, text, `"dialogue"`)

	fake := NewFakeClient(FakeResponse{Text: "one"}, FakeResponse{Text: "two"})
	for _, want := range []string{"one", "two", "two"} {
		got, err := fake.GenerateContent(context.Background(), "p")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = fake.GenerateContent(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewFakeProvider(t *testing.T) {
	cli, err := New(context.Background(), Config{Provider: "fake", Retries: 1, Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "FakeLLM", cli.Name())
	text, err := cli.GenerateContent(context.Background(), "p")
	require.NoError(t, err)
	assert.NotEmpty(t, text)

	_, err = New(context.Background(), Config{Provider: "carrier-pigeon"}, nil)
	require.Error(t, err)
}
