package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/shikhr/opdroid/internal/llm"
	"github.com/shikhr/opdroid/internal/tools"
)

// scriptedProvider replays canned responses (or errors) in order.
type scriptedProvider struct {
	steps []scriptedStep
	calls int
	// lastRequest captures the final request for window assertions.
	lastRequest *llm.ChatRequest
}

type scriptedStep struct {
	resp *llm.ChatResponse
	err  error
}

func (p *scriptedProvider) ID() llm.ProviderID   { return "test" }
func (p *scriptedProvider) Name() string         { return "Test Provider" }
func (p *scriptedProvider) SupportsTools() bool  { return true }
func (p *scriptedProvider) SupportsVision() bool { return true }
func (p *scriptedProvider) Models() []llm.Model  { return nil }
func (p *scriptedProvider) DefaultModel() string { return "test-model" }
func (p *scriptedProvider) SetModel(string) error {
	return nil
}

func (p *scriptedProvider) Chat(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.lastRequest = req
	p.calls++
	if p.calls > len(p.steps) {
		return &llm.ChatResponse{Content: "idle"}, nil
	}
	step := p.steps[p.calls-1]
	return step.resp, step.err
}

// fakeDevice satisfies Device with canned screen state and records taps.
type fakeDevice struct {
	taps    []string
	tapErr  error
	uiErr   error
	uiXML   string
	pressed []int
}

func (d *fakeDevice) Screenshot(context.Context) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 400, 800)), nil
}

func (d *fakeDevice) UIHierarchy(context.Context) (string, error) {
	if d.uiErr != nil {
		return "", d.uiErr
	}
	if d.uiXML != "" {
		return d.uiXML, nil
	}
	return `<?xml version="1.0"?><hierarchy><node clickable="true" bounds="[0,0][100,100]" class="android.widget.Button" text="OK"/></hierarchy>`, nil
}

func (d *fakeDevice) Tap(_ context.Context, x, y int) (string, error) {
	if d.tapErr != nil {
		return "", d.tapErr
	}
	d.taps = append(d.taps, fmt.Sprintf("%d,%d", x, y))
	return fmt.Sprintf("Tapped at (%d, %d)", x, y), nil
}

func (d *fakeDevice) Swipe(_ context.Context, x1, y1, x2, y2, _ int) (string, error) {
	return fmt.Sprintf("Swiped from (%d, %d) to (%d, %d)", x1, y1, x2, y2), nil
}

func (d *fakeDevice) InputText(_ context.Context, text string) (string, error) {
	return fmt.Sprintf("Entered text: '%s'", text), nil
}

func (d *fakeDevice) pressKey(code int) (string, error) {
	d.pressed = append(d.pressed, code)
	return fmt.Sprintf("Pressed key: %d", code), nil
}

func (d *fakeDevice) PressHome(context.Context) (string, error)       { return d.pressKey(3) }
func (d *fakeDevice) PressBack(context.Context) (string, error)       { return d.pressKey(4) }
func (d *fakeDevice) PressEnter(context.Context) (string, error)      { return d.pressKey(66) }
func (d *fakeDevice) PressRecentApps(context.Context) (string, error) { return d.pressKey(187) }

func (d *fakeDevice) LaunchApp(_ context.Context, pkg string) (string, error) {
	return fmt.Sprintf("Launched app: %s", pkg), nil
}

// recordingSleeper records requested waits without sleeping.
type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func toolCall(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: name, Input: json.RawMessage(args)}
}

func newTestAgent(t *testing.T, provider *scriptedProvider, device *fakeDevice, opts Options) (*Agent, *recordingSleeper) {
	t.Helper()
	ag, err := New(provider, device, nil, opts)
	require.NoError(t, err)

	sleeper := &recordingSleeper{}
	ag.sleeper = sleeper
	// No pacing delays in tests.
	ag.limiter = rate.NewLimiter(rate.Inf, 1)
	return ag, sleeper
}

func TestAgent_TerminalStates(t *testing.T) {
	t.Run("task_complete ends the run with the summary", func(t *testing.T) {
		provider := &scriptedProvider{steps: []scriptedStep{
			{resp: &llm.ChatResponse{
				Content:   "Done.",
				ToolCalls: []llm.ToolCall{toolCall("c1", tools.ToolTaskComplete, `{"summary":"X"}`)},
			}},
		}}
		ag, _ := newTestAgent(t, provider, &fakeDevice{}, Options{})

		result, err := ag.Run(context.Background(), "open settings")
		require.NoError(t, err)
		assert.Equal(t, StatusComplete, result.Status)
		assert.Equal(t, "X", result.Summary)
		assert.Equal(t, 1, result.Iterations)
	})

	t.Run("task_impossible ends the run with the reason", func(t *testing.T) {
		provider := &scriptedProvider{steps: []scriptedStep{
			{resp: &llm.ChatResponse{
				ToolCalls: []llm.ToolCall{toolCall("c1", tools.ToolTaskImpossible, `{"reason":"Y"}`)},
			}},
		}}
		ag, _ := newTestAgent(t, provider, &fakeDevice{}, Options{})

		result, err := ag.Run(context.Background(), "impossible thing")
		require.NoError(t, err)
		assert.Equal(t, StatusImpossible, result.Status)
		assert.Equal(t, "Y", result.Summary)
	})

	t.Run("iteration budget exhaustion reports max iterations", func(t *testing.T) {
		provider := &scriptedProvider{}
		ag, _ := newTestAgent(t, provider, &fakeDevice{}, Options{MaxIterations: 3})

		result, err := ag.Run(context.Background(), "never finishes")
		require.NoError(t, err)
		assert.Equal(t, StatusMaxIterations, result.Status)
		assert.Equal(t, "Max iterations (3) reached without completion", result.Summary)
		assert.Equal(t, 3, result.Iterations)
		assert.Equal(t, 3, provider.calls)
	})
}

func TestAgent_ActBatch(t *testing.T) {
	t.Run("executes tool calls in order and scales taps", func(t *testing.T) {
		device := &fakeDevice{}
		provider := &scriptedProvider{steps: []scriptedStep{
			{resp: &llm.ChatResponse{ToolCalls: []llm.ToolCall{
				toolCall("c1", tools.ToolTap, `{"cell":"A1"}`),
				toolCall("c2", tools.ToolPressHome, `{}`),
			}}},
			{resp: &llm.ChatResponse{ToolCalls: []llm.ToolCall{
				toolCall("c3", tools.ToolTaskComplete, `{"summary":"done"}`),
			}}},
		}}
		ag, _ := newTestAgent(t, provider, device, Options{})

		result, err := ag.Run(context.Background(), "tap the button")
		require.NoError(t, err)
		assert.Equal(t, StatusComplete, result.Status)
		// 400x800 screenshot stays under the resize cap, so display
		// equals raw and the A1 center passes through unscaled.
		assert.Equal(t, []string{"20,20"}, device.taps)
		assert.Equal(t, []int{3}, device.pressed)
	})

	t.Run("a failing call becomes an error result and the batch continues", func(t *testing.T) {
		device := &fakeDevice{tapErr: errors.New("device gone")}
		provider := &scriptedProvider{steps: []scriptedStep{
			{resp: &llm.ChatResponse{ToolCalls: []llm.ToolCall{
				toolCall("c1", tools.ToolTap, `{"cell":"A1"}`),
				toolCall("c2", tools.ToolTaskComplete, `{"summary":"anyway"}`),
			}}},
		}}
		ag, _ := newTestAgent(t, provider, device, Options{})

		var results []Event
		ag.onEvent = func(e Event) {
			if e.Kind == EventToolResult {
				results = append(results, e)
			}
		}

		result, err := ag.Run(context.Background(), "tap through failure")
		require.NoError(t, err)
		assert.Equal(t, StatusComplete, result.Status)

		require.Len(t, results, 2)
		assert.True(t, results[0].IsError)
		assert.Contains(t, results[0].Text, "Error executing tap")
		assert.False(t, results[1].IsError)
	})

	t.Run("unknown tool is reported in-band and the run continues", func(t *testing.T) {
		provider := &scriptedProvider{steps: []scriptedStep{
			{resp: &llm.ChatResponse{ToolCalls: []llm.ToolCall{
				toolCall("c1", "nonexistent_tool", `{}`),
			}}},
			{resp: &llm.ChatResponse{ToolCalls: []llm.ToolCall{
				toolCall("c2", tools.ToolTaskComplete, `{"summary":"recovered"}`),
			}}},
		}}
		ag, _ := newTestAgent(t, provider, &fakeDevice{}, Options{})

		result, err := ag.Run(context.Background(), "bad tool first")
		require.NoError(t, err)
		assert.Equal(t, StatusComplete, result.Status)
		assert.Equal(t, "recovered", result.Summary)
	})
}

func TestAgent_HierarchyDegradation(t *testing.T) {
	device := &fakeDevice{uiErr: errors.New("uiautomator crashed")}
	provider := &scriptedProvider{steps: []scriptedStep{
		{resp: &llm.ChatResponse{ToolCalls: []llm.ToolCall{
			toolCall("c1", tools.ToolTaskComplete, `{"summary":"blind but done"}`),
		}}},
	}}
	ag, _ := newTestAgent(t, provider, device, Options{})

	result, err := ag.Run(context.Background(), "no hierarchy available")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, result.Status)

	require.NotNil(t, provider.lastRequest)
	var visionTurn llm.UserTurn
	for _, turn := range provider.lastRequest.Turns {
		if u, ok := turn.(llm.UserTurn); ok && u.Image != nil {
			visionTurn = u
		}
	}
	assert.Contains(t, visionTurn.Hierarchy, "UI hierarchy unavailable")
}

func TestAgent_RateLimitRetry(t *testing.T) {
	rateLimited := func(msg string) error {
		return &llm.RateLimitError{Provider: "test", Err: errors.New(msg)}
	}
	complete := &llm.ChatResponse{ToolCalls: []llm.ToolCall{
		toolCall("c1", tools.ToolTaskComplete, `{"summary":"finally"}`),
	}}

	t.Run("backs off 5s then 10s and succeeds", func(t *testing.T) {
		provider := &scriptedProvider{steps: []scriptedStep{
			{err: rateLimited("429 too many requests")},
			{err: rateLimited("429 too many requests")},
			{resp: complete},
		}}
		ag, sleeper := newTestAgent(t, provider, &fakeDevice{}, Options{})

		result, err := ag.Run(context.Background(), "retry me")
		require.NoError(t, err)
		assert.Equal(t, StatusComplete, result.Status)
		assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, sleeper.waits)
	})

	t.Run("provider wait hint overrides the schedule", func(t *testing.T) {
		provider := &scriptedProvider{steps: []scriptedStep{
			{err: rateLimited("rate limited, try again in 2.5s please")},
			{resp: complete},
		}}
		ag, sleeper := newTestAgent(t, provider, &fakeDevice{}, Options{})

		_, err := ag.Run(context.Background(), "hinted retry")
		require.NoError(t, err)
		require.Len(t, sleeper.waits, 1)
		assert.Equal(t, 3500*time.Millisecond, sleeper.waits[0])
	})

	t.Run("exhausting the retry budget is fatal", func(t *testing.T) {
		provider := &scriptedProvider{steps: []scriptedStep{
			{err: rateLimited("429")},
			{err: rateLimited("429")},
			{err: rateLimited("429")},
			{err: rateLimited("429")},
		}}
		ag, sleeper := newTestAgent(t, provider, &fakeDevice{}, Options{})

		_, err := ag.Run(context.Background(), "always throttled")
		require.Error(t, err)
		assert.True(t, llm.IsRateLimit(err))
		assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}, sleeper.waits)
		assert.Equal(t, 4, provider.calls)
	})

	t.Run("non-rate-limit provider errors are immediately fatal", func(t *testing.T) {
		provider := &scriptedProvider{steps: []scriptedStep{
			{err: errors.New("invalid api key")},
		}}
		ag, sleeper := newTestAgent(t, provider, &fakeDevice{}, Options{})

		_, err := ag.Run(context.Background(), "broken auth")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid api key")
		assert.Empty(t, sleeper.waits)
		assert.Equal(t, 1, provider.calls)
	})
}

func TestAgent_WindowImageCap(t *testing.T) {
	// Three iterations with a two-image cap: the request sent on the
	// final think must carry at most two screenshots.
	provider := &scriptedProvider{steps: []scriptedStep{
		{resp: &llm.ChatResponse{Content: "looking"}},
		{resp: &llm.ChatResponse{Content: "still looking"}},
		{resp: &llm.ChatResponse{ToolCalls: []llm.ToolCall{
			toolCall("c1", tools.ToolTaskComplete, `{"summary":"done"}`),
		}}},
	}}
	ag, _ := newTestAgent(t, provider, &fakeDevice{}, Options{MaxImages: 2})

	_, err := ag.Run(context.Background(), "bounded context")
	require.NoError(t, err)

	require.NotNil(t, provider.lastRequest)
	images := 0
	hierarchies := 0
	for _, turn := range provider.lastRequest.Turns {
		if u, ok := turn.(llm.UserTurn); ok {
			if u.Image != nil {
				images++
			}
			if u.Hierarchy != "" {
				hierarchies++
			}
		}
	}
	assert.Equal(t, 2, images)
	assert.Equal(t, 1, hierarchies)
}

func TestAgent_RejectsNonVisionProvider(t *testing.T) {
	provider := &blindProvider{}
	_, err := New(provider, &fakeDevice{}, nil, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vision")
}

type blindProvider struct{ scriptedProvider }

func (p *blindProvider) SupportsVision() bool { return false }

// gatedProvider signals when a call enters Chat and blocks it until
// released, so tests can hold a run open mid-turn.
type gatedProvider struct {
	scriptedProvider
	entered chan struct{}
	release chan struct{}
}

func (p *gatedProvider) Chat(_ context.Context, _ *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.entered <- struct{}{}
	<-p.release
	return &llm.ChatResponse{
		Content:   "Done.",
		ToolCalls: []llm.ToolCall{toolCall("c1", tools.ToolTaskComplete, `{"summary":"done"}`)},
	}, nil
}

func TestAgent_ConcurrentRunsSerialize(t *testing.T) {
	provider := &gatedProvider{
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	ag, err := New(provider, &fakeDevice{}, nil, Options{})
	require.NoError(t, err)
	ag.limiter = rate.NewLimiter(rate.Inf, 1)

	done := make(chan error, 2)
	go func() {
		_, err := ag.Run(context.Background(), "first objective")
		done <- err
	}()
	<-provider.entered

	go func() {
		_, err := ag.Run(context.Background(), "second objective")
		done <- err
	}()

	// The first run is still inside its provider call; the second must
	// not reach the provider until it finishes.
	select {
	case <-provider.entered:
		t.Fatal("second run reached the provider while the first was active")
	case <-time.After(100 * time.Millisecond):
	}

	close(provider.release)
	for i := 0; i < 2; i++ {
		require.NoError(t, <-done)
	}
}
