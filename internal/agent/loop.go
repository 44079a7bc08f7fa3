// Package agent runs the bounded observe-think-act loop that drives an
// Android device toward a natural-language objective.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shikhr/opdroid/internal/grid"
	"github.com/shikhr/opdroid/internal/hierarchy"
	"github.com/shikhr/opdroid/internal/llm"
	"github.com/shikhr/opdroid/internal/screenshot"
	"github.com/shikhr/opdroid/internal/tools"
)

// Status classifies how a run ended.
type Status string

const (
	StatusComplete      Status = "complete"
	StatusImpossible    Status = "impossible"
	StatusMaxIterations Status = "max_iterations"
)

// Result is the outcome of one Run.
type Result struct {
	Status     Status
	Summary    string
	Iterations int
}

// Device is the capability set the loop observes and acts through.
// *adb.Client implements it.
type Device interface {
	tools.Device
	Screenshot(ctx context.Context) (image.Image, error)
	UIHierarchy(ctx context.Context) (string, error)
}

// Options tune one agent instance.
type Options struct {
	MaxIterations int // observe-think-act cycles before giving up (default 50)
	MaxImages     int // screenshots kept in context (default 5)
	ResizeMaxDim  int // longest edge of the screenshot sent to the model (default 800)
	CellSize      int // grid cell edge in display pixels (default 40)
	MaxTokens     int // response budget per model call (default 4096)

	// OnEvent, when set, receives every loop event for live rendering.
	// It is called from the loop goroutine and must not block.
	OnEvent func(Event)
}

// Defaults applied by New for zero Options fields.
const (
	DefaultMaxIterations = 50
	DefaultResizeMaxDim  = 800
	DefaultMaxTokens     = 4096
)

// Agent drives one device with one provider. A single Run executes at a
// time; the mutex keeps a second Run from interleaving turns into the
// shared window.
type Agent struct {
	mu         sync.Mutex
	provider   llm.Provider
	device     Device
	dispatcher *tools.Dispatcher
	history    *History
	logger     *zap.Logger

	// limiter paces provider calls to at most one per second, inside
	// the retry loop as well, so backoff sleeps and pacing compose.
	limiter *rate.Limiter
	sleeper Sleeper

	opts    Options
	onEvent func(Event)
}

// New builds an agent around a provider and a device. The provider must
// support both vision and tool use.
func New(provider llm.Provider, device Device, logger *zap.Logger, opts Options) (*Agent, error) {
	if !provider.SupportsVision() {
		return nil, fmt.Errorf("provider %s: model %s does not support vision", provider.ID(), provider.DefaultModel())
	}
	if !provider.SupportsTools() {
		return nil, fmt.Errorf("provider %s: model %s does not support tool use", provider.ID(), provider.DefaultModel())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.ResizeMaxDim <= 0 {
		opts.ResizeMaxDim = DefaultResizeMaxDim
	}
	if opts.CellSize <= 0 {
		opts.CellSize = grid.DefaultCellSize
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}

	return &Agent{
		provider:   provider,
		device:     device,
		dispatcher: tools.NewDispatcher(device, opts.CellSize),
		history:    NewHistory(opts.MaxImages),
		logger:     logger.Named("agent"),
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		sleeper:    realSleeper{},
		opts:       opts,
		onEvent:    opts.OnEvent,
	}, nil
}

// SetOnEvent replaces the event sink. Call before Run; the loop reads
// it without locking.
func (a *Agent) SetOnEvent(fn func(Event)) {
	a.onEvent = fn
}

// Model returns the active model ID.
func (a *Agent) Model() string {
	return a.provider.DefaultModel()
}

// ProviderID returns the active provider's identifier.
func (a *Agent) ProviderID() llm.ProviderID {
	return a.provider.ID()
}

// observation is one snapshot of device state. The size pair is fixed
// when the snapshot is taken and reused for every tool call executed
// against it.
type observation struct {
	png        []byte
	hierarchy  string
	rawW, rawH int
	dispW      int
	dispH      int
	cols, rows int
}

// Run drives the device until the model declares the objective done or
// impossible, or the iteration budget runs out. Provider failures other
// than retried rate limits abort the run.
func (a *Agent) Run(ctx context.Context, objective string) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.history.Reset()
	a.history.Append(llm.SystemTurn{Text: SystemPrompt})
	a.history.Append(llm.UserTurn{
		Text: fmt.Sprintf("Your objective: %s\n\nI will now show you the current screen state.", objective),
	})

	a.logger.Info("run started",
		zap.String("objective", objective),
		zap.String("model", a.Model()),
		zap.Int("max_iterations", a.opts.MaxIterations))

	for iteration := 1; iteration <= a.opts.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		obs, err := a.observe(ctx, iteration)
		if err != nil {
			return Result{}, fmt.Errorf("observe: %w", err)
		}

		resp, err := a.think(ctx, iteration, obs)
		if err != nil {
			return Result{}, fmt.Errorf("think: %w", err)
		}

		result, done := a.act(ctx, iteration, obs, resp.ToolCalls)
		if done {
			result.Iterations = iteration
			a.logger.Info("run finished",
				zap.String("status", string(result.Status)),
				zap.Int("iterations", iteration))
			a.emit(Event{Kind: EventDone, Iteration: iteration, Text: result.Summary})
			return result, nil
		}
	}

	summary := fmt.Sprintf("Max iterations (%d) reached without completion", a.opts.MaxIterations)
	a.logger.Warn("run exhausted iteration budget", zap.Int("max_iterations", a.opts.MaxIterations))
	a.emit(Event{Kind: EventDone, Iteration: a.opts.MaxIterations, Text: summary})
	return Result{
		Status:     StatusMaxIterations,
		Summary:    summary,
		Iterations: a.opts.MaxIterations,
	}, nil
}

// observe captures the screen, overlays the grid and compacts the UI
// hierarchy. The hierarchy is best effort; capture or parse trouble
// degrades to a marker and the iteration proceeds without elements.
func (a *Agent) observe(ctx context.Context, iteration int) (*observation, error) {
	img, err := a.device.Screenshot(ctx)
	if err != nil {
		return nil, err
	}
	rawBounds := img.Bounds()

	resized := screenshot.Fit(img, a.opts.ResizeMaxDim)
	dispBounds := resized.Bounds()

	gridded := grid.Overlay(resized, a.opts.CellSize)
	png, err := screenshot.EncodePNG(gridded)
	if err != nil {
		return nil, err
	}

	obs := &observation{
		png:   png,
		rawW:  rawBounds.Dx(),
		rawH:  rawBounds.Dy(),
		dispW: dispBounds.Dx(),
		dispH: dispBounds.Dy(),
	}
	obs.cols, obs.rows = grid.Dimensions(obs.dispW, obs.dispH, a.opts.CellSize)

	compactor := hierarchy.Compactor{
		CellSize: a.opts.CellSize,
		Raw:      hierarchy.Size{W: obs.rawW, H: obs.rawH},
		Display:  hierarchy.Size{W: obs.dispW, H: obs.dispH},
	}
	if xml, herr := a.device.UIHierarchy(ctx); herr != nil {
		a.logger.Debug("hierarchy capture failed", zap.Error(herr))
		obs.hierarchy = "UI elements (with grid positions):\n(UI hierarchy unavailable)"
	} else {
		obs.hierarchy = compactor.Digest([]byte(xml))
	}

	a.emit(Event{
		Kind:      EventObservation,
		Iteration: iteration,
		Text: fmt.Sprintf("Screen: %dx%d -> %dx%d | Grid: %dx%d",
			obs.rawW, obs.rawH, obs.dispW, obs.dispH, obs.cols, obs.rows),
	})
	return obs, nil
}

// lastColumnLabel names the rightmost column in the vision prompt. Past
// Z the original flattens the range to "Z+" rather than spelling out
// two-letter labels.
func lastColumnLabel(cols int) string {
	if cols > 26 {
		return "Z+"
	}
	if cols < 1 {
		return "A"
	}
	return grid.ColumnLabel(cols - 1)
}

// think appends the vision turn, prunes the window and asks the model
// for the next action, retrying rate limits on the backoff schedule.
func (a *Agent) think(ctx context.Context, iteration int, obs *observation) (*llm.ChatResponse, error) {
	a.history.Append(llm.UserTurn{
		Text: fmt.Sprintf("Current screen with %dx%d grid (columns A-%s, rows 1-%d). What action should I take next?",
			obs.cols, obs.rows, lastColumnLabel(obs.cols), obs.rows),
		Hierarchy: obs.hierarchy,
		Image:     &llm.ImageAttachment{MediaType: "image/png", Data: obs.png},
	})

	req := &llm.ChatRequest{
		Turns:     a.history.Window(),
		Tools:     tools.Definitions(),
		MaxTokens: a.opts.MaxTokens,
	}

	r := retrier{
		sleeper: a.sleeper,
		onWait: func(attempt int, wait time.Duration) {
			a.logger.Warn("rate limited, backing off",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait))
			a.emit(Event{Kind: EventRetry, Iteration: iteration, Wait: wait})
		},
	}
	resp, err := r.run(ctx, func() (*llm.ChatResponse, error) {
		// The window is re-pruned per attempt; a retried request must
		// not carry more images than the first one did.
		req.Turns = a.history.Window()
		if werr := a.limiter.Wait(ctx); werr != nil {
			return nil, werr
		}
		return a.provider.Chat(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	a.history.Append(llm.AssistantTurn{Text: resp.Content, ToolCalls: resp.ToolCalls})
	if resp.Content != "" {
		a.emit(Event{Kind: EventThinking, Iteration: iteration, Text: resp.Content})
	}
	return resp, nil
}

// act executes the batch of tool calls in order. Every call appends a
// tool result turn, errors included; the terminal check runs only after
// the whole batch so the model's trailing calls still land in history.
func (a *Agent) act(ctx context.Context, iteration int, obs *observation, calls []llm.ToolCall) (Result, bool) {
	if len(calls) == 0 {
		return Result{}, false
	}

	a.dispatcher.SetScreenSizes(obs.rawW, obs.rawH, obs.dispW, obs.dispH)

	var (
		done    bool
		status  Status
		summary string
	)
	for _, call := range calls {
		a.emit(Event{Kind: EventToolCall, Iteration: iteration, Tool: call.Name, Args: compactArgs(call.Input)})

		result, err := a.dispatcher.Execute(ctx, call.Name, call.Input)
		if err != nil {
			result = fmt.Sprintf("Error executing %s: %v", call.Name, err)
			a.logger.Warn("tool call failed", zap.String("tool", call.Name), zap.Error(err))
		}

		if rest, ok := strings.CutPrefix(result, tools.CompletePrefix); ok {
			done, status, summary = true, StatusComplete, rest
		} else if rest, ok := strings.CutPrefix(result, tools.ImpossiblePrefix); ok {
			done, status, summary = true, StatusImpossible, rest
		}

		a.history.Append(llm.ToolResultTurn{CallID: call.ID, Name: call.Name, Text: result})
		a.emit(Event{Kind: EventToolResult, Iteration: iteration, Tool: call.Name, Text: result, IsError: err != nil})
	}

	if !done {
		return Result{}, false
	}
	return Result{Status: status, Summary: summary}, true
}

// compactArgs renders a tool-call payload on one line for event sinks.
func compactArgs(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
