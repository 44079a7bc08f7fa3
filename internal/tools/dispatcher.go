// Package tools defines the fixed action catalog exposed to the model
// and executes validated tool calls against a device.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/shikhr/opdroid/internal/grid"
)

// ErrUnknownTool reports a tool name outside the catalog.
var ErrUnknownTool = errors.New("unknown tool")

// Device is the capability set the dispatcher drives. *adb.Client
// implements it.
type Device interface {
	Tap(ctx context.Context, x, y int) (string, error)
	Swipe(ctx context.Context, startX, startY, endX, endY, durationMs int) (string, error)
	InputText(ctx context.Context, text string) (string, error)
	PressHome(ctx context.Context) (string, error)
	PressBack(ctx context.Context) (string, error)
	PressEnter(ctx context.Context) (string, error)
	PressRecentApps(ctx context.Context) (string, error)
	LaunchApp(ctx context.Context, pkg string) (string, error)
}

type handlerFunc func(ctx context.Context, raw json.RawMessage) (string, error)

// Dispatcher validates tool calls from the model and executes them
// against a device. Screen sizes are recorded once per observation so
// every call in a batch scales cell coordinates the same way.
type Dispatcher struct {
	device   Device
	cellSize int
	handlers map[string]handlerFunc
	sleep    func(time.Duration)

	rawW, rawH         int
	displayW, displayH int
}

// NewDispatcher builds the tool table for a device. cellSize is the
// grid cell edge in display pixels; zero or negative selects the
// default.
func NewDispatcher(device Device, cellSize int) *Dispatcher {
	if cellSize <= 0 {
		cellSize = grid.DefaultCellSize
	}
	d := &Dispatcher{
		device:   device,
		cellSize: cellSize,
		sleep:    time.Sleep,
	}
	d.handlers = map[string]handlerFunc{
		ToolTap:             d.tap,
		ToolTapSequence:     d.tapSequence,
		ToolSwipe:           d.swipe,
		ToolInputText:       d.inputText,
		ToolPressHome:       d.pressHome,
		ToolPressBack:       d.pressBack,
		ToolPressEnter:      d.pressEnter,
		ToolPressRecentApps: d.pressRecentApps,
		ToolLaunchApp:       d.launchApp,
		ToolWait:            d.wait,
		ToolTaskComplete:    d.taskComplete,
		ToolTaskImpossible:  d.taskImpossible,
	}
	return d
}

// SetScreenSizes records the raw device size and the resized display
// size for the current observation. Until the next call, cell
// coordinates scale from display space into device space with these
// ratios.
func (d *Dispatcher) SetScreenSizes(rawW, rawH, displayW, displayH int) {
	d.rawW, d.rawH = rawW, rawH
	d.displayW, d.displayH = displayW, displayH
}

// Execute runs one tool call and returns its result string. Malformed
// argument payloads degrade to an empty-argument attempt; the tool
// itself then reports whatever is missing.
func (d *Dispatcher) Execute(ctx context.Context, name string, args json.RawMessage) (string, error) {
	h, ok := d.handlers[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return h(ctx, normalizeArguments(args))
}

// normalizeArguments turns a model-emitted payload into valid JSON.
// Broken payloads are repaired when possible and otherwise replaced
// with an empty object, so a bad tool call still yields a tool result
// instead of sinking the whole batch.
func normalizeArguments(raw json.RawMessage) json.RawMessage {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return json.RawMessage(`{}`)
	}
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	if repaired, err := jsonrepair.JSONRepair(trimmed); err == nil && json.Valid([]byte(repaired)) {
		return json.RawMessage(repaired)
	}
	return json.RawMessage(`{}`)
}

// cellToDevice converts a display-space grid cell into raw device
// pixels. Without recorded sizes the display coordinates pass through
// unscaled.
func (d *Dispatcher) cellToDevice(cell string) (grid.Point, error) {
	p, err := grid.CellToPixel(cell, d.cellSize)
	if err != nil {
		return grid.Point{}, err
	}
	if d.rawW <= 0 || d.rawH <= 0 || d.displayW <= 0 || d.displayH <= 0 {
		return p, nil
	}
	return grid.Point{
		X: int(math.Round(float64(p.X) * float64(d.rawW) / float64(d.displayW))),
		Y: int(math.Round(float64(p.Y) * float64(d.rawH) / float64(d.displayH))),
	}, nil
}

func (d *Dispatcher) tap(ctx context.Context, raw json.RawMessage) (string, error) {
	var args tapArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if args.Cell == "" {
		return "", missingArg("cell")
	}
	p, err := d.cellToDevice(args.Cell)
	if err != nil {
		return "", err
	}
	return d.device.Tap(ctx, p.X, p.Y)
}

func (d *Dispatcher) tapSequence(ctx context.Context, raw json.RawMessage) (string, error) {
	args := tapSequenceArgs{DelayMS: defaultTapDelayMS}
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if args.Cells == nil {
		return "", missingArg("cells")
	}

	tapped := make([]string, 0, len(args.Cells))
	for i, cell := range args.Cells {
		p, err := d.cellToDevice(cell)
		if err != nil {
			return "", err
		}
		if _, err := d.device.Tap(ctx, p.X, p.Y); err != nil {
			return "", err
		}
		tapped = append(tapped, cell)
		// No delay after the final tap.
		if i < len(args.Cells)-1 {
			d.sleep(time.Duration(args.DelayMS * float64(time.Millisecond)))
		}
	}
	return "Tapped sequence: " + strings.Join(tapped, " -> "), nil
}

func (d *Dispatcher) swipe(ctx context.Context, raw json.RawMessage) (string, error) {
	args := swipeArgs{DurationMS: defaultSwipeDurationMS}
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if args.StartCell == "" {
		return "", missingArg("start_cell")
	}
	if args.EndCell == "" {
		return "", missingArg("end_cell")
	}

	start, err := d.cellToDevice(args.StartCell)
	if err != nil {
		return "", err
	}
	end, err := d.cellToDevice(args.EndCell)
	if err != nil {
		return "", err
	}
	return d.device.Swipe(ctx, start.X, start.Y, end.X, end.Y, int(args.DurationMS))
}

func (d *Dispatcher) inputText(ctx context.Context, raw json.RawMessage) (string, error) {
	var args inputTextArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if args.Text == nil {
		return "", missingArg("text")
	}
	return d.device.InputText(ctx, *args.Text)
}

func (d *Dispatcher) pressHome(ctx context.Context, _ json.RawMessage) (string, error) {
	return d.device.PressHome(ctx)
}

func (d *Dispatcher) pressBack(ctx context.Context, _ json.RawMessage) (string, error) {
	return d.device.PressBack(ctx)
}

func (d *Dispatcher) pressEnter(ctx context.Context, _ json.RawMessage) (string, error) {
	return d.device.PressEnter(ctx)
}

func (d *Dispatcher) pressRecentApps(ctx context.Context, _ json.RawMessage) (string, error) {
	return d.device.PressRecentApps(ctx)
}

func (d *Dispatcher) launchApp(ctx context.Context, raw json.RawMessage) (string, error) {
	var args launchAppArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if args.Package == "" {
		return "", missingArg("package")
	}
	return d.device.LaunchApp(ctx, args.Package)
}

func (d *Dispatcher) wait(_ context.Context, raw json.RawMessage) (string, error) {
	var args waitArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if args.Seconds == nil {
		return "", missingArg("seconds")
	}
	secs := float64(*args.Seconds)
	if secs < 0 {
		return "", fmt.Errorf("seconds must be non-negative, got %v", secs)
	}
	d.sleep(time.Duration(secs * float64(time.Second)))
	return "Waited " + strconv.FormatFloat(secs, 'f', -1, 64) + " seconds", nil
}

func (d *Dispatcher) taskComplete(_ context.Context, raw json.RawMessage) (string, error) {
	var args taskCompleteArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if args.Summary == nil {
		return "", missingArg("summary")
	}
	return CompletePrefix + *args.Summary, nil
}

func (d *Dispatcher) taskImpossible(_ context.Context, raw json.RawMessage) (string, error) {
	var args taskImpossibleArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if args.Reason == nil {
		return "", missingArg("reason")
	}
	return ImpossiblePrefix + *args.Reason, nil
}
