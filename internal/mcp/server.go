// Package mcp exposes the device tool catalog over the Model Context
// Protocol, speaking JSON-RPC 2.0 on stdio so any MCP client can drive
// an Android device. All logging goes to stderr; stdout carries only
// protocol frames.
package mcp

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/shikhr/opdroid/internal/adb"
	"github.com/shikhr/opdroid/internal/agent"
	"github.com/shikhr/opdroid/internal/grid"
	"github.com/shikhr/opdroid/internal/hierarchy"
	"github.com/shikhr/opdroid/internal/screenshot"
	"github.com/shikhr/opdroid/internal/tools"
)

const serverName = "opdroid"

// Display size assumed for cell math when a tool runs before any
// get_screen call has measured the real resized dimensions.
const (
	fallbackDisplayW = 460
	fallbackDisplayH = 1024
)

// DefaultResizeMaxDim caps the longer screenshot edge before the grid
// overlay is drawn.
const DefaultResizeMaxDim = 1024

var emptySchema = json.RawMessage(`{"type":"object","properties":{},"required":[]}`)

// Device is everything the server needs from a connected phone.
type Device interface {
	tools.Device
	Screenshot(ctx context.Context) (image.Image, error)
	UIHierarchy(ctx context.Context) (string, error)
	ScreenSize(ctx context.Context) (int, int, error)
	Devices(ctx context.Context) ([]adb.DeviceInfo, error)
}

// Options configure a Server.
type Options struct {
	ResizeMaxDim int
	CellSize     int
	Version      string
	Logger       *zap.Logger
}

// Server handles one MCP session over a reader/writer pair.
type Server struct {
	device     Device
	dispatcher *tools.Dispatcher
	logger     *zap.Logger
	resizeMax  int
	cellSize   int
	version    string

	// sized flips once screen dimensions have been fed to the
	// dispatcher, either measured by get_screen or estimated.
	sized bool
}

// NewServer creates a server bound to one device.
func NewServer(device Device, opts Options) *Server {
	if opts.ResizeMaxDim <= 0 {
		opts.ResizeMaxDim = DefaultResizeMaxDim
	}
	if opts.CellSize <= 0 {
		opts.CellSize = grid.DefaultCellSize
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{
		device:     device,
		dispatcher: tools.NewDispatcher(device, opts.CellSize),
		logger:     opts.Logger.Named("mcp"),
		resizeMax:  opts.ResizeMaxDim,
		cellSize:   opts.CellSize,
		version:    opts.Version,
	}
}

// Serve reads newline-delimited JSON-RPC requests from r and writes
// responses to w until r is exhausted or ctx is canceled.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	enc := json.NewEncoder(w)

	s.logger.Info("server ready", zap.String("protocol", ProtocolVersion))

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.logger.Warn("unparseable frame", zap.Error(err))
			if err := enc.Encode(response{
				JSONRPC: jsonRPCVersion,
				ID:      json.RawMessage("null"),
				Error:   &rpcError{Code: codeParseError, Message: "Parse error"},
			}); err != nil {
				return err
			}
			continue
		}

		resp := s.handle(ctx, req)
		if resp == nil {
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// handle dispatches one request. A nil return means no response is due.
func (s *Server) handle(ctx context.Context, req request) *response {
	s.logger.Debug("request", zap.String("method", req.Method))

	if req.isNotification() {
		// The only notification in our surface is initialized; others
		// are ignored per JSON-RPC.
		return nil
	}

	resp := &response{JSONRPC: jsonRPCVersion, ID: req.ID}

	switch req.Method {
	case "initialize":
		resp.Result = InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    ServerCapabilities{Tools: &ToolsCapability{}},
			ServerInfo:      ServerInfo{Name: serverName, Version: s.version},
		}
	case "ping":
		resp.Result = struct{}{}
	case "tools/list":
		resp.Result = ToolsListResult{Tools: s.toolList()}
	case "tools/call":
		var params ToolsCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			resp.Error = &rpcError{Code: codeParseError, Message: "Parse error"}
			break
		}
		resp.Result = s.callTool(ctx, params)
	default:
		resp.Error = &rpcError{
			Code:    codeMethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}
	return resp
}

// toolList is the device catalog minus the agent-only terminal tools,
// bracketed by the MCP-specific screen, device, and prompt tools.
func (s *Server) toolList() []Tool {
	list := []Tool{{
		Name: "get_screen",
		Description: "Capture the current Android screen state. Returns a screenshot with a labeled grid overlay " +
			"(columns A-Z, rows 1-N) and a list of interactive UI elements with their tap positions. " +
			"Use this to see what's on screen before taking actions.",
		InputSchema: emptySchema,
	}}

	for _, def := range tools.Definitions() {
		if def.Name == tools.ToolTaskComplete || def.Name == tools.ToolTaskImpossible {
			continue
		}
		list = append(list, Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		})
	}

	list = append(list,
		Tool{
			Name:        "list_devices",
			Description: "List all connected Android devices.",
			InputSchema: emptySchema,
		},
		Tool{
			Name: "opdroid_root_system_prompt",
			Description: "Get the recommended system prompt for controlling Android devices with opdroid. " +
				"Use this prompt to understand how to interact with the device effectively, " +
				"including the grid system, available actions, and best practices.",
			InputSchema: emptySchema,
		})
	return list
}

func (s *Server) callTool(ctx context.Context, params ToolsCallParams) ToolsCallResult {
	s.logger.Info("tool call", zap.String("tool", params.Name))

	switch params.Name {
	case "get_screen":
		return s.getScreen(ctx)
	case "list_devices":
		return s.listDevices(ctx)
	case "opdroid_root_system_prompt":
		return ToolsCallResult{Content: []Content{
			textContent("# Android Device Control System Prompt\n\n" + agent.SystemPrompt),
		}}
	}

	if !s.sized {
		rawW, rawH, err := s.device.ScreenSize(ctx)
		if err != nil {
			return errorResult(fmt.Sprintf("Error executing %s: %v", params.Name, err))
		}
		s.dispatcher.SetScreenSizes(rawW, rawH, fallbackDisplayW, fallbackDisplayH)
		s.sized = true
	}

	result, err := s.dispatcher.Execute(ctx, params.Name, params.Arguments)
	if errors.Is(err, tools.ErrUnknownTool) {
		return ToolsCallResult{Content: []Content{
			textContent(fmt.Sprintf("Unknown tool: %s", params.Name)),
		}}
	}
	if err != nil {
		return errorResult(fmt.Sprintf("Error executing %s: %v", params.Name, err))
	}
	return ToolsCallResult{Content: []Content{textContent(result)}}
}

// getScreen captures a gridded screenshot plus the element digest, and
// feeds the measured dimensions into the dispatcher so later cell math
// matches what the client saw.
func (s *Server) getScreen(ctx context.Context) ToolsCallResult {
	img, err := s.device.Screenshot(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("Error capturing screen: %v", err))
	}
	rawW, rawH := img.Bounds().Dx(), img.Bounds().Dy()

	resized := screenshot.Fit(img, s.resizeMax)
	dispW, dispH := resized.Bounds().Dx(), resized.Bounds().Dy()
	s.dispatcher.SetScreenSizes(rawW, rawH, dispW, dispH)
	s.sized = true

	png, err := screenshot.EncodePNG(grid.Overlay(resized, s.cellSize))
	if err != nil {
		return errorResult(fmt.Sprintf("Error capturing screen: %v", err))
	}

	elements := "(Unable to parse UI hierarchy)"
	if xml, err := s.device.UIHierarchy(ctx); err == nil {
		compactor := hierarchy.Compactor{
			CellSize: s.cellSize,
			Raw:      hierarchy.Size{W: rawW, H: rawH},
			Display:  hierarchy.Size{W: dispW, H: dispH},
		}
		elements = compactor.Compact([]byte(xml))
	}

	return ToolsCallResult{Content: []Content{
		imageContent(base64.StdEncoding.EncodeToString(png)),
		textContent(fmt.Sprintf(
			"## Interactive UI Elements\n\n%s\n\nUse the 'position' value from the elements above to tap on them.",
			elements)),
	}}
}

func (s *Server) listDevices(ctx context.Context) ToolsCallResult {
	devices, err := s.device.Devices(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("Error listing devices: %v", err))
	}
	if len(devices) == 0 {
		return ToolsCallResult{Content: []Content{textContent("No Android devices connected.")}}
	}

	var b strings.Builder
	b.WriteString("Connected devices:")
	for _, d := range devices {
		b.WriteString("\n- " + d.Serial)
	}
	return ToolsCallResult{Content: []Content{textContent(b.String())}}
}

func errorResult(msg string) ToolsCallResult {
	return ToolsCallResult{Content: []Content{textContent(msg)}, IsError: true}
}
