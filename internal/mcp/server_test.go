package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shikhr/opdroid/internal/adb"
)

// fakeDevice answers every device call with canned data and records
// taps so cell scaling can be asserted.
type fakeDevice struct {
	taps    []string
	devices []adb.DeviceInfo

	screenshotErr error
	uiErr         error
	devicesErr    error
}

const fakeHierarchy = `<?xml version='1.0' encoding='UTF-8'?>
<hierarchy rotation="0">
  <node class="android.widget.Button" text="OK" clickable="true" scrollable="false" bounds="[0,0][400,80]"/>
</hierarchy>`

func (f *fakeDevice) Tap(_ context.Context, x, y int) (string, error) {
	f.taps = append(f.taps, fmt.Sprintf("%d,%d", x, y))
	return fmt.Sprintf("Tapped at (%d, %d)", x, y), nil
}

func (f *fakeDevice) Swipe(_ context.Context, sx, sy, ex, ey, dur int) (string, error) {
	return fmt.Sprintf("Swiped from (%d, %d) to (%d, %d)", sx, sy, ex, ey), nil
}

func (f *fakeDevice) InputText(_ context.Context, text string) (string, error) {
	return "Entered text: '" + text + "'", nil
}

func (f *fakeDevice) PressHome(context.Context) (string, error)       { return "Pressed key: 3", nil }
func (f *fakeDevice) PressBack(context.Context) (string, error)       { return "Pressed key: 4", nil }
func (f *fakeDevice) PressEnter(context.Context) (string, error)      { return "Pressed key: 66", nil }
func (f *fakeDevice) PressRecentApps(context.Context) (string, error) { return "Pressed key: 187", nil }

func (f *fakeDevice) LaunchApp(_ context.Context, pkg string) (string, error) {
	return "Launched app: " + pkg, nil
}

func (f *fakeDevice) Screenshot(context.Context) (image.Image, error) {
	if f.screenshotErr != nil {
		return nil, f.screenshotErr
	}
	// Small enough that no resize happens, so display == raw.
	return image.NewRGBA(image.Rect(0, 0, 400, 800)), nil
}

func (f *fakeDevice) UIHierarchy(context.Context) (string, error) {
	if f.uiErr != nil {
		return "", f.uiErr
	}
	return fakeHierarchy, nil
}

func (f *fakeDevice) ScreenSize(context.Context) (int, int, error) {
	return 1080, 2400, nil
}

func (f *fakeDevice) Devices(context.Context) ([]adb.DeviceInfo, error) {
	if f.devicesErr != nil {
		return nil, f.devicesErr
	}
	return f.devices, nil
}

// session runs a server over in-memory pipes and returns one decoded
// response per request sent.
func session(t *testing.T, dev *fakeDevice, requests ...string) []response {
	t.Helper()

	in := strings.NewReader(strings.Join(requests, "\n") + "\n")
	var out strings.Builder

	srv := NewServer(dev, Options{Version: "test"})
	require.NoError(t, srv.Serve(context.Background(), in, &out))

	var responses []response
	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var resp response
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
		responses = append(responses, resp)
	}
	return responses
}

func callResult(t *testing.T, resp response) ToolsCallResult {
	t.Helper()
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result ToolsCallResult
	require.NoError(t, json.Unmarshal(raw, &result))
	return result
}

func callRequest(id int, tool, args string) string {
	if args == "" {
		args = "{}"
	}
	return fmt.Sprintf(
		`{"jsonrpc":"2.0","id":%d,"method":"tools/call","params":{"name":%q,"arguments":%s}}`,
		id, tool, args)
}

func TestInitializeHandshake(t *testing.T) {
	responses := session(t, &fakeDevice{},
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	)

	// The notification gets no response.
	require.Len(t, responses, 2)

	raw, err := json.Marshal(responses[0].Result)
	require.NoError(t, err)
	var init InitializeResult
	require.NoError(t, json.Unmarshal(raw, &init))
	assert.Equal(t, ProtocolVersion, init.ProtocolVersion)
	assert.Equal(t, "opdroid", init.ServerInfo.Name)
	assert.NotNil(t, init.Capabilities.Tools)
}

func TestToolsList(t *testing.T) {
	responses := session(t, &fakeDevice{},
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	require.Len(t, responses, 1)

	raw, err := json.Marshal(responses[0].Result)
	require.NoError(t, err)
	var list ToolsListResult
	require.NoError(t, json.Unmarshal(raw, &list))

	names := make([]string, len(list.Tools))
	for i, tool := range list.Tools {
		names[i] = tool.Name
	}

	assert.Equal(t, []string{
		"get_screen", "tap", "tap_sequence", "swipe", "input_text",
		"press_home", "press_back", "press_enter", "press_recent_apps",
		"launch_app", "wait", "list_devices", "opdroid_root_system_prompt",
	}, names)

	// The agent-only terminal tools stay out of the MCP surface.
	assert.NotContains(t, names, "task_complete")
	assert.NotContains(t, names, "task_impossible")
}

func TestGetScreen(t *testing.T) {
	responses := session(t, &fakeDevice{}, callRequest(1, "get_screen", ""))
	require.Len(t, responses, 1)

	result := callResult(t, responses[0])
	require.Len(t, result.Content, 2)
	assert.False(t, result.IsError)

	assert.Equal(t, "image", result.Content[0].Type)
	assert.Equal(t, "image/png", result.Content[0].MimeType)
	assert.NotEmpty(t, result.Content[0].Data)

	assert.Equal(t, "text", result.Content[1].Type)
	assert.Contains(t, result.Content[1].Text, "## Interactive UI Elements")
	assert.Contains(t, result.Content[1].Text, `"OK"`)
	assert.Contains(t, result.Content[1].Text, "Use the 'position' value")
}

func TestGetScreenHierarchyFailure(t *testing.T) {
	dev := &fakeDevice{uiErr: errors.New("uiautomator busy")}
	responses := session(t, dev, callRequest(1, "get_screen", ""))

	result := callResult(t, responses[0])
	require.Len(t, result.Content, 2)
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content[1].Text, "(Unable to parse UI hierarchy)")
}

func TestGetScreenCaptureFailure(t *testing.T) {
	dev := &fakeDevice{screenshotErr: errors.New("device offline")}
	responses := session(t, dev, callRequest(1, "get_screen", ""))

	result := callResult(t, responses[0])
	require.Len(t, result.Content, 1)
	assert.True(t, result.IsError)
	assert.Equal(t, "Error capturing screen: device offline", result.Content[0].Text)
}

func TestTapAfterGetScreenUsesMeasuredSizes(t *testing.T) {
	dev := &fakeDevice{}
	responses := session(t, dev,
		callRequest(1, "get_screen", ""),
		callRequest(2, "tap", `{"cell":"A1"}`),
	)
	require.Len(t, responses, 2)

	result := callResult(t, responses[1])
	assert.Equal(t, "Tapped at (20, 20)", result.Content[0].Text)
	// 400x800 screenshot needs no resize, so cell centers map 1:1.
	assert.Equal(t, []string{"20,20"}, dev.taps)
}

func TestTapWithoutGetScreenFallsBack(t *testing.T) {
	dev := &fakeDevice{}
	responses := session(t, dev, callRequest(1, "tap", `{"cell":"A1"}`))
	require.Len(t, responses, 1)

	// Raw 1080x2400 against the assumed 460x1024 display: cell center
	// (20,20) scales to round(1080*20/460), round(2400*20/1024).
	result := callResult(t, responses[0])
	assert.False(t, result.IsError)
	assert.Equal(t, []string{"47,47"}, dev.taps)
}

func TestUnknownTool(t *testing.T) {
	responses := session(t, &fakeDevice{}, callRequest(1, "fly_drone", ""))

	result := callResult(t, responses[0])
	assert.False(t, result.IsError)
	assert.Equal(t, "Unknown tool: fly_drone", result.Content[0].Text)
	assert.Nil(t, responses[0].Error)
}

func TestListDevices(t *testing.T) {
	t.Run("devices connected", func(t *testing.T) {
		dev := &fakeDevice{devices: []adb.DeviceInfo{
			{Serial: "emulator-5554", State: "device"},
			{Serial: "R5CT10XXXXX", State: "device"},
		}}
		responses := session(t, dev, callRequest(1, "list_devices", ""))

		result := callResult(t, responses[0])
		assert.Equal(t, "Connected devices:\n- emulator-5554\n- R5CT10XXXXX", result.Content[0].Text)
	})

	t.Run("no devices", func(t *testing.T) {
		responses := session(t, &fakeDevice{}, callRequest(1, "list_devices", ""))

		result := callResult(t, responses[0])
		assert.Equal(t, "No Android devices connected.", result.Content[0].Text)
	})
}

func TestSystemPromptTool(t *testing.T) {
	responses := session(t, &fakeDevice{}, callRequest(1, "opdroid_root_system_prompt", ""))

	result := callResult(t, responses[0])
	assert.True(t, strings.HasPrefix(result.Content[0].Text, "# Android Device Control System Prompt\n\n"))
	assert.Contains(t, result.Content[0].Text, "grid")
}

func TestMethodNotFound(t *testing.T) {
	responses := session(t, &fakeDevice{},
		`{"jsonrpc":"2.0","id":1,"method":"resources/list"}`)

	require.NotNil(t, responses[0].Error)
	assert.Equal(t, codeMethodNotFound, responses[0].Error.Code)
	assert.Contains(t, responses[0].Error.Message, "resources/list")
}

func TestParseError(t *testing.T) {
	responses := session(t, &fakeDevice{}, `{this is not json`)

	require.NotNil(t, responses[0].Error)
	assert.Equal(t, codeParseError, responses[0].Error.Code)
}
