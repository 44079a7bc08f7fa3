// Package adb drives an Android device through the adb binary.
//
// Every method shells out to adb so the package works against anything
// the local adb server can reach: USB devices, emulators, and devices
// connected over TCP/IP.
package adb

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Android keycodes used by the press methods.
const (
	KeycodeHome      = 3
	KeycodeBack      = 4
	KeycodeEnter     = 66
	KeycodeAppSwitch = 187
)

// CommandRunner executes one adb invocation and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
		}
		return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
	}
	return stdout.Bytes(), nil
}

// Client targets one device through the adb binary. A zero serial means
// adb's default device selection applies.
type Client struct {
	path   string
	serial string
	logger *zap.Logger
	runner CommandRunner
}

// NewClient creates a client for the given device serial. Pass an empty
// serial to target the single connected device.
func NewClient(serial string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		path:   "adb",
		serial: serial,
		logger: logger.Named("adb"),
		runner: execRunner{},
	}
}

// Serial returns the serial this client is bound to. Empty until
// Resolve has run on a client constructed without one.
func (c *Client) Serial() string {
	return c.serial
}

// args prepends the -s selector when a serial is set.
func (c *Client) args(rest ...string) []string {
	if c.serial == "" {
		return rest
	}
	return append([]string{"-s", c.serial}, rest...)
}

func (c *Client) run(ctx context.Context, rest ...string) ([]byte, error) {
	c.logger.Debug("adb", zap.Strings("args", rest))
	return c.runner.Run(ctx, c.path, c.args(rest...)...)
}

// shell runs a command through the device shell.
func (c *Client) shell(ctx context.Context, parts ...string) ([]byte, error) {
	return c.run(ctx, append([]string{"shell"}, parts...)...)
}

// Tap simulates a finger tap at device pixel coordinates.
func (c *Client) Tap(ctx context.Context, x, y int) (string, error) {
	if _, err := c.shell(ctx, "input", "tap", fmt.Sprint(x), fmt.Sprint(y)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Tapped at (%d, %d)", x, y), nil
}

// Swipe simulates a swipe gesture over durationMs milliseconds.
func (c *Client) Swipe(ctx context.Context, startX, startY, endX, endY, durationMs int) (string, error) {
	_, err := c.shell(ctx, "input", "swipe",
		fmt.Sprint(startX), fmt.Sprint(startY),
		fmt.Sprint(endX), fmt.Sprint(endY),
		fmt.Sprint(durationMs))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Swiped from (%d, %d) to (%d, %d)", startX, startY, endX, endY), nil
}

// InputText types text into the focused field. The text is escaped for
// the device shell and spaces become %s, which is how `input text`
// expects them.
func (c *Client) InputText(ctx context.Context, text string) (string, error) {
	sanitized := sanitizeShellText(text)
	if _, err := c.shell(ctx, "input", "text", `"`+sanitized+`"`); err != nil {
		return "", err
	}
	return fmt.Sprintf("Entered text: '%s'", text), nil
}

// PressKey presses a key by its Android keycode.
func (c *Client) PressKey(ctx context.Context, keycode int) (string, error) {
	if _, err := c.shell(ctx, "input", "keyevent", fmt.Sprint(keycode)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Pressed key: %d", keycode), nil
}

// PressHome presses the HOME button.
func (c *Client) PressHome(ctx context.Context) (string, error) {
	return c.PressKey(ctx, KeycodeHome)
}

// PressBack presses the BACK button.
func (c *Client) PressBack(ctx context.Context) (string, error) {
	return c.PressKey(ctx, KeycodeBack)
}

// PressEnter presses the ENTER key.
func (c *Client) PressEnter(ctx context.Context) (string, error) {
	return c.PressKey(ctx, KeycodeEnter)
}

// PressRecentApps opens the recent apps switcher.
func (c *Client) PressRecentApps(ctx context.Context) (string, error) {
	return c.PressKey(ctx, KeycodeAppSwitch)
}

// LaunchApp starts an app by package name through the monkey launcher.
func (c *Client) LaunchApp(ctx context.Context, pkg string) (string, error) {
	_, err := c.shell(ctx, "monkey", "-p", pkg, "-c", "android.intent.category.LAUNCHER", "1")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Launched app: %s", pkg), nil
}

// ListPackages returns installed package names, optionally filtered by
// a substring understood by pm.
func (c *Client) ListPackages(ctx context.Context, filter string) ([]string, error) {
	parts := []string{"pm", "list", "packages"}
	if filter != "" {
		parts = append(parts, filter)
	}
	out, err := c.shell(ctx, parts...)
	if err != nil {
		return nil, err
	}

	var pkgs []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if name, ok := strings.CutPrefix(line, "package:"); ok && name != "" {
			pkgs = append(pkgs, name)
		}
	}
	return pkgs, nil
}

// sanitizeShellText escapes text for the device shell. The replacements
// run in order: backslashes double first so later escapes survive.
func sanitizeShellText(text string) string {
	s := strings.ReplaceAll(text, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	s = strings.ReplaceAll(s, "`", "\\`")
	s = strings.ReplaceAll(s, `$`, `\$`)
	s = strings.ReplaceAll(s, " ", "%s") // input text uses %s for space
	return s
}
