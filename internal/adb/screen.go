package adb

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strconv"
	"strings"
)

// Screenshot captures the screen as a PNG and decodes it. exec-out is
// used instead of shell so the binary stream survives untouched.
func (c *Client) Screenshot(ctx context.Context) (image.Image, error) {
	out, err := c.run(ctx, "exec-out", "screencap", "-p")
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode screencap output: %w", err)
	}
	return img, nil
}

// ScreenSize reports the device resolution in raw pixels. When an
// override resolution is set, `wm size` prints it last and it wins.
func (c *Client) ScreenSize(ctx context.Context) (int, int, error) {
	out, err := c.shell(ctx, "wm", "size")
	if err != nil {
		return 0, 0, err
	}
	return parseScreenSize(string(out))
}

func parseScreenSize(out string) (int, int, error) {
	// Output format: "Physical size: 1080x2400"
	trimmed := strings.TrimSpace(out)
	idx := strings.LastIndex(trimmed, ": ")
	if idx < 0 {
		return 0, 0, fmt.Errorf("unexpected wm size output: %q", trimmed)
	}
	sizeStr := trimmed[idx+2:]

	w, h, ok := strings.Cut(sizeStr, "x")
	if !ok {
		return 0, 0, fmt.Errorf("unexpected wm size output: %q", trimmed)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected wm size output: %q", trimmed)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected wm size output: %q", trimmed)
	}
	return width, height, nil
}

// UIHierarchy dumps the uiautomator tree straight to stdout and slices
// out the XML document. Dumping to /dev/tty avoids sdcard permission
// problems on locked-down devices.
func (c *Client) UIHierarchy(ctx context.Context) (string, error) {
	out, err := c.shell(ctx, "uiautomator", "dump", "/dev/tty")
	if err != nil {
		return "", err
	}

	output := string(out)
	xmlStart := strings.Index(output, "<?xml")
	xmlEnd := strings.Index(output, "</hierarchy>")
	if xmlStart != -1 && xmlEnd != -1 {
		output = output[xmlStart : xmlEnd+len("</hierarchy>")]
	}

	return strings.TrimSpace(output), nil
}
