package adb

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScreenSize(t *testing.T) {
	t.Run("physical size", func(t *testing.T) {
		w, h, err := parseScreenSize("Physical size: 1080x2400\n")
		require.NoError(t, err)
		assert.Equal(t, 1080, w)
		assert.Equal(t, 2400, h)
	})

	t.Run("override wins when present", func(t *testing.T) {
		out := "Physical size: 1080x2400\nOverride size: 720x1600\n"
		w, h, err := parseScreenSize(out)
		require.NoError(t, err)
		assert.Equal(t, 720, w)
		assert.Equal(t, 1600, h)
	})

	t.Run("rejects unexpected output", func(t *testing.T) {
		_, _, err := parseScreenSize("error: no devices/emulators found")
		require.Error(t, err)

		_, _, err = parseScreenSize("Physical size: huge")
		require.Error(t, err)
	})
}

func TestScreenSizeCommand(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"shell wm size": "Physical size: 1080x2400\n"}}
	client := newTestClient("", runner)

	w, h, err := client.ScreenSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1080, w)
	assert.Equal(t, 2400, h)
	assert.Equal(t, []string{"adb", "shell", "wm", "size"}, runner.lastCall())
}

func TestUIHierarchy(t *testing.T) {
	const dump = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?><hierarchy rotation="0"><node index="0" /></hierarchy>`

	t.Run("slices xml out of dump noise", func(t *testing.T) {
		noisy := "UI hierchary dumped to: /dev/tty\n" + dump + "\nUI hierchary dumped to: /dev/tty\n"
		runner := &fakeRunner{outputs: map[string]string{"shell uiautomator dump /dev/tty": noisy}}
		client := newTestClient("", runner)

		xml, err := client.UIHierarchy(context.Background())
		require.NoError(t, err)
		assert.Equal(t, dump, xml)
	})

	t.Run("returns trimmed output when markers are missing", func(t *testing.T) {
		runner := &fakeRunner{outputs: map[string]string{"shell uiautomator dump /dev/tty": "  ERROR: could not get idle state  \n"}}
		client := newTestClient("", runner)

		xml, err := client.UIHierarchy(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ERROR: could not get idle state", xml)
	})
}

func TestScreenshot(t *testing.T) {
	t.Run("decodes screencap png", func(t *testing.T) {
		src := image.NewRGBA(image.Rect(0, 0, 4, 8))
		src.Set(1, 1, color.RGBA{R: 255, A: 255})
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, src))

		runner := &fakeRunner{output: buf.Bytes()}
		client := newTestClient("", runner)

		img, err := client.Screenshot(context.Background())
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 4, 8), img.Bounds())
		assert.Equal(t, []string{"adb", "exec-out", "screencap", "-p"}, runner.lastCall())
	})

	t.Run("rejects non-png output", func(t *testing.T) {
		runner := &fakeRunner{output: []byte("adb: device offline")}
		client := newTestClient("", runner)

		_, err := client.Screenshot(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode screencap output")
	})
}
