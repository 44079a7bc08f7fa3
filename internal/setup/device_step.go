package setup

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shikhr/opdroid/internal/adb"
)

// checkDevices asks the adb server for attached devices. This is
// informational; setup completes without a device.
func (m WizardModel) checkDevices() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client := adb.NewClient("", nil)
		devices, err := client.Devices(ctx)
		if err != nil {
			return devicesCheckedMsg{err: err}
		}

		ready := make([]adb.DeviceInfo, 0, len(devices))
		for _, d := range devices {
			if d.State == "device" {
				ready = append(ready, d)
			}
		}
		return devicesCheckedMsg{devices: ready}
	}
}
