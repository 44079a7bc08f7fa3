package adb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// DeviceInfo is one row of `adb devices -l` output.
type DeviceInfo struct {
	Serial string
	State  string // "device", "offline", "unauthorized"
	Model  string
}

// Devices lists everything the adb server knows about.
func (c *Client) Devices(ctx context.Context) ([]DeviceInfo, error) {
	out, err := c.runner.Run(ctx, c.path, "devices", "-l")
	if err != nil {
		return nil, err
	}
	return parseDeviceList(string(out)), nil
}

func parseDeviceList(out string) []DeviceInfo {
	var devices []DeviceInfo
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		info := DeviceInfo{Serial: fields[0], State: fields[1]}
		for _, f := range fields[2:] {
			if v, ok := strings.CutPrefix(f, "model:"); ok {
				info.Model = v
			}
		}
		devices = append(devices, info)
	}
	return devices
}

// Resolve binds the client to a concrete device. With an empty serial
// the first ready device wins; otherwise the named device must be
// attached and ready.
func (c *Client) Resolve(ctx context.Context) error {
	devices, err := c.Devices(ctx)
	if err != nil {
		return err
	}

	var ready []DeviceInfo
	for _, d := range devices {
		if d.State == "device" {
			ready = append(ready, d)
		}
	}

	if len(ready) == 0 {
		return fmt.Errorf("No Android devices found. Ensure ADB is running and a device is connected.")
	}

	if c.serial == "" {
		c.serial = ready[0].Serial
		c.logger.Debug("resolved device", zap.String("serial", c.serial))
		return nil
	}

	for _, d := range ready {
		if d.Serial == c.serial {
			return nil
		}
	}
	return fmt.Errorf("Device with serial '%s' not found.", c.serial)
}

// WaitForDevice blocks until the device answers, retrying around adb
// server hiccups with exponential backoff.
func (c *Client) WaitForDevice(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 30 * time.Second
	b.MaxInterval = 5 * time.Second

	operation := func() error {
		if _, err := c.run(ctx, "wait-for-device"); err != nil {
			c.logger.Warn("adb wait-for-device failed, retrying", zap.Error(err))
			return err
		}
		return nil
	}

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}
