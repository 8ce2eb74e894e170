package audioio

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unsafe"

	"github.com/gen2brain/malgo"
)

// DeviceInfo describes one audio endpoint for listing and selection.
type DeviceInfo struct {
	Index     int
	Name      string
	ID        string
	IsDefault bool
}

// Direction selects which endpoint kind to enumerate.
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
)

func (d Direction) deviceType() malgo.DeviceType {
	if d == DirectionOutput {
		return malgo.Playback
	}

	return malgo.Capture
}

// String returns the direction name.
func (d Direction) String() string {
	if d == DirectionOutput {
		return "output"
	}

	return "input"
}

// ListDevices enumerates the available endpoints for one direction using a
// short-lived backend context.
func ListDevices(dir Direction) ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	defer uninitContext(ctx)

	infos, err := ctx.Devices(dir.deviceType())
	if err != nil {
		return nil, fmt.Errorf("enumerate %s devices: %w", dir, err)
	}

	devices := make([]DeviceInfo, 0, len(infos))

	for i := range infos {
		decodedID, err := hexToASCII(infos[i].ID.String())
		if err != nil {
			continue
		}

		devices = append(devices, DeviceInfo{
			Index:     i,
			Name:      infos[i].Name(),
			ID:        decodedID,
			IsDefault: infos[i].IsDefault != 0,
		})
	}

	return devices, nil
}

// resolveDevice finds the endpoint whose decoded ID or name matches the
// selector and returns its backend device ID.
func resolveDevice(ctx *malgo.AllocatedContext, deviceType malgo.DeviceType, selector string) (unsafe.Pointer, error) {
	infos, err := ctx.Devices(deviceType)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}

	for i := range infos {
		decodedID, err := hexToASCII(infos[i].ID.String())
		if err != nil {
			continue
		}

		if matchesDevice(decodedID, infos[i].Name(), selector) {
			return infos[i].ID.Pointer(), nil
		}
	}

	return nil, fmt.Errorf("no device matches %q", selector)
}

// matchesDevice reports whether a device's decoded ID or name satisfies the
// user's selector. IDs match exactly, names by substring.
func matchesDevice(decodedID, name, selector string) bool {
	return decodedID == selector || strings.Contains(name, selector)
}

// hexToASCII converts a backend device ID from its hex form to a readable
// string.
func hexToASCII(hexStr string) (string, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}

	return strings.TrimRight(string(raw), "\x00"), nil
}
