// Package display turns headset discovery states into what the window, the
// tray and the CLI show.
package display

import (
	"fmt"

	"linuxheadsets/internal/headset"
)

// Mode selects how a state is rendered
type Mode int

const (
	ModeLoading         Mode = iota // spinner
	ModeEnableBluetooth             // "enable bluetooth" prompt
	ModeDevices                     // device list
	ModeEmpty                       // no connected headsets, offer refresh
	ModeError                       // bind failed, offer retry
)

func (m Mode) String() string {
	switch m {
	case ModeLoading:
		return "loading"
	case ModeEnableBluetooth:
		return "enable-bluetooth"
	case ModeDevices:
		return "devices"
	case ModeEmpty:
		return "empty"
	case ModeError:
		return "error"
	default:
		return "unknown"
	}
}

// Summary is the rendered form of a state
type Summary struct {
	Mode        Mode
	Title       string
	Description string
	Lines       []string // one per device, ModeDevices only
}

// Describe builds the Summary for st
func Describe(st headset.State) Summary {
	switch st := st.(type) {
	case headset.BluetoothDisabled:
		return Summary{
			Mode:        ModeEnableBluetooth,
			Title:       "Bluetooth is off",
			Description: "Turn on Bluetooth to see your headsets",
		}
	case headset.Ready:
		if len(st.Devices) == 0 {
			return Summary{
				Mode:        ModeEmpty,
				Title:       "No headsets connected",
				Description: "Connect a headset, then refresh",
			}
		}
		lines := make([]string, len(st.Devices))
		for i, d := range st.Devices {
			lines[i] = DeviceLine(d)
		}
		title := "1 headset connected"
		if len(st.Devices) > 1 {
			title = fmt.Sprintf("%d headsets connected", len(st.Devices))
		}
		return Summary{
			Mode:  ModeDevices,
			Title: title,
			Lines: lines,
		}
	case headset.BindFailed:
		return Summary{
			Mode:        ModeError,
			Title:       "Could not reach the headset profile",
			Description: fmt.Sprint(st.Reason),
		}
	default:
		return Summary{
			Mode:  ModeLoading,
			Title: "Looking for headsets...",
		}
	}
}

// DeviceLine formats one device as "<name> (<address>) - <battery>"
func DeviceLine(d headset.Device) string {
	name := d.Name
	if name == "" {
		name = d.Address
	}
	return fmt.Sprintf("%s (%s) - %s", name, d.Address, d.BatteryLevel)
}
