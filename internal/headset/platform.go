package headset

import "context"

// Platform is the Bluetooth stack the Service queries
type Platform interface {
	// AdapterEnabled reports whether the local adapter is powered
	AdapterEnabled(ctx context.Context) (bool, error)

	// BindHeadsetProfile starts binding to the headset profile. The returned
	// channel delivers at most one result and is then closed.
	BindHeadsetProfile(ctx context.Context) <-chan BindResult
}

// BindResult is the single completion of BindHeadsetProfile
type BindResult struct {
	Profile Profile
	Err     error
}

// Profile is a bound headset profile service
type Profile interface {
	// ConnectedDevices lists currently connected headsets in platform order
	ConnectedDevices() []DeviceHandle

	// Disconnected is closed when the profile service goes away
	Disconnected() <-chan struct{}
}

// DeviceHandle identifies a connected device
type DeviceHandle interface {
	Name() string
	Address() string
}

// BatteryReporter is an optional capability of a DeviceHandle
type BatteryReporter interface {
	// BatteryPercentage returns the battery level, ok is false when unknown
	BatteryPercentage() (percent int, ok bool)
}
