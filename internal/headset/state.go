package headset

import (
	"fmt"
	"strings"
)

// NoBattery is the battery level shown when a device does not report one
const NoBattery = "N/A"

// Device is a connected headset as shown to the user
type Device struct {
	Name         string
	Address      string // stable hardware identifier
	BatteryLevel string // "87 %" or NoBattery
}

// State is the discovery state published by the Service.
// The set of variants is closed: Loading, BluetoothDisabled, Ready and BindFailed.
type State interface {
	fmt.Stringer
	isState()
}

// Loading means no data is available yet or a query is outstanding
type Loading struct{}

// BluetoothDisabled means the adapter is powered off or unreachable
type BluetoothDisabled struct{}

// Ready carries the connected headsets in platform enumeration order
type Ready struct {
	Devices []Device
}

// BindFailed means the headset profile could not be bound
type BindFailed struct {
	Reason error
}

func (Loading) isState()           {}
func (BluetoothDisabled) isState() {}
func (Ready) isState()             {}
func (BindFailed) isState()        {}

func (Loading) String() string { return "Loading" }

func (BluetoothDisabled) String() string { return "BluetoothDisabled" }

func (r Ready) String() string {
	addrs := make([]string, len(r.Devices))
	for i, d := range r.Devices {
		addrs[i] = d.Address
	}
	return fmt.Sprintf("Ready[%s]", strings.Join(addrs, ","))
}

func (b BindFailed) String() string {
	return fmt.Sprintf("BindFailed(%v)", b.Reason)
}

// Unwrap exposes the bind error to errors.Is and errors.As
func (b BindFailed) Unwrap() error {
	return b.Reason
}

// Error lets a BindFailed state be passed around as an error
func (b BindFailed) Error() string {
	if b.Reason == nil {
		return "headset profile bind failed"
	}
	return fmt.Sprintf("headset profile bind failed: %v", b.Reason)
}
