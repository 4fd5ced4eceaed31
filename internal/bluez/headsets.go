package bluez

import (
	"slices"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"linuxheadsets/internal/headset"
)

// device is a connected headset found in the BlueZ object tree
type device struct {
	path    dbus.ObjectPath
	name    string
	address string
	battery *uint8 // nil if BlueZ has no Battery1 for the device
}

func (d *device) Name() string    { return d.name }
func (d *device) Address() string { return d.address }

// BatteryPercentage implements headset.BatteryReporter
func (d *device) BatteryPercentage() (int, bool) {
	if d.battery == nil {
		return 0, false
	}
	return int(*d.battery), true
}

// profile is a bound snapshot of the connected headsets
type profile struct {
	devices []headset.DeviceHandle
	gone    chan struct{}
	once    sync.Once
}

func newProfile(devices []*device) *profile {
	handles := make([]headset.DeviceHandle, len(devices))
	for i, d := range devices {
		handles[i] = d
	}
	return &profile{
		devices: handles,
		gone:    make(chan struct{}),
	}
}

func (p *profile) ConnectedDevices() []headset.DeviceHandle { return p.devices }
func (p *profile) Disconnected() <-chan struct{}            { return p.gone }

func (p *profile) lose() {
	p.once.Do(func() { close(p.gone) })
}

// findHeadsets picks the connected devices under adapterPath that offer one of
// uuids, ordered by object path
func findHeadsets(objects managedObjects, adapterPath dbus.ObjectPath, uuids map[string]bool) []*device {
	prefix := string(adapterPath) + "/"
	var found []*device

	for path, interfaces := range objects {
		if !strings.HasPrefix(string(path), prefix) {
			continue
		}
		deviceProps, ok := interfaces[deviceIface]
		if !ok {
			continue
		}
		if !getBoolProp(deviceProps, "Connected") {
			continue
		}
		if !hasAnyUUID(getStringArrayProp(deviceProps, "UUIDs"), uuids) {
			continue
		}

		d := &device{
			path:    path,
			address: getStringProp(deviceProps, "Address"),
		}
		d.name = getStringProp(deviceProps, "Alias")
		if d.name == "" {
			d.name = getStringProp(deviceProps, "Name")
		}
		if d.name == "" {
			d.name = d.address
		}

		if batteryProps, ok := interfaces[batteryIface]; ok {
			if v, ok := batteryProps["Percentage"]; ok {
				if pct, ok := v.Value().(byte); ok {
					d.battery = &pct
				}
			}
		}

		found = append(found, d)
	}

	slices.SortFunc(found, func(a, b *device) int {
		return strings.Compare(string(a.path), string(b.path))
	})

	return found
}

func hasAnyUUID(deviceUUIDs []string, wanted map[string]bool) bool {
	for _, u := range deviceUUIDs {
		if wanted[strings.ToLower(u)] {
			return true
		}
	}
	return false
}

func getStringProp(props map[string]dbus.Variant, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

func getBoolProp(props map[string]dbus.Variant, key string) bool {
	if v, ok := props[key]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}

func getStringArrayProp(props map[string]dbus.Variant, key string) []string {
	if v, ok := props[key]; ok {
		if arr, ok := v.Value().([]string); ok {
			return arr
		}
	}
	return nil
}
