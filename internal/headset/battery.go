package headset

import "fmt"

// BatteryLevel formats the battery level of d, falling back to NoBattery
// when the device lacks the capability or has no reading
func BatteryLevel(d DeviceHandle) string {
	reporter, ok := d.(BatteryReporter)
	if !ok {
		return NoBattery
	}
	percent, ok := reporter.BatteryPercentage()
	if !ok {
		return NoBattery
	}
	return fmt.Sprintf("%d %%", percent)
}

// resolveDevices converts handles to Devices, keeping the first of any
// handles sharing an address
func resolveDevices(handles []DeviceHandle) []Device {
	devices := make([]Device, 0, len(handles))
	seen := make(map[string]bool, len(handles))

	for _, h := range handles {
		if h == nil {
			continue
		}
		addr := h.Address()
		if seen[addr] {
			continue
		}
		seen[addr] = true

		devices = append(devices, Device{
			Name:         h.Name(),
			Address:      addr,
			BatteryLevel: BatteryLevel(h),
		})
	}

	return devices
}
