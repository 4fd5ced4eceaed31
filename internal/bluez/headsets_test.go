package bluez

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linuxheadsets/internal/headset"
)

const (
	hfpUUID  = "0000111e-0000-1000-8000-00805f9b34fb"
	a2dpUUID = "0000110b-0000-1000-8000-00805f9b34fb"
)

func deviceObject(alias, addr string, connected bool, uuids ...string) map[string]map[string]dbus.Variant {
	return map[string]map[string]dbus.Variant{
		deviceIface: {
			"Alias":     dbus.MakeVariant(alias),
			"Address":   dbus.MakeVariant(addr),
			"Connected": dbus.MakeVariant(connected),
			"UUIDs":     dbus.MakeVariant(uuids),
		},
	}
}

func withBattery(obj map[string]map[string]dbus.Variant, pct byte) map[string]map[string]dbus.Variant {
	obj[batteryIface] = map[string]dbus.Variant{"Percentage": dbus.MakeVariant(pct)}
	return obj
}

func testUUIDs() map[string]bool {
	return map[string]bool{ExpandUUID("1108"): true, ExpandUUID("111e"): true}
}

func TestFindHeadsetsFiltersAndOrders(t *testing.T) {
	adapter := AdapterPath("hci0")
	objects := managedObjects{
		"/org/bluez/hci0": {adapterIface: {"Powered": dbus.MakeVariant(true)}},
		"/org/bluez/hci0/dev_BB_BB_BB_BB_BB_BB": deviceObject("Buds B", "BB:BB:BB:BB:BB:BB", true, hfpUUID),
		"/org/bluez/hci0/dev_AA_AA_AA_AA_AA_AA": withBattery(deviceObject("Buds A", "AA:AA:AA:AA:AA:AA", true, a2dpUUID, hfpUUID), 87),
		"/org/bluez/hci0/dev_CC_CC_CC_CC_CC_CC": deviceObject("Offline", "CC:CC:CC:CC:CC:CC", false, hfpUUID),
		"/org/bluez/hci0/dev_DD_DD_DD_DD_DD_DD": deviceObject("Speaker", "DD:DD:DD:DD:DD:DD", true, a2dpUUID),
		"/org/bluez/hci1/dev_EE_EE_EE_EE_EE_EE": deviceObject("Other adapter", "EE:EE:EE:EE:EE:EE", true, hfpUUID),
	}

	found := findHeadsets(objects, adapter, testUUIDs())

	require.Len(t, found, 2)
	assert.Equal(t, "AA:AA:AA:AA:AA:AA", found[0].Address())
	assert.Equal(t, "Buds A", found[0].Name())
	assert.Equal(t, "BB:BB:BB:BB:BB:BB", found[1].Address())

	pct, ok := found[0].BatteryPercentage()
	assert.True(t, ok)
	assert.Equal(t, 87, pct)

	_, ok = found[1].BatteryPercentage()
	assert.False(t, ok)
}

func TestFindHeadsetsBatteryLevelStrings(t *testing.T) {
	objects := managedObjects{
		"/org/bluez/hci0/dev_AA_AA_AA_AA_AA_AA": withBattery(deviceObject("Buds", "AA:AA:AA:AA:AA:AA", true, hfpUUID), 87),
		"/org/bluez/hci0/dev_BB_BB_BB_BB_BB_BB": deviceObject("Plain", "BB:BB:BB:BB:BB:BB", true, hfpUUID),
	}

	found := findHeadsets(objects, AdapterPath("hci0"), testUUIDs())
	require.Len(t, found, 2)

	assert.Equal(t, "87 %", headset.BatteryLevel(found[0]))
	assert.Equal(t, headset.NoBattery, headset.BatteryLevel(found[1]))
}

func TestFindHeadsetsNameFallback(t *testing.T) {
	noAlias := deviceObject("", "AA:AA:AA:AA:AA:AA", true, hfpUUID)
	noAlias[deviceIface]["Name"] = dbus.MakeVariant("Buds Name")
	bare := deviceObject("", "BB:BB:BB:BB:BB:BB", true, hfpUUID)

	objects := managedObjects{
		"/org/bluez/hci0/dev_AA_AA_AA_AA_AA_AA": noAlias,
		"/org/bluez/hci0/dev_BB_BB_BB_BB_BB_BB": bare,
	}

	found := findHeadsets(objects, AdapterPath("hci0"), testUUIDs())
	require.Len(t, found, 2)
	assert.Equal(t, "Buds Name", found[0].Name())
	assert.Equal(t, "BB:BB:BB:BB:BB:BB", found[1].Name())
}

func TestFindHeadsetsUppercaseUUIDs(t *testing.T) {
	objects := managedObjects{
		"/org/bluez/hci0/dev_AA_AA_AA_AA_AA_AA": deviceObject("Buds", "AA:AA:AA:AA:AA:AA", true, "0000111E-0000-1000-8000-00805F9B34FB"),
	}
	assert.Len(t, findHeadsets(objects, AdapterPath("hci0"), testUUIDs()), 1)
}

func TestFindHeadsetsEmpty(t *testing.T) {
	assert.Empty(t, findHeadsets(managedObjects{}, AdapterPath("hci0"), testUUIDs()))
}

func TestProfileLoseClosesOnce(t *testing.T) {
	p := newProfile(nil)
	p.lose()
	p.lose()

	select {
	case <-p.Disconnected():
	default:
		t.Fatal("Disconnected not closed")
	}
	assert.Empty(t, p.ConnectedDevices())
}
