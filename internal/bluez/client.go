// Package bluez implements the headset discovery platform on top of BlueZ's
// D-Bus API.
//
// # D-Bus Usage
//
// The Client keeps one system bus connection for its lifetime. All calls,
// match rules and signal monitoring use that connection.
//
//   - Adapter state is read from org.bluez.Adapter1.Powered
//   - Binding the headset profile is one asynchronous GetManagedObjects call
//     on the BlueZ ObjectManager, projected onto org.bluez.Device1 objects
//   - Battery levels come from org.bluez.Battery1.Percentage when BlueZ
//     exposes that interface for the device
//
// # Profile Loss
//
// The bound profile is reported lost when org.bluez drops off the bus, when
// the adapter is powered off, or when the adapter object is removed.
//
// # Testing
//
// See cmd/status for a command that runs one discovery against the live bus.
package bluez

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"linuxheadsets/internal/config"
	"linuxheadsets/internal/headset"
)

const (
	bluezService         = "org.bluez"
	adapterIface         = "org.bluez.Adapter1"
	deviceIface          = "org.bluez.Device1"
	batteryIface         = "org.bluez.Battery1"
	propsIface           = "org.freedesktop.DBus.Properties"
	objectManagerIface   = "org.freedesktop.DBus.ObjectManager"
	managedObjectsMethod = objectManagerIface + ".GetManagedObjects"

	bluetoothBaseUUID = "-0000-1000-8000-00805f9b34fb"
)

var _ headset.Platform = (*Client)(nil)

// managedObjects is the reply type of GetManagedObjects
type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// Client talks to BlueZ for a single adapter
type Client struct {
	conn        *dbus.Conn
	adapterPath dbus.ObjectPath
	uuids       map[string]bool
	logger      *slog.Logger
	signals     chan *dbus.Signal

	// adapterCall and listObjects issue the D-Bus calls; tests replace them
	adapterCall func(ctx context.Context, method string, args ...interface{}) *dbus.Call
	listObjects func(ctx context.Context, done chan *dbus.Call)

	mu     sync.Mutex
	active *profile
}

// NewClient connects to the system bus and starts watching for profile loss
func NewClient(cfg config.BluetoothConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}

	c := &Client{
		conn:        conn,
		adapterPath: AdapterPath(cfg.Adapter),
		uuids:       make(map[string]bool, len(cfg.ProfileUUIDs)),
		logger:      logger.With("component", "bluez", "adapter", cfg.Adapter),
		signals:     make(chan *dbus.Signal, 16),
	}
	for _, u := range cfg.ProfileUUIDs {
		c.uuids[ExpandUUID(u)] = true
	}
	c.adapterCall = func(ctx context.Context, method string, args ...interface{}) *dbus.Call {
		return conn.Object(bluezService, c.adapterPath).CallWithContext(ctx, method, 0, args...)
	}
	c.listObjects = func(ctx context.Context, done chan *dbus.Call) {
		conn.Object(bluezService, "/").GoWithContext(ctx, managedObjectsMethod, 0, done)
	}

	if err := c.watchProfileLoss(); err != nil {
		conn.Close()
		return nil, err
	}

	return c, nil
}

// AdapterPath returns the object path of a named adapter such as "hci0"
func AdapterPath(name string) dbus.ObjectPath {
	return dbus.ObjectPath("/org/bluez/" + name)
}

// ExpandUUID lowercases u and expands a 16-bit short UUID against the
// Bluetooth base UUID
func ExpandUUID(u string) string {
	u = strings.ToLower(u)
	if len(u) == 4 {
		return "0000" + u + bluetoothBaseUUID
	}
	return u
}

// AdapterEnabled reports whether the adapter is powered
func (c *Client) AdapterEnabled(ctx context.Context) (bool, error) {
	var v dbus.Variant
	if err := c.adapterCall(ctx, propsIface+".Get", adapterIface, "Powered").Store(&v); err != nil {
		return false, fmt.Errorf("read adapter Powered: %w", err)
	}

	powered, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("adapter Powered is %s, not bool", v.Signature())
	}
	return powered, nil
}

// EnableAdapter powers the adapter on
func (c *Client) EnableAdapter(ctx context.Context) error {
	call := c.adapterCall(ctx, propsIface+".Set", adapterIface, "Powered", dbus.MakeVariant(true))
	if call.Err != nil {
		return fmt.Errorf("power on adapter: %w", call.Err)
	}
	c.logger.Info("adapter powered on")
	return nil
}

// BindHeadsetProfile lists BlueZ objects asynchronously and delivers the
// connected headsets as a single result
func (c *Client) BindHeadsetProfile(ctx context.Context) <-chan headset.BindResult {
	out := make(chan headset.BindResult, 1)
	done := make(chan *dbus.Call, 1)

	c.listObjects(ctx, done)

	go func() {
		defer close(out)

		var call *dbus.Call
		select {
		case call = <-done:
		case <-ctx.Done():
			out <- headset.BindResult{Err: ctx.Err()}
			return
		}
		if err := ctx.Err(); err != nil {
			// Reply raced the cancel; a newer bind owns the active profile
			out <- headset.BindResult{Err: err}
			return
		}

		var objects managedObjects
		if err := call.Store(&objects); err != nil {
			out <- headset.BindResult{Err: fmt.Errorf("failed to get managed objects: %w", err)}
			return
		}

		devices := findHeadsets(objects, c.adapterPath, c.uuids)
		p := newProfile(devices)
		c.setActive(p)

		c.logger.Debug("headset profile bound", "devices", len(devices))
		out <- headset.BindResult{Profile: p}
	}()

	return out
}

// setActive makes p the profile reported lost on the next loss signal
func (c *Client) setActive(p *profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = p
}

// watchProfileLoss subscribes to the signals that end a bound profile
func (c *Client) watchProfileLoss() error {
	for _, rule := range matchRules(c.adapterPath) {
		if err := c.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule).Err; err != nil {
			return fmt.Errorf("failed to add match rule: %w", err)
		}
	}

	c.conn.Signal(c.signals)

	go func() {
		for signal := range c.signals {
			if !profileLost(signal, c.adapterPath) {
				continue
			}

			c.mu.Lock()
			p := c.active
			c.active = nil
			c.mu.Unlock()

			if p != nil {
				c.logger.Info("headset profile lost", "signal", signal.Name)
				p.lose()
			}
		}
	}()

	return nil
}

// matchRules are the AddMatch rules for the signals profileLost inspects.
// InterfacesRemoved carries an object path, which only argNpath can match.
func matchRules(adapterPath dbus.ObjectPath) []string {
	return []string{
		"type='signal',sender='org.freedesktop.DBus',interface='org.freedesktop.DBus',member='NameOwnerChanged',arg0='" + bluezService + "'",
		"type='signal',sender='" + bluezService + "',interface='" + propsIface + "',member='PropertiesChanged',path='" + string(adapterPath) + "'",
		"type='signal',sender='" + bluezService + "',interface='" + objectManagerIface + "',member='InterfacesRemoved',arg0path='" + string(adapterPath) + "'",
	}
}

// profileLost reports whether signal means the headset profile went away
func profileLost(signal *dbus.Signal, adapterPath dbus.ObjectPath) bool {
	if signal == nil {
		return false
	}

	switch signal.Name {
	case "org.freedesktop.DBus.NameOwnerChanged":
		// name, old owner, new owner
		if len(signal.Body) < 3 {
			return false
		}
		name, _ := signal.Body[0].(string)
		newOwner, _ := signal.Body[2].(string)
		return name == bluezService && newOwner == ""

	case propsIface + ".PropertiesChanged":
		if signal.Path != adapterPath || len(signal.Body) < 2 {
			return false
		}
		iface, ok := signal.Body[0].(string)
		if !ok || iface != adapterIface {
			return false
		}
		changes, ok := signal.Body[1].(map[string]dbus.Variant)
		if !ok {
			return false
		}
		if powered, ok := changes["Powered"]; ok {
			on, ok := powered.Value().(bool)
			return ok && !on
		}
		return false

	case objectManagerIface + ".InterfacesRemoved":
		if len(signal.Body) < 2 {
			return false
		}
		path, ok := signal.Body[0].(dbus.ObjectPath)
		if !ok || path != adapterPath {
			return false
		}
		ifaces, _ := signal.Body[1].([]string)
		for _, iface := range ifaces {
			if iface == adapterIface {
				return true
			}
		}
		return false
	}

	return false
}

// Close closes the D-Bus connection, which also ends the signal watcher
func (c *Client) Close() error {
	return c.conn.Close()
}
