package indicator

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"fyne.io/systray"

	"linuxheadsets/internal/display"
	"linuxheadsets/internal/headset"
)

// Actions are the user intents the tray forwards
type Actions struct {
	ShowWindow      func()
	Quit            func()
	Refresh         func()
	EnableBluetooth func()
}

// menu is what the tray shows for one state
type menu struct {
	Tooltip    string
	Status     string
	Devices    []string // at most the configured number of slots
	ShowEnable bool
}

// Indicator manages the system tray icon and menu
type Indicator struct {
	maxDevices int
	actions    Actions
	logger     *slog.Logger

	mu      sync.Mutex
	ready   bool
	current menu

	// Menu items
	statusItem  *systray.MenuItem
	deviceItems []*systray.MenuItem
	enableItem  *systray.MenuItem
}

// New creates a tray indicator with maxDevices device slots
func New(maxDevices int, actions Actions, logger *slog.Logger) *Indicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indicator{
		maxDevices: maxDevices,
		actions:    actions,
		logger:     logger.With("component", "indicator"),
		current:    buildMenu(display.Describe(headset.Loading{}), maxDevices),
	}
}

// Start initializes the system tray indicator
func (ind *Indicator) Start() {
	go systray.Run(ind.onReady, ind.onExit)
}

// Stop terminates the system tray indicator
func (ind *Indicator) Stop() {
	systray.Quit()
}

// onReady is called when systray is ready
func (ind *Indicator) onReady() {
	iconData, err := loadIcon("assets/tray_icon.png")
	if err != nil {
		ind.logger.Warn("failed to load tray icon", "error", err)
	} else {
		systray.SetIcon(iconData)
	}

	systray.SetTitle("Headsets")

	ind.mu.Lock()
	ind.statusItem = systray.AddMenuItem("", "Headset status")
	ind.statusItem.Disable()
	systray.AddSeparator()

	// Device rows are fixed slots shown or hidden per state
	ind.deviceItems = make([]*systray.MenuItem, ind.maxDevices)
	for i := range ind.deviceItems {
		ind.deviceItems[i] = systray.AddMenuItem("", "Connected headset")
		ind.deviceItems[i].Disable()
	}
	systray.AddSeparator()

	ind.enableItem = systray.AddMenuItem("Enable Bluetooth", "Turn the Bluetooth adapter on")
	mRefresh := systray.AddMenuItem("Refresh", "Look for connected headsets again")
	mOpen := systray.AddMenuItem("Open Headsets", "Show the main window")
	mQuit := systray.AddMenuItem("Quit", "Exit Headsets")

	ind.ready = true
	ind.apply(ind.current)
	ind.mu.Unlock()

	// Handle menu clicks
	go func() {
		for {
			select {
			case <-ind.enableItem.ClickedCh:
				call(ind.actions.EnableBluetooth)
			case <-mRefresh.ClickedCh:
				call(ind.actions.Refresh)
			case <-mOpen.ClickedCh:
				call(ind.actions.ShowWindow)
			case <-mQuit.ClickedCh:
				call(ind.actions.Quit)
				return
			}
		}
	}()
}

// onExit is called when systray is exiting
func (ind *Indicator) onExit() {
	ind.logger.Info("system tray indicator exited")
}

// Update shows st in the tray. It may be called before the tray is ready.
func (ind *Indicator) Update(st headset.State) {
	m := buildMenu(display.Describe(st), ind.maxDevices)

	ind.mu.Lock()
	defer ind.mu.Unlock()
	ind.current = m
	if ind.ready {
		ind.apply(m)
	}
}

// apply pushes m to the menu items; ind.mu must be held
func (ind *Indicator) apply(m menu) {
	systray.SetTooltip(m.Tooltip)
	ind.statusItem.SetTitle(m.Status)

	for i, item := range ind.deviceItems {
		if i < len(m.Devices) {
			item.SetTitle("  " + m.Devices[i])
			item.Show()
		} else {
			item.Hide()
		}
	}

	if m.ShowEnable {
		ind.enableItem.Show()
	} else {
		ind.enableItem.Hide()
	}
}

// buildMenu lays out a summary in at most maxDevices device slots
func buildMenu(s display.Summary, maxDevices int) menu {
	m := menu{
		Tooltip:    s.Title,
		Status:     s.Title,
		ShowEnable: s.Mode == display.ModeEnableBluetooth,
	}

	if len(s.Lines) > maxDevices {
		m.Devices = append(m.Devices, s.Lines[:maxDevices]...)
		m.Status = fmt.Sprintf("%s (%d shown)", s.Title, maxDevices)
	} else {
		m.Devices = append(m.Devices, s.Lines...)
	}

	if len(s.Lines) == 1 {
		m.Tooltip = s.Lines[0]
	}

	return m
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

// loadIcon loads icon data from a file
func loadIcon(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read icon file: %w", err)
	}
	return data, nil
}
