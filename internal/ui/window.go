package ui

import (
	"context"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"linuxheadsets/internal/config"
	"linuxheadsets/internal/display"
	"linuxheadsets/internal/headset"
)

// Actions are the user intents the window forwards. They must not block the
// GTK main loop.
type Actions struct {
	Refresh         func()
	EnableBluetooth func()
}

// Options configures the main window
type Options struct {
	Window      config.WindowConfig
	HideOnClose bool // keep running in the tray when the window is closed
}

// window holds the widgets that change with the discovery state
type window struct {
	stack *gtk.Stack

	devicesGroup *adw.PreferencesGroup
	deviceRows   []*adw.ActionRow

	enablePage *adw.StatusPage
	emptyPage  *adw.StatusPage
	errorPage  *adw.StatusPage
	loadingMsg *gtk.Label
}

// Activate builds the main window, starts following svc and triggers the
// initial refresh
func Activate(app *adw.Application, svc *headset.Service, opts Options, actions Actions) *adw.ApplicationWindow {
	win := adw.NewApplicationWindow(&app.Application)
	win.SetTitle("Headsets")
	win.SetDefaultSize(opts.Window.Width, opts.Window.Height)
	win.SetHideOnClose(opts.HideOnClose)

	w := setupUI(win, actions)

	ctx, cancel := context.WithCancel(context.Background())
	win.ConnectDestroy(cancel)

	states := svc.Subscribe(ctx)
	go func() {
		for st := range states {
			glib.IdleAdd(func() {
				w.render(st)
			})
		}
	}()

	win.Present()

	// Initial mount
	call(actions.Refresh)

	return win
}

func setupUI(win *adw.ApplicationWindow, actions Actions) *window {
	w := &window{}

	headerBar := adw.NewHeaderBar()
	refreshButton := gtk.NewButtonFromIconName("view-refresh-symbolic")
	refreshButton.SetTooltipText("Refresh")
	refreshButton.ConnectClicked(func() { call(actions.Refresh) })
	headerBar.PackEnd(refreshButton)

	w.stack = gtk.NewStack()
	w.stack.SetTransitionType(gtk.StackTransitionTypeCrossfade)

	w.stack.AddNamed(w.createLoadingView(), display.ModeLoading.String())
	w.stack.AddNamed(w.createEnableView(actions), display.ModeEnableBluetooth.String())
	w.stack.AddNamed(w.createDevicesView(), display.ModeDevices.String())
	w.stack.AddNamed(w.createEmptyView(actions), display.ModeEmpty.String())
	w.stack.AddNamed(w.createErrorView(actions), display.ModeError.String())
	w.stack.SetVisibleChildName(display.ModeLoading.String())

	// Use ToolbarView for seamless GNOME design (no visual separation)
	toolbarView := adw.NewToolbarView()
	toolbarView.AddTopBar(headerBar)
	toolbarView.SetContent(w.stack)

	win.SetContent(toolbarView)

	return w
}

func (w *window) createLoadingView() *gtk.Box {
	box := gtk.NewBox(gtk.OrientationVertical, 12)
	box.SetVAlign(gtk.AlignCenter)
	box.SetHAlign(gtk.AlignCenter)

	spinner := gtk.NewSpinner()
	spinner.SetSizeRequest(32, 32)
	spinner.Start()
	box.Append(spinner)

	w.loadingMsg = gtk.NewLabel("")
	w.loadingMsg.AddCSSClass("dim-label")
	box.Append(w.loadingMsg)

	return box
}

func (w *window) createEnableView(actions Actions) *adw.StatusPage {
	w.enablePage = adw.NewStatusPage()
	w.enablePage.SetIconName("bluetooth-disabled-symbolic")

	button := gtk.NewButtonWithLabel("Enable Bluetooth")
	button.SetHAlign(gtk.AlignCenter)
	button.AddCSSClass("pill")
	button.AddCSSClass("suggested-action")
	button.ConnectClicked(func() { call(actions.EnableBluetooth) })
	w.enablePage.SetChild(button)

	return w.enablePage
}

func (w *window) createDevicesView() *gtk.ScrolledWindow {
	box := gtk.NewBox(gtk.OrientationVertical, 20)
	box.SetMarginTop(20)
	box.SetMarginBottom(20)
	box.SetMarginStart(20)
	box.SetMarginEnd(20)

	w.devicesGroup = adw.NewPreferencesGroup()
	box.Append(w.devicesGroup)

	scrolled := gtk.NewScrolledWindow()
	scrolled.SetChild(box)
	return scrolled
}

func (w *window) createEmptyView(actions Actions) *adw.StatusPage {
	w.emptyPage = adw.NewStatusPage()
	w.emptyPage.SetIconName("audio-headphones-symbolic")

	button := gtk.NewButtonWithLabel("Refresh")
	button.SetHAlign(gtk.AlignCenter)
	button.AddCSSClass("pill")
	button.ConnectClicked(func() { call(actions.Refresh) })
	w.emptyPage.SetChild(button)

	return w.emptyPage
}

func (w *window) createErrorView(actions Actions) *adw.StatusPage {
	w.errorPage = adw.NewStatusPage()
	w.errorPage.SetIconName("dialog-warning-symbolic")

	button := gtk.NewButtonWithLabel("Retry")
	button.SetHAlign(gtk.AlignCenter)
	button.AddCSSClass("pill")
	button.ConnectClicked(func() { call(actions.Refresh) })
	w.errorPage.SetChild(button)

	return w.errorPage
}

// render shows st; it must run on the GTK main loop
func (w *window) render(st headset.State) {
	s := display.Describe(st)

	switch s.Mode {
	case display.ModeLoading:
		w.loadingMsg.SetText(s.Title)
	case display.ModeEnableBluetooth:
		w.enablePage.SetTitle(s.Title)
		w.enablePage.SetDescription(s.Description)
	case display.ModeEmpty:
		w.emptyPage.SetTitle(s.Title)
		w.emptyPage.SetDescription(s.Description)
	case display.ModeError:
		w.errorPage.SetTitle(s.Title)
		w.errorPage.SetDescription(s.Description)
	case display.ModeDevices:
		if ready, ok := st.(headset.Ready); ok {
			w.setDevices(s.Title, ready.Devices)
		}
	}

	w.stack.SetVisibleChildName(s.Mode.String())
}

// setDevices replaces the device rows with one row per device
func (w *window) setDevices(title string, devices []headset.Device) {
	for _, row := range w.deviceRows {
		w.devicesGroup.Remove(row)
	}
	w.deviceRows = w.deviceRows[:0]

	w.devicesGroup.SetTitle(title)
	for _, d := range devices {
		row := adw.NewActionRow()
		row.SetTitle(d.Name)
		row.SetSubtitle(d.Address)

		// Battery level as a dimmed suffix
		battery := gtk.NewLabel(d.BatteryLevel)
		battery.AddCSSClass("dim-label")
		row.AddSuffix(battery)

		w.devicesGroup.Add(row)
		w.deviceRows = append(w.deviceRows, row)
	}
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}
