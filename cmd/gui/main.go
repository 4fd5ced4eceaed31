package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"linuxheadsets/internal/bluez"
	"linuxheadsets/internal/config"
	"linuxheadsets/internal/headset"
	"linuxheadsets/internal/indicator"
	"linuxheadsets/internal/logger"
	"linuxheadsets/internal/ui"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
)

const appID = "com.linuxheadsets.app"

var (
	app    *adw.Application
	window *adw.ApplicationWindow
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", config.DefaultPath(), "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}

	logg, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		log.Printf("Failed to create logger: %v", err)
		return 1
	}
	defer closeLog()
	slog.SetDefault(logg)

	// === Connect to BlueZ ===
	client, err := bluez.NewClient(cfg.Bluetooth, logg)
	if err != nil {
		logg.Error("failed to create BlueZ client", "error", err)
		return 1
	}
	defer client.Close()

	// Centralized headset state, shared by the window and the tray
	svc := headset.NewService(client, logg)
	defer svc.Close()

	refresh := func() { go svc.Refresh() }
	enableBluetooth := func() {
		go func() {
			if err := client.EnableAdapter(context.Background()); err != nil {
				logg.Warn("failed to enable bluetooth", "error", err)
			}
			svc.Refresh()
		}()
	}

	// === Create System Tray ===
	if cfg.Tray.Enabled {
		tray := createTrayIndicator(cfg.Tray, svc, refresh, enableBluetooth, logg)
		defer tray.Stop()
	}

	// === Create GUI App ===
	app = adw.NewApplication(appID, 0)
	app.ConnectActivate(func() {
		if window != nil {
			window.Present()
			return
		}
		window = ui.Activate(app, svc,
			ui.Options{Window: cfg.Window, HideOnClose: cfg.Tray.Enabled},
			ui.Actions{Refresh: refresh, EnableBluetooth: enableBluetooth},
		)
	})

	// GTK parses its own arguments; our flags are already consumed
	return app.Run(append([]string{os.Args[0]}, flag.Args()...))
}

// createTrayIndicator creates the tray and keeps it in sync with svc
func createTrayIndicator(cfg config.TrayConfig, svc *headset.Service, refresh, enableBluetooth func(), logg *slog.Logger) *indicator.Indicator {
	tray := indicator.New(cfg.MaxDevices, indicator.Actions{
		ShowWindow:      showWindow,
		Quit:            quitApp,
		Refresh:         refresh,
		EnableBluetooth: enableBluetooth,
	}, logg)
	tray.Start()

	// Update the tray on every state change
	go func() {
		for st := range svc.Subscribe(context.Background()) {
			tray.Update(st)
		}
	}()

	return tray
}

// showWindow displays the main application window
func showWindow() {
	if window != nil {
		glib.IdleAdd(func() {
			window.Present()
		})
	}
}

// quitApp quits the entire application
func quitApp() {
	if app != nil {
		glib.IdleAdd(func() {
			app.Quit()
		})
	}
}
