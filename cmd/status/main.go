// status prints the connected Bluetooth headsets and their battery levels.
//
// It runs one discovery through the same service the GUI uses and waits for
// the state to settle.
//
// Usage:
//
//	go run ./cmd/status [-config path] [-timeout 10s]
//
// Exit codes:
//   - 0: headsets listed, or none connected
//   - 2: Bluetooth is off
//   - 1: any other failure, including a timeout
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"linuxheadsets/internal/bluez"
	"linuxheadsets/internal/config"
	"linuxheadsets/internal/display"
	"linuxheadsets/internal/headset"
	"linuxheadsets/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", config.DefaultPath(), "path to config.yaml")
	timeout := flag.Duration("timeout", 10*time.Second, "how long to wait for the headset list")
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

	client, err := bluez.NewClient(cfg.Bluetooth, logg)
	if err != nil {
		logg.Error("failed to create BlueZ client", "error", err)
		return 1
	}
	defer client.Close()

	svc := headset.NewService(client, logg)
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	states := svc.Subscribe(ctx)
	<-states // initial Loading

	svc.Refresh()

	st, err := waitSettled(ctx, states)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	printSummary(display.Describe(st))

	switch st.(type) {
	case headset.BluetoothDisabled:
		return 2
	case headset.BindFailed:
		return 1
	default:
		return 0
	}
}

// waitSettled returns the first state that is not Loading
func waitSettled(ctx context.Context, states <-chan headset.State) (headset.State, error) {
	for {
		select {
		case st, ok := <-states:
			if !ok {
				return nil, fmt.Errorf("no headset state within timeout: %w", ctx.Err())
			}
			if _, loading := st.(headset.Loading); !loading {
				return st, nil
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("no headset state within timeout: %w", ctx.Err())
		}
	}
}

func printSummary(s display.Summary) {
	fmt.Println(s.Title)
	if s.Description != "" {
		fmt.Printf("  %s\n", s.Description)
	}
	for _, line := range s.Lines {
		fmt.Printf("  %s\n", line)
	}
}
