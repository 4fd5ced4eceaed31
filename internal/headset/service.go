// Package headset provides the headset discovery state machine.
//
// Service handles:
//   - Checking whether the Bluetooth adapter is enabled
//   - Binding the headset profile and listing connected headsets
//   - Resolving each headset's battery level
//   - Publishing state changes to any number of subscribers
//
// State Transitions:
//   - Loading is the initial state and is published while a bind is outstanding
//   - BluetoothDisabled is published when the adapter is off, without enumerating
//   - Ready or BindFailed is published when the bind completes
//
// A Refresh supersedes any outstanding one: its context is cancelled and a late
// completion from it is dropped. Profile disconnects are logged only.
package headset

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrNoProfile is the BindFailed reason when a bind completes without a profile
var ErrNoProfile = errors.New("headset profile bind returned no profile")

// Service owns the discovery state for one adapter
type Service struct {
	platform Platform
	logger   *slog.Logger

	mu     sync.Mutex
	state  State
	subs   map[chan State]struct{}
	gen    uint64
	cancel context.CancelFunc
	closed bool

	ctx  context.Context
	stop context.CancelFunc
}

// NewService creates a Service in the Loading state
func NewService(platform Platform, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, stop := context.WithCancel(context.Background())

	return &Service{
		platform: platform,
		logger:   logger.With("component", "headset"),
		state:    Loading{},
		subs:     make(map[chan State]struct{}),
		ctx:      ctx,
		stop:     stop,
	}
}

// Current returns the most recently published state
func (s *Service) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel that receives the current state immediately and
// every later state. Only the latest unread state is kept. The channel is
// closed when ctx is done or the service is closed.
func (s *Service) Subscribe(ctx context.Context) <-chan State {
	ch := make(chan State, 1)

	s.mu.Lock()
	ch <- s.state
	if s.closed {
		close(ch)
		s.mu.Unlock()
		return ch
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.ctx.Done():
		}
		s.unsubscribe(ch)
	}()

	return ch
}

func (s *Service) unsubscribe(ch chan State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
}

// Refresh re-queries the platform. It returns once the adapter check is done;
// the device list is published later.
func (s *Service) Refresh() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.mu.Unlock()

	enabled, err := s.platform.AdapterEnabled(ctx)
	if ctx.Err() != nil {
		s.logger.Debug("refresh superseded during adapter query", "generation", gen)
		return
	}
	if err != nil {
		s.logger.Warn("adapter query failed, treating as disabled", "error", err)
	}
	if err != nil || !enabled {
		s.publish(gen, BluetoothDisabled{})
		return
	}

	if !s.publish(gen, Loading{}) {
		return
	}

	results := s.platform.BindHeadsetProfile(ctx)
	go s.awaitBind(ctx, gen, results)
}

// awaitBind waits for the single bind completion of refresh gen
func (s *Service) awaitBind(ctx context.Context, gen uint64, results <-chan BindResult) {
	var res BindResult
	var ok bool

	select {
	case <-ctx.Done():
		s.logger.Debug("refresh superseded before bind completed", "generation", gen)
		return
	case res, ok = <-results:
	}

	if !ok {
		// Closed without a result, leave the state at Loading
		s.logger.Warn("headset profile bind returned no result", "generation", gen)
		return
	}

	if res.Err != nil {
		s.logger.Error("headset profile bind failed", "error", res.Err)
		s.publish(gen, BindFailed{Reason: res.Err})
		return
	}
	if res.Profile == nil {
		s.logger.Error("headset profile bind failed", "error", ErrNoProfile)
		s.publish(gen, BindFailed{Reason: ErrNoProfile})
		return
	}

	devices := resolveDevices(res.Profile.ConnectedDevices())
	if !s.publish(gen, Ready{Devices: devices}) {
		return
	}

	s.watchProfile(ctx, res.Profile)
}

// watchProfile logs when the bound profile goes away until ctx is done
func (s *Service) watchProfile(ctx context.Context, profile Profile) {
	select {
	case <-ctx.Done():
	case <-profile.Disconnected():
		s.logger.Info("headset profile disconnected")
	}
}

// publish stores state and notifies subscribers if gen is still the newest
// refresh. It reports whether the state was published.
func (s *Service) publish(gen uint64, state State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen {
		s.logger.Debug("dropping stale state", "state", state, "generation", gen)
		return false
	}

	s.state = state
	for ch := range s.subs {
		// Replace any unread value so the send cannot block
		select {
		case <-ch:
		default:
		}
		ch <- state
	}

	s.logger.Debug("state published", "state", state)
	return true
}

// Close cancels any outstanding refresh and closes all subscriptions
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
	s.mu.Unlock()

	s.stop()
	return nil
}
