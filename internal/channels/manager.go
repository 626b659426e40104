package channels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nextlevelbuilder/agdabot/internal/bus"
)

// Manager owns the registered channels and their lifecycle.
type Manager struct {
	channels map[string]Channel
	order    []string
	mu       sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{channels: make(map[string]Channel)}
}

// RegisterChannel adds a channel. Registering a name twice replaces the
// earlier channel.
func (m *Manager) RegisterChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.channels[ch.Name()]; !exists {
		m.order = append(m.order, ch.Name())
	}
	m.channels[ch.Name()] = ch
}

// StartAll starts every registered channel with h. A channel that fails to
// start stops the ones already started.
func (m *Manager) StartAll(ctx context.Context, h bus.Handler) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.order) == 0 {
		return errors.New("no channels registered")
	}

	for i, name := range m.order {
		slog.Info("starting channel", "channel", name)
		if err := m.channels[name].Start(ctx, h); err != nil {
			for _, started := range m.order[:i] {
				_ = m.channels[started].Stop(ctx)
			}
			return fmt.Errorf("start channel %s: %w", name, err)
		}
	}
	return nil
}

// StopAll stops every channel in reverse start order and joins the errors.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	for i := len(m.order) - 1; i >= 0; i-- {
		name := m.order[i]
		if err := m.channels[name].Stop(ctx); err != nil {
			slog.Error("error stopping channel", "channel", name, "error", err)
			errs = append(errs, fmt.Errorf("stop channel %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Status returns the running state of every channel.
func (m *Manager) Status() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]bool, len(m.channels))
	for name, ch := range m.channels {
		out[name] = ch.IsRunning()
	}
	return out
}
