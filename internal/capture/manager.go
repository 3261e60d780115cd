package capture

import (
	"context"
	"sync"
	"time"

	"github.com/screenwatch/screenwatch/internal/event"
	"github.com/screenwatch/screenwatch/internal/trace"
)

// Manager owns the source descriptors and the lifecycle of their tasks:
// one task per enabled source, a shared cancellation signal fanned out to
// all of them, and a join on shutdown.
type Manager struct {
	descs  []Descriptor
	policy SwitchPolicy
	clock  func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      *sync.WaitGroup
	running int
}

// Option adjusts manager construction.
type Option func(*Manager)

// WithSwitchPolicy sets the window-switch gate bypass policy.
func WithSwitchPolicy(p SwitchPolicy) Option {
	return func(m *Manager) { m.policy = p }
}

// WithClock injects the time source used by every task. Tests use it to
// drive the gating policy deterministically.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) { m.clock = clock }
}

// New creates a manager over the given source descriptors. Disabled
// descriptors are kept but never spawned.
func New(descs []Descriptor, opts ...Option) *Manager {
	m := &Manager{descs: descs, policy: SwitchBypassAll, clock: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartCapture spawns one task per enabled source, each bound to a fresh
// state and the shared cancellation signal, and returns how many were
// spawned. An empty source set is valid and spawns zero. Calling it while
// tasks are already running is a no-op returning 0.
func (m *Manager) StartCapture(sender *event.Sender) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	log := trace.Logger(ctx)

	spawned := 0
	for _, desc := range m.descs {
		if !desc.Config.Enabled {
			continue
		}
		task := newTask(desc, sender, m.policy, m.clock)
		wg.Add(1)
		go func() {
			defer wg.Done()
			task.run(ctx)
		}()
		log.Info("capture task spawned", "source", desc.ID, "config", desc.Config.String())
		spawned++
	}

	m.cancel = cancel
	m.wg = wg
	m.running = spawned
	log.Info("capture started", "tasks", spawned)
	return spawned
}

// Shutdown raises the cancellation signal once and waits for every spawned
// task to finish, returning how many were running at the time of the call.
// Idempotent: later calls return 0 without waiting. Latency is bounded by
// the largest poll interval among running sources, since each task checks
// cancellation at its loop boundary.
func (m *Manager) Shutdown() int {
	m.mu.Lock()
	cancel, wg, running := m.cancel, m.wg, m.running
	m.cancel, m.wg, m.running = nil, nil, 0
	m.mu.Unlock()

	if cancel == nil {
		return 0
	}

	cancel()
	wg.Wait()
	trace.Logger(context.Background()).Info("capture shutdown complete", "tasks", running)
	return running
}

// Running reports whether tasks have been started and not yet shut down.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}
