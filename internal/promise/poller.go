package promise

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type PollerState int

const (
	StateInactive PollerState = iota
	StateWaiting
	StateReady
	StateTimedOut
)

func (s PollerState) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateReady:
		return "ready"
	case StateTimedOut:
		return "timed_out"
	default:
		return "inactive"
	}
}

func (s PollerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *PollerState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "inactive", "":
		*s = StateInactive
	case "waiting":
		*s = StateWaiting
	case "ready":
		*s = StateReady
	case "timed_out":
		*s = StateTimedOut
	default:
		return fmt.Errorf("unknown poller state %q", b)
	}
	return nil
}

// Terminal reports whether the activation has finished polling.
func (s PollerState) Terminal() bool {
	return s == StateReady || s == StateTimedOut
}

const StatusLoadingScript = "Loading Narvar script..."

type PollerConfig struct {
	GlobalName string
	Command    string
	Interval   time.Duration
	Timeout    time.Duration
}

func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		GlobalName: "narvar",
		Command:    FeaturePromiseWidget,
		Interval:   500 * time.Millisecond,
		Timeout:    15 * time.Second,
	}
}

type PollerSnapshot struct {
	State        PollerState `json:"state"`
	Status       string      `json:"status"`
	ScriptLoaded bool        `json:"script_loaded"`
	Invocations  int         `json:"invocations"`
	Err          string      `json:"error,omitempty"`
}

// PollerObserver is told how each activation ended. err is nil on a clean
// invocation, an *InvocationError when the entry point failed and
// ErrScriptLoadTimeout on timeout.
type PollerObserver func(ctx context.Context, state PollerState, elapsed time.Duration, err error)

type PollerOption func(*ReadinessPoller)

func WithObserver(o PollerObserver) PollerOption {
	return func(p *ReadinessPoller) { p.observer = o }
}

func withClock(c clock) PollerOption {
	return func(p *ReadinessPoller) { p.clock = c }
}

// ReadinessPoller waits for the widget entry point to appear in a Resolver,
// invokes it once, and gives up after a deadline.
//
// Each activation moves Waiting -> Ready or Waiting -> TimedOut exactly once.
// The interval ticker and the deadline timer are owned by the activation
// goroutine and stopped when it exits, whichever way it exits.
type ReadinessPoller struct {
	resolver Resolver
	params   WidgetParameters
	cfg      PollerConfig
	observer PollerObserver
	clock    clock

	mu     sync.Mutex
	snap   PollerSnapshot
	cancel context.CancelFunc
	done   chan struct{}
}

func NewReadinessPoller(resolver Resolver, params WidgetParameters, cfg PollerConfig, opts ...PollerOption) *ReadinessPoller {
	if resolver == nil {
		panic("promise.NewReadinessPoller: nil resolver")
	}
	def := DefaultPollerConfig()
	if cfg.GlobalName == "" {
		cfg.GlobalName = def.GlobalName
	}
	if cfg.Command == "" {
		cfg.Command = def.Command
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	p := &ReadinessPoller{
		resolver: resolver,
		params:   params,
		cfg:      cfg,
		clock:    realClock{},
		snap:     PollerSnapshot{State: StateInactive},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *ReadinessPoller) Config() PollerConfig {
	return p.cfg
}

func (p *ReadinessPoller) Params() WidgetParameters {
	return p.params
}

// Activate starts polling. It fails with ErrAlreadyActive until the previous
// activation has been torn down with Deactivate.
func (p *ReadinessPoller) Activate(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return ErrAlreadyActive
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.snap = PollerSnapshot{State: StateWaiting, Status: StatusLoadingScript}

	go p.run(runCtx, p.done)
	return nil
}

// Deactivate cancels the running activation and waits until its timers are
// released. Calling it without an activation is a no-op.
func (p *ReadinessPoller) Deactivate() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	p.mu.Lock()
	// An Activate may have started a new activation while we waited.
	if p.done == done && p.snap.State == StateWaiting {
		p.snap.State = StateInactive
	}
	p.mu.Unlock()
}

// Wait blocks until the current activation stops polling or ctx ends.
func (p *ReadinessPoller) Wait(ctx context.Context) (PollerSnapshot, error) {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done == nil {
		return p.Snapshot(), nil
	}

	select {
	case <-done:
		return p.Snapshot(), nil
	case <-ctx.Done():
		return p.Snapshot(), ctx.Err()
	}
}

func (p *ReadinessPoller) Snapshot() PollerSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

func (p *ReadinessPoller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	start := p.clock.Now()
	tick := p.clock.NewTicker(p.cfg.Interval)
	defer tick.Stop()
	deadline := p.clock.NewTimer(p.cfg.Timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C():
			if ctx.Err() != nil {
				return
			}
			fn, ok := p.resolver.Lookup(p.cfg.GlobalName)
			if !ok {
				continue
			}
			p.invoke(ctx, fn, start)
			return
		case <-deadline.C():
			if ctx.Err() != nil {
				return
			}
			p.timeOut(ctx, start)
			return
		}
	}
}

func (p *ReadinessPoller) invoke(ctx context.Context, fn Entrypoint, start time.Time) {
	p.mu.Lock()
	p.snap.State = StateReady
	p.snap.ScriptLoaded = true
	p.snap.Invocations++
	p.snap.Status = fmt.Sprintf("Narvar script loaded. Calling %s...", p.cfg.Command)
	p.mu.Unlock()

	err := Invoke(fn, p.cfg.Command, p.params)

	p.mu.Lock()
	if err != nil {
		p.snap.Status = fmt.Sprintf("Error calling %s: %s", p.cfg.Command, err.Error())
		p.snap.Err = err.Error()
	} else {
		p.snap.Status = fmt.Sprintf("%s called successfully. Waiting for widget to render...", p.cfg.Command)
	}
	p.mu.Unlock()

	p.notify(ctx, StateReady, start, err)
}

func (p *ReadinessPoller) timeOut(ctx context.Context, start time.Time) {
	p.mu.Lock()
	p.snap.State = StateTimedOut
	p.snap.Status = fmt.Sprintf("Timed out waiting for Narvar script to load (%s)", p.cfg.Timeout)
	p.snap.Err = ErrScriptLoadTimeout.Error()
	p.mu.Unlock()

	p.notify(ctx, StateTimedOut, start, ErrScriptLoadTimeout)
}

func (p *ReadinessPoller) notify(ctx context.Context, state PollerState, start time.Time, err error) {
	if p.observer == nil {
		return
	}
	p.observer(ctx, state, p.clock.Now().Sub(start), err)
}
