// SPDX-License-Identifier: MPL-2.0

package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// DefaultGracePeriod is how long probe failures are forgiven after start.
	DefaultGracePeriod = 5 * time.Second

	// DefaultInterval is the time between probes.
	DefaultInterval = 30 * time.Second

	// DefaultTimeout is the per-probe timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultFailureThreshold is how many consecutive failures outside the
	// grace period it takes to declare a runtime unhealthy.
	DefaultFailureThreshold = 3
)

// ErrUnhealthy is returned by Run when monitoring ends with the runtime
// declared unhealthy.
var ErrUnhealthy = errors.New("runtime is unhealthy")

type (
	// Options configures a Monitor. The zero value of each field falls
	// back to the corresponding default.
	Options struct {
		GracePeriod      time.Duration
		Interval         time.Duration
		Timeout          time.Duration
		FailureThreshold int
		RecordCapacity   int

		// OnTransition is invoked whenever the state changes (optional).
		OnTransition func(from, to State, last Record)
	}

	// Monitor drives periodic probes through a state machine. Not safe
	// for concurrent use.
	Monitor struct {
		prober  Prober
		opts    Options
		logger  *log.Logger
		state   State
		started time.Time
		fails   int
		history *History
	}
)

func (o Options) withDefaults() Options {
	if o.GracePeriod <= 0 {
		o.GracePeriod = DefaultGracePeriod
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = DefaultFailureThreshold
	}
	if o.RecordCapacity <= 0 {
		// The ring keeps exactly the probes that can contribute to the
		// current unhealthy verdict.
		o.RecordCapacity = o.FailureThreshold
	}
	return o
}

// NewMonitor creates a Monitor in the starting state.
func NewMonitor(prober Prober, logger *log.Logger, opts Options) *Monitor {
	opts = opts.withDefaults()
	return &Monitor{
		prober:  prober,
		opts:    opts,
		logger:  logger,
		state:   StateStarting,
		started: time.Now(),
		history: NewHistory(opts.RecordCapacity),
	}
}

// State returns the current state.
func (m *Monitor) State() State {
	return m.state
}

// History returns the retained probe records, oldest first.
func (m *Monitor) History() []Record {
	return m.history.All()
}

// Observe feeds one probe record into the state machine and returns the
// resulting state.
//
// Transition rules:
//   - failures within the grace period keep the runtime in starting and
//     do not count against the threshold
//   - a single success moves to healthy and clears the failure count
//   - reaching the failure threshold moves to unhealthy
//   - a success after unhealthy recovers to healthy
func (m *Monitor) Observe(rec Record) State {
	if m.state.IsTerminal() {
		return m.state
	}
	m.history.Add(rec)

	prev := m.state
	switch {
	case rec.OK():
		m.fails = 0
		m.state = StateHealthy
	case m.state == StateStarting && rec.Time.Sub(m.started) < m.opts.GracePeriod:
		// Forgiven: the application is still allowed to be starting up.
	default:
		m.fails++
		if m.fails >= m.opts.FailureThreshold {
			m.state = StateUnhealthy
		}
	}

	if m.state != prev {
		m.transitioned(prev, rec)
	}
	return m.state
}

// ProbeOnce performs a single probe and feeds it through the state
// machine. Suitable as a HEALTHCHECK command body.
func (m *Monitor) ProbeOnce(ctx context.Context) (Record, State) {
	probeCtx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()
	rec := m.prober.Probe(probeCtx)
	return rec, m.Observe(rec)
}

// Run probes at the configured interval until the context is canceled.
// The first probe fires immediately. On cancelation the monitor moves
// to terminated; Run then returns nil if the last state was healthy or
// still starting, and ErrUnhealthy otherwise.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		rec, state := m.ProbeOnce(ctx)
		if m.logger != nil {
			m.logger.Debug("probe completed",
				"outcome", rec.Outcome.String(),
				"status", rec.Status,
				"latency", rec.Latency,
				"state", state.String())
		}

		select {
		case <-ctx.Done():
			return m.terminate()
		case <-ticker.C:
		}
	}
}

func (m *Monitor) terminate() error {
	prev := m.state
	m.state = StateTerminated
	last, _ := m.history.Last()
	m.transitioned(prev, last)
	if prev == StateUnhealthy {
		return fmt.Errorf("%w: %d consecutive probe failures", ErrUnhealthy, m.fails)
	}
	return nil
}

func (m *Monitor) transitioned(from State, last Record) {
	if m.logger != nil {
		m.logger.Info("health state changed",
			"from", from.String(),
			"to", m.state.String(),
			"consecutive_failures", m.fails)
	}
	if m.opts.OnTransition != nil {
		m.opts.OnTransition(from, m.state, last)
	}
}
