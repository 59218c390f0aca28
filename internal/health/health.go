// Package health tracks per-source circuit breakers so a persistently
// failing source stops costing network attempts until its cooldown
// runs out.
package health

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pricescout/pricescout/internal/models"
)

type Options struct {
	// FailureThreshold is the number of consecutive failures that
	// trips a Closed breaker to Open.
	FailureThreshold int
	// BaseCooldown is the first Open cooldown; it doubles on every
	// consecutive trip up to MaxCooldown.
	BaseCooldown time.Duration
	MaxCooldown  time.Duration
}

func DefaultOptions() Options {
	return Options{
		FailureThreshold: 3,
		BaseCooldown:     90 * time.Second,
		MaxCooldown:      15 * time.Minute,
	}
}

type sourceState struct {
	state         models.SourceState
	failures      int
	trips         int
	lastFailureAt time.Time
	openedAt      time.Time
	cooldown      time.Duration
}

// Monitor is the health authority for every source. Safe for
// concurrent use from per-source tasks.
type Monitor struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	sources map[string]*sourceState
	now     func() time.Time
}

func NewMonitor(opts Options, logger *slog.Logger) *Monitor {
	if opts.FailureThreshold < 1 {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		opts:    opts,
		logger:  logger.With("component", "health"),
		sources: make(map[string]*sourceState),
		now:     time.Now,
	}
}

func (m *Monitor) get(source string) *sourceState {
	s, ok := m.sources[source]
	if !ok {
		s = &sourceState{state: models.StateClosed}
		m.sources[source] = s
	}
	return s
}

// refresh moves an Open breaker whose cooldown has elapsed to
// HalfOpen. Callers hold m.mu.
func (m *Monitor) refresh(s *sourceState) {
	if s.state == models.StateOpen && m.now().Sub(s.openedAt) >= s.cooldown {
		s.state = models.StateHalfOpen
	}
}

// RecordSuccess marks a successful attempt. A HalfOpen probe success
// closes the breaker and zeroes the failure count.
func (m *Monitor) RecordSuccess(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.get(source)
	m.refresh(s)

	if s.state != models.StateClosed {
		m.logger.Info("source recovered", "source", source)
	}
	s.state = models.StateClosed
	s.failures = 0
	s.trips = 0
	s.cooldown = 0
}

// RecordFailure marks a failed attempt. Crossing the consecutive
// failure threshold, or failing a HalfOpen probe, opens the breaker
// with an exponentially growing cooldown.
func (m *Monitor) RecordFailure(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.get(source)
	m.refresh(s)

	s.failures++
	s.lastFailureAt = m.now()

	trip := false
	switch s.state {
	case models.StateClosed:
		trip = s.failures >= m.opts.FailureThreshold
	case models.StateHalfOpen:
		trip = true
	}

	if trip {
		s.state = models.StateOpen
		s.openedAt = m.now()
		s.cooldown = m.cooldownFor(s.trips)
		s.trips++
		m.logger.Warn("source circuit opened",
			"source", source,
			"failures", s.failures,
			"cooldown", s.cooldown,
		)
	}
}

func (m *Monitor) cooldownFor(previousTrips int) time.Duration {
	cooldown := m.opts.BaseCooldown
	for i := 0; i < previousTrips; i++ {
		cooldown *= 2
		if cooldown >= m.opts.MaxCooldown {
			return m.opts.MaxCooldown
		}
	}
	return cooldown
}

// IsHealthy reports whether an attempt against the source is allowed.
// A HalfOpen breaker allows the probe attempt.
func (m *Monitor) IsHealthy(source string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.get(source)
	m.refresh(s)
	return s.state != models.StateOpen
}

// DisabledSources lists sources whose breaker is currently Open.
func (m *Monitor) DisabledSources() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for source, s := range m.sources {
		m.refresh(s)
		if s.state == models.StateOpen {
			out = append(out, source)
		}
	}
	sort.Strings(out)
	return out
}

// HealthySources filters the given sources down to those attempts are
// allowed against.
func (m *Monitor) HealthySources(sources []string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for _, source := range sources {
		s := m.get(source)
		m.refresh(s)
		if s.state != models.StateOpen {
			out = append(out, source)
		}
	}
	return out
}

// ResetSource closes the breaker and clears counters for one source.
func (m *Monitor) ResetSource(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sources[source] = &sourceState{state: models.StateClosed}
	m.logger.Info("source breaker reset", "source", source)
}

// ResetAll closes every breaker.
func (m *Monitor) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sources = make(map[string]*sourceState)
	m.logger.Info("all breakers reset")
}

// Detail returns the current snapshot for one source.
func (m *Monitor) Detail(source string) models.SourceHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.get(source)
	m.refresh(s)

	detail := models.SourceHealth{
		Source:        source,
		State:         s.state,
		FailureCount:  s.failures,
		LastFailureAt: s.lastFailureAt,
	}
	if s.state == models.StateOpen {
		if remaining := s.cooldown - m.now().Sub(s.openedAt); remaining > 0 {
			detail.CooldownRemaining = remaining
		}
	}
	return detail
}
