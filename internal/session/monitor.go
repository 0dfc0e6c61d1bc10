package session

import (
	"time"
)

// monitorState is the integrity monitor's arming state.
type monitorState int

const (
	monitorArmed monitorState = iota
	monitorSuspended
)

// Monitor counts focus/visibility-loss violations. Duplicate signals
// inside the debounce window are dropped (alt-tab flurries fire several
// browser events for one switch). The monitor must be suspended around
// interactions that legitimately blur the page, such as permission
// prompts; callers bracket those with Suspend/Resume. Not safe for
// concurrent use on its own; the session controller serializes access.
type Monitor struct {
	state       monitorState
	enforce     bool // terminate at threshold only when tab-switch prevention is on
	threshold   int
	debounce    time.Duration
	violations  int
	lastCounted time.Time
	now         func() time.Time
}

// NewMonitor creates an armed monitor. enforce mirrors the test's
// prevent_tab_switching flag.
func NewMonitor(enforce bool, threshold int, debounce time.Duration) *Monitor {
	return &Monitor{
		state:     monitorArmed,
		enforce:   enforce,
		threshold: threshold,
		debounce:  debounce,
		now:       time.Now,
	}
}

// FocusLost records a focus-loss signal. It returns the violation count,
// whether the signal was actually counted, and whether the session must
// terminate.
func (m *Monitor) FocusLost() (count int, counted, terminate bool) {
	if m.state != monitorArmed {
		return m.violations, false, false
	}

	now := m.now()
	if !m.lastCounted.IsZero() && now.Sub(m.lastCounted) <= m.debounce {
		return m.violations, false, false
	}

	m.violations++
	m.lastCounted = now

	return m.violations, true, m.enforce && m.violations >= m.threshold
}

// Suspend stops counting until Resume. Suspending twice is a no-op.
func (m *Monitor) Suspend() {
	m.state = monitorSuspended
}

// Resume re-arms the monitor. The debounce clock is not reset: a blur
// that races the resume still gets debounced against the last counted
// violation.
func (m *Monitor) Resume() {
	m.state = monitorArmed
}

// Violations returns the count so far. The count only ever increases.
func (m *Monitor) Violations() int {
	return m.violations
}
