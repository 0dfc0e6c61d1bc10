package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock drives the monitor's notion of time so debounce windows can
// be crossed without sleeping.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestMonitor(enforce bool, threshold int) (*Monitor, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	m := NewMonitor(enforce, threshold, 2*time.Second)
	m.now = clk.now
	return m, clk
}

func TestMonitor_CountsSpacedViolations(t *testing.T) {
	m, clk := newTestMonitor(true, 4)

	count, counted, terminate := m.FocusLost()
	assert.Equal(t, 1, count)
	assert.True(t, counted)
	assert.False(t, terminate)

	clk.advance(3 * time.Second)
	count, counted, _ = m.FocusLost()
	assert.Equal(t, 2, count)
	assert.True(t, counted)
}

func TestMonitor_DebounceDropsFlurry(t *testing.T) {
	m, clk := newTestMonitor(true, 4)

	m.FocusLost()
	// An alt-tab flurry fires several events within the window; only the
	// first one counts.
	for i := 0; i < 5; i++ {
		clk.advance(200 * time.Millisecond)
		count, counted, _ := m.FocusLost()
		assert.Equal(t, 1, count)
		assert.False(t, counted)
	}

	clk.advance(2*time.Second + time.Millisecond)
	count, counted, _ := m.FocusLost()
	assert.Equal(t, 2, count)
	assert.True(t, counted)
}

func TestMonitor_TerminatesAtThreshold(t *testing.T) {
	m, clk := newTestMonitor(true, 3)

	for i := 0; i < 2; i++ {
		_, _, terminate := m.FocusLost()
		assert.False(t, terminate)
		clk.advance(5 * time.Second)
	}

	count, counted, terminate := m.FocusLost()
	assert.Equal(t, 3, count)
	assert.True(t, counted)
	assert.True(t, terminate)
}

func TestMonitor_NoTerminationWhenNotEnforcing(t *testing.T) {
	m, clk := newTestMonitor(false, 2)

	for i := 0; i < 10; i++ {
		_, _, terminate := m.FocusLost()
		assert.False(t, terminate)
		clk.advance(5 * time.Second)
	}
	assert.Equal(t, 10, m.Violations())
}

func TestMonitor_SuspendedSignalsIgnored(t *testing.T) {
	m, clk := newTestMonitor(true, 4)

	m.FocusLost()
	m.Suspend()

	clk.advance(5 * time.Second)
	count, counted, terminate := m.FocusLost()
	assert.Equal(t, 1, count)
	assert.False(t, counted)
	assert.False(t, terminate)

	m.Resume()
	clk.advance(5 * time.Second)
	count, counted, _ = m.FocusLost()
	assert.Equal(t, 2, count)
	assert.True(t, counted)
}

func TestMonitor_ResumeKeepsDebounceClock(t *testing.T) {
	m, clk := newTestMonitor(true, 4)

	m.FocusLost()
	m.Suspend()
	m.Resume()

	// Still inside the window of the last counted violation.
	clk.advance(time.Second)
	_, counted, _ := m.FocusLost()
	assert.False(t, counted)
}
