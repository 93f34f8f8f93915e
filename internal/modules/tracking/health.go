package tracking

import (
	"time"

	"firstcall/internal/models"
)

// Monitor classifies the requester's GPS signal from the cadence of its fixes.
//
//	active     --stale or failure-->   lost
//	lost       --recovery request-->   recovering
//	recovering --fix-->                active
//	recovering --failure or stale-->   lost
//
// A fix arriving while lost also returns the monitor to active. Each method
// reports whether the state changed, so a loss is signalled once per episode.
type Monitor struct {
	staleAfter time.Duration
	state      models.GPSState
	armed      bool
	lastFix    time.Time
	retryStart time.Time
}

// NewMonitor creates a monitor in the active state. Staleness is only
// evaluated after the first fix or failure has been recorded.
func NewMonitor(staleAfter time.Duration) *Monitor {
	return &Monitor{staleAfter: staleAfter, state: models.GPSActive}
}

// State returns the current GPS state.
func (m *Monitor) State() models.GPSState {
	return m.state
}

// Observe records a successful fix received at `at`.
func (m *Monitor) Observe(at time.Time) bool {
	m.armed = true
	m.lastFix = at
	if m.state == models.GPSActive {
		return false
	}
	m.state = models.GPSActive
	return true
}

// Fail records a positioning failure; it also ends a recovery attempt.
func (m *Monitor) Fail() bool {
	m.armed = true
	if m.state == models.GPSLost {
		return false
	}
	m.state = models.GPSLost
	return true
}

// RequestRecovery moves a lost signal to recovering. It returns false, and
// changes nothing, in any other state.
func (m *Monitor) RequestRecovery(now time.Time) bool {
	if m.state != models.GPSLost {
		return false
	}
	m.state = models.GPSRecovering
	m.retryStart = now
	return true
}

// Check declares the signal lost when nothing arrived for staleAfter. While
// recovering the window is measured from the start of the retry.
func (m *Monitor) Check(now time.Time) bool {
	if !m.armed || m.state == models.GPSLost {
		return false
	}
	since := m.lastFix
	if m.state == models.GPSRecovering {
		since = m.retryStart
	}
	if now.Sub(since) < m.staleAfter {
		return false
	}
	m.state = models.GPSLost
	return true
}
