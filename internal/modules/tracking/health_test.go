package tracking

import (
	"testing"
	"time"

	"firstcall/internal/models"
)

func TestMonitorStaysActiveUntilArmed(t *testing.T) {
	m := NewMonitor(10 * time.Second)
	if m.Check(time.Now().Add(time.Hour)) {
		t.Fatal("Check fired before any fix was observed")
	}
	if m.State() != models.GPSActive {
		t.Errorf("State = %s, want active", m.State())
	}
}

func TestMonitorLostOncePerEpisode(t *testing.T) {
	start := time.Now()
	m := NewMonitor(10 * time.Second)
	m.Observe(start)

	if m.Check(start.Add(9 * time.Second)) {
		t.Fatal("lost after 9s, stale window is 10s")
	}
	if !m.Check(start.Add(12 * time.Second)) {
		t.Fatal("not lost after a 12s stall")
	}
	if m.State() != models.GPSLost {
		t.Fatalf("State = %s, want lost", m.State())
	}
	for i := 13; i < 30; i++ {
		if m.Check(start.Add(time.Duration(i) * time.Second)) {
			t.Fatalf("loss signalled again at %ds", i)
		}
	}
	if m.Fail() {
		t.Error("Fail while lost reported a change")
	}
}

func TestMonitorRecovery(t *testing.T) {
	start := time.Now()
	m := NewMonitor(10 * time.Second)

	if m.RequestRecovery(start) {
		t.Fatal("recovery accepted while active")
	}

	m.Observe(start)
	if !m.Fail() {
		t.Fatal("Fail did not move to lost")
	}
	if !m.RequestRecovery(start.Add(time.Second)) {
		t.Fatal("recovery rejected while lost")
	}
	if m.State() != models.GPSRecovering {
		t.Fatalf("State = %s, want recovering", m.State())
	}
	if m.RequestRecovery(start.Add(2 * time.Second)) {
		t.Error("second recovery request accepted while recovering")
	}

	// The stale window restarts with the retry.
	if m.Check(start.Add(10 * time.Second)) {
		t.Fatal("recovering went lost before its own window elapsed")
	}
	if !m.Observe(start.Add(10 * time.Second)) {
		t.Fatal("fix did not complete the recovery")
	}
	if m.State() != models.GPSActive {
		t.Errorf("State = %s, want active", m.State())
	}
}

func TestMonitorRecoveryTimesOut(t *testing.T) {
	start := time.Now()
	m := NewMonitor(10 * time.Second)
	m.Fail()
	m.RequestRecovery(start)

	if !m.Check(start.Add(11 * time.Second)) {
		t.Fatal("recovery without a fix did not fall back to lost")
	}
	if m.State() != models.GPSLost {
		t.Errorf("State = %s, want lost", m.State())
	}
}

func TestCanTransition(t *testing.T) {
	testCases := []struct {
		from, to models.SessionStatus
		want     bool
	}{
		{models.StatusRequested, models.StatusEnRoute, true},
		{models.StatusRequested, models.StatusCancelled, false},
		{models.StatusRequested, models.StatusArrived, false},
		{models.StatusEnRoute, models.StatusArrived, true},
		{models.StatusEnRoute, models.StatusCancelled, true},
		{models.StatusEnRoute, models.StatusRequested, false},
		{models.StatusArrived, models.StatusCancelled, false},
		{models.StatusCancelled, models.StatusEnRoute, false},
	}
	for _, tc := range testCases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.want {
				t.Errorf("CanTransition = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSnapshotDoesNotShareCoordinates(t *testing.T) {
	s := newSession(SessionParams{ID: "s1", Requester: coord(13.0827, 80.2707)}, 15, time.Now())
	first := s.snapshot()
	s.Requester.Latitude = 0

	if first.RequesterPosition.Latitude != 13.0827 {
		t.Error("snapshot aliases the session's requester position")
	}
	if second := s.snapshot(); second.Sequence != first.Sequence+1 {
		t.Errorf("Sequence = %d, want %d", second.Sequence, first.Sequence+1)
	}
}
