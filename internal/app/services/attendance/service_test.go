package attendance

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mohammeioi/Market-Management-sub000/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *time.Time) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "attendance.json")
	svc, err := New(path, logger.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return now })
	return svc, &now
}

func TestClockInRequiresPIN(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.ClockIn("u1", "1234"); err != ErrPINNotSet {
		t.Fatalf("expected ErrPINNotSet, got %v", err)
	}
	if svc.HasPIN("u1") {
		t.Fatalf("no PIN should exist yet")
	}
}

func TestClockInWrongPIN(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.SetPIN("u1", "1234"); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	if err := svc.ClockIn("u1", "4321"); err != ErrPINMismatch {
		t.Fatalf("expected ErrPINMismatch, got %v", err)
	}
	if svc.CheckStatus("u1") {
		t.Fatalf("wrong PIN must not clock in")
	}
}

func TestSetPINValidation(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.SetPIN("u1", "123"); err == nil {
		t.Fatalf("three digits must be rejected")
	}
	if err := svc.SetPIN("u1", "12a4"); err == nil {
		t.Fatalf("letters must be rejected")
	}
	if err := svc.SetPIN("u1", "123456"); err != nil {
		t.Fatalf("six digits should be accepted: %v", err)
	}
}

func TestStatusResetsAtMidnight(t *testing.T) {
	svc, now := newTestService(t)

	if err := svc.SetPIN("u1", "1234"); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	if err := svc.ClockIn("u1", "1234"); err != nil {
		t.Fatalf("clock in: %v", err)
	}
	if !svc.CheckStatus("u1") {
		t.Fatalf("expected clocked in")
	}

	// Same day, hours later: still in.
	*now = now.Add(10 * time.Hour)
	if !svc.CheckStatus("u1") {
		t.Fatalf("expected still clocked in the same day")
	}

	// Next calendar day: the record is stale and purged.
	*now = now.Add(10 * time.Hour)
	if svc.CheckStatus("u1") {
		t.Fatalf("expected clocked out after midnight")
	}
	if svc.CheckStatus("u1") {
		t.Fatalf("purged record must stay gone")
	}
}

func TestClockOutSnapshotsHistory(t *testing.T) {
	svc, now := newTestService(t)

	if err := svc.SetPIN("u1", "1234"); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	if err := svc.ClockIn("u1", "1234"); err != nil {
		t.Fatalf("clock in: %v", err)
	}
	in := *now
	*now = now.Add(8 * time.Hour)
	if err := svc.ClockOut("u1"); err != nil {
		t.Fatalf("clock out: %v", err)
	}

	if svc.CheckStatus("u1") {
		t.Fatalf("expected clocked out")
	}
	hist := svc.History("u1")
	if len(hist) != 1 {
		t.Fatalf("expected one history entry, got %d", len(hist))
	}
	if !hist[0].ClockInAt.Equal(in) || !hist[0].ClockOutAt.Equal(*now) {
		t.Fatalf("unexpected history entry: %+v", hist[0])
	}
}

func TestClockOutWithoutClockInIsNoop(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.ClockOut("u1"); err != nil {
		t.Fatalf("clock out: %v", err)
	}
	if len(svc.History("u1")) != 0 {
		t.Fatalf("no history entry expected")
	}
}

func TestStateSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.json")
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	svc, err := New(path, logger.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.WithClock(func() time.Time { return now })
	if err := svc.SetPIN("u1", "1234"); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	if err := svc.ClockIn("u1", "1234"); err != nil {
		t.Fatalf("clock in: %v", err)
	}

	reloaded, err := New(path, logger.Nop())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	reloaded.WithClock(func() time.Time { return now })

	if !reloaded.HasPIN("u1") {
		t.Fatalf("PIN must survive a reload")
	}
	if !reloaded.CheckStatus("u1") {
		t.Fatalf("clock-in must survive a reload")
	}
	if err := reloaded.ClockIn("u1", "4321"); err != ErrPINMismatch {
		t.Fatalf("reloaded PIN must still be checked, got %v", err)
	}
}
