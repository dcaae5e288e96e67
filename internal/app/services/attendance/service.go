// Package attendance implements the per-day clock-in gate in front of the
// fulfillment dashboard. State lives in a local JSON file, mirroring a
// per-device store; it is deliberately not backed by the remote gateway.
package attendance

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/attendance"
	"github.com/mohammeioi/Market-Management-sub000/pkg/logger"
)

var (
	// ErrPINNotSet signals that the user must create a PIN before the
	// first clock-in.
	ErrPINNotSet = errors.New("no PIN set for user")

	// ErrPINMismatch rejects a wrong PIN.
	ErrPINMismatch = errors.New("wrong PIN")
)

// state is the on-disk layout.
type state struct {
	Records map[string]attendance.Record    `json:"records"`
	History map[string][]attendance.History `json:"history"`
	PINs    map[string]string               `json:"pins"`
}

// Service guards dashboard access with a per-user, per-day clocked-in flag.
type Service struct {
	path string
	log  *logger.Logger

	mu    sync.Mutex
	now   func() time.Time
	state state
}

// New loads attendance state from path, starting empty when the file does
// not exist yet.
func New(path string, log *logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.NewDefault("attendance")
	}
	s := &Service{
		path: path,
		log:  log,
		now:  time.Now,
		state: state{
			Records: make(map[string]attendance.Record),
			History: make(map[string][]attendance.History),
			PINs:    make(map[string]string),
		},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// WithClock overrides the clock for day-boundary tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read attendance state: %w", err)
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		return fmt.Errorf("parse attendance state: %w", err)
	}
	if s.state.Records == nil {
		s.state.Records = make(map[string]attendance.Record)
	}
	if s.state.History == nil {
		s.state.History = make(map[string][]attendance.History)
	}
	if s.state.PINs == nil {
		s.state.PINs = make(map[string]string)
	}
	return nil
}

// persistLocked writes the state file. Callers hold s.mu.
func (s *Service) persistLocked() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// CheckStatus reports whether the user is clocked in today. A record from an
// earlier calendar date counts as clocked out and is purged on sight.
func (s *Service) CheckStatus(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.state.Records[userID]
	if !ok || !rec.ClockedIn {
		return false
	}
	if !rec.SameDay(s.now()) {
		delete(s.state.Records, userID)
		if err := s.persistLocked(); err != nil {
			s.log.WithError(err).Warn("purging stale attendance record failed")
		}
		return false
	}
	return true
}

// HasPIN reports whether the user has created a PIN. A user without one must
// be sent through SetPIN before the first clock-in.
func (s *Service) HasPIN(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.state.PINs[userID]
	return ok
}

// SetPIN stores the user's PIN. Digits only, minimum four characters. The
// value is stored as-is; this gate is not a security boundary.
func (s *Service) SetPIN(userID, pin string) error {
	if err := validatePIN(pin); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.PINs[userID] = pin
	return s.persistLocked()
}

func validatePIN(pin string) error {
	if len(pin) < 4 {
		return fmt.Errorf("PIN must be at least 4 digits")
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return fmt.Errorf("PIN must contain only digits")
		}
	}
	return nil
}

// ClockIn records today's clock-in after checking the PIN with a plain
// comparison against the stored value.
func (s *Service) ClockIn(userID, pin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.state.PINs[userID]
	if !ok {
		return ErrPINNotSet
	}
	if pin != stored {
		return ErrPINMismatch
	}

	s.state.Records[userID] = attendance.Record{
		UserID:    userID,
		ClockedIn: true,
		ClockInAt: s.now(),
	}
	if err := s.persistLocked(); err != nil {
		return err
	}
	s.log.WithField("user_id", userID).Info("clocked in")
	return nil
}

// ClockOut clears the user's record, snapshotting it into history first.
// Clocking out while not clocked in is a no-op.
func (s *Service) ClockOut(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.state.Records[userID]
	if ok && rec.ClockedIn {
		s.state.History[userID] = append(s.state.History[userID], attendance.History{
			UserID:     userID,
			ClockInAt:  rec.ClockInAt,
			ClockOutAt: s.now(),
		})
	}
	delete(s.state.Records, userID)
	if err := s.persistLocked(); err != nil {
		return err
	}
	s.log.WithField("user_id", userID).Info("clocked out")
	return nil
}

// History returns the user's past clock-in/out pairs, oldest first.
func (s *Service) History(userID string) []attendance.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]attendance.History, len(s.state.History[userID]))
	copy(out, s.state.History[userID])
	return out
}
