// Package attendance defines the per-device clock-in records gating the
// fulfillment dashboard. These are local, best-effort records; they are not a
// security boundary and are never sent to the remote gateway.
package attendance

import "time"

// Record is the clocked-in state for one user on one device. A record whose
// clock-in date is not today's local date is treated as clocked out.
type Record struct {
	UserID    string    `json:"user_id"`
	ClockedIn bool      `json:"clocked_in"`
	ClockInAt time.Time `json:"clock_in_at"`
}

// SameDay reports whether the record's clock-in date matches the given local
// calendar date.
func (r Record) SameDay(now time.Time) bool {
	y1, m1, d1 := r.ClockInAt.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// History is the snapshot of the previous record, written on clock-out.
type History struct {
	UserID     string    `json:"user_id"`
	ClockInAt  time.Time `json:"clock_in_at"`
	ClockOutAt time.Time `json:"clock_out_at"`
}
