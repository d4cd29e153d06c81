package subprocess

import "time"

// deadline is the absolute instant a run must finish by. It is computed
// once when the run starts and never moved.
type deadline struct {
	at      time.Time
	timeout time.Duration
}

// newDeadline returns a deadline timeout after start. A timeout of zero or
// less means no deadline.
func newDeadline(start time.Time, timeout time.Duration) deadline {
	if timeout <= 0 {
		return deadline{}
	}
	return deadline{at: start.Add(timeout), timeout: timeout}
}

// set reports whether a deadline is configured.
func (d deadline) set() bool { return !d.at.IsZero() }

// expired reports whether now is at or past the deadline.
func (d deadline) expired(now time.Time) bool {
	return d.set() && !now.Before(d.at)
}
