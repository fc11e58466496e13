// Package guard discards received IR frames that arrive too soon after our
// own transmission, treating them as self-echo.
package guard

import "time"

// Window is a receive guard opened by each transmission. A new transmission
// moves the end to t+d; windows never stack.
type Window struct {
	d      time.Duration
	opened time.Time
	until  time.Time
	active bool
}

// New returns a closed window of duration d (at least 1 ms).
func New(d time.Duration) *Window {
	w := &Window{}
	w.SetDuration(d)
	return w
}

func (w *Window) Duration() time.Duration { return w.d }

// SetDuration changes the length used by later transmissions.
func (w *Window) SetDuration(d time.Duration) {
	if d < time.Millisecond {
		d = time.Millisecond
	}
	w.d = d
}

// OnTransmit opens (or re-opens) the window at t.
func (w *Window) OnTransmit(t time.Time) {
	w.opened = t
	w.until = t.Add(w.d)
	w.active = true
}

// ShouldAccept is false for any t strictly before the window end.
func (w *Window) ShouldAccept(t time.Time) bool {
	return !w.active || !t.Before(w.until)
}

// Expire closes an elapsed window. It reports whether the window closed now.
func (w *Window) Expire(t time.Time) bool {
	if w.active && !t.Before(w.until) {
		w.active = false
		return true
	}
	return false
}

// Open reports whether the window still covers t.
func (w *Window) Open(t time.Time) bool { return w.active && t.Before(w.until) }

// Bounds returns the last opened interval.
func (w *Window) Bounds() (opened, until time.Time) { return w.opened, w.until }
