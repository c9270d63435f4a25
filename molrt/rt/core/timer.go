package core

import (
	"time"
)

// FrameTimer is queried once per loop iteration.
type FrameTimer interface {
	Tick()
	ElapsedSeconds() float64
	TotalSeconds() float64
	FrameCount() uint64
}

type Timer struct {
	now   func() time.Time
	start time.Time
	last  time.Time
	dt    time.Duration
	total time.Duration

	frames uint64
}

func NewTimer() *Timer {
	return NewTimerWithClock(time.Now)
}

func NewTimerWithClock(now func() time.Time) *Timer {
	t := now()
	return &Timer{
		now:   now,
		start: t,
		last:  t,
	}
}

func (t *Timer) Tick() {
	now := t.now()

	t.dt = now.Sub(t.last)
	t.last = now
	t.total = now.Sub(t.start)
	t.frames++
}

// Reset discards the accumulated delta, e.g. after a suspend, so the next
// tick does not report the whole pause as one frame.
func (t *Timer) Reset() {
	t.last = t.now()
	t.dt = 0
}

func (t *Timer) ElapsedSeconds() float64 { return t.dt.Seconds() }
func (t *Timer) TotalSeconds() float64   { return t.total.Seconds() }
func (t *Timer) FrameCount() uint64      { return t.frames }
