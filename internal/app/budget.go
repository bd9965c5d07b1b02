package app

import "time"

// FrameBudget is the timing of one loop iteration.
type FrameBudget struct {
	TargetFPS int // 0 = unbounded
	Start     time.Time
	Elapsed   time.Duration
}

// Interval is the time one frame may take, or 0 when unbounded.
func (b FrameBudget) Interval() time.Duration {
	if b.TargetFPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(b.TargetFPS)
}

// Remaining is how long to sleep after the frame's work. It is never
// negative: an overrun is not paid back by later frames.
func (b FrameBudget) Remaining() time.Duration {
	if r := b.Interval() - b.Elapsed; r > 0 {
		return r
	}
	return 0
}

// Overrun reports whether the work exceeded a bounded budget.
func (b FrameBudget) Overrun() bool {
	return b.TargetFPS > 0 && b.Elapsed > b.Interval()
}
