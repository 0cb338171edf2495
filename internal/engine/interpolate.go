package engine

import (
	"time"

	"chunkborne.gg/internal/engine/logic/facing"
	"chunkborne.gg/internal/engine/logic/mathx"
)

// Motion interpolates a remote entity between its last two authoritative
// positions. Each server update restarts the window from whatever position
// is currently displayed, so entities glide instead of jumping.
type Motion struct {
	StartX    float64
	StartY    float64
	TargetX   float64
	TargetY   float64
	StartTime time.Time
	Facing    facing.Direction
}

func newMotion(x, y float64, now time.Time) Motion {
	return Motion{
		StartX:    x,
		StartY:    y,
		TargetX:   x,
		TargetY:   y,
		StartTime: now,
		Facing:    facing.Down,
	}
}

// Retarget begins a new interpolation window toward (x, y), starting from
// the position the previous window currently displays. Facing follows the
// dominant axis of the move and is kept when the entity holds still.
func (m *Motion) Retarget(x, y float64, now time.Time, window time.Duration) {
	cx, cy := m.Sample(now, window)
	m.StartX, m.StartY = cx, cy
	m.TargetX, m.TargetY = x, y
	m.StartTime = now
	m.Facing = facing.Derive(x-cx, y-cy, m.Facing)
}

// Sample returns the displayed position at now: exactly the start position
// at or before StartTime, exactly the target once the window has elapsed.
func (m *Motion) Sample(now time.Time, window time.Duration) (float64, float64) {
	if window <= 0 {
		return m.TargetX, m.TargetY
	}
	t := mathx.Clamp01(now.Sub(m.StartTime).Seconds() / window.Seconds())
	return mathx.Lerp(m.StartX, m.TargetX, t), mathx.Lerp(m.StartY, m.TargetY, t)
}
