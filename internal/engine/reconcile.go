package engine

import "math"

// reconcile applies an authoritative server position for the local player.
//
// When the server reports the last input sequence it processed, pending
// inputs up to that sequence are dropped and the rest are replayed on top
// of the server position at the fixed input period. Only if the replayed
// result disagrees with current prediction by more than the correction
// threshold does prediction snap; the visual difference is parked in
// renderOffset so the sprite glides instead of popping.
func (e *Engine) reconcile(sx, sy float64, lastProcessed *uint64) {
	if lastProcessed == nil {
		// No input processed yet on the server side. Adopt its position
		// as the baseline and keep the current render offset untouched.
		e.predicted = Vec2{X: sx, Y: sy}
		e.stats.Rebaselines++
		return
	}
	seq := *lastProcessed
	if seq < e.lastAckedSeq {
		e.stats.StaleAcks++
		return
	}
	e.lastAckedSeq = seq
	e.pending.ackUpTo(seq)

	replayed := Vec2{X: sx, Y: sy}
	step := e.cfg.InputPeriod().Seconds()
	for _, in := range e.pending.items {
		replayed = e.stepMovement(replayed, Vec2{X: in.DirX, Y: in.DirY}, step)
	}

	dx := replayed.X - e.predicted.X
	dy := replayed.Y - e.predicted.Y
	if math.Hypot(dx, dy) <= e.cfg.CorrectionThreshold {
		return
	}
	old := e.renderPosition()
	e.predicted = replayed
	e.renderOffset = Vec2{X: old.X - replayed.X, Y: old.Y - replayed.Y}
	decay := e.cfg.OffsetDecay().Seconds()
	e.offsetRate = Vec2{X: math.Abs(e.renderOffset.X) / decay, Y: math.Abs(e.renderOffset.Y) / decay}
	e.stats.Corrections++
}
