package engine

import "math"

// renderSnapDist is the offset magnitude below which the correction offset
// snaps straight to zero instead of chasing float dust.
const renderSnapDist = 1.0 / 256

// maxFrameDelta caps a single frame's dt so a suspended process does not
// teleport the prediction on resume.
const maxFrameDelta = 0.25

// advance progresses local prediction by dt seconds and bleeds off the
// render offset left behind by the last correction. The offset shrinks
// linearly at the rate fixed when the correction fired, reaching zero
// within the configured decay window.
func (e *Engine) advance(dt float64) {
	if !e.ready() || dt <= 0 {
		return
	}
	if dt > maxFrameDelta {
		dt = maxFrameDelta
	}
	e.predicted = e.stepMovement(e.predicted, e.lastDir, dt)

	if e.renderOffset.X != 0 || e.renderOffset.Y != 0 {
		e.renderOffset.X = decayStep(e.renderOffset.X, e.offsetRate.X, dt)
		e.renderOffset.Y = decayStep(e.renderOffset.Y, e.offsetRate.Y, dt)
		if math.Abs(e.renderOffset.X) < renderSnapDist && math.Abs(e.renderOffset.Y) < renderSnapDist {
			e.renderOffset = Vec2{}
		}
	}
}

// decayStep moves v toward zero by rate*dt, stopping at zero instead of
// overshooting.
func decayStep(v, rate, dt float64) float64 {
	step := rate * dt
	switch {
	case v > step:
		return v - step
	case v < -step:
		return v + step
	default:
		return 0
	}
}

// stepMovement applies one movement step from pos along dir for dt seconds.
// The direction is normalized (zero below the deadzone) and each axis is
// committed separately, so a blocked axis slides along the wall instead of
// stopping the move outright.
func (e *Engine) stepMovement(pos Vec2, dir Vec2, dt float64) Vec2 {
	length := math.Hypot(dir.X, dir.Y)
	if length < e.cfg.InputDeadzone {
		return pos
	}
	boat := e.localBoatBorne()
	step := e.cfg.PlayerSpeed * dt

	cand := pos.X + dir.X/length*step
	if e.cache.CanWalk(cand, pos.Y, boat) {
		pos.X = cand
	}
	cand = pos.Y + dir.Y/length*step
	if e.cache.CanWalk(pos.X, cand, boat) {
		pos.Y = cand
	}
	return pos
}

func (e *Engine) localBoatBorne() bool {
	if p, ok := e.cache.Players[e.localID]; ok {
		return p.InBoat
	}
	return false
}

// renderPosition is predicted plus the decaying correction offset; it is
// what a renderer should draw for the local player.
func (e *Engine) renderPosition() Vec2 {
	return Vec2{X: e.predicted.X + e.renderOffset.X, Y: e.predicted.Y + e.renderOffset.Y}
}
