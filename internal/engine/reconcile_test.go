package engine

import (
	"math"
	"testing"
)

func TestReconcile_RebaselineWithoutAck(t *testing.T) {
	e, _ := newTestEngine(t)
	welcomeAt(t, e, 16, 16, 32)
	e.renderOffset = Vec2{X: 0.5, Y: -0.25}

	e.reconcile(40, 41, nil)

	if e.predicted != (Vec2{X: 40, Y: 41}) {
		t.Fatalf("predicted=%+v want (40,41)", e.predicted)
	}
	if e.renderOffset != (Vec2{X: 0.5, Y: -0.25}) {
		t.Fatalf("rebaseline must preserve renderOffset, got %+v", e.renderOffset)
	}
	if e.stats.Rebaselines != 1 || e.stats.Corrections != 0 {
		t.Fatalf("stats=%+v", e.stats)
	}
}

func TestReconcile_DropsStaleAck(t *testing.T) {
	e, _ := newTestEngine(t)
	welcomeAt(t, e, 16, 16, 32)
	e.lastAckedSeq = 10
	before := e.predicted

	e.reconcile(99, 99, seqPtr(5))

	if e.predicted != before {
		t.Fatalf("stale ack moved prediction to %+v", e.predicted)
	}
	if e.lastAckedSeq != 10 {
		t.Fatalf("lastAckedSeq=%d want 10", e.lastAckedSeq)
	}
	if e.stats.StaleAcks != 1 {
		t.Fatalf("staleAcks=%d want 1", e.stats.StaleAcks)
	}
}

// Replaying zero pending inputs must land exactly on the server position.
func TestReconcile_ZeroPendingReplayIsIdentity(t *testing.T) {
	e, _ := newTestEngine(t)
	welcomeAt(t, e, 16, 16, 32)
	e.predicted = Vec2{X: 30, Y: 16} // fabricated desync, far past threshold

	e.reconcile(16, 16, seqPtr(0))

	if e.stats.Corrections != 1 {
		t.Fatalf("corrections=%d want 1", e.stats.Corrections)
	}
	if e.predicted != (Vec2{X: 16, Y: 16}) {
		t.Fatalf("predicted=%+v want exactly (16,16)", e.predicted)
	}
}

// An identical input stream applied on both sides must replay to exactly
// the predicted position, so no correction ever fires.
func TestReconcile_ConvergenceNoCorrection(t *testing.T) {
	e, _ := newTestEngine(t)
	welcomeAt(t, e, 16, 16, 32)
	drainOutbox(e)

	e.intentX, e.intentY = 1, 0.5
	step := e.cfg.InputPeriod().Seconds()
	for i := 0; i < 8; i++ {
		e.tickInput()
		e.advance(step)
	}
	before := e.predicted

	// Server has processed nothing and still reports spawn; the replay of
	// all 8 pending inputs retraces the prediction exactly.
	e.reconcile(16, 16, seqPtr(0))

	if e.stats.Corrections != 0 {
		t.Fatalf("corrections=%d want 0", e.stats.Corrections)
	}
	if e.predicted != before {
		t.Fatalf("prediction moved: %+v -> %+v", before, e.predicted)
	}
	if e.pending.size() != 8 {
		t.Fatalf("pending=%d want 8", e.pending.size())
	}
}

func TestReconcile_AckPrunesPendingInputs(t *testing.T) {
	e, _ := newTestEngine(t)
	welcomeAt(t, e, 16, 16, 32)
	for i := 0; i < 5; i++ {
		e.tickInput() // zero intent: inputs replay as no-ops
	}

	e.reconcile(16, 16, seqPtr(3))

	if e.lastAckedSeq != 3 {
		t.Fatalf("lastAckedSeq=%d want 3", e.lastAckedSeq)
	}
	if e.pending.size() != 2 {
		t.Fatalf("pending=%d want 2", e.pending.size())
	}
	for _, in := range e.pending.items {
		if in.Seq <= 3 {
			t.Fatalf("acked input %d still pending", in.Seq)
		}
	}
	if e.stats.Corrections != 0 {
		t.Fatalf("no-op inputs must not trigger a correction")
	}
}

// A correction must not move the rendered position: the visual difference
// is parked in renderOffset and bleeds off within the decay window.
func TestReconcile_CorrectionHidesSnapThenDecays(t *testing.T) {
	e, _ := newTestEngine(t)
	welcomeAt(t, e, 16, 16, 32)
	e.predicted = Vec2{X: 21, Y: 16} // 5 tiles off, threshold is 2

	oldRender := e.renderPosition()
	e.reconcile(16, 16, seqPtr(0))

	if e.stats.Corrections != 1 {
		t.Fatalf("corrections=%d want 1", e.stats.Corrections)
	}
	newRender := e.renderPosition()
	if math.Abs(newRender.X-oldRender.X) > 1e-9 || math.Abs(newRender.Y-oldRender.Y) > 1e-9 {
		t.Fatalf("visible pop: render %+v -> %+v", oldRender, newRender)
	}
	if e.renderOffset == (Vec2{}) {
		t.Fatalf("correction left no offset to decay")
	}

	// lastDir is zero, so advance only decays the offset.
	decay := e.cfg.OffsetDecay().Seconds()
	for elapsed := 0.0; elapsed < 2*decay; elapsed += 0.016 {
		e.advance(0.016)
	}
	if e.renderOffset != (Vec2{}) {
		t.Fatalf("offset did not decay to zero: %+v", e.renderOffset)
	}
	if e.predicted != (Vec2{X: 16, Y: 16}) {
		t.Fatalf("predicted drifted during decay: %+v", e.predicted)
	}
}

func TestReconcile_WithinThresholdLeavesPrediction(t *testing.T) {
	e, _ := newTestEngine(t)
	welcomeAt(t, e, 16, 16, 32)
	e.predicted = Vec2{X: 17, Y: 16} // 1 tile of drift, under the 2-tile threshold

	e.reconcile(16, 16, seqPtr(0))

	if e.stats.Corrections != 0 {
		t.Fatalf("drift under threshold corrected")
	}
	if e.predicted != (Vec2{X: 17, Y: 16}) {
		t.Fatalf("predicted=%+v", e.predicted)
	}
}
