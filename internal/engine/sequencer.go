package engine

import (
	"math"

	"chunkborne.gg/internal/engine/logic/facing"
	"chunkborne.gg/internal/protocol"
)

// inputRing buffers sent-but-unacknowledged inputs for reconciliation
// replay, oldest first. Past the limit the oldest entries are discarded.
type inputRing struct {
	items []pendingInput
	limit int
}

func newInputRing(limit int) *inputRing {
	if limit <= 0 {
		limit = 1
	}
	return &inputRing{limit: limit}
}

func (r *inputRing) push(in pendingInput) {
	r.items = append(r.items, in)
	if len(r.items) > r.limit {
		drop := len(r.items) - r.limit
		r.items = append(r.items[:0], r.items[drop:]...)
	}
}

// ackUpTo drops every input with Seq <= seq.
func (r *inputRing) ackUpTo(seq uint64) {
	keep := r.items[:0]
	for _, in := range r.items {
		if in.Seq > seq {
			keep = append(keep, in)
		}
	}
	r.items = keep
}

func (r *inputRing) size() int { return len(r.items) }

func (r *inputRing) reset() { r.items = r.items[:0] }

// tickInput runs once per input period: it samples the merged intent, emits
// one input message, and fixes the direction prediction uses until the next
// tick. While text input holds focus the sampled direction and action flags
// are forced to zero, and pressed flags are swallowed.
func (e *Engine) tickInput() {
	if !e.ready() {
		return
	}
	dirX, dirY := e.intentX, e.intentY
	attack, gather, interact := e.flagAttack, e.flagGather, e.flagInteract
	if e.inputCaptured {
		dirX, dirY = 0, 0
		attack, gather, interact = false, false, false
	}
	e.flagAttack, e.flagGather, e.flagInteract = false, false, false

	e.lastDir = Vec2{X: dirX, Y: dirY}
	if math.Hypot(dirX, dirY) >= e.cfg.InputDeadzone {
		e.localFacing = facing.Derive(dirX, dirY, e.localFacing)
	}

	e.lastSeq++
	e.pending.push(pendingInput{Seq: e.lastSeq, DirX: dirX, DirY: dirY})
	e.stats.InputsSent++
	e.sendMessage(protocol.InputMsg{
		Type:      protocol.TypeInput,
		Seq:       e.lastSeq,
		DirX:      dirX,
		DirY:      dirY,
		Attack:    attack,
		Gather:    gather,
		Interact:  interact,
		ExpectedX: e.predicted.X,
		ExpectedY: e.predicted.Y,
	})
}
