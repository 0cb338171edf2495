package engine

import (
	"context"
	"time"

	"chunkborne.gg/internal/protocol"
)

// Run drives the engine until ctx is cancelled. Every field the engine owns
// is touched only from this goroutine; inbound frames, link events, and
// commands are serialized through the select below, so server messages are
// applied in arrival order.
func (e *Engine) Run(ctx context.Context) error {
	input := time.NewTicker(e.cfg.InputPeriod())
	defer input.Stop()
	frame := time.NewTicker(e.cfg.FrameInterval())
	defer frame.Stop()
	refresh := time.NewTicker(e.cfg.RefreshInterval())
	defer refresh.Stop()
	prune := time.NewTicker(e.cfg.PruneInterval())
	defer prune.Stop()
	pingDur := e.cfg.PingInterval()
	if pingDur <= 0 {
		// Ping disabled; park the ticker.
		pingDur = time.Hour
	}
	ping := time.NewTicker(pingDur)
	defer ping.Stop()

	e.lastFrame = e.now()
	e.lastCheckpoint = e.lastFrame

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw := <-e.inbox:
			e.handleFrame(raw)
		case ev := <-e.link:
			e.handleLink(ev)
		case c := <-e.cmds:
			e.applyCommand(c)
		case req := <-e.snapReq:
			e.handleSnapshotReq(req)
		case <-input.C:
			e.tickInput()
		case <-frame.C:
			e.tickFrame()
		case <-refresh.C:
			e.refreshChunks()
		case <-prune.C:
			e.pruneChunks()
		case <-ping.C:
			e.tickPing()
		}
	}
}

// tickFrame advances prediction by the elapsed wall time and writes a
// prediction checkpoint when one is due.
func (e *Engine) tickFrame() {
	now := e.now()
	dt := now.Sub(e.lastFrame).Seconds()
	e.lastFrame = now
	e.advance(dt)

	if e.rec == nil || !e.welcomed {
		return
	}
	every := time.Duration(e.cfg.CheckpointEverySec) * time.Second
	if every <= 0 || now.Sub(e.lastCheckpoint) < every {
		return
	}
	e.lastCheckpoint = now
	cp := Checkpoint{
		Seq:     e.lastSeq,
		AckSeq:  e.lastAckedSeq,
		X:       e.predicted.X,
		Y:       e.predicted.Y,
		OffsetX: e.renderOffset.X,
		OffsetY: e.renderOffset.Y,
		Pending: e.pending.size(),
	}
	if err := e.rec.RecordCheckpoint(now, cp); err != nil {
		e.logf("record checkpoint: %v", err)
	}
}

func (e *Engine) tickPing() {
	if !e.connected || e.cfg.PingIntervalMs <= 0 {
		return
	}
	e.sendMessage(protocol.PingMsg{Type: protocol.TypePing})
}
