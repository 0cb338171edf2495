package main

import (
	"time"

	"chunkborne.gg/internal/engine"
	"chunkborne.gg/internal/persistence/sessiondb"
	"chunkborne.gg/internal/persistence/sessionlog"
)

// recorder fans engine recording out to the session log and, when present,
// the sqlite index. index may be nil.
type recorder struct {
	log   *sessionlog.Recorder
	index *sessiondb.DB
}

func (r *recorder) RecordInbound(at time.Time, raw []byte) error {
	return r.log.RecordInbound(at, raw)
}

func (r *recorder) RecordOutbound(at time.Time, raw []byte) error {
	return r.log.RecordOutbound(at, raw)
}

func (r *recorder) RecordCheckpoint(at time.Time, cp engine.Checkpoint) error {
	if r.index != nil {
		r.index.WriteCheckpoint(r.log.SessionID(), at, cp)
	}
	return r.log.RecordCheckpoint(at, cp)
}
