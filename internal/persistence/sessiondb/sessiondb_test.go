package sessiondb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"chunkborne.gg/internal/engine"
)

func TestSessionLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	start := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	db.StartSession("s-abc", "ws://localhost:8080/ws", start)
	db.WriteCheckpoint("s-abc", start.Add(5*time.Second), engine.Checkpoint{Seq: 50, AckSeq: 48, X: 1, Y: 2, Pending: 2})
	db.WriteCheckpoint("s-abc", start.Add(10*time.Second), engine.Checkpoint{Seq: 100, AckSeq: 99, X: 3, Y: 4, Pending: 1})
	db.EndSession("s-abc", start.Add(time.Minute), engine.Stats{
		MessagesIn: 400, MessagesOut: 120, Corrections: 2, Resets: 1, ChunksLoaded: 30, ChunksEvicted: 5,
	})
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen and verify everything was flushed.
	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	sessions, err := db.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions=%d want 1", len(sessions))
	}
	s := sessions[0]
	if s.ID != "s-abc" || s.URL != "ws://localhost:8080/ws" {
		t.Fatalf("session row = %+v", s)
	}
	if s.EndedAt == "" {
		t.Fatalf("ended_at not stamped")
	}
	if s.MessagesIn != 400 || s.MessagesOut != 120 || s.Corrections != 2 || s.Resets != 1 {
		t.Fatalf("counters = %+v", s)
	}
	if s.Checkpoints != 2 {
		t.Fatalf("checkpoints=%d want 2", s.Checkpoints)
	}

	cp, ok, err := db.LastCheckpoint(ctx, "s-abc")
	if err != nil || !ok {
		t.Fatalf("last checkpoint: ok=%v err=%v", ok, err)
	}
	if cp.Seq != 100 || cp.AckSeq != 99 {
		t.Fatalf("last checkpoint = %+v", cp)
	}
}

func TestLastCheckpoint_NoRows(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	_, ok, err := db.LastCheckpoint(context.Background(), "missing")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if ok {
		t.Fatalf("expected no checkpoint")
	}
}

func TestWriteAfterCloseIsNoop(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Must not panic on a closed channel.
	db.StartSession("late", "ws://x", time.Now())
	db.WriteCheckpoint("late", time.Now(), engine.Checkpoint{})
	db.EndSession("late", time.Now(), engine.Stats{})
}
