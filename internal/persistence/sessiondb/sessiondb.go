// Package sessiondb indexes recorded client sessions in sqlite so tooling
// can find and summarize them without scanning the JSONL logs. Writes are
// queued to a single writer goroutine and dropped when the queue is full;
// the session logs remain the source of truth.
package sessiondb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"chunkborne.gg/internal/engine"
)

type DB struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqStart reqKind = iota + 1
	reqCheckpoint
	reqEnd
)

type req struct {
	kind reqKind

	sessionID string
	at        string
	url       string

	cp    engine.Checkpoint
	stats engine.Stats
}

func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &DB{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-style checkpoint stream.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			messages_in INTEGER NOT NULL DEFAULT 0,
			messages_out INTEGER NOT NULL DEFAULT 0,
			corrections INTEGER NOT NULL DEFAULT 0,
			resets INTEGER NOT NULL DEFAULT 0,
			chunks_loaded INTEGER NOT NULL DEFAULT 0,
			chunks_evicted INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			session_id TEXT NOT NULL,
			at TEXT NOT NULL,
			seq INTEGER NOT NULL,
			ack_seq INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			offset_x REAL NOT NULL,
			offset_y REAL NOT NULL,
			pending INTEGER NOT NULL,
			PRIMARY KEY (session_id, at)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_checkpoints_session_seq ON checkpoints(session_id, seq);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// StartSession registers a new session row.
func (s *DB) StartSession(sessionID, url string, at time.Time) {
	s.enqueue(req{kind: reqStart, sessionID: sessionID, url: url, at: stamp(at)})
}

// WriteCheckpoint indexes one prediction checkpoint.
func (s *DB) WriteCheckpoint(sessionID string, at time.Time, cp engine.Checkpoint) {
	s.enqueue(req{kind: reqCheckpoint, sessionID: sessionID, at: stamp(at), cp: cp})
}

// EndSession stamps the session's end and final counters.
func (s *DB) EndSession(sessionID string, at time.Time, stats engine.Stats) {
	s.enqueue(req{kind: reqEnd, sessionID: sessionID, at: stamp(at), stats: stats})
}

func (s *DB) enqueue(r req) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind; the session log has everything.
	}
}

func stamp(at time.Time) string {
	return at.UTC().Format(time.RFC3339Nano)
}

func (s *DB) loop() {
	insertSession, _ := s.db.Prepare(`INSERT OR REPLACE INTO sessions(id,url,started_at) VALUES(?,?,?)`)
	insertCheckpoint, _ := s.db.Prepare(`INSERT OR REPLACE INTO checkpoints(session_id,at,seq,ack_seq,x,y,offset_x,offset_y,pending) VALUES(?,?,?,?,?,?,?,?,?)`)
	endSession, _ := s.db.Prepare(`UPDATE sessions SET ended_at=?, messages_in=?, messages_out=?, corrections=?, resets=?, chunks_loaded=?, chunks_evicted=? WHERE id=?`)
	defer func() {
		if insertSession != nil {
			_ = insertSession.Close()
		}
		if insertCheckpoint != nil {
			_ = insertCheckpoint.Close()
		}
		if endSession != nil {
			_ = endSession.Close()
		}
	}()

	for r := range s.ch {
		switch r.kind {
		case reqStart:
			if insertSession != nil {
				_, _ = insertSession.Exec(r.sessionID, r.url, r.at)
			}
		case reqCheckpoint:
			if insertCheckpoint != nil {
				_, _ = insertCheckpoint.Exec(
					r.sessionID, r.at,
					int64(r.cp.Seq), int64(r.cp.AckSeq),
					r.cp.X, r.cp.Y, r.cp.OffsetX, r.cp.OffsetY,
					r.cp.Pending,
				)
			}
		case reqEnd:
			if endSession != nil {
				_, _ = endSession.Exec(
					r.at,
					int64(r.stats.MessagesIn), int64(r.stats.MessagesOut),
					int64(r.stats.Corrections), int64(r.stats.Resets),
					int64(r.stats.ChunksLoaded), int64(r.stats.ChunksEvicted),
					r.sessionID,
				)
			}
		}
	}
}

// SessionRow is one indexed session.
type SessionRow struct {
	ID          string
	URL         string
	StartedAt   string
	EndedAt     string
	MessagesIn  uint64
	MessagesOut uint64
	Corrections uint64
	Resets      uint64
	Checkpoints int
}

// ListSessions returns every indexed session, newest first.
func (s *DB) ListSessions(ctx context.Context) ([]SessionRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.url, s.started_at, COALESCE(s.ended_at, ''),
		       s.messages_in, s.messages_out, s.corrections, s.resets,
		       (SELECT COUNT(*) FROM checkpoints c WHERE c.session_id = s.id)
		FROM sessions s
		ORDER BY s.started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var r SessionRow
		if err := rows.Scan(&r.ID, &r.URL, &r.StartedAt, &r.EndedAt,
			&r.MessagesIn, &r.MessagesOut, &r.Corrections, &r.Resets, &r.Checkpoints); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LastCheckpoint returns the newest checkpoint of a session, or ok=false
// when none were indexed.
func (s *DB) LastCheckpoint(ctx context.Context, sessionID string) (engine.Checkpoint, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, ack_seq, x, y, offset_x, offset_y, pending
		FROM checkpoints WHERE session_id = ? ORDER BY at DESC LIMIT 1`, sessionID)
	var cp engine.Checkpoint
	err := row.Scan(&cp.Seq, &cp.AckSeq, &cp.X, &cp.Y, &cp.OffsetX, &cp.OffsetY, &cp.Pending)
	if err == sql.ErrNoRows {
		return engine.Checkpoint{}, false, nil
	}
	if err != nil {
		return engine.Checkpoint{}, false, err
	}
	return cp, true, nil
}
