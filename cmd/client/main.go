// Command client is a headless game client: it connects to the server,
// runs the full sync engine (prediction, reconciliation, interpolation,
// chunk streaming), and optionally records the session for later replay.
// With -wander it feeds itself random movement intents, which makes it a
// useful soak test against a live server.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"chunkborne.gg/internal/engine"
	"chunkborne.gg/internal/persistence/sessiondb"
	"chunkborne.gg/internal/persistence/sessionlog"
	"chunkborne.gg/internal/transport/ws"
	"chunkborne.gg/internal/tuning"
)

func main() {
	var (
		url        = flag.String("url", "ws://localhost:8080/ws", "game server ws url")
		sessionURL = flag.String("session", "", "HTTP session bootstrap url (empty dials without one)")
		name       = flag.String("name", "", "requested player name for session bootstrap")
		tuningPath = flag.String("tuning", "", "optional client.yaml tuning file")
		duration   = flag.Duration("duration", 0, "exit after this long (0 runs until interrupt)")
		recordDir  = flag.String("record", "", "session log directory (empty disables recording)")
		dbPath     = flag.String("db", "", "session index sqlite path (empty disables)")
		statusSec  = flag.Int("status", 10, "status line interval in seconds (0 disables)")
		wander     = flag.Bool("wander", false, "feed random movement intents")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[client] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := tuning.Load(*tuningPath)
	if err != nil {
		logger.Fatalf("tuning: %v", err)
	}

	var (
		rec   engine.Recorder
		slog  *sessionlog.Recorder
		index *sessiondb.DB
	)
	if *recordDir != "" {
		slog = sessionlog.New(*recordDir)
		logger.Printf("recording session %s under %s", slog.SessionID(), *recordDir)
		if *dbPath != "" {
			index, err = sessiondb.Open(*dbPath)
			if err != nil {
				logger.Fatalf("session db: %v", err)
			}
			index.StartSession(slog.SessionID(), *url, time.Now())
		}
		rec = &recorder{log: slog, index: index}
	}

	eng := engine.New(cfg, logger, rec)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	client := ws.NewClient(*url, cfg, eng, logger)
	if *sessionURL != "" {
		client = client.WithSession(*sessionURL, *name)
	}
	// The engine runs on its own context so it can still answer the final
	// snapshot request after the run context is cancelled.
	engCtx, engCancel := context.WithCancel(context.Background())
	defer engCancel()
	go func() { _ = eng.Run(engCtx) }()
	go func() { _ = client.Run(ctx) }()

	if *wander {
		go wanderLoop(ctx, eng)
	}

	if *statusSec > 0 {
		go statusLoop(ctx, eng, logger, time.Duration(*statusSec)*time.Second)
	}

	<-ctx.Done()
	logger.Printf("shutting down")

	finishSession(eng, slog, index, logger)
	engCancel()
}

// finishSession stamps the session index row with the engine's final
// counters and closes the recording artifacts. The engine loop must still
// be running when this is called.
func finishSession(eng *engine.Engine, slog *sessionlog.Recorder, index *sessiondb.DB, logger *log.Logger) {
	if slog == nil {
		return
	}
	if index != nil {
		sctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if snap, err := eng.RequestSnapshot(sctx); err == nil {
			index.EndSession(slog.SessionID(), time.Now(), snap.Stats)
		} else {
			logger.Printf("final snapshot: %v", err)
		}
		cancel()
		if err := index.Close(); err != nil {
			logger.Printf("close session db: %v", err)
		}
	}
	if err := slog.Close(); err != nil {
		logger.Printf("close session log: %v", err)
	}
}

// wanderLoop holds a random direction for a few seconds at a time, with
// occasional stops, roughly like a player strolling around.
func wanderLoop(ctx context.Context, eng *engine.Engine) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	dirs := [][2]float64{
		{1, 0}, {-1, 0}, {0, 1}, {0, -1},
		{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
		{0, 0}, {0, 0},
	}
	for {
		d := dirs[r.Intn(len(dirs))]
		eng.SetIntent(d[0], d[1])
		hold := time.Duration(1500+r.Intn(3500)) * time.Millisecond
		select {
		case <-ctx.Done():
			return
		case <-time.After(hold):
		}
	}
}

func statusLoop(ctx context.Context, eng *engine.Engine, logger *log.Logger, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		snap, err := eng.RequestSnapshot(ctx)
		if err != nil {
			return
		}
		if !snap.Welcomed {
			logger.Printf("status: waiting for welcome")
			continue
		}
		logger.Printf("status: pos=(%.1f,%.1f) seq=%d ack=%d pending=%d chunks=%d/%d entities=%d corrections=%d",
			snap.Render.X, snap.Render.Y, snap.LastSeq, snap.LastAckedSeq, snap.PendingInputs,
			snap.ChunksLoaded, snap.ChunksPending, len(snap.Entities), snap.Stats.Corrections)
	}
}
