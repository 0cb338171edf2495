package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"chunkborne.gg/internal/engine"
	"chunkborne.gg/internal/protocol"
	"chunkborne.gg/internal/tuning"
)

func welcomeFrame(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(protocol.WelcomeMsg{
		Type: protocol.TypeWelcome,
		Player: protocol.PlayerSelf{
			ID: "p1", Name: "Test", X: 16, Y: 16, HP: 10,
		},
		World: protocol.WorldInfo{Seed: 1, ChunkSize: 32, TileSize: 32, SpawnX: 16, SpawnY: 16},
	})
	if err != nil {
		t.Fatalf("marshal welcome: %v", err)
	}
	return b
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClient_DeliversFramesAndDrainsOutbox(t *testing.T) {
	welcome := welcomeFrame(t)
	gotInput := make(chan []byte, 1)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if err := conn.WriteMessage(websocket.TextMessage, welcome); err != nil {
			return
		}
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeInput {
				continue
			}
			select {
			case gotInput <- msg:
			default:
			}
		}
	}))
	defer srv.Close()

	cfg := tuning.Default()
	cfg.ReconnectMinMs = 50
	eng := engine.New(cfg, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = eng.Run(ctx) }()
	go func() { _ = NewClient(wsURL(srv), cfg, eng, nil).Run(ctx) }()

	select {
	case raw := <-gotInput:
		var in protocol.InputMsg
		if err := json.Unmarshal(raw, &in); err != nil {
			t.Fatalf("unmarshal input: %v", err)
		}
		if in.Seq == 0 {
			t.Fatalf("input seq not assigned: %s", raw)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no input frame reached the server")
	}

	snap, err := eng.RequestSnapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.Connected || !snap.Welcomed {
		t.Fatalf("engine not welcomed: %+v", snap)
	}
}

func TestClient_SessionCookieCarriedOnDial(t *testing.T) {
	welcome := welcomeFrame(t)
	gotCookie := make(chan string, 1)

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/session", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "s-77", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"session_id":"s-77","name":"` + r.URL.Query().Get("name") + `"}`))
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sid"); err == nil {
			select {
			case gotCookie <- c.Value:
			default:
			}
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if err := conn.WriteMessage(websocket.TextMessage, welcome); err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := tuning.Default()
	cfg.ReconnectMinMs = 50
	eng := engine.New(cfg, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = eng.Run(ctx) }()
	client := NewClient(wsURL(srv)+"/ws", cfg, eng, nil).WithSession(srv.URL+"/api/session", "Fen")
	go func() { _ = client.Run(ctx) }()

	select {
	case sid := <-gotCookie:
		if sid != "s-77" {
			t.Fatalf("sid=%q want s-77", sid)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("dial did not carry the session cookie")
	}
}

func TestClient_ReconnectsAfterDrop(t *testing.T) {
	welcome := welcomeFrame(t)
	var conns atomic.Int64

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := conns.Add(1)
		if err := conn.WriteMessage(websocket.TextMessage, welcome); err != nil {
			conn.Close()
			return
		}
		if n == 1 {
			// Drop the first connection immediately after the welcome.
			conn.Close()
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	cfg := tuning.Default()
	cfg.ReconnectMinMs = 20
	cfg.ReconnectMaxMs = 100
	eng := engine.New(cfg, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = eng.Run(ctx) }()
	go func() { _ = NewClient(wsURL(srv), cfg, eng, nil).Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatalf("client never re-established: conns=%d", conns.Load())
		}
		snap, err := eng.RequestSnapshot(ctx)
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if conns.Load() >= 2 && snap.Welcomed {
			if snap.Stats.Resets == 0 {
				t.Fatalf("drop did not reset the session: %+v", snap.Stats)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}
