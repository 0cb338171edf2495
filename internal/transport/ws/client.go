// Package ws dials the game server over websocket and pumps raw JSON frames
// between the socket and the engine. The engine never sees the connection;
// it only gets frames, link up/down events, and an outbox to drain.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"chunkborne.gg/internal/engine"
	"chunkborne.gg/internal/tuning"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
	readTimeout      = 60 * time.Second
)

type Client struct {
	url string
	cfg tuning.Tuning
	eng *engine.Engine
	log *log.Logger

	sessionURL string
	playerName string
	jar        http.CookieJar
	session    *Session
}

func NewClient(url string, cfg tuning.Tuning, eng *engine.Engine, logger *log.Logger) *Client {
	return &Client{url: url, cfg: cfg, eng: eng, log: logger}
}

// Session is the identity minted by the server's HTTP bootstrap endpoint.
// The endpoint sets an sid cookie that must accompany the websocket dial.
type Session struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
}

// WithSession makes Run mint a session from the given HTTP endpoint before
// the first dial and carry its sid cookie on every handshake. name, when not
// empty, is passed as the requested player name.
func (c *Client) WithSession(sessionURL, name string) *Client {
	jar, _ := cookiejar.New(nil)
	c.sessionURL = sessionURL
	c.playerName = name
	c.jar = jar
	return c
}

func (c *Client) fetchSession(ctx context.Context) error {
	u := c.sessionURL
	if c.playerName != "" {
		sep := "?"
		if parsed, err := url.Parse(u); err == nil && parsed.RawQuery != "" {
			sep = "&"
		}
		u += sep + "name=" + url.QueryEscape(c.playerName)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	httpc := &http.Client{Jar: c.jar, Timeout: handshakeTimeout}
	resp, err := httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("session: %s", resp.Status)
	}
	var s Session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	c.session = &s
	c.logf("session %s (%s)", s.SessionID, s.Name)
	return nil
}

// Run dials and re-dials until ctx is cancelled. The backoff doubles from
// the configured minimum on every failed attempt and resets once a
// connection is established; the engine handles the state reset on drop.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.cfg.ReconnectMin()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		connected, err := c.runConn(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if connected {
			backoff = c.cfg.ReconnectMin()
		}
		if err != nil {
			c.logf("connection to %s lost: %v (retry in %v)", c.url, err, backoff)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if max := c.cfg.ReconnectMax(); backoff > max {
			backoff = max
		}
	}
}

// runConn owns one connection: a writer goroutine drains the engine outbox
// while the calling goroutine reads frames into the engine. Either side
// failing tears the whole connection down.
func (c *Client) runConn(ctx context.Context) (connected bool, err error) {
	if c.sessionURL != "" && c.session == nil {
		if err := c.fetchSession(ctx); err != nil {
			return false, err
		}
	}
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout, Jar: c.jar}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return false, err
	}

	c.logf("connected to %s", c.url)
	c.eng.ConnUp()

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Unblock the reader when the writer fails or ctx ends.
	go func() {
		<-connCtx.Done()
		_ = conn.Close()
	}()

	// Writer goroutine.
	go func() {
		for {
			select {
			case <-connCtx.Done():
				return
			case b := <-c.eng.Outbox():
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	// Reader loop.
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.eng.ConnDown(err)
			return true, err
		}
		c.eng.Deliver(msg)
	}
}

func (c *Client) logf(format string, args ...interface{}) {
	if c.log != nil {
		c.log.Printf(format, args...)
	}
}
