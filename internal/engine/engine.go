// Package engine implements the client-side world synchronization core for
// a tile-based multiplayer world: input sequencing, local prediction with
// server reconciliation, remote entity interpolation, and radius-based
// chunk streaming with hysteresis eviction.
package engine

import (
	"encoding/json"
	"log"
	"time"

	"golang.org/x/time/rate"

	"chunkborne.gg/internal/engine/logic/facing"
	"chunkborne.gg/internal/protocol"
	"chunkborne.gg/internal/tuning"
)

// Recorder receives a copy of every frame crossing the wire plus periodic
// prediction checkpoints. Called from the engine goroutine, so
// implementations must hand work off quickly.
type Recorder interface {
	RecordInbound(at time.Time, raw []byte) error
	RecordOutbound(at time.Time, raw []byte) error
	RecordCheckpoint(at time.Time, cp Checkpoint) error
}

// Checkpoint is a periodic sample of prediction state written to the
// session log, so a replay can verify it reproduces the same positions.
type Checkpoint struct {
	Seq     uint64  `json:"seq"`
	AckSeq  uint64  `json:"ack_seq"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	Pending int     `json:"pending"`
}

// Engine is the single-threaded client world state machine.
// All fields are owned by the Run goroutine; other goroutines talk to it
// only through channels.
type Engine struct {
	cfg tuning.Tuning
	log *log.Logger
	rec Recorder

	nowFn func() time.Time

	cache *WorldCache
	world protocol.WorldInfo

	localID     string
	localName   string
	localFacing facing.Direction
	inventory   map[string]int

	predicted    Vec2
	renderOffset Vec2
	offsetRate   Vec2
	lastDir      Vec2

	intentX       float64
	intentY       float64
	flagAttack    bool
	flagGather    bool
	flagInteract  bool
	inputCaptured bool

	lastSeq      uint64
	lastAckedSeq uint64
	pending      *inputRing

	connected bool
	welcomed  bool

	limiter *rate.Limiter

	inbox   chan []byte
	link    chan linkEvent
	cmds    chan command
	outbox  chan []byte
	events  chan UIEvent
	snapReq chan snapshotReq

	lastFrame      time.Time
	lastCheckpoint time.Time

	stats Stats
}

type linkEvent struct {
	up  bool
	err error
}

type cmdKind int

const (
	cmdIntent cmdKind = iota
	cmdAttack
	cmdGather
	cmdInteract
	cmdCapture
	cmdChat
	cmdTyping
)

type command struct {
	kind cmdKind
	x    float64
	y    float64
	on   bool
	text string
}

// New builds an Engine. logger and rec may be nil.
func New(cfg tuning.Tuning, logger *log.Logger, rec Recorder) *Engine {
	e := &Engine{
		cfg:         cfg,
		log:         logger,
		rec:         rec,
		nowFn:       time.Now,
		cache:       NewWorldCache(0),
		localFacing: facing.Down,
		pending:     newInputRing(cfg.PendingInputCap),
		inbox:       make(chan []byte, 256),
		link:        make(chan linkEvent, 8),
		cmds:        make(chan command, 64),
		outbox:      make(chan []byte, 64),
		events:      make(chan UIEvent, 64),
		snapReq:     make(chan snapshotReq, 4),
	}
	e.cache.UnloadedWalkable = cfg.UnloadedChunksWalkable
	if cfg.ChunkRequestsPerSec > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.ChunkRequestsPerSec), cfg.ChunkRequestBurst)
	}
	return e
}

// Deliver hands one raw server frame to the engine in arrival order. It
// blocks when the engine is saturated, applying backpressure to the
// transport reader.
func (e *Engine) Deliver(raw []byte) {
	e.inbox <- raw
}

// ConnUp tells the engine the transport established a connection.
func (e *Engine) ConnUp() {
	e.link <- linkEvent{up: true}
}

// ConnDown tells the engine the transport lost its connection. All session
// state resets; the next welcome rebuilds it.
func (e *Engine) ConnDown(err error) {
	e.link <- linkEvent{err: err}
}

// Outbox is the stream of frames the transport writes to the server.
func (e *Engine) Outbox() <-chan []byte {
	return e.outbox
}

// SetIntent replaces the merged movement intent. Components should already
// be resolved to [-1, 1].
func (e *Engine) SetIntent(dirX, dirY float64) {
	e.cmds <- command{kind: cmdIntent, x: dirX, y: dirY}
}

// Attack latches the attack flag for the next input tick.
func (e *Engine) Attack() { e.cmds <- command{kind: cmdAttack} }

// Gather latches the gather flag for the next input tick.
func (e *Engine) Gather() { e.cmds <- command{kind: cmdGather} }

// Interact latches the interact flag for the next input tick.
func (e *Engine) Interact() { e.cmds <- command{kind: cmdInteract} }

// SetInputCaptured gates movement while a text input holds focus: the
// sequencer emits zero-direction, no-action inputs until released.
func (e *Engine) SetInputCaptured(captured bool) {
	e.cmds <- command{kind: cmdCapture, on: captured}
}

// SendChat sends a chat line.
func (e *Engine) SendChat(text string) {
	e.cmds <- command{kind: cmdChat, text: text}
}

// SetTyping reports the local typing indicator.
func (e *Engine) SetTyping(typing bool) {
	e.cmds <- command{kind: cmdTyping, on: typing}
}

func (e *Engine) applyCommand(c command) {
	switch c.kind {
	case cmdIntent:
		e.intentX, e.intentY = c.x, c.y
	case cmdAttack:
		e.flagAttack = true
	case cmdGather:
		e.flagGather = true
	case cmdInteract:
		e.flagInteract = true
	case cmdCapture:
		e.inputCaptured = c.on
	case cmdChat:
		if e.connected {
			e.sendMessage(protocol.ChatMsg{Type: protocol.TypeChat, Text: c.text})
		}
	case cmdTyping:
		if e.connected {
			e.sendMessage(protocol.TypingMsg{Type: protocol.TypeTyping, Typing: c.on})
		}
	}
}

func (e *Engine) handleLink(ev linkEvent) {
	if ev.up {
		e.connected = true
		e.logf("link up")
		return
	}
	e.connected = false
	if ev.err != nil {
		e.logf("link down: %v", ev.err)
	} else {
		e.logf("link down")
	}
	e.resetSession()
}

// resetSession clears all server-derived state. Counters survive; held
// movement intent survives too, since the user may still be holding a key
// when the transport reconnects.
func (e *Engine) resetSession() {
	e.welcomed = false
	e.localID = ""
	e.localName = ""
	e.inventory = nil
	e.predicted = Vec2{}
	e.renderOffset = Vec2{}
	e.offsetRate = Vec2{}
	e.lastDir = Vec2{}
	e.localFacing = facing.Down
	e.flagAttack, e.flagGather, e.flagInteract = false, false, false
	e.lastSeq = 0
	e.lastAckedSeq = 0
	e.pending.reset()
	e.cache = NewWorldCache(e.cache.ChunkSize)
	e.cache.UnloadedWalkable = e.cfg.UnloadedChunksWalkable
	e.stats.Resets++
}

func (e *Engine) ready() bool {
	return e.connected && e.welcomed
}

func (e *Engine) sendMessage(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		e.logf("marshal %T: %v", v, err)
		return
	}
	e.stats.MessagesOut++
	if e.rec != nil {
		if err := e.rec.RecordOutbound(e.now(), b); err != nil {
			e.logf("record outbound: %v", err)
		}
	}
	sendLatest(e.outbox, b, &e.stats.DroppedOutbound)
}

func sendLatest(ch chan []byte, b []byte, dropped *uint64) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
		*dropped++
	default:
	}
	select {
	case ch <- b:
	default:
		*dropped++
	}
}

func (e *Engine) now() time.Time {
	return e.nowFn()
}

func (e *Engine) logf(format string, args ...interface{}) {
	if e.log != nil {
		e.log.Printf(format, args...)
	}
}
