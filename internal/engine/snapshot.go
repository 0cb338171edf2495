package engine

import (
	"context"
	"sort"
	"strconv"

	"chunkborne.gg/internal/engine/logic/facing"
	"chunkborne.gg/internal/protocol"
)

// EntityRender is one entity sampled at snapshot time, positions already
// interpolated for display.
type EntityRender struct {
	Kind   string
	ID     string
	Name   string
	X      float64
	Y      float64
	Facing facing.Direction
	HP     int
}

// Snapshot is a copy of the engine's externally visible state.
type Snapshot struct {
	Connected bool
	Welcomed  bool

	LocalID   string
	Name      string
	HP        int
	Inventory map[string]int
	InBoat    bool

	Predicted    Vec2
	RenderOffset Vec2
	Render       Vec2
	Facing       facing.Direction

	LastSeq       uint64
	LastAckedSeq  uint64
	PendingInputs int

	ChunksLoaded  int
	ChunksPending int

	Entities []EntityRender

	World protocol.WorldInfo
	Stats Stats
}

type snapshotReq struct {
	resp chan Snapshot
}

// RequestSnapshot asks the engine goroutine for a state copy.
// It is safe to call from other goroutines while Run is active.
func (e *Engine) RequestSnapshot(ctx context.Context) (Snapshot, error) {
	req := snapshotReq{resp: make(chan Snapshot, 1)}
	select {
	case e.snapReq <- req:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case s := <-req.resp:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (e *Engine) handleSnapshotReq(req snapshotReq) {
	if req.resp == nil {
		return
	}
	select {
	case req.resp <- e.buildSnapshot():
	default:
		// Caller timed out; don't block the loop.
	}
}

func (e *Engine) buildSnapshot() Snapshot {
	now := e.now()
	window := e.cfg.InterpWindow()

	s := Snapshot{
		Connected:     e.connected,
		Welcomed:      e.welcomed,
		LocalID:       e.localID,
		Name:          e.localName,
		Predicted:     e.predicted,
		RenderOffset:  e.renderOffset,
		Render:        e.renderPosition(),
		Facing:        e.localFacing,
		LastSeq:       e.lastSeq,
		LastAckedSeq:  e.lastAckedSeq,
		PendingInputs: e.pending.size(),
		ChunksLoaded:  len(e.cache.Chunks),
		ChunksPending: len(e.cache.Pending),
		World:         e.world,
		Stats:         e.stats,
	}
	if len(e.inventory) > 0 {
		s.Inventory = make(map[string]int, len(e.inventory))
		for k, v := range e.inventory {
			s.Inventory[k] = v
		}
	}
	if p, ok := e.cache.Players[e.localID]; ok {
		s.HP = p.HP
		s.InBoat = p.InBoat
	}

	for id, p := range e.cache.Players {
		if id == e.localID {
			continue
		}
		x, y := p.Sample(now, window)
		s.Entities = append(s.Entities, EntityRender{
			Kind: "player", ID: id, Name: p.Name, X: x, Y: y, Facing: p.Facing, HP: p.HP,
		})
	}
	for id, m := range e.cache.Monsters {
		x, y := m.Sample(now, window)
		s.Entities = append(s.Entities, EntityRender{
			Kind: "monster", ID: strconv.FormatUint(id, 10), Name: m.Kind, X: x, Y: y, Facing: m.Facing, HP: m.HP,
		})
	}
	for id, p := range e.cache.Projectiles {
		x, y := p.Sample(now, window)
		s.Entities = append(s.Entities, EntityRender{
			Kind: "projectile", ID: strconv.FormatUint(id, 10), X: x, Y: y, Facing: p.Facing,
		})
	}
	for id, b := range e.cache.Boats {
		x, y := b.Sample(now, window)
		s.Entities = append(s.Entities, EntityRender{
			Kind: "boat", ID: strconv.FormatUint(id, 10), X: x, Y: y, Facing: b.Facing,
		})
	}
	for id, n := range e.cache.NPCs {
		s.Entities = append(s.Entities, EntityRender{
			Kind: "npc", ID: id, Name: n.Name, X: n.X, Y: n.Y, Facing: facing.Down,
		})
	}
	sort.Slice(s.Entities, func(i, j int) bool {
		if s.Entities[i].Kind != s.Entities[j].Kind {
			return s.Entities[i].Kind < s.Entities[j].Kind
		}
		return s.Entities[i].ID < s.Entities[j].ID
	})
	return s
}
