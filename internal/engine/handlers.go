package engine

import (
	"encoding/json"
	"time"

	"chunkborne.gg/internal/engine/logic/facing"
	"chunkborne.gg/internal/protocol"
)

// handleFrame routes one raw server frame. A frame that fails to decode is
// counted and skipped; it never takes the engine down.
func (e *Engine) handleFrame(raw []byte) {
	e.stats.MessagesIn++
	if e.rec != nil {
		if err := e.rec.RecordInbound(e.now(), raw); err != nil {
			e.logf("record inbound: %v", err)
		}
	}
	base, err := protocol.DecodeBase(raw)
	if err != nil {
		e.stats.DecodeFailures++
		e.logf("decode: %v", err)
		return
	}
	switch base.Type {
	case protocol.TypeWelcome:
		var m protocol.WelcomeMsg
		if e.decode(raw, &m) {
			e.handleWelcome(&m)
		}
	case protocol.TypeChunkData:
		var m protocol.ChunkDataMsg
		if e.decode(raw, &m) {
			e.applyChunkData(&m)
		}
	case protocol.TypeState:
		var m protocol.StateMsg
		if e.decode(raw, &m) {
			e.handleState(&m)
		}
	case protocol.TypeEntitiesUpdate:
		var m protocol.EntitiesUpdateMsg
		if e.decode(raw, &m) {
			e.handleEntitiesUpdate(&m)
		}
	case protocol.TypeEntitiesRemove:
		var m protocol.EntitiesRemoveMsg
		if e.decode(raw, &m) {
			e.handleEntitiesRemove(&m)
		}
	case protocol.TypeResourceUpdate:
		var m protocol.ResourceUpdateMsg
		if e.decode(raw, &m) {
			e.handleResourceUpdate(&m)
		}
	case protocol.TypeStructureUpdate:
		var m protocol.StructureUpdateMsg
		if e.decode(raw, &m) {
			e.handleStructureUpdate(&m)
		}
	case protocol.TypeChat, protocol.TypeDialog, protocol.TypeSystem, protocol.TypeTyping:
		e.emitUIEvent(UIEvent{Type: base.Type, Raw: json.RawMessage(raw)})
	default:
		e.stats.UnknownMessages++
	}
}

func (e *Engine) decode(raw []byte, v interface{}) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		e.stats.DecodeFailures++
		e.logf("decode %T: %v", v, err)
		return false
	}
	return true
}

// handleWelcome re-baselines the whole session: world parameters, local
// identity and position, the NPC roster. The entity and chunk caches start
// empty and the first chunk refresh fires immediately.
func (e *Engine) handleWelcome(m *protocol.WelcomeMsg) {
	if m.World.ChunkSize <= 0 {
		e.stats.DecodeFailures++
		e.logf("welcome: bad chunk_size %d", m.World.ChunkSize)
		return
	}
	e.cache = NewWorldCache(m.World.ChunkSize)
	e.cache.UnloadedWalkable = e.cfg.UnloadedChunksWalkable
	e.world = m.World

	e.localID = m.Player.ID
	e.localName = m.Player.Name
	e.inventory = make(map[string]int, len(m.Player.Inventory))
	for k, v := range m.Player.Inventory {
		e.inventory[k] = v
	}
	e.predicted = Vec2{X: m.Player.X, Y: m.Player.Y}
	e.renderOffset = Vec2{}
	e.lastDir = Vec2{}
	e.localFacing = facing.Down
	e.lastSeq = 0
	e.lastAckedSeq = 0
	e.pending.reset()

	now := e.now()
	e.cache.Players[m.Player.ID] = &Player{
		ID:     m.Player.ID,
		Name:   m.Player.Name,
		HP:     m.Player.HP,
		InBoat: m.Player.InBoat,
		BoatID: m.Player.BoatID,
		Motion: newMotion(m.Player.X, m.Player.Y, now),
	}
	for _, n := range m.NPCs {
		e.cache.NPCs[n.ID] = &Npc{ID: n.ID, Name: n.Name, X: n.X, Y: n.Y, Dialog: n.Dialog}
	}

	// A welcome can only arrive over a live connection; don't wait for the
	// link event, which may still be queued behind this frame.
	e.connected = true
	e.welcomed = true
	e.stats.Welcomes++
	e.logf("welcome: %s (%s) at (%.1f, %.1f), chunk_size=%d seed=%d",
		m.Player.Name, m.Player.ID, m.Player.X, m.Player.Y, m.World.ChunkSize, m.World.Seed)
	e.refreshChunks()
}

// handleState is a full replacement per entity kind: anything absent from
// its array is gone.
func (e *Engine) handleState(m *protocol.StateMsg) {
	now := e.now()
	window := e.cfg.InterpWindow()

	seenPlayers := make(map[string]struct{}, len(m.Players))
	for _, ps := range m.Players {
		seenPlayers[ps.ID] = struct{}{}
		e.applyPlayerState(ps, now, window)
	}
	for id := range e.cache.Players {
		if _, ok := seenPlayers[id]; !ok && id != e.localID {
			delete(e.cache.Players, id)
		}
	}

	seenMonsters := make(map[uint64]struct{}, len(m.Monsters))
	for _, ms := range m.Monsters {
		seenMonsters[ms.ID] = struct{}{}
		e.applyMonsterState(ms, now, window)
	}
	for id := range e.cache.Monsters {
		if _, ok := seenMonsters[id]; !ok {
			delete(e.cache.Monsters, id)
		}
	}

	seenProjectiles := make(map[uint64]struct{}, len(m.Projectiles))
	for _, ps := range m.Projectiles {
		seenProjectiles[ps.ID] = struct{}{}
		e.applyProjectileState(ps, now, window)
	}
	for id := range e.cache.Projectiles {
		if _, ok := seenProjectiles[id]; !ok {
			delete(e.cache.Projectiles, id)
		}
	}

	seenBoats := make(map[uint64]struct{}, len(m.Boats))
	for _, bs := range m.Boats {
		seenBoats[bs.ID] = struct{}{}
		e.applyBoatState(bs, now, window)
	}
	for id := range e.cache.Boats {
		if _, ok := seenBoats[id]; !ok {
			delete(e.cache.Boats, id)
		}
	}
}

// handleEntitiesUpdate upserts the listed entities and touches nothing else.
func (e *Engine) handleEntitiesUpdate(m *protocol.EntitiesUpdateMsg) {
	now := e.now()
	window := e.cfg.InterpWindow()
	for _, ps := range m.Players {
		e.applyPlayerState(ps, now, window)
	}
	for _, ms := range m.Monsters {
		e.applyMonsterState(ms, now, window)
	}
	for _, ps := range m.Projectiles {
		e.applyProjectileState(ps, now, window)
	}
	for _, bs := range m.Boats {
		e.applyBoatState(bs, now, window)
	}
}

func (e *Engine) handleEntitiesRemove(m *protocol.EntitiesRemoveMsg) {
	for _, id := range m.Players {
		if id == e.localID {
			continue
		}
		delete(e.cache.Players, id)
	}
	for _, id := range m.Monsters {
		delete(e.cache.Monsters, id)
	}
	for _, id := range m.Projectiles {
		delete(e.cache.Projectiles, id)
	}
	for _, id := range m.Boats {
		delete(e.cache.Boats, id)
	}
}

func (e *Engine) applyPlayerState(ps protocol.PlayerState, now time.Time, window time.Duration) {
	// An entry without an id would key a ghost entity; skip it.
	if ps.ID == "" {
		e.stats.DecodeFailures++
		return
	}
	p, ok := e.cache.Players[ps.ID]
	if !ok {
		p = &Player{ID: ps.ID, Motion: newMotion(ps.X, ps.Y, now)}
		e.cache.Players[ps.ID] = p
	}
	if ps.Name != "" {
		p.Name = ps.Name
	}
	p.HP = ps.HP
	p.InBoat = ps.InBoat
	p.BoatID = ps.BoatID
	if ps.ID == e.localID {
		e.reconcile(ps.X, ps.Y, ps.LastInputSeq)
		return
	}
	p.Retarget(ps.X, ps.Y, now, window)
}

func (e *Engine) applyMonsterState(ms protocol.MonsterState, now time.Time, window time.Duration) {
	if ms.ID == 0 {
		e.stats.DecodeFailures++
		return
	}
	mo, ok := e.cache.Monsters[ms.ID]
	if !ok {
		mo = &Monster{ID: ms.ID, Motion: newMotion(ms.X, ms.Y, now)}
		e.cache.Monsters[ms.ID] = mo
	}
	if ms.Kind != "" {
		mo.Kind = ms.Kind
	}
	mo.HP = ms.HP
	mo.Retarget(ms.X, ms.Y, now, window)
}

func (e *Engine) applyProjectileState(ps protocol.ProjectileState, now time.Time, window time.Duration) {
	if ps.ID == 0 {
		e.stats.DecodeFailures++
		return
	}
	pr, ok := e.cache.Projectiles[ps.ID]
	if !ok {
		pr = &Projectile{ID: ps.ID, Motion: newMotion(ps.X, ps.Y, now)}
		e.cache.Projectiles[ps.ID] = pr
	}
	pr.Retarget(ps.X, ps.Y, now, window)
}

func (e *Engine) applyBoatState(bs protocol.BoatState, now time.Time, window time.Duration) {
	if bs.ID == 0 {
		e.stats.DecodeFailures++
		return
	}
	b, ok := e.cache.Boats[bs.ID]
	if !ok {
		b = &Boat{ID: bs.ID, Motion: newMotion(bs.X, bs.Y, now)}
		e.cache.Boats[bs.ID] = b
	}
	b.Retarget(bs.X, bs.Y, now, window)
}

func (e *Engine) handleResourceUpdate(m *protocol.ResourceUpdateMsg) {
	switch m.State {
	case protocol.ResourceSpawned, protocol.ResourceGrown:
		e.cache.putResource(Resource{
			ID:   m.Resource.ID,
			Kind: m.Resource.Kind,
			X:    m.Resource.X,
			Y:    m.Resource.Y,
			HP:   m.Resource.HP,
		})
	case protocol.ResourceRemoved:
		e.cache.removeResource(m.Resource.ID)
	default:
		e.stats.DecodeFailures++
		e.logf("resource_update: unknown state %q", m.State)
	}
}

func (e *Engine) handleStructureUpdate(m *protocol.StructureUpdateMsg) {
	switch m.State {
	case protocol.StructureAdded:
		for _, s := range m.Structures {
			e.cache.putStructure(Structure{ID: s.ID, Kind: s.Kind, X: s.X, Y: s.Y, W: s.W, H: s.H})
		}
	case protocol.StructureRemoved:
		for _, s := range m.Structures {
			e.cache.removeStructure(StructKey{ID: s.ID, X: s.X, Y: s.Y})
		}
	default:
		e.stats.DecodeFailures++
		e.logf("structure_update: unknown state %q", m.State)
	}
}
