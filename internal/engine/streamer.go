package engine

import (
	"chunkborne.gg/internal/engine/logic/mathx"
	"chunkborne.gg/internal/protocol"
)

// refreshChunks batches one chunk_request for every chunk within the
// request radius of the local player that is neither loaded nor pending.
// The whole batch waits for the next cycle when the rate limiter says no,
// so nothing is marked pending without a request on the wire.
func (e *Engine) refreshChunks() {
	if !e.ready() {
		return
	}
	center := e.cache.ChunkKeyAt(e.predicted.X, e.predicted.Y)
	r := e.cfg.RequestRadius
	var want []protocol.ChunkCoord
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			key := ChunkKey{CX: center.CX + dx, CY: center.CY + dy}
			if e.cache.Loaded(key) {
				continue
			}
			if _, pending := e.cache.Pending[key]; pending {
				continue
			}
			want = append(want, protocol.ChunkCoord{X: key.CX, Y: key.CY})
		}
	}
	if len(want) == 0 {
		return
	}
	if e.limiter != nil && !e.limiter.Allow() {
		return
	}
	for _, cc := range want {
		e.cache.Pending[ChunkKey{CX: cc.X, CY: cc.Y}] = struct{}{}
	}
	e.stats.ChunkRequests++
	e.sendMessage(protocol.ChunkRequestMsg{Type: protocol.TypeChunkRequest, Chunks: want})
}

// pruneChunks evicts every chunk, loaded or pending, farther than the keep
// radius from the local player's chunk, cascading to resources and
// structures anchored in it. The keep radius exceeds the request radius so
// chunks do not thrash at the boundary.
func (e *Engine) pruneChunks() {
	if !e.ready() {
		return
	}
	center := e.cache.ChunkKeyAt(e.predicted.X, e.predicted.Y)
	for _, key := range e.cache.trackedChunkKeys() {
		if mathx.Chebyshev(key.CX, key.CY, center.CX, center.CY) <= e.cfg.KeepRadius {
			continue
		}
		if e.cache.EvictChunk(key) {
			e.stats.ChunksEvicted++
		}
	}
}

// applyChunkData installs or refreshes one streamed chunk. A re-stream
// diffs the chunk's previous resource and structure sets against the new
// payload so records the server no longer reports disappear in place.
func (e *Engine) applyChunkData(m *protocol.ChunkDataMsg) {
	key := ChunkKey{CX: m.ChunkX, CY: m.ChunkY}
	delete(e.cache.Pending, key)

	size := e.cache.ChunkSize
	if len(m.Tiles) != size*size {
		e.stats.DecodeFailures++
		e.logf("chunk_data (%d,%d): %d tiles, want %d", m.ChunkX, m.ChunkY, len(m.Tiles), size*size)
		return
	}

	fresh := make(map[string]struct{}, len(m.Resources))
	for _, r := range m.Resources {
		fresh[r.ID] = struct{}{}
	}
	var staleRes []string
	for id := range e.cache.chunkResources[key] {
		if _, ok := fresh[id]; !ok {
			staleRes = append(staleRes, id)
		}
	}
	for _, id := range staleRes {
		e.cache.removeResource(id)
	}

	freshStructs := make(map[StructKey]struct{}, len(m.Structures))
	for _, s := range m.Structures {
		freshStructs[StructKey{ID: s.ID, X: s.X, Y: s.Y}] = struct{}{}
	}
	var staleStructs []StructKey
	for sk := range e.cache.chunkStructures[key] {
		if _, ok := freshStructs[sk]; !ok {
			staleStructs = append(staleStructs, sk)
		}
	}
	for _, sk := range staleStructs {
		e.cache.removeStructure(sk)
	}

	for _, r := range m.Resources {
		e.cache.putResource(Resource{ID: r.ID, Kind: r.Kind, X: r.X, Y: r.Y, HP: r.HP})
	}
	for _, s := range m.Structures {
		e.cache.putStructure(Structure{ID: s.ID, Kind: s.Kind, X: s.X, Y: s.Y, W: s.W, H: s.H})
	}

	e.cache.Chunks[key] = &Chunk{CX: m.ChunkX, CY: m.ChunkY, Tiles: m.Tiles}
	e.stats.ChunksLoaded++
}
