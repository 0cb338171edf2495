package engine

import (
	"chunkborne.gg/internal/engine/logic/mathx"
)

// WorldCache holds every piece of server-streamed state the client keeps.
// All state must be accessed only from the engine loop goroutine.
//
// Resources and structures live in global maps for O(1) lookup, and in
// per-chunk owned sets so evicting a chunk costs O(owned), not a scan of
// the world. Every insert and remove goes through the put/remove helpers
// below, which maintain both levels together.
type WorldCache struct {
	ChunkSize int

	// UnloadedWalkable is the walkability verdict for tiles whose chunk is
	// not loaded yet.
	UnloadedWalkable bool

	Chunks  map[ChunkKey]*Chunk
	Pending map[ChunkKey]struct{}

	Resources  map[string]*Resource
	Structures map[StructKey]*Structure

	// Occupied maps each tile covered by a structure to that structure's
	// kind, so walkability never scans the structure map.
	Occupied map[TileKey]string

	Players     map[string]*Player
	Monsters    map[uint64]*Monster
	Projectiles map[uint64]*Projectile
	Boats       map[uint64]*Boat
	NPCs        map[string]*Npc

	chunkResources  map[ChunkKey]map[string]struct{}
	chunkStructures map[ChunkKey]map[StructKey]struct{}
}

func NewWorldCache(chunkSize int) *WorldCache {
	if chunkSize <= 0 {
		chunkSize = 32
	}
	return &WorldCache{
		ChunkSize:        chunkSize,
		UnloadedWalkable: true,
		Chunks:           make(map[ChunkKey]*Chunk),
		Pending:          make(map[ChunkKey]struct{}),
		Resources:        make(map[string]*Resource),
		Structures:       make(map[StructKey]*Structure),
		Occupied:         make(map[TileKey]string),
		Players:          make(map[string]*Player),
		Monsters:         make(map[uint64]*Monster),
		Projectiles:      make(map[uint64]*Projectile),
		Boats:            make(map[uint64]*Boat),
		NPCs:             make(map[string]*Npc),
		chunkResources:   make(map[ChunkKey]map[string]struct{}),
		chunkStructures:  make(map[ChunkKey]map[StructKey]struct{}),
	}
}

// ChunkKeyForTile returns the chunk containing the given tile.
func (c *WorldCache) ChunkKeyForTile(tx, ty int) ChunkKey {
	return ChunkKey{
		CX: mathx.FloorDiv(tx, c.ChunkSize),
		CY: mathx.FloorDiv(ty, c.ChunkSize),
	}
}

// ChunkKeyAt returns the chunk containing the given world position.
func (c *WorldCache) ChunkKeyAt(x, y float64) ChunkKey {
	return c.ChunkKeyForTile(mathx.TileOf(x), mathx.TileOf(y))
}

// Loaded reports whether the chunk at key has tile data.
func (c *WorldCache) Loaded(key ChunkKey) bool {
	_, ok := c.Chunks[key]
	return ok
}

// TileID returns the tile id under (tx, ty) and whether its chunk is loaded.
func (c *WorldCache) TileID(tx, ty int) (uint8, bool) {
	ch, ok := c.Chunks[c.ChunkKeyForTile(tx, ty)]
	if !ok {
		return 0, false
	}
	lx := mathx.Mod(tx, c.ChunkSize)
	ly := mathx.Mod(ty, c.ChunkSize)
	idx := ly*c.ChunkSize + lx
	if idx >= len(ch.Tiles) {
		return 0, false
	}
	return ch.Tiles[idx], true
}

func (c *WorldCache) putResource(r Resource) {
	if r.HP <= 0 {
		c.removeResource(r.ID)
		return
	}
	if prev, ok := c.Resources[r.ID]; ok {
		c.disownResource(prev)
	}
	stored := r
	c.Resources[r.ID] = &stored
	key := c.ChunkKeyForTile(r.X, r.Y)
	owned := c.chunkResources[key]
	if owned == nil {
		owned = make(map[string]struct{})
		c.chunkResources[key] = owned
	}
	owned[r.ID] = struct{}{}
}

func (c *WorldCache) removeResource(id string) {
	r, ok := c.Resources[id]
	if !ok {
		return
	}
	c.disownResource(r)
	delete(c.Resources, id)
}

func (c *WorldCache) disownResource(r *Resource) {
	key := c.ChunkKeyForTile(r.X, r.Y)
	if owned := c.chunkResources[key]; owned != nil {
		delete(owned, r.ID)
		if len(owned) == 0 {
			delete(c.chunkResources, key)
		}
	}
}

func (c *WorldCache) putStructure(s Structure) {
	if s.W <= 0 {
		s.W = 1
	}
	if s.H <= 0 {
		s.H = 1
	}
	key := s.key()
	if prev, ok := c.Structures[key]; ok {
		delete(c.Structures, key)
		c.clearFootprint(prev)
		c.disownStructure(prev)
	}
	stored := s
	c.Structures[key] = &stored
	for ty := s.Y; ty < s.Y+s.H; ty++ {
		for tx := s.X; tx < s.X+s.W; tx++ {
			tk := TileKey{X: tx, Y: ty}
			// Structures may overlap a tile (a bridge under a dock); the
			// strictest class wins so walkability stays conservative.
			if cur, ok := c.Occupied[tk]; ok && classOf(cur) > classOf(s.Kind) {
				continue
			}
			c.Occupied[tk] = s.Kind
		}
	}
	anchor := c.ChunkKeyForTile(s.X, s.Y)
	owned := c.chunkStructures[anchor]
	if owned == nil {
		owned = make(map[StructKey]struct{})
		c.chunkStructures[anchor] = owned
	}
	owned[key] = struct{}{}
}

func (c *WorldCache) removeStructure(key StructKey) {
	s, ok := c.Structures[key]
	if !ok {
		return
	}
	delete(c.Structures, key)
	c.clearFootprint(s)
	c.disownStructure(s)
}

// clearFootprint re-derives the occupied index for every tile the removed
// structure covered. The structure must already be out of the Structures
// map. Tiles still covered by an overlapping structure keep that survivor's
// kind instead of going vacant.
func (c *WorldCache) clearFootprint(s *Structure) {
	for ty := s.Y; ty < s.Y+s.H; ty++ {
		for tx := s.X; tx < s.X+s.W; tx++ {
			tk := TileKey{X: tx, Y: ty}
			if kind, ok := c.occupantAt(tx, ty); ok {
				c.Occupied[tk] = kind
			} else {
				delete(c.Occupied, tk)
			}
		}
	}
}

// occupantAt scans the structure map for a structure covering the tile,
// preferring the strictest class when several overlap. Removals are rare
// enough that the scan beats keeping per-tile reference counts.
func (c *WorldCache) occupantAt(tx, ty int) (string, bool) {
	var kind string
	found := false
	for _, s := range c.Structures {
		if tx < s.X || tx >= s.X+s.W || ty < s.Y || ty >= s.Y+s.H {
			continue
		}
		if !found || classOf(s.Kind) > classOf(kind) {
			kind = s.Kind
			found = true
		}
	}
	return kind, found
}

func (c *WorldCache) disownStructure(s *Structure) {
	anchor := c.ChunkKeyForTile(s.X, s.Y)
	if owned := c.chunkStructures[anchor]; owned != nil {
		delete(owned, s.key())
		if len(owned) == 0 {
			delete(c.chunkStructures, anchor)
		}
	}
}

// EvictChunk drops a chunk and everything anchored in it: owned resources,
// owned structures, and the occupied tiles those structures covered (even
// tiles that spill into neighbouring chunks). Returns whether tile data was
// actually dropped.
func (c *WorldCache) EvictChunk(key ChunkKey) bool {
	_, loaded := c.Chunks[key]
	delete(c.Chunks, key)
	delete(c.Pending, key)
	for id := range c.chunkResources[key] {
		delete(c.Resources, id)
	}
	delete(c.chunkResources, key)
	for sk := range c.chunkStructures[key] {
		if s, ok := c.Structures[sk]; ok {
			delete(c.Structures, sk)
			c.clearFootprint(s)
		}
	}
	delete(c.chunkStructures, key)
	return loaded
}

// trackedChunkKeys returns every chunk key the cache holds anything under:
// loaded, pending, or owning resources/structures.
func (c *WorldCache) trackedChunkKeys() []ChunkKey {
	seen := make(map[ChunkKey]struct{}, len(c.Chunks)+len(c.Pending))
	for k := range c.Chunks {
		seen[k] = struct{}{}
	}
	for k := range c.Pending {
		seen[k] = struct{}{}
	}
	for k := range c.chunkResources {
		seen[k] = struct{}{}
	}
	for k := range c.chunkStructures {
		seen[k] = struct{}{}
	}
	keys := make([]ChunkKey, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	return keys
}
