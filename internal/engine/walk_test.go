package engine

import (
	"testing"

	"chunkborne.gg/internal/protocol"
)

// cacheWithChunk builds a 4x4 world cache with one loaded chunk at (0,0).
func cacheWithChunk(tiles []uint8) *WorldCache {
	c := NewWorldCache(4)
	c.Chunks[ChunkKey{}] = &Chunk{CX: 0, CY: 0, Tiles: tiles}
	return c
}

func TestCanWalk_TerrainRules(t *testing.T) {
	tiles := flatTiles(4, protocol.TileGrass)
	tiles[1*4+2] = protocol.TileWater // tile (2,1)
	tiles[2*4+3] = protocol.TileSand  // tile (3,2)
	c := cacheWithChunk(tiles)

	if !c.CanWalk(0.5, 0.5, false) {
		t.Fatalf("grass not walkable")
	}
	if !c.CanWalk(3.9, 2.1, false) {
		t.Fatalf("sand not walkable")
	}
	if c.CanWalk(2.5, 1.5, false) {
		t.Fatalf("water walkable on foot")
	}
	if !c.CanWalk(2.5, 1.5, true) {
		t.Fatalf("water not walkable by boat")
	}
}

func TestCanWalk_FloorsNegativeCoordinates(t *testing.T) {
	c := NewWorldCache(4)
	tiles := flatTiles(4, protocol.TileGrass)
	tiles[3*4+3] = protocol.TileWater // local (3,3) = world tile (-1,-1)
	c.Chunks[ChunkKey{CX: -1, CY: -1}] = &Chunk{CX: -1, CY: -1, Tiles: tiles}

	if c.CanWalk(-0.5, -0.5, false) {
		t.Fatalf("(-0.5,-0.5) must floor to water tile (-1,-1)")
	}
	if !c.CanWalk(-1.5, -0.5, false) {
		t.Fatalf("neighbouring grass tile blocked")
	}
}

func TestCanWalk_StructureRules(t *testing.T) {
	tiles := flatTiles(4, protocol.TileGrass)
	tiles[0*4+1] = protocol.TileWater // tile (1,0): water under the bridge
	c := cacheWithChunk(tiles)

	c.putStructure(Structure{ID: "b1", Kind: "bridge", X: 1, Y: 0})
	c.putStructure(Structure{ID: "w1", Kind: "wall", X: 2, Y: 0})
	c.putStructure(Structure{ID: "c1", Kind: "campfire", X: 3, Y: 0})

	if !c.CanWalk(1.5, 0.5, false) {
		t.Fatalf("bridge over water not walkable")
	}
	if c.CanWalk(2.5, 0.5, false) {
		t.Fatalf("wall walkable")
	}
	if c.CanWalk(2.5, 0.5, true) {
		t.Fatalf("wall walkable from a boat")
	}
	if !c.CanWalk(3.5, 0.5, false) {
		t.Fatalf("ground structure must defer to the grass below")
	}
}

func TestCanWalk_UnknownStructureKindBlocks(t *testing.T) {
	c := cacheWithChunk(flatTiles(4, protocol.TileGrass))
	c.putStructure(Structure{ID: "x1", Kind: "obelisk", X: 1, Y: 1})
	if c.CanWalk(1.5, 1.5, false) {
		t.Fatalf("unknown structure kind must block")
	}
}

func TestCanWalk_UnloadedChunkPolicy(t *testing.T) {
	c := NewWorldCache(4)

	if !c.CanWalk(100, 100, false) {
		t.Fatalf("optimistic default must allow unloaded tiles")
	}

	c.UnloadedWalkable = false
	if c.CanWalk(100, 100, false) {
		t.Fatalf("pessimistic policy must block unloaded tiles")
	}
}
