package engine

import (
	"math"
	"testing"

	"chunkborne.gg/internal/protocol"
)

func TestAdvance_MovesAlongHeldDirection(t *testing.T) {
	e, _ := newTestEngine(t)
	welcomeAt(t, e, 16, 16, 32)
	e.lastDir = Vec2{X: 1, Y: 0}

	e.advance(0.2)

	want := 16 + e.cfg.PlayerSpeed*0.2
	if math.Abs(e.predicted.X-want) > 1e-9 || e.predicted.Y != 16 {
		t.Fatalf("predicted=%+v want x=%v", e.predicted, want)
	}
}

func TestAdvance_NormalizesDiagonal(t *testing.T) {
	e, _ := newTestEngine(t)
	welcomeAt(t, e, 16, 16, 32)
	e.lastDir = Vec2{X: 1, Y: 1}

	e.advance(0.2)

	moved := math.Hypot(e.predicted.X-16, e.predicted.Y-16)
	if math.Abs(moved-e.cfg.PlayerSpeed*0.2) > 1e-9 {
		t.Fatalf("diagonal speed %v want %v", moved, e.cfg.PlayerSpeed*0.2)
	}
}

func TestAdvance_DeadzoneHoldsStill(t *testing.T) {
	e, _ := newTestEngine(t)
	welcomeAt(t, e, 16, 16, 32)
	e.lastDir = Vec2{X: 0.001, Y: 0.001}

	e.advance(1)

	if e.predicted != (Vec2{X: 16, Y: 16}) {
		t.Fatalf("sub-deadzone intent moved the player: %+v", e.predicted)
	}
}

func TestAdvance_CapsRunawayFrameDelta(t *testing.T) {
	e, _ := newTestEngine(t)
	welcomeAt(t, e, 16, 16, 32)
	e.lastDir = Vec2{X: 1, Y: 0}

	e.advance(30) // process was suspended

	moved := e.predicted.X - 16
	if moved > e.cfg.PlayerSpeed*maxFrameDelta+1e-9 {
		t.Fatalf("suspended frame teleported the player by %v tiles", moved)
	}
}

// A wall on one axis must not stop movement on the other.
func TestStepMovement_SlidesAlongWall(t *testing.T) {
	e, _ := newTestEngine(t)
	welcomeAt(t, e, 1.5, 1.5, 4)

	// Chunk (0,0): water column at tile x=2, everything else grass.
	tiles := flatTiles(4, protocol.TileGrass)
	for y := 0; y < 4; y++ {
		tiles[y*4+2] = protocol.TileWater
	}
	e.applyChunkData(&protocol.ChunkDataMsg{
		Type: protocol.TypeChunkData, ChunkX: 0, ChunkY: 0, Tiles: tiles,
	})
	// Wall off the rest of the world so the slide stays inside the chunk.
	e.cache.UnloadedWalkable = false

	pos := e.stepMovement(Vec2{X: 1.9, Y: 1.5}, Vec2{X: 1, Y: 1}, 0.2)

	if pos.X != 1.9 {
		t.Fatalf("x axis crossed water: %+v", pos)
	}
	if pos.Y <= 1.5 {
		t.Fatalf("y axis did not slide: %+v", pos)
	}
}

func TestStepMovement_BoatCrossesWater(t *testing.T) {
	e, _ := newTestEngine(t)
	welcomeAt(t, e, 1.5, 1.5, 4)
	e.applyChunkData(&protocol.ChunkDataMsg{
		Type: protocol.TypeChunkData, ChunkX: 0, ChunkY: 0,
		Tiles: flatTiles(4, protocol.TileWater),
	})
	e.cache.Players[e.localID].InBoat = true

	pos := e.stepMovement(Vec2{X: 1.5, Y: 1.5}, Vec2{X: 1, Y: 0}, 0.2)

	if pos.X <= 1.5 {
		t.Fatalf("boat-borne player stuck on water: %+v", pos)
	}
}

func TestDecayStep_StopsAtZero(t *testing.T) {
	if got := decayStep(0.05, 1.0, 0.1); got != 0 {
		t.Fatalf("overshoot: %v", got)
	}
	if got := decayStep(-0.05, 1.0, 0.1); got != 0 {
		t.Fatalf("negative overshoot: %v", got)
	}
	if got := decayStep(1.0, 1.0, 0.25); math.Abs(got-0.75) > 1e-12 {
		t.Fatalf("partial decay: %v", got)
	}
}
