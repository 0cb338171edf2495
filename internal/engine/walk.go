package engine

import (
	"chunkborne.gg/internal/engine/logic/mathx"
	"chunkborne.gg/internal/protocol"
)

// CanWalk reports whether the tile under world position (x, y) is
// traversable. boatBorne selects water rules for a subject riding a boat.
// Prediction, reconciliation replay, and placement previews all call this
// one function.
//
// Order of checks: a structure occupying the tile wins (bridges always
// walkable, blocking kinds never, ground kinds defer to the terrain), then
// the terrain tile itself. Tiles in unloaded chunks answer with the
// UnloadedWalkable policy until their chunk streams in.
func (c *WorldCache) CanWalk(x, y float64, boatBorne bool) bool {
	tx := mathx.TileOf(x)
	ty := mathx.TileOf(y)
	if kind, ok := c.Occupied[TileKey{X: tx, Y: ty}]; ok {
		switch classOf(kind) {
		case ClassBridge:
			return true
		case ClassBlocking:
			return false
		}
	}
	tile, loaded := c.TileID(tx, ty)
	if !loaded {
		return c.UnloadedWalkable
	}
	if tile == protocol.TileWater {
		return boatBorne
	}
	return true
}
