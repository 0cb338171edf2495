package engine

// ChunkKey identifies a chunk by integer chunk coordinates.
type ChunkKey struct {
	CX int
	CY int
}

// TileKey identifies a single world tile.
type TileKey struct {
	X int
	Y int
}

// StructKey identifies one structure record. The server keys structure
// updates by id plus anchor tile, so repeated placements of the same
// blueprint stay distinct.
type StructKey struct {
	ID string
	X  int
	Y  int
}

// Chunk is one streamed terrain square. Tiles is row-major with y as the
// outer axis, always ChunkSize*ChunkSize long.
type Chunk struct {
	CX    int
	CY    int
	Tiles []uint8
}

// Vec2 is a position or direction in tile units.
type Vec2 struct {
	X float64
	Y float64
}

// Player is a player entity as last reported by the server. The local
// player's record carries name/hp/boat state; its rendered position comes
// from prediction, not from Motion.
type Player struct {
	ID     string
	Name   string
	HP     int
	InBoat bool
	BoatID uint64
	Motion
}

type Monster struct {
	ID   uint64
	Kind string
	HP   int
	Motion
}

type Projectile struct {
	ID uint64
	Motion
}

type Boat struct {
	ID uint64
	Motion
}

// Npc is a static scripted character delivered once in the welcome message.
type Npc struct {
	ID     string
	Name   string
	X      float64
	Y      float64
	Dialog string
}

// Resource is a gatherable node anchored to a single tile.
type Resource struct {
	ID   string
	Kind string
	X    int
	Y    int
	HP   int
}

// Structure is a placed building anchored at (X, Y), covering W x H tiles.
type Structure struct {
	ID   string
	Kind string
	X    int
	Y    int
	W    int
	H    int
}

func (s *Structure) key() StructKey { return StructKey{ID: s.ID, X: s.X, Y: s.Y} }

// StructureClass decides how an occupied tile answers walkability checks.
type StructureClass int

const (
	// ClassGround structures decorate a tile without changing its walkability.
	ClassGround StructureClass = iota
	// ClassBridge structures are walkable regardless of the tile beneath.
	ClassBridge
	// ClassBlocking structures can never be walked through.
	ClassBlocking
)

// structureClasses covers the structure kinds the server currently ships.
// Unknown kinds block: bumping into new content beats clipping through it.
var structureClasses = map[string]StructureClass{
	"bridge":   ClassBridge,
	"dock":     ClassBridge,
	"wall":     ClassBlocking,
	"house":    ClassBlocking,
	"tower":    ClassBlocking,
	"fence":    ClassBlocking,
	"workshop": ClassBlocking,
	"campfire": ClassGround,
	"path":     ClassGround,
	"farmplot": ClassGround,
}

func classOf(kind string) StructureClass {
	if c, ok := structureClasses[kind]; ok {
		return c
	}
	return ClassBlocking
}

// pendingInput is one sent-but-unacknowledged input kept for reconciliation
// replay. DirX/DirY are the values prediction actually applied, so a replay
// walks the same path.
type pendingInput struct {
	Seq  uint64
	DirX float64
	DirY float64
}
