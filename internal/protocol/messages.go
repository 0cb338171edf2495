package protocol

// welcome (server -> client)
type WelcomeMsg struct {
	Type   string     `json:"type"`
	Player PlayerSelf `json:"player"`
	World  WorldInfo  `json:"world"`
	NPCs   []NpcInfo  `json:"npcs,omitempty"`
}

// PlayerSelf is the full view of the connecting player, sent only in welcome.
type PlayerSelf struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	HP        int            `json:"hp"`
	Inventory map[string]int `json:"inventory,omitempty"`
	InBoat    bool           `json:"in_boat,omitempty"`
	BoatID    uint64         `json:"boat_id,omitempty"`
}

type WorldInfo struct {
	Seed      uint64  `json:"seed"`
	ChunkSize int     `json:"chunk_size"`
	TileSize  int     `json:"tile_size"`
	SpawnX    float64 `json:"spawn_x"`
	SpawnY    float64 `json:"spawn_y"`
}

type NpcInfo struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Dialog string  `json:"dialog,omitempty"`
}

// chunk_data (server -> client). tiles is row-major with y outer,
// len = chunk_size * chunk_size.
type ChunkDataMsg struct {
	Type       string          `json:"type"`
	ChunkX     int             `json:"chunk_x"`
	ChunkY     int             `json:"chunk_y"`
	Tiles      []uint8         `json:"tiles"`
	Resources  []ResourceNode  `json:"resources"`
	Structures []StructureTile `json:"structures,omitempty"`
}

// ResourceNode is a tile-anchored gatherable. A node with hp <= 0 is depleted
// and must not be shown or collided with.
type ResourceNode struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	HP   int    `json:"hp"`
}

// StructureTile is one tile-anchored record of a placed structure. The same
// structure id may emit several records (multi-tile buildings); w/h default 1.
type StructureTile struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	W    int    `json:"w,omitempty"`
	H    int    `json:"h,omitempty"`
}

// state (server -> client): full replacement per entity kind. Entities absent
// from their array are gone.
type StateMsg struct {
	Type        string            `json:"type"`
	Players     []PlayerState     `json:"players"`
	Monsters    []MonsterState    `json:"monsters"`
	Projectiles []ProjectileState `json:"projectiles"`
	Boats       []BoatState       `json:"boats,omitempty"`
}

// entities_update (server -> client): incremental upserts per entity kind.
type EntitiesUpdateMsg struct {
	Type        string            `json:"type"`
	Players     []PlayerState     `json:"players,omitempty"`
	Monsters    []MonsterState    `json:"monsters,omitempty"`
	Projectiles []ProjectileState `json:"projectiles,omitempty"`
	Boats       []BoatState       `json:"boats,omitempty"`
}

// entities_remove (server -> client): explicit deletions by id.
type EntitiesRemoveMsg struct {
	Type        string   `json:"type"`
	Players     []string `json:"players,omitempty"`
	Monsters    []uint64 `json:"monsters,omitempty"`
	Projectiles []uint64 `json:"projectiles,omitempty"`
	Boats       []uint64 `json:"boats,omitempty"`
}

type PlayerState struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	HP     int     `json:"hp"`
	InBoat bool    `json:"in_boat,omitempty"`
	BoatID uint64  `json:"boat_id,omitempty"`
	// LastInputSeq is set only on the receiver's own entry: the highest input
	// seq the server has processed. Absent until the first input lands.
	LastInputSeq *uint64 `json:"last_input_seq,omitempty"`
}

type MonsterState struct {
	ID   uint64  `json:"id"`
	Kind string  `json:"kind"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	HP   int     `json:"hp"`
}

type ProjectileState struct {
	ID uint64  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

type BoatState struct {
	ID uint64  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// resource_update (server -> client)
type ResourceUpdateMsg struct {
	Type     string       `json:"type"`
	Resource ResourceNode `json:"resource"`
	State    string       `json:"state"`
}

// resource_update states
const (
	ResourceSpawned = "spawned"
	ResourceRemoved = "removed"
	ResourceGrown   = "grown"
)

// structure_update (server -> client)
type StructureUpdateMsg struct {
	Type       string          `json:"type"`
	Structures []StructureTile `json:"structures"`
	State      string          `json:"state"`
}

// structure_update states
const (
	StructureAdded   = "added"
	StructureRemoved = "removed"
)

// chat (both directions; from is set server -> client)
type ChatMsg struct {
	Type string `json:"type"`
	From string `json:"from,omitempty"`
	Text string `json:"text"`
}

// dialog (server -> client)
type DialogMsg struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// system (server -> client)
type SystemMsg struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// typing (both directions; id is set server -> client)
type TypingMsg struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Typing bool   `json:"typing"`
}

// input (client -> server), one per input period. expected_x/expected_y carry
// the client's predicted position for server-side sanity clamping.
type InputMsg struct {
	Type      string  `json:"type"`
	Seq       uint64  `json:"seq"`
	DirX      float64 `json:"dir_x"`
	DirY      float64 `json:"dir_y"`
	Attack    bool    `json:"attack"`
	Gather    bool    `json:"gather"`
	Interact  bool    `json:"interact"`
	ExpectedX float64 `json:"expected_x"`
	ExpectedY float64 `json:"expected_y"`
}

type ChunkCoord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// chunk_request (client -> server), batched per refresh cycle.
type ChunkRequestMsg struct {
	Type   string       `json:"type"`
	Chunks []ChunkCoord `json:"chunks"`
}

// ping (client -> server) keepalive.
type PingMsg struct {
	Type string `json:"type"`
}
