package protocol

import "encoding/json"

// Version is the wire contract revision.
const Version = "2.0"

// Message types. chat and typing flow in both directions.
const (
	// server -> client
	TypeWelcome         = "welcome"
	TypeChunkData       = "chunk_data"
	TypeState           = "state"
	TypeEntitiesUpdate  = "entities_update"
	TypeEntitiesRemove  = "entities_remove"
	TypeResourceUpdate  = "resource_update"
	TypeStructureUpdate = "structure_update"
	TypeDialog          = "dialog"
	TypeSystem          = "system"

	// client -> server
	TypeInput        = "input"
	TypeChunkRequest = "chunk_request"
	TypePing         = "ping"

	// both directions
	TypeChat   = "chat"
	TypeTyping = "typing"
)

// Tile ids carried in chunk_data.tiles.
const (
	TileGrass uint8 = 0
	TileWater uint8 = 1
	TileSand  uint8 = 2
	TileDirt  uint8 = 3
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
