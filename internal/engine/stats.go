package engine

// Stats are cumulative counters over the life of one Engine. Owned by the
// engine goroutine; read a copy through Snapshot.
type Stats struct {
	MessagesIn      uint64
	MessagesOut     uint64
	DecodeFailures  uint64
	UnknownMessages uint64

	InputsSent  uint64
	StaleAcks   uint64
	Corrections uint64
	Rebaselines uint64

	Welcomes      uint64
	ChunkRequests uint64
	ChunksLoaded  uint64
	ChunksEvicted uint64

	Resets          uint64
	DroppedOutbound uint64
	DroppedEvents   uint64
}
