// Package tuning holds every knob of the sync engine in one yaml-loadable
// struct so constants never hide in code.
package tuning

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	// Input sampling and prediction.
	InputPeriodMs       int     `yaml:"input_period_ms"`
	FrameIntervalMs     int     `yaml:"frame_interval_ms"`
	PlayerSpeed         float64 `yaml:"player_speed"` // tiles per second
	InputDeadzone       float64 `yaml:"input_deadzone"`
	PendingInputCap     int     `yaml:"pending_input_cap"`
	CorrectionThreshold float64 `yaml:"correction_threshold"` // tiles
	OffsetDecayMs       int     `yaml:"offset_decay_ms"`
	InterpWindowMs      int     `yaml:"interp_window_ms"`

	// Chunk streaming.
	RequestRadius     int  `yaml:"request_radius"`
	KeepRadius        int  `yaml:"keep_radius"`
	RefreshIntervalMs int  `yaml:"refresh_interval_ms"`
	PruneIntervalMs   int  `yaml:"prune_interval_ms"`
	ChunkRequestsPerSec float64 `yaml:"chunk_requests_per_sec"`
	ChunkRequestBurst   int     `yaml:"chunk_request_burst"`

	// UnloadedChunksWalkable is the optimistic policy for predicate queries
	// into chunks that have not arrived yet: walk now, let reconciliation
	// correct later. Set false to wall off unloaded territory instead.
	UnloadedChunksWalkable bool `yaml:"unloaded_chunks_walkable"`

	// Keepalive.
	PingIntervalMs int `yaml:"ping_interval_ms"`

	// Transport reconnect backoff.
	ReconnectMinMs int `yaml:"reconnect_min_ms"`
	ReconnectMaxMs int `yaml:"reconnect_max_ms"`

	// Session recording.
	CheckpointEverySec int `yaml:"checkpoint_every_sec"`
}

func Default() Tuning {
	return Tuning{
		InputPeriodMs:       90,
		FrameIntervalMs:     16,
		PlayerSpeed:         3.4,
		InputDeadzone:       0.01,
		PendingInputCap:     60,
		CorrectionThreshold: 2.0,
		OffsetDecayMs:       100,
		InterpWindowMs:      100,

		RequestRadius:       2,
		KeepRadius:          3,
		RefreshIntervalMs:   250,
		PruneIntervalMs:     1000,
		ChunkRequestsPerSec: 4,
		ChunkRequestBurst:   8,

		UnloadedChunksWalkable: true,

		PingIntervalMs: 15000,

		ReconnectMinMs: 500,
		ReconnectMaxMs: 15000,

		CheckpointEverySec: 5,
	}
}

// Load reads a yaml tuning file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Tuning, error) {
	t := Default()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("client.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("client.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	d := Default()
	if t.InputPeriodMs <= 0 {
		t.InputPeriodMs = d.InputPeriodMs
	}
	if t.FrameIntervalMs <= 0 {
		t.FrameIntervalMs = d.FrameIntervalMs
	}
	if t.PendingInputCap <= 0 {
		t.PendingInputCap = d.PendingInputCap
	}
	if t.InterpWindowMs <= 0 {
		t.InterpWindowMs = d.InterpWindowMs
	}
	if t.OffsetDecayMs <= 0 {
		t.OffsetDecayMs = d.OffsetDecayMs
	}
	if t.RefreshIntervalMs <= 0 {
		t.RefreshIntervalMs = d.RefreshIntervalMs
	}
	if t.PruneIntervalMs <= 0 {
		t.PruneIntervalMs = d.PruneIntervalMs
	}
	if t.ChunkRequestsPerSec <= 0 {
		t.ChunkRequestsPerSec = d.ChunkRequestsPerSec
	}
	if t.ChunkRequestBurst <= 0 {
		t.ChunkRequestBurst = d.ChunkRequestBurst
	}
	if t.ReconnectMinMs <= 0 {
		t.ReconnectMinMs = d.ReconnectMinMs
	}
	if t.ReconnectMaxMs < t.ReconnectMinMs {
		t.ReconnectMaxMs = d.ReconnectMaxMs
	}
	if t.CheckpointEverySec <= 0 {
		t.CheckpointEverySec = d.CheckpointEverySec
	}
}

func (t Tuning) Validate() error {
	if t.PlayerSpeed <= 0 {
		return fmt.Errorf("player_speed must be > 0")
	}
	if t.InputDeadzone < 0 || t.InputDeadzone >= 1 {
		return fmt.Errorf("input_deadzone must be in [0, 1)")
	}
	if t.CorrectionThreshold <= 0 {
		return fmt.Errorf("correction_threshold must be > 0")
	}
	if t.RequestRadius < 0 {
		return fmt.Errorf("request_radius must be >= 0")
	}
	if t.KeepRadius <= t.RequestRadius {
		return fmt.Errorf("keep_radius (%d) must exceed request_radius (%d)", t.KeepRadius, t.RequestRadius)
	}
	if t.PingIntervalMs < 0 {
		return fmt.Errorf("ping_interval_ms must be >= 0")
	}
	return nil
}

func (t Tuning) InputPeriod() time.Duration     { return time.Duration(t.InputPeriodMs) * time.Millisecond }
func (t Tuning) FrameInterval() time.Duration   { return time.Duration(t.FrameIntervalMs) * time.Millisecond }
func (t Tuning) InterpWindow() time.Duration    { return time.Duration(t.InterpWindowMs) * time.Millisecond }
func (t Tuning) OffsetDecay() time.Duration     { return time.Duration(t.OffsetDecayMs) * time.Millisecond }
func (t Tuning) RefreshInterval() time.Duration { return time.Duration(t.RefreshIntervalMs) * time.Millisecond }
func (t Tuning) PruneInterval() time.Duration   { return time.Duration(t.PruneIntervalMs) * time.Millisecond }
func (t Tuning) PingInterval() time.Duration    { return time.Duration(t.PingIntervalMs) * time.Millisecond }
func (t Tuning) ReconnectMin() time.Duration    { return time.Duration(t.ReconnectMinMs) * time.Millisecond }
func (t Tuning) ReconnectMax() time.Duration    { return time.Duration(t.ReconnectMaxMs) * time.Millisecond }
