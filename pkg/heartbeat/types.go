package heartbeat

import (
	"time"

	"github.com/solitary-pixels/hotspotx/pkg/utils"
)

// Heartbeat is the liveness view of one hotspot for one poll cycle.
type Heartbeat struct {
	Name            string `json:"name"`
	Address         string `json:"address"`
	StatusHeight    int64  `json:"status_height"`
	StatusTimestamp string `json:"status_timestamp"`
	ListenHost      string `json:"status_listen_addrs"`
	// ChainHeight is the chain height the API reported alongside the hotspot.
	ChainHeight    int64      `json:"block"`
	LatestActivity Blocks     `json:"latest_activity_block"`
	BlocksInactive Blocks     `json:"blocks_inactive"`
	PingTimes      *PingTimes `json:"ping_times,omitempty"`
}

// PingTimes summarises TCP connect latency in milliseconds. A statistic
// that could not be computed is -1.
type PingTimes struct {
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
	Stdev  float64 `json:"stdev"`
}

// Snapshot is the result of one poll cycle. Treat it as read-only; Rank
// returns a new Snapshot rather than modifying its input.
type Snapshot struct {
	RunID      string
	Account    string
	CapturedAt time.Time
	Heartbeats map[string]Heartbeat

	// Duplicates lists names reported by more than one hotspot. Only one
	// entry per name survives in Heartbeats.
	Duplicates []string

	// Set by Rank.
	MaxChainHeight int64
	Clamped        []string
}

// Names returns the hotspot names in alphabetical order.
func (s Snapshot) Names() []string {
	return utils.SortedKeys(s.Heartbeats)
}

// Len returns the number of hotspots in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Heartbeats)
}
