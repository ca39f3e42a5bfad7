package snapshot

import (
	"time"

	"github.com/solitary-pixels/hotspotx/pkg/heartbeat"
)

// Timestamp layouts of the snapshot record and its file name.
const (
	TimestampLayout = "2006.01.02-15:04"
	fileStampLayout = "2006.01.02-15.04"
)

// Record is the durable form of one poll cycle, read back by reporting tools.
type Record struct {
	Heartbeats     map[string]heartbeat.Heartbeat `json:"heartbeats"`
	Timestamp      string                         `json:"timestamp"`
	RunID          string                         `json:"run_id,omitempty"`
	MaxChainHeight int64                          `json:"max_chain_height,omitempty"`
	Duplicates     []string                       `json:"duplicates,omitempty"`
}

// NewRecord converts a ranked snapshot into its durable form.
func NewRecord(s heartbeat.Snapshot) Record {
	return Record{
		Heartbeats:     s.Heartbeats,
		Timestamp:      s.CapturedAt.UTC().Format(TimestampLayout),
		RunID:          s.RunID,
		MaxChainHeight: s.MaxChainHeight,
		Duplicates:     s.Duplicates,
	}
}

// ParseTimestamp parses a Record timestamp as UTC.
func ParseTimestamp(ts string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, ts, time.UTC)
}
