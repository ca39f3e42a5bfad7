package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/solitary-pixels/hotspotx/pkg/heartbeat"
)

// DefaultStream is the Redis stream snapshots are published to.
const DefaultStream = "hotspotx:snapshots"

// StreamAdder is satisfied by *redis.Client from pkg/redis.
type StreamAdder interface {
	XAdd(ctx context.Context, stream string, values map[string]interface{}) (string, error)
}

// StreamSink publishes each snapshot record as one stream entry.
type StreamSink struct {
	client StreamAdder
	stream string
}

// NewStreamSink returns a sink publishing to stream, or DefaultStream when empty.
func NewStreamSink(client StreamAdder, stream string) *StreamSink {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamSink{client: client, stream: stream}
}

func (s *StreamSink) Write(ctx context.Context, snap heartbeat.Snapshot) error {
	rec := NewRecord(snap)
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.client.XAdd(ctx, s.stream, map[string]interface{}{
		"run_id":    rec.RunID,
		"timestamp": rec.Timestamp,
		"hotspots":  len(rec.Heartbeats),
		"payload":   string(payload),
	})
	return err
}
