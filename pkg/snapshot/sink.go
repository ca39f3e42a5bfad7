package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/solitary-pixels/hotspotx/pkg/heartbeat"
	"github.com/solitary-pixels/hotspotx/pkg/logging"
	"github.com/solitary-pixels/hotspotx/pkg/utils"
)

// Sink stores the snapshot of a completed cycle.
type Sink interface {
	Write(ctx context.Context, s heartbeat.Snapshot) error
}

// Multi writes to every sink and joins their errors.
type Multi []Sink

func (m Multi) Write(ctx context.Context, s heartbeat.Snapshot) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Write(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FileSink writes one JSON file per cycle under
// <root>/heartbeat_info/YYYY/MM/ and keeps a per-hotspot latest file under
// <root>/hotspot_latest_info/.
type FileSink struct {
	root   string
	logger *zap.Logger
}

// NewFileSink returns a FileSink rooted at the data directory root.
func NewFileSink(root string, logger *zap.Logger) *FileSink {
	return &FileSink{root: root, logger: logging.OrNop(logger)}
}

// SnapshotPath returns the date partitioned file for a snapshot taken at s.CapturedAt.
func (f *FileSink) SnapshotPath(s heartbeat.Snapshot) string {
	ts := s.CapturedAt.UTC()
	return filepath.Join(f.root, "heartbeat_info", ts.Format("2006"), ts.Format("01"),
		"heartbeat-"+ts.Format(fileStampLayout)+".json")
}

// LatestInfoPath returns the latest info file of hotspot name.
func (f *FileSink) LatestInfoPath(name string) string {
	return filepath.Join(f.root, "hotspot_latest_info", safeFileName(name)+"-heartbeat.json")
}

func (f *FileSink) Write(_ context.Context, s heartbeat.Snapshot) error {
	path := f.SnapshotPath(s)
	raw, err := json.MarshalIndent(NewRecord(s), "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := utils.WriteFileAtomic(path, raw); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	f.logger.Debug("wrote snapshot", zap.String("path", path), zap.String("runId", s.RunID))

	var errs []error
	for _, name := range s.Names() {
		if err := f.writeLatest(s.Heartbeats[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// writeLatest replaces the "heartbeat" key of the hotspot's info file and
// keeps any other keys already present.
func (f *FileSink) writeLatest(hb heartbeat.Heartbeat) error {
	path := f.LatestInfoPath(hb.Name)

	info := map[string]json.RawMessage{}
	if raw, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(raw, &info); err != nil {
			f.logger.Warn("replacing unreadable latest info file", zap.String("path", path), zap.Error(err))
			info = map[string]json.RawMessage{}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read %s: %w", path, err)
	}

	encoded, err := json.Marshal(hb)
	if err != nil {
		return err
	}
	info["heartbeat"] = encoded

	raw, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	if err := utils.WriteFileAtomic(path, raw); err != nil {
		return fmt.Errorf("write latest info for %s: %w", hb.Name, err)
	}
	return nil
}

func safeFileName(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(name)
}
