package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/solitary-pixels/hotspotx/pkg/logging"
)

// DefaultStaleWindow forces a report when nothing was sent for this long.
const DefaultStaleWindow = 4 * time.Hour

// Detector compares the current fingerprint with the persisted one and
// decides whether a notification is due. It is the only user of its Store.
type Detector struct {
	store       Store
	staleWindow time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewDetector returns a Detector backed by store.
func NewDetector(store Store, staleWindow time.Duration, logger *zap.Logger) *Detector {
	if staleWindow <= 0 {
		staleWindow = DefaultStaleWindow
	}
	return &Detector{
		store:       store,
		staleWindow: staleWindow,
		logger:      logging.OrNop(logger),
		now:         time.Now,
	}
}

// Detect runs one detection cycle for fingerprint.
//
// The record is overwritten with {fingerprint, now} whenever the fleet
// status changed or the last record is older than the stale window. When
// that write fails the decision is still returned together with the error.
func (d *Detector) Detect(ctx context.Context, fingerprint string) (Decision, error) {
	prev := d.previous(ctx)
	now := d.now()

	changed := fingerprint != prev.Fingerprint
	stale := prev.Timestamp < now.Add(-d.staleWindow).Unix()
	notify, reason := Decide(changed, stale)

	dec := Decision{
		Notify:              notify,
		Reason:              reason,
		StatusFingerprint:   fingerprint,
		PreviousFingerprint: prev.Fingerprint,
		PreviousTimestamp:   prev.Timestamp,
	}

	d.logger.Debug("status detection",
		zap.String("fingerprint", fingerprint),
		zap.String("previousFingerprint", prev.Fingerprint),
		zap.Int64("previousTimestamp", prev.Timestamp),
		zap.Int64("cutoff", now.Add(-d.staleWindow).Unix()),
		zap.Bool("changed", changed),
		zap.Bool("stale", stale))

	if !notify {
		return dec, nil
	}
	if err := d.store.Save(ctx, Record{Fingerprint: fingerprint, Timestamp: now.Unix()}); err != nil {
		return dec, fmt.Errorf("persist status: %w", err)
	}
	return dec, nil
}

// previous loads the persisted record. Missing and unreadable records both
// count as "no prior record" so detection never blocks the cycle.
func (d *Detector) previous(ctx context.Context) Record {
	rec, err := d.store.Load(ctx)
	switch {
	case err == nil:
		return rec
	case errors.Is(err, ErrNotFound):
		d.logger.Info("no previous status record")
	case errors.Is(err, ErrCorruptRecord):
		d.logger.Warn("previous status record is corrupt, treating as absent", zap.Error(err))
	default:
		d.logger.Warn("previous status record unreadable, treating as absent", zap.Error(err))
	}
	return Record{}
}
