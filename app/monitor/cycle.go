package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/solitary-pixels/hotspotx/pkg/heartbeat"
	"github.com/solitary-pixels/hotspotx/pkg/notify"
	"github.com/solitary-pixels/hotspotx/pkg/status"
)

// CycleResult summarises one completed poll cycle.
type CycleResult struct {
	RunID          string                `json:"runId"`
	Account        string                `json:"account"`
	CapturedAt     time.Time             `json:"capturedAt"`
	Hotspots       int                   `json:"hotspots"`
	MaxChainHeight int64                 `json:"maxChainHeight"`
	Duplicates     []string              `json:"duplicates,omitempty"`
	Failing        []status.DeviceStatus `json:"failing"`
	Decision       status.Decision       `json:"decision"`
	Notified       bool                  `json:"notified"`
	Duration       time.Duration         `json:"durationNs"`
}

// RunCycle collects the fleet, ranks it, stores the snapshot and decides
// whether to notify.
//
// Collection and ranking failures end the cycle with an error and leave the
// last result untouched. Snapshot, status store and delivery failures are
// logged and do not fail the cycle.
func (a *App) RunCycle(ctx context.Context) (CycleResult, error) {
	start := time.Now()

	snap, err := a.Collector.Collect(ctx, a.Config.WalletAddr)
	if err != nil {
		return CycleResult{}, fmt.Errorf("collect: %w", err)
	}
	ranked, err := heartbeat.Rank(snap)
	if err != nil {
		return CycleResult{}, fmt.Errorf("rank: %w", err)
	}
	logger := a.Logger.With(zap.String("runId", ranked.RunID))

	if err := a.Sink.Write(ctx, ranked); err != nil {
		logger.Error("Failed to store snapshot", zap.Error(err))
	}

	statuses := status.Assess(ranked, a.Config.WarningThreshold)
	fingerprint := status.Fingerprint(statuses)

	dec, err := a.Detector.Detect(ctx, fingerprint)
	if err != nil {
		logger.Error("Failed to persist status", zap.Error(err))
	}

	result := CycleResult{
		RunID:          ranked.RunID,
		Account:        ranked.Account,
		CapturedAt:     ranked.CapturedAt,
		Hotspots:       ranked.Len(),
		MaxChainHeight: ranked.MaxChainHeight,
		Duplicates:     ranked.Duplicates,
		Failing:        status.Failing(statuses),
		Decision:       dec,
	}

	if dec.Notify {
		msg := notify.Compose(dec, statuses, a.Config.WarningThreshold)
		if err := a.Notifier.Send(ctx, msg); err != nil {
			logger.Error("Failed to send notification", zap.String("reason", string(dec.Reason)), zap.Error(err))
		} else {
			result.Notified = true
		}
	}

	result.Duration = time.Since(start)
	a.last.Store(&result)

	logger.Info("Cycle complete",
		zap.Int("hotspots", result.Hotspots),
		zap.Int("failing", len(result.Failing)),
		zap.String("fingerprint", fingerprint),
		zap.String("reason", string(dec.Reason)),
		zap.Bool("notified", result.Notified),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// LastResult returns the most recent successful cycle, if any.
func (a *App) LastResult() (CycleResult, bool) {
	r := a.last.Load()
	if r == nil {
		return CycleResult{}, false
	}
	return *r, true
}

// Ready reports whether at least one cycle completed.
func (a *App) Ready() bool {
	return a.last.Load() != nil
}
