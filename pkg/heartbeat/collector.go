package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/solitary-pixels/hotspotx/pkg/api"
	"github.com/solitary-pixels/hotspotx/pkg/logging"
)

// DefaultWorkers is the maximum number of hotspots processed concurrently.
const DefaultWorkers = 20

var (
	// ErrFleetDiscovery means the hotspot list for the account could not be resolved.
	ErrFleetDiscovery = errors.New("fleet discovery failed")
	// ErrEmptyFleet means there are no hotspots to evaluate.
	ErrEmptyFleet = errors.New("empty fleet")
)

// Collector gathers heartbeats for every hotspot of an account.
type Collector struct {
	client  api.Client
	builder *Builder
	pool    pond.Pool
	workers int
	logger  *zap.Logger
	now     func() time.Time
}

// NewCollector creates a Collector with a worker pool of the given size.
// Call Close to release the pool.
func NewCollector(client api.Client, builder *Builder, workers int, logger *zap.Logger) *Collector {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Collector{
		client:  client,
		builder: builder,
		pool:    pond.NewPool(workers),
		workers: workers,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
}

// Workers returns the pool size.
func (c *Collector) Workers() int {
	return c.workers
}

// Close stops the worker pool after running tasks finish.
func (c *Collector) Close() {
	c.pool.StopAndWait()
}

// Collect discovers the hotspots of account and builds a heartbeat for each.
//
// Discovery runs first and sequentially; any failure there, including an
// account without hotspots, is returned wrapped in ErrFleetDiscovery. Per
// hotspot failures only degrade that hotspot's heartbeat. The returned
// snapshot is built after every submitted task has finished and is not
// ranked yet (see Rank).
func (c *Collector) Collect(ctx context.Context, account string) (Snapshot, error) {
	start := time.Now()
	runID := uuid.NewString()

	hotspots, err := c.client.AccountHotspots(ctx, account)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrFleetDiscovery, err)
	}
	if len(hotspots) == 0 {
		return Snapshot{}, fmt.Errorf("%w: account %s: %w", ErrFleetDiscovery, account, ErrEmptyFleet)
	}

	c.logger.Debug("fleet discovered",
		zap.String("runId", runID),
		zap.String("account", account),
		zap.Int("hotspots", len(hotspots)))

	out := xsync.NewMap[string, Heartbeat]()
	var (
		dupMu      sync.Mutex
		duplicates = map[string]struct{}{}
	)

	group := c.pool.NewGroup()
	for _, h := range hotspots {
		h := h
		group.Submit(func() {
			hb := c.builder.safeBuild(ctx, h)

			collided := false
			out.Compute(hb.Name, func(old Heartbeat, loaded bool) (Heartbeat, xsync.ComputeOp) {
				if !loaded {
					return hb, xsync.UpdateOp
				}
				collided = true
				// Keep the lower address so the survivor does not depend on completion order.
				if old.Address <= hb.Address {
					return old, xsync.CancelOp
				}
				return hb, xsync.UpdateOp
			})

			if collided {
				dupMu.Lock()
				duplicates[hb.Name] = struct{}{}
				dupMu.Unlock()
				c.logger.Warn("duplicate hotspot name in fleet",
					zap.String("runId", runID),
					zap.String("hotspot", hb.Name),
					zap.String("address", hb.Address))
			}
		})
	}

	// Tasks recover their own panics, so Wait only returns once all have run.
	if err := group.Wait(); err != nil {
		c.logger.Warn("heartbeat group reported an error", zap.String("runId", runID), zap.Error(err))
	}
	if err := ctx.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("collect heartbeats: %w", err)
	}

	heartbeats := make(map[string]Heartbeat, out.Size())
	out.Range(func(name string, hb Heartbeat) bool {
		heartbeats[name] = hb
		return true
	})

	dups := make([]string, 0, len(duplicates))
	for name := range duplicates {
		dups = append(dups, name)
	}
	sort.Strings(dups)

	c.logger.Info("Collected heartbeats",
		zap.String("runId", runID),
		zap.String("account", account),
		zap.Int("hotspots", len(hotspots)),
		zap.Int("heartbeats", len(heartbeats)),
		zap.Int("duplicates", len(dups)),
		zap.Float64("durationMs", float64(time.Since(start).Microseconds())/1000.0))

	return Snapshot{
		RunID:      runID,
		Account:    account,
		CapturedAt: c.now().UTC(),
		Heartbeats: heartbeats,
		Duplicates: dups,
	}, nil
}
