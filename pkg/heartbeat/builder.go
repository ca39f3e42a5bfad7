package heartbeat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/solitary-pixels/hotspotx/pkg/api"
	"github.com/solitary-pixels/hotspotx/pkg/logging"
)

// DefaultActivityDepth bounds how many activity pages are read per hotspot.
const DefaultActivityDepth = 3

// BuilderOpts configures a Builder.
type BuilderOpts struct {
	ActivityDepth int
	// Prober is optional; without it PingTimes stays nil.
	Prober Prober
}

// Builder turns a hotspot record into a Heartbeat.
type Builder struct {
	client        api.Client
	activityDepth int
	prober        Prober
	logger        *zap.Logger
}

// NewBuilder creates a Builder that reads activity through client.
func NewBuilder(client api.Client, opts BuilderOpts, logger *zap.Logger) *Builder {
	if opts.ActivityDepth <= 0 {
		opts.ActivityDepth = DefaultActivityDepth
	}
	return &Builder{
		client:        client,
		activityDepth: opts.ActivityDepth,
		prober:        opts.Prober,
		logger:        logging.OrNop(logger),
	}
}

// Build computes the heartbeat of h. It never fails: when the latest
// activity cannot be determined LatestActivity is Unknown.
func (b *Builder) Build(ctx context.Context, h api.Hotspot) Heartbeat {
	hb := Heartbeat{
		Name:            h.Name,
		Address:         h.Address,
		StatusHeight:    h.Status.Height,
		StatusTimestamp: h.Status.Timestamp,
		ListenHost:      h.ListenHost(),
		ChainHeight:     h.Block,
		LatestActivity:  b.latestActivity(ctx, h),
		BlocksInactive:  Unknown,
	}

	if b.prober != nil && hb.ListenHost != "" {
		pt := b.prober.Probe(ctx, hb.ListenHost)
		hb.PingTimes = &pt
	}

	return hb
}

func (b *Builder) latestActivity(ctx context.Context, h api.Hotspot) Blocks {
	act, err := b.client.LatestActivity(ctx, h.Address, b.activityDepth)
	if err != nil {
		b.logger.Debug("latest activity unavailable",
			zap.String("hotspot", h.Name),
			zap.String("address", h.Address),
			zap.Error(err))
		return Unknown
	}
	return Known(act.Height)
}

// safeBuild runs Build and converts a panic into an unknown heartbeat so a
// single hotspot can never take down the whole collection.
func (b *Builder) safeBuild(ctx context.Context, h api.Hotspot) (hb Heartbeat) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("heartbeat build panicked",
				zap.String("hotspot", h.Name),
				zap.String("panic", fmt.Sprint(r)))
			hb = Heartbeat{
				Name:            h.Name,
				Address:         h.Address,
				StatusHeight:    h.Status.Height,
				StatusTimestamp: h.Status.Timestamp,
				ChainHeight:     h.Block,
				LatestActivity:  Unknown,
				BlocksInactive:  Unknown,
			}
		}
	}()
	return b.Build(ctx, h)
}
