package api

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoActivity is returned when a hotspot's activity stream has no records
// within the requested depth.
var ErrNoActivity = errors.New("no activity")

// Client captures the API calls used to build fleet heartbeats.
type Client interface {
	AccountHotspots(ctx context.Context, account string) ([]Hotspot, error)
	LatestActivity(ctx context.Context, address string, maxDepth int) (Activity, error)
}

// AccountHotspots lists every hotspot owned by account. Pagination is not
// depth bounded; it follows cursors until the server stops returning one.
func (c *HTTPClient) AccountHotspots(ctx context.Context, account string) ([]Hotspot, error) {
	hotspots, err := Collect(ctx, Paginate[Hotspot](c, accountHotspots(account), "", 0))
	if err != nil {
		return nil, fmt.Errorf("list hotspots for account %s: %w", account, err)
	}
	return hotspots, nil
}

// LatestActivity returns the first record of the hotspot's activity stream,
// looking at no more than maxDepth pages.
func (c *HTTPClient) LatestActivity(ctx context.Context, address string, maxDepth int) (Activity, error) {
	p := Paginate[Activity](c, hotspotRoles(address), "", maxDepth)
	if p.Next(ctx) {
		return p.Record(), nil
	}
	if err := p.Err(); err != nil {
		return Activity{}, fmt.Errorf("activity for hotspot %s: %w", address, err)
	}
	return Activity{}, fmt.Errorf("activity for hotspot %s after %d pages: %w", address, p.Pages(), ErrNoActivity)
}
