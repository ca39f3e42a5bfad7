package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/solitary-pixels/hotspotx/pkg/api"
)

// fakeClient is an in-memory api.Client.
type fakeClient struct {
	hotspots    []api.Hotspot
	discoverErr error
	activity    map[string]int64
	activityErr map[string]error
	panicOn     string
	delay       time.Duration

	inFlight    int32
	maxInFlight int32
	mu          sync.Mutex
	calls       []string
}

func (f *fakeClient) AccountHotspots(_ context.Context, _ string) ([]api.Hotspot, error) {
	if f.discoverErr != nil {
		return nil, f.discoverErr
	}
	return f.hotspots, nil
}

func (f *fakeClient) LatestActivity(_ context.Context, address string, _ int) (api.Activity, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		prev := atomic.LoadInt32(&f.maxInFlight)
		if cur <= prev || atomic.CompareAndSwapInt32(&f.maxInFlight, prev, cur) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, address)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if address == f.panicOn {
		panic("boom")
	}
	if err, ok := f.activityErr[address]; ok {
		return api.Activity{}, err
	}
	h, ok := f.activity[address]
	if !ok {
		return api.Activity{}, api.ErrNoActivity
	}
	return api.Activity{Height: h}, nil
}

func hotspot(name, address string, chain int64) api.Hotspot {
	return api.Hotspot{
		Name:    name,
		Address: address,
		Block:   chain,
		Status: api.HotspotStatus{
			Height:      chain - 5,
			Timestamp:   "2022-03-09T12:00:00Z",
			ListenAddrs: []string{fmt.Sprintf("/ip4/198.51.100.%d/tcp/44158", len(name))},
		},
	}
}

var errTransport = errors.New("connection reset by peer")

// staticProber returns fixed ping times and records probed hosts.
type staticProber struct {
	mu    sync.Mutex
	hosts []string
}

func (p *staticProber) Probe(_ context.Context, host string) PingTimes {
	p.mu.Lock()
	p.hosts = append(p.hosts, host)
	p.mu.Unlock()
	return PingTimes{Avg: 12.5, Median: 12, Stdev: 1}
}
