package heartbeat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solitary-pixels/hotspotx/pkg/api"
)

func TestCollector_Collect(t *testing.T) {
	client := &fakeClient{
		hotspots: []api.Hotspot{
			hotspot("alpha", "addr-a", 1000),
			hotspot("bravo", "addr-b", 1002),
			hotspot("charlie", "addr-c", 998),
		},
		activity: map[string]int64{"addr-a": 990, "addr-b": 1001},
		activityErr: map[string]error{
			"addr-c": errTransport,
		},
	}
	c := NewCollector(client, NewBuilder(client, BuilderOpts{}, nil), 4, nil)
	defer c.Close()

	snap, err := c.Collect(context.Background(), "wallet")

	require.NoError(t, err)
	assert.NotEmpty(t, snap.RunID)
	assert.Equal(t, "wallet", snap.Account)
	assert.False(t, snap.CapturedAt.IsZero())
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, snap.Names())
	assert.Equal(t, Known(990), snap.Heartbeats["alpha"].LatestActivity)
	assert.Equal(t, Unknown, snap.Heartbeats["charlie"].LatestActivity)
	assert.Empty(t, snap.Duplicates)
}

func TestCollector_BoundedConcurrency(t *testing.T) {
	const fleet = 60
	client := &fakeClient{activity: map[string]int64{}, delay: 20 * time.Millisecond}
	for i := 0; i < fleet; i++ {
		addr := fmt.Sprintf("addr-%02d", i)
		client.hotspots = append(client.hotspots, hotspot(fmt.Sprintf("hotspot-%02d", i), addr, 500))
		client.activity[addr] = int64(400 + i)
	}
	c := NewCollector(client, NewBuilder(client, BuilderOpts{}, nil), DefaultWorkers, nil)
	defer c.Close()

	snap, err := c.Collect(context.Background(), "wallet")

	require.NoError(t, err)
	assert.Equal(t, fleet, snap.Len())
	assert.Len(t, client.calls, fleet)
	assert.LessOrEqual(t, atomic.LoadInt32(&client.maxInFlight), int32(DefaultWorkers))
	assert.Greater(t, atomic.LoadInt32(&client.maxInFlight), int32(1), "work should fan out")
}

func TestCollector_DiscoveryFailures(t *testing.T) {
	t.Run("transport error", func(t *testing.T) {
		client := &fakeClient{discoverErr: errTransport}
		c := NewCollector(client, NewBuilder(client, BuilderOpts{}, nil), 2, nil)
		defer c.Close()

		_, err := c.Collect(context.Background(), "wallet")

		assert.ErrorIs(t, err, ErrFleetDiscovery)
		assert.ErrorIs(t, err, errTransport)
	})

	t.Run("empty fleet", func(t *testing.T) {
		client := &fakeClient{}
		c := NewCollector(client, NewBuilder(client, BuilderOpts{}, nil), 2, nil)
		defer c.Close()

		snap, err := c.Collect(context.Background(), "wallet")

		assert.ErrorIs(t, err, ErrFleetDiscovery)
		assert.ErrorIs(t, err, ErrEmptyFleet)
		assert.Nil(t, snap.Heartbeats)
	})
}

func TestCollector_DuplicateNames(t *testing.T) {
	client := &fakeClient{
		hotspots: []api.Hotspot{
			hotspot("twin", "addr-z", 100),
			hotspot("twin", "addr-m", 100),
			hotspot("solo", "addr-s", 100),
		},
		activity: map[string]int64{"addr-z": 10, "addr-m": 20, "addr-s": 30},
	}
	c := NewCollector(client, NewBuilder(client, BuilderOpts{}, nil), 3, nil)
	defer c.Close()

	for i := 0; i < 5; i++ {
		snap, err := c.Collect(context.Background(), "wallet")
		require.NoError(t, err)
		assert.Equal(t, 2, snap.Len())
		assert.Equal(t, []string{"twin"}, snap.Duplicates)
		assert.Equal(t, "addr-m", snap.Heartbeats["twin"].Address)
	}
}

func TestCollector_PanickingHotspotIsIsolated(t *testing.T) {
	client := &fakeClient{
		hotspots: []api.Hotspot{hotspot("a", "addr-a", 10), hotspot("b", "addr-b", 10)},
		activity: map[string]int64{"addr-b": 9},
		panicOn:  "addr-a",
	}
	c := NewCollector(client, NewBuilder(client, BuilderOpts{}, nil), 2, nil)
	defer c.Close()

	snap, err := c.Collect(context.Background(), "wallet")

	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, Unknown, snap.Heartbeats["a"].LatestActivity)
	assert.Equal(t, Known(9), snap.Heartbeats["b"].LatestActivity)
}

// TestCollector_HTTPFixture runs discovery and activity lookups against a
// paged HTTP fixture where one hotspot's activity endpoint fails.
func TestCollector_HTTPFixture(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/accounts/wallet/hotspots" && r.URL.Query().Get("cursor") == "":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data":   []api.Hotspot{hotspot("alpha", "addr-a", 2000)},
				"cursor": "next",
			})
		case r.URL.Path == "/v1/accounts/wallet/hotspots" && r.URL.Query().Get("cursor") == "next":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []api.Hotspot{hotspot("bravo", "addr-b", 2010), hotspot("charlie", "addr-c", 2005)},
			})
		case strings.HasSuffix(r.URL.Path, "/addr-b/roles"):
			w.WriteHeader(http.StatusBadGateway)
		case strings.HasPrefix(r.URL.Path, "/v1/hotspots/"):
			_ = json.NewEncoder(w).Encode(map[string]any{"data": []api.Activity{{Height: 1950}}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := api.NewHTTPWithOpts(api.Opts{BaseURL: srv.URL, RPS: 1000})
	c := NewCollector(client, NewBuilder(client, BuilderOpts{}, nil), DefaultWorkers, nil)
	defer c.Close()

	snap, err := c.Collect(context.Background(), "wallet")
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "bravo", "charlie"}, snap.Names())

	ranked, err := Rank(snap)
	require.NoError(t, err)
	assert.Equal(t, int64(2010), ranked.MaxChainHeight)
	assert.Equal(t, Known(60), ranked.Heartbeats["alpha"].BlocksInactive)
	assert.Equal(t, Unknown, ranked.Heartbeats["bravo"].BlocksInactive)
	assert.Equal(t, Known(60), ranked.Heartbeats["charlie"].BlocksInactive)
}
