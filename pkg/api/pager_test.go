package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixtureRecord struct {
	ID int `json:"id"`
}

// pagedServer serves one JSON body per cursor value and counts requests.
func pagedServer(t *testing.T, pages map[string]string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		body, ok := pages[r.URL.Query().Get("cursor")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

var threePages = map[string]string{
	"":  `{"data":[{"id":1},{"id":2}],"cursor":"a"}`,
	"a": `{"data":[{"id":3}],"cursor":"b"}`,
	"b": `{"data":[{"id":4},{"id":5}]}`,
}

func ids(recs []fixtureRecord) []int {
	out := make([]int, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func TestPaginate_AllPages(t *testing.T) {
	srv, hits := pagedServer(t, threePages)
	c := NewHTTPWithOpts(Opts{BaseURL: srv.URL, RPS: 100})

	p := Paginate[fixtureRecord](c, "/v1/things", "", 0)
	recs, err := Collect(context.Background(), p)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids(recs))
	assert.Equal(t, 3, p.Pages())
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))

	// Exhausted pagers never fetch again.
	assert.False(t, p.Next(context.Background()))
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))
}

func TestPaginate_DepthBound(t *testing.T) {
	srv, hits := pagedServer(t, threePages)
	c := NewHTTPWithOpts(Opts{BaseURL: srv.URL, RPS: 100})

	recs, err := Collect(context.Background(), Paginate[fixtureRecord](c, "/v1/things", "", 2))

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ids(recs))
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestPaginate_StartCursor(t *testing.T) {
	srv, _ := pagedServer(t, threePages)
	c := NewHTTPWithOpts(Opts{BaseURL: srv.URL, RPS: 100})

	recs, err := Collect(context.Background(), Paginate[fixtureRecord](c, "/v1/things", "a", 0))

	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, ids(recs))
}

func TestPaginate_LazyFetch(t *testing.T) {
	srv, hits := pagedServer(t, threePages)
	c := NewHTTPWithOpts(Opts{BaseURL: srv.URL, RPS: 100})

	p := Paginate[fixtureRecord](c, "/v1/things", "", 0)
	require.True(t, p.Next(context.Background()))
	assert.Equal(t, 1, p.Record().ID)
	require.True(t, p.Next(context.Background()))
	assert.Equal(t, 2, p.Record().ID)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits), "second page must not be fetched before the first is consumed")
}

func TestPaginate_EmptyCursorEndsIteration(t *testing.T) {
	srv, hits := pagedServer(t, map[string]string{
		"": `{"data":[{"id":1}],"cursor":""}`,
	})
	c := NewHTTPWithOpts(Opts{BaseURL: srv.URL, RPS: 100})

	recs, err := Collect(context.Background(), Paginate[fixtureRecord](c, "/v1/things", "", 0))

	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids(recs))
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestPaginate_SkipsEmptyPages(t *testing.T) {
	srv, _ := pagedServer(t, map[string]string{
		"":  `{"data":[],"cursor":"a"}`,
		"a": `{"data":[{"id":9}]}`,
	})
	c := NewHTTPWithOpts(Opts{BaseURL: srv.URL, RPS: 100})

	recs, err := Collect(context.Background(), Paginate[fixtureRecord](c, "/v1/things", "", 0))

	require.NoError(t, err)
	assert.Equal(t, []int{9}, ids(recs))
}

func TestPaginate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		pages   map[string]string
		wantErr error
		wantIDs []int
	}{
		{
			name:    "server error on second page",
			pages:   map[string]string{"": `{"data":[{"id":1}],"cursor":"missing"}`},
			wantErr: ErrHTTPStatus,
			wantIDs: []int{1},
		},
		{
			name:    "malformed body",
			pages:   map[string]string{"": `{"data":[`},
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "missing data array",
			pages:   map[string]string{"": `{"cursor":"a"}`},
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "record of the wrong shape",
			pages:   map[string]string{"": `{"data":[{"id":"one"}]}`},
			wantErr: ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := pagedServer(t, tt.pages)
			c := NewHTTPWithOpts(Opts{BaseURL: srv.URL, RPS: 100})

			recs, err := Collect(context.Background(), Paginate[fixtureRecord](c, "/v1/things", "", 0))

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantIDs, nilIfEmpty(ids(recs)))
		})
	}
}

func nilIfEmpty(in []int) []int {
	if len(in) == 0 {
		return nil
	}
	return in
}

func TestHTTPClient_SendsIdentityHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hotspotx-test/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "ops@example.com", r.Header.Get("From"))
		assert.Equal(t, "/v1/accounts/wallet1/hotspots", r.URL.Path)
		assert.False(t, r.URL.Query().Has("cursor"), "first page is requested without a cursor")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []Hotspot{{Name: "a", Address: "addr-a"}}})
	}))
	defer srv.Close()

	c := NewHTTPWithOpts(Opts{BaseURL: srv.URL + "/", UserAgent: "hotspotx-test/1.0", From: "ops@example.com", RPS: 100})
	hotspots, err := c.AccountHotspots(context.Background(), "wallet1")

	require.NoError(t, err)
	require.Len(t, hotspots, 1)
	assert.Equal(t, "addr-a", hotspots[0].Address)
	assert.Equal(t, srv.URL, c.BaseURL())
}

func TestHTTPClient_LatestActivity(t *testing.T) {
	t.Run("first record of first page", func(t *testing.T) {
		srv, hits := pagedServer(t, map[string]string{
			"":  `{"data":[{"height":120,"type":"poc_receipts_v2"},{"height":100}],"cursor":"a"}`,
			"a": `{"data":[{"height":90}]}`,
		})
		c := NewHTTPWithOpts(Opts{BaseURL: srv.URL, RPS: 100})

		act, err := c.LatestActivity(context.Background(), "addr", 3)

		require.NoError(t, err)
		assert.Equal(t, int64(120), act.Height)
		assert.Equal(t, int32(1), atomic.LoadInt32(hits))
	})

	t.Run("no records within depth", func(t *testing.T) {
		srv, hits := pagedServer(t, map[string]string{
			"":  `{"data":[],"cursor":"a"}`,
			"a": `{"data":[],"cursor":"b"}`,
			"b": `{"data":[],"cursor":"c"}`,
			"c": `{"data":[{"height":1}]}`,
		})
		c := NewHTTPWithOpts(Opts{BaseURL: srv.URL, RPS: 100})

		_, err := c.LatestActivity(context.Background(), "addr", 3)

		assert.ErrorIs(t, err, ErrNoActivity)
		assert.Equal(t, int32(3), atomic.LoadInt32(hits))
	})
}

func TestHotspot_ListenHost(t *testing.T) {
	tests := []struct {
		name  string
		addrs []string
		want  string
	}{
		{name: "multiaddr", addrs: []string{"/ip4/203.0.113.7/tcp/44158"}, want: "203.0.113.7"},
		{name: "none", addrs: nil, want: ""},
		{name: "garbage", addrs: []string{"relay"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Hotspot{Status: HotspotStatus{ListenAddrs: tt.addrs}}
			assert.Equal(t, tt.want, h.ListenHost())
		})
	}
}
