package heartbeat

import (
	"context"
	"math"
	"net"
	"sort"
	"strconv"
	"time"
)

// DefaultProbePort is the hotspot p2p port.
const DefaultProbePort = 44158

// Prober measures reachability of a hotspot's listening host.
type Prober interface {
	Probe(ctx context.Context, host string) PingTimes
}

// TCPProber times TCP connects to host:Port.
type TCPProber struct {
	Port    int
	Runs    int
	Timeout time.Duration

	dial func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewTCPProber returns a prober making runs connects of at most timeout each.
func NewTCPProber(port, runs int, timeout time.Duration) *TCPProber {
	if port <= 0 {
		port = DefaultProbePort
	}
	if runs <= 0 {
		runs = 5
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	d := &net.Dialer{Timeout: timeout}
	return &TCPProber{Port: port, Runs: runs, Timeout: timeout, dial: d.DialContext}
}

// Probe never fails; unreachable hosts produce -1 statistics.
func (p *TCPProber) Probe(ctx context.Context, host string) PingTimes {
	addr := net.JoinHostPort(host, strconv.Itoa(p.Port))
	samples := make([]float64, 0, p.Runs)
	for i := 0; i < p.Runs; i++ {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		conn, err := p.dial(ctx, "tcp", addr)
		if err != nil {
			continue
		}
		samples = append(samples, float64(time.Since(start).Microseconds())/1000.0)
		_ = conn.Close()
	}
	return summarize(samples)
}

// summarize computes mean, median and sample standard deviation.
func summarize(samples []float64) PingTimes {
	out := PingTimes{Avg: -1, Median: -1, Stdev: -1}
	n := len(samples)
	if n == 0 {
		return out
	}

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	var sum float64
	for _, s := range sorted {
		sum += s
	}
	out.Avg = sum / float64(n)

	if n%2 == 1 {
		out.Median = sorted[n/2]
	} else {
		out.Median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	// stdev needs at least two points
	if n < 2 {
		return out
	}
	var sq float64
	for _, s := range sorted {
		sq += (s - out.Avg) * (s - out.Avg)
	}
	out.Stdev = math.Sqrt(sq / float64(n-1))
	return out
}
