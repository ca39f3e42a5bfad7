package status

import (
	"sort"

	"github.com/solitary-pixels/hotspotx/pkg/heartbeat"
)

// DefaultWarningThreshold is the number of inactive blocks above which a hotspot fails.
const DefaultWarningThreshold = 450

// Per-hotspot flags making up a fingerprint.
const (
	FlagPass byte = 'Y'
	FlagFail byte = 'N'
)

// DeviceStatus is the threshold test result for one hotspot.
type DeviceStatus struct {
	Name           string           `json:"name"`
	BlocksInactive heartbeat.Blocks `json:"blocks_inactive"`
	Pass           bool             `json:"pass"`
}

// Flag returns the fingerprint flag for d.
func (d DeviceStatus) Flag() byte {
	if d.Pass {
		return FlagPass
	}
	return FlagFail
}

// Assess applies the warning threshold to every hotspot of a ranked
// snapshot, in alphabetical order. Unknown inactivity fails.
func Assess(s heartbeat.Snapshot, warningThreshold int64) []DeviceStatus {
	names := s.Names()
	out := make([]DeviceStatus, 0, len(names))
	for _, name := range names {
		inactive := s.Heartbeats[name].BlocksInactive
		out = append(out, DeviceStatus{
			Name:           name,
			BlocksInactive: inactive,
			Pass:           inactive.IsKnown() && !inactive.Exceeds(warningThreshold),
		})
	}
	return out
}

// Fingerprint concatenates the sorted flags of statuses, so it only depends
// on how many hotspots pass and fail, e.g. "NYYY".
func Fingerprint(statuses []DeviceStatus) string {
	flags := make([]byte, 0, len(statuses))
	for _, st := range statuses {
		flags = append(flags, st.Flag())
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i] < flags[j] })
	return string(flags)
}

// Failing returns the statuses that did not pass.
func Failing(statuses []DeviceStatus) []DeviceStatus {
	var out []DeviceStatus
	for _, st := range statuses {
		if !st.Pass {
			out = append(out, st)
		}
	}
	return out
}
