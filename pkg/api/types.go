package api

import "strings"

// Hotspot is a device record as returned by the account hotspots resource.
type Hotspot struct {
	Name    string        `json:"name"`
	Address string        `json:"address"`
	Owner   string        `json:"owner,omitempty"`
	Block   int64         `json:"block"`
	Status  HotspotStatus `json:"status"`
}

// HotspotStatus is the self-reported sync status of a hotspot.
type HotspotStatus struct {
	Height      int64    `json:"height"`
	Timestamp   string   `json:"timestamp"`
	ListenAddrs []string `json:"listen_addrs"`
	Online      string   `json:"online,omitempty"`
}

// ListenHost extracts the host from the first multiaddr, e.g. "/ip4/1.2.3.4/tcp/44158" -> "1.2.3.4".
// Returns "" when the hotspot advertises no usable address.
func (h Hotspot) ListenHost() string {
	if len(h.Status.ListenAddrs) == 0 {
		return ""
	}
	parts := strings.Split(h.Status.ListenAddrs[0], "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

// Activity is one entry of a hotspot's activity (roles) stream.
type Activity struct {
	Type   string `json:"type,omitempty"`
	Hash   string `json:"hash,omitempty"`
	Role   string `json:"role,omitempty"`
	Height int64  `json:"height"`
	Time   int64  `json:"time,omitempty"`
}
