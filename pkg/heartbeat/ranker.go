package heartbeat

// Rank returns a copy of s with BlocksInactive filled in for every hotspot:
// the distance between the highest chain height in the fleet and the
// hotspot's latest activity, or Unknown when the activity is unknown.
//
// The fleet maximum is only defined for a non-empty fleet, so an empty
// snapshot yields ErrEmptyFleet.
func Rank(s Snapshot) (Snapshot, error) {
	if len(s.Heartbeats) == 0 {
		return Snapshot{}, ErrEmptyFleet
	}

	names := s.Names()
	maxChain := s.Heartbeats[names[0]].ChainHeight
	for _, name := range names[1:] {
		if h := s.Heartbeats[name].ChainHeight; h > maxChain {
			maxChain = h
		}
	}

	ranked := make(map[string]Heartbeat, len(names))
	var clamped []string
	for _, name := range names {
		hb := s.Heartbeats[name]
		latest, ok := hb.LatestActivity.Value()
		if !ok {
			hb.BlocksInactive = Unknown
			ranked[name] = hb
			continue
		}
		gap := maxChain - latest
		if gap < 0 {
			// activity ahead of every reported chain height
			gap = 0
			clamped = append(clamped, name)
		}
		hb.BlocksInactive = Known(gap)
		ranked[name] = hb
	}

	out := s
	out.Heartbeats = ranked
	out.MaxChainHeight = maxChain
	out.Clamped = clamped
	return out, nil
}
