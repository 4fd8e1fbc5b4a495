package models

// Policy is a point-in-time snapshot of the per-device QoS policy.
// MACs are normalized (lowercase, colon-separated); Rates values are bits/s.
// Blocked and Priority are kept sorted so derived state is deterministic.
type Policy struct {
	Blocked  []string
	Rates    map[string]uint64
	Priority []string
}

// IsPriority reports whether mac is in the priority set.
func (p Policy) IsPriority(mac string) bool {
	for _, m := range p.Priority {
		if m == mac {
			return true
		}
	}
	return false
}

// IsBlocked reports whether mac is in the blocked set.
func (p Policy) IsBlocked(mac string) bool {
	for _, m := range p.Blocked {
		if m == mac {
			return true
		}
	}
	return false
}
