package types

// PolicyRes is the persistent policy snapshot. Rates are human-readable
// ("2mbit"), keyed by normalized MAC.
type PolicyRes struct {
	Blocked  []string          `json:"blocked"`
	Rates    map[string]string `json:"rates"`
	Priority []string          `json:"priority"`
}

type MACReq struct {
	MAC string `json:"mac"`
}

type QoSReq struct {
	MAC  string `json:"mac"`
	Rate string `json:"rate"`
}

type PriorityReq struct {
	MAC string `json:"mac"`
	// Enabled defaults to true when omitted.
	Enabled *bool `json:"enabled,omitempty"`
}
