package app

// State tracks how far the startup sequence has progressed. Each forward
// transition happens only after the corresponding mutation succeeded and its
// compensation was recorded, so a drain from any state leaves the host clean.
type State int

const (
	StateIdle State = iota
	StateCapabilityChecked
	StateInterfaceCreated
	StateDelegateHotspotActive
	StateRuleEngineApplied
	StateShapingApplied
	StateDaemonsRunning
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapabilityChecked:
		return "capability-checked"
	case StateInterfaceCreated:
		return "interface-created"
	case StateDelegateHotspotActive:
		return "delegate-hotspot-active"
	case StateRuleEngineApplied:
		return "rule-engine-applied"
	case StateShapingApplied:
		return "shaping-applied"
	case StateDaemonsRunning:
		return "daemons-running"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Status is the externally visible snapshot of the engine.
type Status struct {
	State       string `json:"state"`
	Running     bool   `json:"running"`
	Delegate    bool   `json:"delegate"`
	Firewall    string `json:"firewall,omitempty"`
	STA         string `json:"sta,omitempty"`
	WAN         string `json:"wan,omitempty"`
	AP          string `json:"ap,omitempty"`
	SharedRadio bool   `json:"sharedRadio"`
	SSID        string `json:"ssid,omitempty"`
}

// Status reports the current state under the lock.
func (a *App) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := Status{
		State:       a.state.String(),
		Running:     a.state == StateRunning,
		Delegate:    a.delegateActive,
		SharedRadio: a.res.SharedRadio,
	}
	if a.fw != nil {
		st.Firewall = a.fw.Name()
	}
	if a.state != StateIdle {
		st.STA = a.res.STA
		st.WAN = a.res.WAN
		st.AP = a.apIface
		st.SSID = a.config.Hotspot.SSID
	}
	return st
}
