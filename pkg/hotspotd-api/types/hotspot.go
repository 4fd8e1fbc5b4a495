package types

// HotspotRes mirrors the engine state snapshot.
type HotspotRes struct {
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

// ClientRes is one associated station, decorated with its policy standing.
type ClientRes struct {
	MAC       string `json:"mac"`
	SignalDBM int    `json:"signalDbm"`
	RxBytes   uint64 `json:"rxBytes"`
	TxBytes   uint64 `json:"txBytes"`
	Blocked   bool   `json:"blocked"`
	Priority  bool   `json:"priority"`
	Rate      string `json:"rate,omitempty"`
}

type ClientsRes struct {
	Clients []ClientRes `json:"clients"`
}
