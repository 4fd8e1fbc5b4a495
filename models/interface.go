package models

// Role describes what a network interface is used for within a run.
type Role string

const (
	RoleSTA     Role = "sta"
	RoleAP      Role = "ap"
	RoleShaping Role = "shaping"
)

// Interface is a descriptor of a network interface the hotspot touches.
// Owned interfaces were created by this process and must be destroyed by it.
type Interface struct {
	Name  string
	Role  Role
	Owned bool
}

// Verdict is the immutable result of the one-shot capability probe.
type Verdict struct {
	Phy             string
	ConcurrentAPSTA bool
}

// Resolution is the output of interface resolution. SharedRadio is set when
// only one radio exists and the AP has to ride on the WAN/STA interface.
type Resolution struct {
	STA         string
	WAN         string
	APBase      string
	SharedRadio bool
}

// Station is an associated downstream client.
type Station struct {
	MAC       string `json:"mac"`
	SignalDBM int    `json:"signal_dbm"`
	RxBytes   uint64 `json:"rx_bytes"`
	TxBytes   uint64 `json:"tx_bytes"`
}
