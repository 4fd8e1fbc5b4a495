package models

type App struct {
	Hotspot    Hotspot
	Interfaces Interfaces
	HTTPAPI    HTTPAPI
	LogLevel   string
}

// Hotspot holds the broadcast and DHCP parameters of the hotspot itself.
type Hotspot struct {
	SSID        string
	Passphrase  string
	Channel     int
	Gateway     string // CIDR, e.g. "192.168.18.1/24"
	LeaseTime   string
	UpstreamDNS string
	// PreferDelegate asks the host network manager to run the hotspot
	// before falling back to the self-hosted hostapd/dnsmasq pair.
	PreferDelegate bool
	AutoStart      bool
}

// Interfaces carries optional user overrides for interface resolution and
// the wildcard patterns of interfaces the resolver must never pick.
type Interfaces struct {
	STA     string
	WAN     string
	Exclude []string
}

type HTTPAPI struct {
	Enabled bool
	Host    APIServer
}

type APIServer struct {
	Address string
	Port    uint16
}
