package config

// Mirror of models.App for the YAML config file. Every field is a pointer
// so a partial file only overrides what it actually sets.

type Config struct {
	ConfigVersion string `yaml:"configVersion"`
	App           *App   `yaml:"app,omitempty"`
}

type App struct {
	Hotspot    *Hotspot    `yaml:"hotspot,omitempty"`
	Interfaces *Interfaces `yaml:"interfaces,omitempty"`
	HTTPAPI    *HTTPAPI    `yaml:"httpApi,omitempty"`
	LogLevel   *string     `yaml:"logLevel,omitempty"`
}

type Hotspot struct {
	SSID           *string `yaml:"ssid,omitempty"`
	Passphrase     *string `yaml:"passphrase,omitempty"`
	Channel        *int    `yaml:"channel,omitempty"`
	Gateway        *string `yaml:"gateway,omitempty"`
	LeaseTime      *string `yaml:"leaseTime,omitempty"`
	UpstreamDNS    *string `yaml:"upstreamDns,omitempty"`
	PreferDelegate *bool   `yaml:"preferDelegate,omitempty"`
	AutoStart      *bool   `yaml:"autoStart,omitempty"`
}

type Interfaces struct {
	STA     *string   `yaml:"sta,omitempty"`
	WAN     *string   `yaml:"wan,omitempty"`
	Exclude *[]string `yaml:"exclude,omitempty"`
}

type HTTPAPI struct {
	Enabled *bool      `yaml:"enabled,omitempty"`
	Host    *APIServer `yaml:"host,omitempty"`
}

type APIServer struct {
	Address *string `yaml:"address,omitempty"`
	Port    *uint16 `yaml:"port,omitempty"`
}
