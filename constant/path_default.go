//go:build !entware

package constant

const (
	AppConfigDir = "/etc/hotspotd"
	AppDataDir   = "/var/lib/hotspotd"
	RunDir       = "/var/run"
)
