//go:build entware

package constant

const (
	AppConfigDir = "/opt/etc/hotspotd"
	AppDataDir   = "/opt/var/lib/hotspotd"
	RunDir       = "/opt/var/run"
)
