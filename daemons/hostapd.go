package daemons

import (
	"fmt"
	"strings"
)

// HostapdConf renders the AP-broadcast configuration. An empty passphrase
// produces an open network: no WPA block at all. Passphrase length policy
// is enforced by the orchestrator before any mutation, not here.
func HostapdConf(iface, ssid, passphrase string, channel int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "interface=%s\n", iface)
	b.WriteString("driver=nl80211\n")
	fmt.Fprintf(&b, "ssid=%s\n", ssid)
	b.WriteString("hw_mode=g\n")
	fmt.Fprintf(&b, "channel=%d\n", channel)
	b.WriteString("ignore_broadcast_ssid=0\n")
	if passphrase != "" {
		b.WriteString("wpa=2\n")
		fmt.Fprintf(&b, "wpa_passphrase=%s\n", passphrase)
		b.WriteString("wpa_key_mgmt=WPA-PSK\n")
		b.WriteString("wpa_pairwise=TKIP\n")
		b.WriteString("rsn_pairwise=CCMP\n")
	}
	return b.String()
}

// SpawnHostapd writes the config and starts hostapd against it.
func SpawnHostapd(runDir, iface, ssid, passphrase string, channel int) (*Daemon, error) {
	conf, err := WriteConf(runDir, "hostapd.conf", HostapdConf(iface, ssid, passphrase, channel))
	if err != nil {
		return nil, fmt.Errorf("%w: hostapd: %w", ErrDaemonSpawnFailed, err)
	}
	return Spawn("hostapd", conf, conf)
}
