package daemons

import (
	"fmt"
	"net"
	"strings"
)

// DnsmasqConf renders the DHCP/DNS configuration. The address pool is
// derived from the gateway's first three octets: .10 through .250.
func DnsmasqConf(iface string, gateway net.IP, leaseTime, upstreamDNS string) string {
	prefix := gatewayPrefix(gateway)
	var b strings.Builder
	fmt.Fprintf(&b, "interface=%s\n", iface)
	b.WriteString("bind-interfaces\n")
	fmt.Fprintf(&b, "listen-address=%s\n", gateway)
	fmt.Fprintf(&b, "dhcp-range=%s.10,%s.250,%s\n", prefix, prefix, leaseTime)
	fmt.Fprintf(&b, "dhcp-option=option:router,%s\n", gateway)
	fmt.Fprintf(&b, "dhcp-option=option:dns-server,%s\n", gateway)
	fmt.Fprintf(&b, "server=%s\n", upstreamDNS)
	b.WriteString("no-resolv\n")
	b.WriteString("no-hosts\n")
	return b.String()
}

func gatewayPrefix(gateway net.IP) string {
	ip4 := gateway.To4()
	return fmt.Sprintf("%d.%d.%d", ip4[0], ip4[1], ip4[2])
}

// SpawnDnsmasq writes the config and starts dnsmasq in the foreground
// against it.
func SpawnDnsmasq(runDir, iface string, gateway net.IP, leaseTime, upstreamDNS string) (*Daemon, error) {
	conf, err := WriteConf(runDir, "dnsmasq.conf", DnsmasqConf(iface, gateway, leaseTime, upstreamDNS))
	if err != nil {
		return nil, fmt.Errorf("%w: dnsmasq: %w", ErrDaemonSpawnFailed, err)
	}
	return Spawn("dnsmasq", conf, "--keep-in-foreground", "--conf-file="+conf)
}
