package daemons

import (
	"net"
	"strings"
	"testing"
)

func TestHostapdConfWPA(t *testing.T) {
	conf := HostapdConf("apwlan0", "MyHotspot", "s3cretpass", 6)
	for _, want := range []string{
		"interface=apwlan0\n",
		"ssid=MyHotspot\n",
		"channel=6\n",
		"wpa=2\n",
		"wpa_passphrase=s3cretpass\n",
	} {
		if !strings.Contains(conf, want) {
			t.Fatalf("missing %q in:\n%s", want, conf)
		}
	}
}

func TestHostapdConfOpenNetwork(t *testing.T) {
	conf := HostapdConf("apwlan0", "MyHotspot", "", 6)
	if strings.Contains(conf, "wpa") {
		t.Fatalf("open network must have no WPA block:\n%s", conf)
	}
}

func TestDnsmasqConfPool(t *testing.T) {
	conf := DnsmasqConf("apwlan0", net.IPv4(192, 168, 18, 1), "12h", "1.1.1.1")
	for _, want := range []string{
		"interface=apwlan0\n",
		"dhcp-range=192.168.18.10,192.168.18.250,12h\n",
		"dhcp-option=option:router,192.168.18.1\n",
		"server=1.1.1.1\n",
	} {
		if !strings.Contains(conf, want) {
			t.Fatalf("missing %q in:\n%s", want, conf)
		}
	}
}
