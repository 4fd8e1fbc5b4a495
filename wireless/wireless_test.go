package wireless

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeRunner maps "cmd arg arg..." to canned output.
type fakeRunner struct {
	outputs map[string]string
	calls   []string
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	key := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, key)
	out, ok := f.outputs[key]
	if !ok {
		return nil, fmt.Errorf("%s: command failed", key)
	}
	return []byte(out), nil
}

func sysNetWith(t *testing.T, wireless []string, wired []string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range wireless {
		if err := os.MkdirAll(filepath.Join(dir, name, "wireless"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range wired {
		if err := os.MkdirAll(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestResolve(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"iw dev wlan0 link": "Connected to aa:bb:cc:dd:ee:ff (on wlan0)",
	}}
	r := NewResolver(runner, nil, []string{"p2p-*", "ifb*"})
	r.sysNet = sysNetWith(t, []string{"wlan0", "wlan1", "p2p-dev-wlan0"}, []string{"eth0", "lo"})
	r.routeGet = func(_ net.IP) (string, error) { return "eth0", nil }

	res, err := r.Resolve(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.STA != "wlan0" {
		t.Fatalf("expected STA wlan0, got %s", res.STA)
	}
	if res.WAN != "eth0" {
		t.Fatalf("expected WAN eth0, got %s", res.WAN)
	}
	if res.APBase != "wlan1" || res.SharedRadio {
		// wlan1 is the only radio with no other role
		t.Fatalf("unexpected AP base: %+v", res)
	}
}

func TestPickAPBaseSharedRadio(t *testing.T) {
	// one radio doing STA duty, wired WAN: AP must share the STA radio
	iface, shared := pickAPBase([]string{"wlan0"}, "eth0", "wlan0")
	if iface != "wlan0" || !shared {
		t.Fatalf("got %s shared=%v", iface, shared)
	}
	// wifi WAN on the only radio
	iface, shared = pickAPBase([]string{"wlan0"}, "wlan0", "wlan0")
	if iface != "wlan0" || !shared {
		t.Fatalf("got %s shared=%v", iface, shared)
	}
}

func TestResolveExplicitOverridesWin(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{}}
	r := NewResolver(runner, nil, nil)
	r.sysNet = sysNetWith(t, []string{"wlan0"}, nil)
	r.routeGet = func(_ net.IP) (string, error) {
		t.Fatal("route lookup must not run with explicit WAN")
		return "", nil
	}
	res, err := r.Resolve(context.Background(), "wlan0", "eth9")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.STA != "wlan0" || res.WAN != "eth9" {
		t.Fatalf("overrides ignored: %+v", res)
	}
}

func TestResolveNoWireless(t *testing.T) {
	r := NewResolver(&fakeRunner{}, nil, nil)
	r.sysNet = sysNetWith(t, nil, []string{"eth0"})
	if _, err := r.Resolve(context.Background(), "", ""); err != ErrNoWirelessInterface {
		t.Fatalf("expected ErrNoWirelessInterface, got %v", err)
	}
}

func TestResolveNoAssociation(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"iw dev wlan0 link": "Not connected.",
	}}
	r := NewResolver(runner, nil, nil)
	r.sysNet = sysNetWith(t, []string{"wlan0"}, nil)
	if _, err := r.Resolve(context.Background(), "", ""); err != ErrNoWirelessInterface {
		t.Fatalf("expected ErrNoWirelessInterface, got %v", err)
	}
}

func TestAPNameCandidates(t *testing.T) {
	names := apNameCandidates("wlan0")
	if names[0] != "apwlan0" {
		t.Fatalf("first candidate should be deterministic: %v", names)
	}
	if len(names) != maxNameProbes+1 {
		t.Fatalf("expected %d candidates, got %d", maxNameProbes+1, len(names))
	}
	for _, n := range names {
		if len(n) > 15 {
			t.Fatalf("candidate %q exceeds IFNAMSIZ", n)
		}
	}
	long := apNameCandidates("wlp59s0f3u2i17")
	for _, n := range long {
		if len(n) > 15 {
			t.Fatalf("candidate %q exceeds IFNAMSIZ", n)
		}
	}
}

func TestPickAPNameSkipsCollisions(t *testing.T) {
	l := NewLifecycle(&fakeRunner{})
	taken := map[string]bool{"apwlan0": true, "ap0wlan0": true}
	l.linkExists = func(name string) bool { return taken[name] }
	if got := l.pickAPName("wlan0"); got != "ap1wlan0" {
		t.Fatalf("expected ap1wlan0, got %s", got)
	}
}

func TestPickAPNameRandomFallback(t *testing.T) {
	l := NewLifecycle(&fakeRunner{})
	l.linkExists = func(name string) bool { return len(name) != 10 } // only random "ap"+8hex free
	got := l.pickAPName("wlan0")
	if !strings.HasPrefix(got, "ap") || len(got) != 10 {
		t.Fatalf("expected random fallback name, got %q", got)
	}
}

func TestParseStationDump(t *testing.T) {
	out := `Station aa:bb:cc:dd:ee:ff (on apwlan0)
	inactive time:	820 ms
	rx bytes:	123456
	tx bytes:	654321
	signal:  	-54 [-60, -55] dBm
Station 11:22:33:44:55:66 (on apwlan0)
	rx bytes:	42
	tx bytes:	43
	signal:  	-71 dBm
`
	stations := parseStationDump(out)
	if len(stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(stations))
	}
	s := stations[0]
	if s.MAC != "aa:bb:cc:dd:ee:ff" || s.RxBytes != 123456 || s.TxBytes != 654321 || s.SignalDBM != -54 {
		t.Fatalf("unexpected first station: %+v", s)
	}
	if stations[1].SignalDBM != -71 {
		t.Fatalf("unexpected second station: %+v", stations[1])
	}
}

func TestParseActiveWifiDevice(t *testing.T) {
	out := "eth0:ethernet:connected\nwlan0:wifi:connected\nwlan1:wifi:disconnected\n"
	if dev := parseActiveWifiDevice(out); dev != "wlan0" {
		t.Fatalf("expected wlan0, got %q", dev)
	}
	if dev := parseActiveWifiDevice("eth0:ethernet:connected\n"); dev != "" {
		t.Fatalf("expected no device, got %q", dev)
	}
}
