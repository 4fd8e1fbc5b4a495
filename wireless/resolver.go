package wireless

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"hotspotd/models"

	wildcard "github.com/IGLOU-EU/go-wildcard/v2"
	"github.com/rs/zerolog/log"
	"github.com/vishvananda/netlink"
)

var (
	ErrNoWirelessInterface = errors.New("no usable wireless interface found")
	ErrNoWanRoute          = errors.New("no route to the upstream network")
)

// wanProbeAddr is only used for a kernel route lookup; no packet is sent.
var wanProbeAddr = net.IPv4(1, 1, 1, 1)

// Resolver discovers the STA, WAN and AP-base interfaces for a run.
type Resolver struct {
	runner   Runner
	delegate Delegate
	exclude  []string

	// overridable for tests
	sysNet   string
	routeGet func(ip net.IP) (string, error)
}

func NewResolver(runner Runner, delegate Delegate, exclude []string) *Resolver {
	return &Resolver{
		runner:   runner,
		delegate: delegate,
		exclude:  exclude,
		sysNet:   "/sys/class/net",
		routeGet: routeEgressInterface,
	}
}

func routeEgressInterface(ip net.IP) (string, error) {
	routes, err := netlink.RouteGet(ip)
	if err != nil || len(routes) == 0 {
		return "", fmt.Errorf("route lookup failed: %w", err)
	}
	link, err := netlink.LinkByIndex(routes[0].LinkIndex)
	if err != nil {
		return "", fmt.Errorf("failed to resolve egress link: %w", err)
	}
	return link.Attrs().Name, nil
}

// radioInterfaces enumerates wireless interfaces, honoring the exclude
// patterns. Sorted so the "first match wins" contract is stable.
func (r *Resolver) radioInterfaces() ([]string, error) {
	entries, err := os.ReadDir(r.sysNet)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate interfaces: %w", err)
	}
	var radios []string
	for _, e := range entries {
		name := e.Name()
		if r.excluded(name) {
			continue
		}
		if _, err := os.Stat(filepath.Join(r.sysNet, name, "wireless")); err == nil {
			radios = append(radios, name)
		}
	}
	sort.Strings(radios)
	return radios, nil
}

func (r *Resolver) excluded(name string) bool {
	for _, pattern := range r.exclude {
		if wildcard.Match(pattern, name) {
			return true
		}
	}
	return false
}

// associated reports whether iface currently has an active association.
func (r *Resolver) associated(ctx context.Context, iface string) bool {
	out, err := r.runner.Output(ctx, "iw", "dev", iface, "link")
	if err != nil {
		return false
	}
	return !strings.HasPrefix(strings.TrimSpace(string(out)), "Not connected")
}

// Resolve finds the STA, WAN and AP-base interfaces. userSTA/userWAN are
// explicit overrides and win over detection. The STA detection order is:
// explicit input, then the network-management delegate, then the first
// radio interface with an active association.
func (r *Resolver) Resolve(ctx context.Context, userSTA, userWAN string) (models.Resolution, error) {
	radios, err := r.radioInterfaces()
	if err != nil {
		return models.Resolution{}, err
	}
	if len(radios) == 0 {
		return models.Resolution{}, ErrNoWirelessInterface
	}

	sta := userSTA
	if sta == "" && r.delegate != nil {
		if dev, err := r.delegate.ActiveWifiDevice(ctx); err == nil && dev != "" {
			sta = dev
			log.Debug().Str("iface", sta).Msg("STA interface reported by network manager")
		}
	}
	if sta == "" {
		for _, iface := range radios {
			if r.associated(ctx, iface) {
				sta = iface
				log.Debug().Str("iface", sta).Msg("STA interface detected by association probe")
				break
			}
		}
	}
	if sta == "" {
		return models.Resolution{}, ErrNoWirelessInterface
	}

	wan := userWAN
	if wan == "" {
		wan, err = r.routeGet(wanProbeAddr)
		if err != nil {
			return models.Resolution{}, fmt.Errorf("%w: %w", ErrNoWanRoute, err)
		}
	}

	res := models.Resolution{STA: sta, WAN: wan}
	res.APBase, res.SharedRadio = pickAPBase(radios, wan, sta)
	if res.SharedRadio {
		log.Info().Str("iface", res.APBase).
			Msg("single radio detected; sharing the upstream interface for STA+AP")
	}
	return res, nil
}

// pickAPBase prefers a radio with no other role; a radio already serving as
// the STA (or even the WAN itself, when it is the only radio) is reused for
// a combined role, which the caller reports as an informational note.
func pickAPBase(radios []string, wan, sta string) (string, bool) {
	for _, iface := range radios {
		if iface != wan && iface != sta {
			return iface, false
		}
	}
	for _, iface := range radios {
		if iface != wan {
			return iface, true
		}
	}
	return radios[0], true
}
