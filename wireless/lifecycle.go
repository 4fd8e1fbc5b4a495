package wireless

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"

	"hotspotd/models"

	"github.com/rs/zerolog/log"
	"github.com/vishvananda/netlink"
)

var ErrInterfaceCreateFailed = errors.New("failed to create virtual AP interface")

// maxNameProbes bounds the deterministic suffix sequence before the name
// falls back to a random one.
const maxNameProbes = 5

// Lifecycle creates and destroys the virtual AP interface and handles
// address/admin-state operations on interfaces the hotspot touches.
type Lifecycle struct {
	runner Runner

	linkExists func(name string) bool
}

func NewLifecycle(runner Runner) *Lifecycle {
	return &Lifecycle{runner: runner, linkExists: linkExists}
}

func linkExists(name string) bool {
	_, err := netlink.LinkByName(name)
	return err == nil
}

// apNameCandidates derives the candidate names for the virtual AP interface
// bound to base: the plain "ap" prefix first, then a bounded numeric
// sequence.
// Kernel interface names are capped at 15 bytes.
func apNameCandidates(base string) []string {
	if len(base) > 12 {
		base = base[:12]
	}
	candidates := []string{"ap" + base}
	for i := 0; i < maxNameProbes; i++ {
		candidates = append(candidates, fmt.Sprintf("ap%d%s", i, base))
	}
	return candidates
}

func randomAPName() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return "ap" + hex.EncodeToString(b)
}

// pickAPName returns the first candidate that does not collide with an
// existing interface, falling back to a random name. A name collision is
// never fatal by itself.
func (l *Lifecycle) pickAPName(base string) string {
	for _, name := range apNameCandidates(base) {
		if !l.linkExists(name) {
			return name
		}
	}
	return randomAPName()
}

// CreateVirtualAP adds an AP-mode virtual interface on base's radio.
// The returned descriptor is owned: the caller must register destruction
// as a compensation before running any subsequent step.
func (l *Lifecycle) CreateVirtualAP(ctx context.Context, base string) (models.Interface, error) {
	name := l.pickAPName(base)
	if _, err := l.runner.Output(ctx, "iw", "dev", base, "interface", "add", name, "type", "__ap"); err != nil {
		return models.Interface{}, fmt.Errorf("%w: base %s: %w", ErrInterfaceCreateFailed, base, err)
	}
	log.Info().Str("iface", name).Str("base", base).Msg("created virtual AP interface")
	return models.Interface{Name: name, Role: models.RoleAP, Owned: true}, nil
}

// Destroy removes an owned interface. Missing interfaces are not an error:
// compensations must tolerate already-absent state.
func (l *Lifecycle) Destroy(iface models.Interface) error {
	if !iface.Owned {
		return fmt.Errorf("refusing to destroy unowned interface %s", iface.Name)
	}
	link, err := netlink.LinkByName(iface.Name)
	if err != nil {
		if errors.As(err, &netlink.LinkNotFoundError{}) {
			return nil
		}
		return fmt.Errorf("failed to look up %s: %w", iface.Name, err)
	}
	if err := netlink.LinkDel(link); err != nil {
		return fmt.Errorf("failed to delete %s: %w", iface.Name, err)
	}
	log.Info().Str("iface", iface.Name).Msg("destroyed virtual AP interface")
	return nil
}

// BringUp sets the interface administratively up. Idempotent; failure is
// reported but callers treat it as non-fatal since address assignment may
// re-attempt later.
func (l *Lifecycle) BringUp(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", name, err)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("failed to bring up %s: %w", name, err)
	}
	return nil
}

// AssignAddr replaces the interface's IPv4 address with cidr.
func (l *Lifecycle) AssignAddr(name, cidr string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", name, err)
	}
	addr, err := netlink.ParseAddr(cidr)
	if err != nil {
		return fmt.Errorf("bad gateway address %q: %w", cidr, err)
	}
	if err := netlink.AddrReplace(link, addr); err != nil {
		return fmt.Errorf("failed to assign %s to %s: %w", cidr, name, err)
	}
	return nil
}

// FlushAddr removes all IPv4 addresses from the interface.
func (l *Lifecycle) FlushAddr(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		if errors.As(err, &netlink.LinkNotFoundError{}) {
			return nil
		}
		return fmt.Errorf("failed to look up %s: %w", name, err)
	}
	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return fmt.Errorf("failed to list addresses of %s: %w", name, err)
	}
	var errs []error
	for i := range addrs {
		errs = append(errs, netlink.AddrDel(link, &addrs[i]))
	}
	return errors.Join(errs...)
}

// GatewayIP extracts the plain IP from a gateway CIDR.
func GatewayIP(cidr string) (net.IP, error) {
	ip, _, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("bad gateway address %q: %w", cidr, err)
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("gateway address %q is not IPv4", cidr)
	}
	return ip4, nil
}
