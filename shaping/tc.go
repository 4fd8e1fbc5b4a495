package shaping

import (
	"errors"
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netlink/nl"
	"golang.org/x/sys/unix"
)

// tcOps is the traffic-control backend. netlinkTC is the real
// implementation; tests drive the Shaper through a recording fake.
type tcOps interface {
	// EnsureIFB creates (or reuses) the IFB device and brings it up.
	// created reports whether this call created it.
	EnsureIFB(name string) (created bool, err error)
	DeleteIFB(name string) error

	// ClearRoot and ClearIngress remove the root/ingress qdiscs and with
	// them every class and filter below; both tolerate absence.
	ClearRoot(iface string) error
	ClearIngress(iface string) error

	// AddRoot installs an HTB root qdisc with its catch-all default class.
	AddRoot(iface string, defaultRate uint64) error
	AddClass(iface string, class classSpec) error

	// AddMACFilter routes traffic for mac into the class. srcMAC selects
	// which ethernet address side is matched: source on the IFB (mirrored
	// ingress), destination on the AP egress side.
	AddMACFilter(iface string, mac string, minor uint16, srcMAC bool, pref uint16) error

	// AddIngressRedirect installs an ingress qdisc on from and a matchall
	// filter redirecting everything into to.
	AddIngressRedirect(from, to string) error
}

type netlinkTC struct{}

func (netlinkTC) EnsureIFB(name string) (bool, error) {
	if link, err := netlink.LinkByName(name); err == nil {
		return false, netlink.LinkSetUp(link)
	}
	ifb := &netlink.Ifb{LinkAttrs: netlink.LinkAttrs{Name: name}}
	if err := netlink.LinkAdd(ifb); err != nil {
		return false, fmt.Errorf("failed to create ifb device %s: %w", name, err)
	}
	if err := netlink.LinkSetUp(ifb); err != nil {
		return true, fmt.Errorf("failed to bring up %s: %w", name, err)
	}
	return true, nil
}

func (netlinkTC) DeleteIFB(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		if errors.As(err, &netlink.LinkNotFoundError{}) {
			return nil
		}
		return err
	}
	return netlink.LinkDel(link)
}

func (netlinkTC) ClearRoot(iface string) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return nil
	}
	// removing the root qdisc drops all classes and filters with it;
	// "not found" just means there was nothing to clear
	_ = netlink.QdiscDel(&netlink.GenericQdisc{
		QdiscAttrs: netlink.QdiscAttrs{
			LinkIndex: link.Attrs().Index,
			Handle:    netlink.MakeHandle(rootMajor, 0),
			Parent:    netlink.HANDLE_ROOT,
		},
		QdiscType: "htb",
	})
	return nil
}

func (netlinkTC) ClearIngress(iface string) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return nil
	}
	_ = netlink.QdiscDel(&netlink.Ingress{
		QdiscAttrs: netlink.QdiscAttrs{
			LinkIndex: link.Attrs().Index,
			Handle:    netlink.MakeHandle(0xffff, 0),
			Parent:    netlink.HANDLE_INGRESS,
		},
	})
	return nil
}

func (netlinkTC) AddRoot(iface string, defaultRate uint64) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", iface, err)
	}
	htb := netlink.NewHtb(netlink.QdiscAttrs{
		LinkIndex: link.Attrs().Index,
		Handle:    netlink.MakeHandle(rootMajor, 0),
		Parent:    netlink.HANDLE_ROOT,
	})
	htb.Defcls = uint32(defaultMinor)
	if err := netlink.QdiscAdd(htb); err != nil {
		return fmt.Errorf("failed to add htb root on %s: %w", iface, err)
	}
	defClass := netlink.NewHtbClass(
		netlink.ClassAttrs{
			LinkIndex: link.Attrs().Index,
			Handle:    netlink.MakeHandle(rootMajor, defaultMinor),
			Parent:    netlink.MakeHandle(rootMajor, 0),
		},
		netlink.HtbClassAttrs{Rate: defaultRate, Ceil: defaultRate, Prio: prioDefault},
	)
	if err := netlink.ClassAdd(defClass); err != nil {
		return fmt.Errorf("failed to add default class on %s: %w", iface, err)
	}
	return nil
}

func (netlinkTC) AddClass(iface string, class classSpec) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", iface, err)
	}
	c := netlink.NewHtbClass(
		netlink.ClassAttrs{
			LinkIndex: link.Attrs().Index,
			Handle:    netlink.MakeHandle(rootMajor, class.Minor),
			Parent:    netlink.MakeHandle(rootMajor, 0),
		},
		netlink.HtbClassAttrs{Rate: class.RateBps, Ceil: class.CeilBps, Prio: class.Prio},
	)
	if err := netlink.ClassAdd(c); err != nil {
		return fmt.Errorf("failed to add class 1:%x on %s: %w", class.Minor, iface, err)
	}
	return nil
}

func (netlinkTC) AddMACFilter(iface string, mac string, minor uint16, srcMAC bool, pref uint16) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", iface, err)
	}
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return fmt.Errorf("bad MAC %q: %w", mac, err)
	}
	keys := dstMACKeys(hw)
	if srcMAC {
		keys = srcMACKeys(hw)
	}
	filter := &netlink.U32{
		FilterAttrs: netlink.FilterAttrs{
			LinkIndex: link.Attrs().Index,
			Parent:    netlink.MakeHandle(rootMajor, 0),
			Priority:  pref,
			Protocol:  unix.ETH_P_ALL,
		},
		ClassId: netlink.MakeHandle(rootMajor, minor),
		Sel: &netlink.TcU32Sel{
			Flags: nl.TC_U32_TERMINAL,
			Nkeys: uint8(len(keys)),
			Keys:  keys,
		},
	}
	if err := netlink.FilterAdd(filter); err != nil {
		return fmt.Errorf("failed to add filter for %s on %s: %w", mac, iface, err)
	}
	return nil
}

func (netlinkTC) AddIngressRedirect(from, to string) error {
	src, err := netlink.LinkByName(from)
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", from, err)
	}
	dst, err := netlink.LinkByName(to)
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", to, err)
	}
	ingress := &netlink.Ingress{
		QdiscAttrs: netlink.QdiscAttrs{
			LinkIndex: src.Attrs().Index,
			Handle:    netlink.MakeHandle(0xffff, 0),
			Parent:    netlink.HANDLE_INGRESS,
		},
	}
	if err := netlink.QdiscAdd(ingress); err != nil {
		return fmt.Errorf("failed to add ingress qdisc on %s: %w", from, err)
	}
	redirect := &netlink.MatchAll{
		FilterAttrs: netlink.FilterAttrs{
			LinkIndex: src.Attrs().Index,
			Parent:    netlink.MakeHandle(0xffff, 0),
			Priority:  1,
			Protocol:  unix.ETH_P_ALL,
		},
		Actions: []netlink.Action{netlink.NewMirredAction(dst.Attrs().Index)},
	}
	if err := netlink.FilterAdd(redirect); err != nil {
		return fmt.Errorf("failed to redirect %s ingress into %s: %w", from, to, err)
	}
	return nil
}

// u32 ethernet matching works on 32-bit words at negative offsets relative
// to the network header: the 14-byte ethernet header sits at -14..-1, so
// the destination MAC occupies -14..-9 and the source MAC -8..-3.

func srcMACKeys(hw net.HardwareAddr) []netlink.TcU32Key {
	return []netlink.TcU32Key{
		{
			Val:  uint32(hw[0])<<24 | uint32(hw[1])<<16 | uint32(hw[2])<<8 | uint32(hw[3]),
			Mask: 0xffffffff,
			Off:  -8,
		},
		{
			Val:  uint32(hw[4])<<24 | uint32(hw[5])<<16,
			Mask: 0xffff0000,
			Off:  -4,
		},
	}
}

func dstMACKeys(hw net.HardwareAddr) []netlink.TcU32Key {
	return []netlink.TcU32Key{
		{
			Val:  uint32(hw[0])<<8 | uint32(hw[1]),
			Mask: 0x0000ffff,
			Off:  -16,
		},
		{
			Val:  uint32(hw[2])<<24 | uint32(hw[3])<<16 | uint32(hw[4])<<8 | uint32(hw[5]),
			Mask: 0xffffffff,
			Off:  -12,
		},
	}
}
