// Package shaping builds the per-device traffic-shaping hierarchy: an HTB
// tree on the AP interface for traffic toward clients, and a mirrored one
// on an IFB device that receives the AP interface's ingress traffic via a
// redirect, making upload shapeable as egress.
//
// The hierarchy is never patched incrementally. Every policy change tears
// it down and rebuilds it, so the live state is always a pure function of
// the current policy.
package shaping

import (
	"sort"

	"hotspotd/models"
)

const (
	rootMajor    uint16 = 1
	defaultMinor uint16 = 1
	classBase    uint16 = 0x10

	// effectively-unshaped rate used for the default class and for
	// priority devices without a rate entry
	unlimitedBps uint64 = 1_000_000_000

	prioHigh    uint32 = 1
	prioNormal  uint32 = 5
	prioDefault uint32 = 7
)

type classSpec struct {
	Minor   uint16
	RateBps uint64
	CeilBps uint64
	Prio    uint32
}

type filterSpec struct {
	MAC   string
	Minor uint16
}

// plan is the declarative form of one direction of the hierarchy; both
// directions share it and differ only in which MAC side the filter matches.
type plan struct {
	Classes []classSpec
	Filters []filterSpec
}

type ratePrio struct {
	rate uint64
	prio uint32
}

// buildPlan derives the class and filter set from the policy. The result
// is deterministic: identical policies produce identical plans, element
// order included. Blocked devices get no filter at all; the firewall drops
// them outright.
func buildPlan(p models.Policy) plan {
	entries := map[string]ratePrio{}
	for mac, rate := range p.Rates {
		if p.IsBlocked(mac) {
			continue
		}
		prio := prioNormal
		if p.IsPriority(mac) {
			prio = prioHigh
		}
		entries[mac] = ratePrio{rate: rate, prio: prio}
	}
	for _, mac := range p.Priority {
		if p.IsBlocked(mac) {
			continue
		}
		if _, ok := entries[mac]; !ok {
			entries[mac] = ratePrio{rate: unlimitedBps, prio: prioHigh}
		}
	}

	// one class per distinct (rate, priority) pair
	distinct := map[ratePrio]struct{}{}
	for _, e := range entries {
		distinct[e] = struct{}{}
	}
	pairs := make([]ratePrio, 0, len(distinct))
	for rp := range distinct {
		pairs = append(pairs, rp)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].prio != pairs[j].prio {
			return pairs[i].prio < pairs[j].prio
		}
		return pairs[i].rate < pairs[j].rate
	})

	var out plan
	minorOf := map[ratePrio]uint16{}
	for i, rp := range pairs {
		minor := classBase + uint16(i)
		minorOf[rp] = minor
		out.Classes = append(out.Classes, classSpec{
			Minor:   minor,
			RateBps: rp.rate,
			CeilBps: ceilFor(rp.rate),
			Prio:    rp.prio,
		})
	}

	macs := make([]string, 0, len(entries))
	for mac := range entries {
		macs = append(macs, mac)
	}
	sort.Strings(macs)
	for _, mac := range macs {
		out.Filters = append(out.Filters, filterSpec{MAC: mac, Minor: minorOf[entries[mac]]})
	}
	return out
}

// ceilFor grants a burst allowance of twice the guaranteed rate, capped at
// the unlimited rate.
func ceilFor(rate uint64) uint64 {
	if rate >= unlimitedBps/2 {
		return unlimitedBps
	}
	return rate * 2
}
