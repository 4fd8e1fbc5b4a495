// Package netfilterHelper programs the masquerade and forward rules that
// bridge hotspot clients onto the upstream interface, plus the blocked-MAC
// hard deny. Two interchangeable backends exist: an nftables backend owning
// a dedicated table, and a legacy iptables backend. The backend is chosen
// by capability probing, never by the user; nftables wins when both work.
package netfilterHelper

import (
	"errors"
	"fmt"

	"hotspotd/rollback"

	"github.com/coreos/go-iptables/iptables"
	"github.com/google/nftables"
	"github.com/rs/zerolog/log"
)

var ErrRuleApplyFailed = errors.New("failed to apply firewall rule")

// Backend is the narrow surface the orchestrator drives. Every Ensure*
// call is idempotent (applying twice leaves one rule) and returns the
// compensation that removes exactly what it ensured.
type Backend interface {
	Name() string

	// Setup creates backend scaffolding (table, chains, the block-chain
	// jump). Its compensation tears that scaffolding down.
	Setup() (rollback.Fn, error)

	// EnsureMasquerade ensures masquerade(out=wan).
	EnsureMasquerade(wan string) (rollback.Fn, error)

	// EnsureForward ensures forward(in=in, out=out), optionally restricted
	// to established/related connections.
	EnsureForward(in, out string, established bool) (rollback.Fn, error)

	// SyncBlocked replaces the hard-deny set with macs. Blocked devices
	// are dropped in the forward path, not rate-limited.
	SyncBlocked(macs []string) error
	ClearBlocked() error
}

// Probe picks the firewall backend available on this host.
func Probe() (Backend, error) {
	if nft, err := probeNftables(); err == nil {
		log.Debug().Msg("using nftables firewall backend")
		return nft, nil
	}
	if ipt, err := probeIptables(); err == nil {
		log.Debug().Msg("using iptables firewall backend")
		return ipt, nil
	}
	return nil, fmt.Errorf("%w: neither nftables nor iptables is usable", ErrRuleApplyFailed)
}

func probeNftables() (Backend, error) {
	conn, err := nftables.New()
	if err != nil {
		return nil, err
	}
	if _, err := conn.ListTables(); err != nil {
		return nil, err
	}
	return newNftablesBackend(conn), nil
}

func probeIptables() (Backend, error) {
	ipt, err := iptables.New()
	if err != nil {
		return nil, err
	}
	if _, err := ipt.ListChains("filter"); err != nil {
		return nil, err
	}
	return newIptablesBackend(ipt), nil
}
