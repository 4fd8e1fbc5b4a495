package netfilterHelper

import (
	"fmt"

	"hotspotd/rollback"

	"github.com/coreos/go-iptables/iptables"
)

const blockChain = "HSD_BLOCK"

// xtables is the slice of go-iptables this backend needs; a fake stands in
// for it in tests.
type xtables interface {
	AppendUnique(table, chain string, rulespec ...string) error
	InsertUnique(table, chain string, pos int, rulespec ...string) error
	DeleteIfExists(table, chain string, rulespec ...string) error
	Append(table, chain string, rulespec ...string) error
	ClearChain(table, chain string) error
	ClearAndDeleteChain(table, chain string) error
}

type iptablesBackend struct {
	ipt xtables
}

func newIptablesBackend(ipt xtables) *iptablesBackend {
	return &iptablesBackend{ipt: ipt}
}

func (b *iptablesBackend) Name() string { return "iptables" }

// Setup creates the block chain and hooks it in front of FORWARD.
// ClearChain doubles as an existence-tolerant create on go-iptables.
func (b *iptablesBackend) Setup() (rollback.Fn, error) {
	if err := b.ipt.ClearChain("filter", blockChain); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrRuleApplyFailed, blockChain, err)
	}
	jump := []string{"-j", blockChain}
	if err := b.ipt.InsertUnique("filter", "FORWARD", 1, jump...); err != nil {
		return nil, fmt.Errorf("%w: hook %s: %w", ErrRuleApplyFailed, blockChain, err)
	}
	return func() error {
		if err := b.ipt.DeleteIfExists("filter", "FORWARD", jump...); err != nil {
			return err
		}
		return b.ipt.ClearAndDeleteChain("filter", blockChain)
	}, nil
}

func (b *iptablesBackend) EnsureMasquerade(wan string) (rollback.Fn, error) {
	spec := []string{"-o", wan, "-j", "MASQUERADE"}
	if err := b.ipt.AppendUnique("nat", "POSTROUTING", spec...); err != nil {
		return nil, fmt.Errorf("%w: masquerade out=%s: %w", ErrRuleApplyFailed, wan, err)
	}
	return func() error {
		return b.ipt.DeleteIfExists("nat", "POSTROUTING", spec...)
	}, nil
}

func (b *iptablesBackend) EnsureForward(in, out string, established bool) (rollback.Fn, error) {
	spec := forwardRuleSpec(in, out, established)
	if err := b.ipt.AppendUnique("filter", "FORWARD", spec...); err != nil {
		return nil, fmt.Errorf("%w: forward %s->%s: %w", ErrRuleApplyFailed, in, out, err)
	}
	return func() error {
		return b.ipt.DeleteIfExists("filter", "FORWARD", spec...)
	}, nil
}

func forwardRuleSpec(in, out string, established bool) []string {
	spec := []string{"-i", in, "-o", out}
	if established {
		spec = append(spec, "-m", "conntrack", "--ctstate", "RELATED,ESTABLISHED")
	}
	return append(spec, "-j", "ACCEPT")
}

// SyncBlocked rewrites the block chain wholesale; the chain is small and a
// wholesale rewrite keeps it a pure function of the policy.
func (b *iptablesBackend) SyncBlocked(macs []string) error {
	if err := b.ipt.ClearChain("filter", blockChain); err != nil {
		return fmt.Errorf("%w: clear %s: %w", ErrRuleApplyFailed, blockChain, err)
	}
	for _, mac := range macs {
		if err := b.ipt.Append("filter", blockChain, "-m", "mac", "--mac-source", mac, "-j", "DROP"); err != nil {
			return fmt.Errorf("%w: block %s: %w", ErrRuleApplyFailed, mac, err)
		}
	}
	return nil
}

func (b *iptablesBackend) ClearBlocked() error {
	return b.ipt.ClearChain("filter", blockChain)
}

var _ xtables = (*iptables.IPTables)(nil)
