package netfilterHelper

import (
	"fmt"
	"net"

	"hotspotd/rollback"

	"github.com/google/nftables"
	"github.com/google/nftables/binaryutil"
	"github.com/google/nftables/expr"
)

const nftTableName = "hotspotd"

// nftablesBackend owns a dedicated table; everything it programs lives
// there, so teardown is a single table delete and repeated setup cannot
// accumulate duplicate rules.
type nftablesBackend struct {
	conn    *nftables.Conn
	table   *nftables.Table
	post    *nftables.Chain
	forward *nftables.Chain
	block   *nftables.Chain
}

func newNftablesBackend(conn *nftables.Conn) *nftablesBackend {
	return &nftablesBackend{conn: conn}
}

func (b *nftablesBackend) Name() string { return "nftables" }

// ifname encodes an interface name for meta iifname/oifname comparisons.
func ifname(n string) []byte {
	b := make([]byte, 16)
	copy(b, n)
	return b
}

func (b *nftablesBackend) Setup() (rollback.Fn, error) {
	// a stale table from a crashed run is ours to remove
	tables, err := b.conn.ListTables()
	if err != nil {
		return nil, fmt.Errorf("%w: list tables: %w", ErrRuleApplyFailed, err)
	}
	for _, t := range tables {
		if t.Name == nftTableName && t.Family == nftables.TableFamilyIPv4 {
			b.conn.DelTable(t)
		}
	}

	b.table = b.conn.AddTable(&nftables.Table{
		Family: nftables.TableFamilyIPv4,
		Name:   nftTableName,
	})
	b.post = b.conn.AddChain(&nftables.Chain{
		Name:     "postrouting",
		Table:    b.table,
		Type:     nftables.ChainTypeNAT,
		Hooknum:  nftables.ChainHookPostrouting,
		Priority: nftables.ChainPriorityNATSource,
	})
	b.forward = b.conn.AddChain(&nftables.Chain{
		Name:     "forward",
		Table:    b.table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookForward,
		Priority: nftables.ChainPriorityFilter,
	})
	b.block = b.conn.AddChain(&nftables.Chain{
		Name:  "block",
		Table: b.table,
	})
	b.conn.AddRule(&nftables.Rule{
		Table: b.table,
		Chain: b.forward,
		Exprs: []expr.Any{
			&expr.Verdict{Kind: expr.VerdictJump, Chain: "block"},
		},
	})
	if err := b.conn.Flush(); err != nil {
		return nil, fmt.Errorf("%w: create table %s: %w", ErrRuleApplyFailed, nftTableName, err)
	}
	return func() error {
		b.conn.DelTable(b.table)
		return b.conn.Flush()
	}, nil
}

// addRule commits a single rule and returns a compensation deleting it by
// its kernel-assigned handle.
func (b *nftablesBackend) addRule(chain *nftables.Chain, exprs []expr.Any) (rollback.Fn, error) {
	b.conn.AddRule(&nftables.Rule{Table: b.table, Chain: chain, Exprs: exprs})
	if err := b.conn.Flush(); err != nil {
		return nil, err
	}
	rules, err := b.conn.GetRules(b.table, chain)
	if err != nil || len(rules) == 0 {
		return nil, fmt.Errorf("failed to read back rule handle: %w", err)
	}
	handle := rules[len(rules)-1].Handle
	return func() error {
		if err := b.conn.DelRule(&nftables.Rule{Table: b.table, Chain: chain, Handle: handle}); err != nil {
			return err
		}
		return b.conn.Flush()
	}, nil
}

func (b *nftablesBackend) EnsureMasquerade(wan string) (rollback.Fn, error) {
	undo, err := b.addRule(b.post, []expr.Any{
		&expr.Meta{Key: expr.MetaKeyOIFNAME, Register: 1},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: ifname(wan)},
		&expr.Masq{},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: masquerade out=%s: %w", ErrRuleApplyFailed, wan, err)
	}
	return undo, nil
}

func (b *nftablesBackend) EnsureForward(in, out string, established bool) (rollback.Fn, error) {
	exprs := []expr.Any{
		&expr.Meta{Key: expr.MetaKeyIIFNAME, Register: 1},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: ifname(in)},
		&expr.Meta{Key: expr.MetaKeyOIFNAME, Register: 1},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: ifname(out)},
	}
	if established {
		exprs = append(exprs,
			&expr.Ct{Register: 1, Key: expr.CtKeySTATE},
			&expr.Bitwise{
				SourceRegister: 1,
				DestRegister:   1,
				Len:            4,
				Mask:           binaryutil.NativeEndian.PutUint32(expr.CtStateBitESTABLISHED | expr.CtStateBitRELATED),
				Xor:            binaryutil.NativeEndian.PutUint32(0),
			},
			&expr.Cmp{Op: expr.CmpOpNeq, Register: 1, Data: binaryutil.NativeEndian.PutUint32(0)},
		)
	}
	exprs = append(exprs, &expr.Verdict{Kind: expr.VerdictAccept})

	undo, err := b.addRule(b.forward, exprs)
	if err != nil {
		return nil, fmt.Errorf("%w: forward %s->%s: %w", ErrRuleApplyFailed, in, out, err)
	}
	return undo, nil
}

func (b *nftablesBackend) SyncBlocked(macs []string) error {
	b.conn.FlushChain(b.block)
	for _, mac := range macs {
		hw, err := net.ParseMAC(mac)
		if err != nil {
			return fmt.Errorf("%w: block %s: %w", ErrRuleApplyFailed, mac, err)
		}
		b.conn.AddRule(&nftables.Rule{
			Table: b.table,
			Chain: b.block,
			Exprs: []expr.Any{
				// ether saddr == mac -> drop
				&expr.Payload{DestRegister: 1, Base: expr.PayloadBaseLLHeader, Offset: 6, Len: 6},
				&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: hw},
				&expr.Verdict{Kind: expr.VerdictDrop},
			},
		})
	}
	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("%w: sync blocked set: %w", ErrRuleApplyFailed, err)
	}
	return nil
}

func (b *nftablesBackend) ClearBlocked() error {
	b.conn.FlushChain(b.block)
	return b.conn.Flush()
}
