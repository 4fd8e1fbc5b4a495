package wireless

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"hotspotd/models"
)

var ErrConcurrencyUnsupported = errors.New("radio does not support concurrent STA+AP operation")

var wiphyRegexp = regexp.MustCompile(`(?m)^\s*wiphy\s+(\d+)\s*$`)

// Prober computes the capability verdict for an interface's radio.
// The verdict is computed once per run and never re-evaluated.
type Prober struct {
	runner Runner
}

func NewProber(runner Runner) *Prober {
	return &Prober{runner: runner}
}

// Phy resolves the physical radio backing iface ("phy0", "phy1", ...).
func (p *Prober) Phy(ctx context.Context, iface string) (string, error) {
	out, err := p.runner.Output(ctx, "iw", "dev", iface, "info")
	if err != nil {
		return "", fmt.Errorf("failed to query radio of %s: %w", iface, err)
	}
	m := wiphyRegexp.FindSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("no wiphy index in iw output for %s", iface)
	}
	return "phy" + string(m[1]), nil
}

// Probe checks whether the radio behind iface advertises a valid interface
// combination containing both a managed and an AP mode entry. The verdict
// is immutable; callers must obtain it before any mutation.
func (p *Prober) Probe(ctx context.Context, iface string) (models.Verdict, error) {
	phy, err := p.Phy(ctx, iface)
	if err != nil {
		return models.Verdict{}, err
	}
	out, err := p.runner.Output(ctx, "iw", "phy", phy, "info")
	if err != nil {
		return models.Verdict{}, fmt.Errorf("failed to query %s capabilities: %w", phy, err)
	}
	return models.Verdict{
		Phy:             phy,
		ConcurrentAPSTA: supportsAPSTACombination(string(out)),
	}, nil
}

// supportsAPSTACombination parses the "valid interface combinations" block
// of iw phy output. A combination line is accepted when it lists both a
// managed mode and an AP mode in the same entry, e.g.
//
//	* #{ managed } <= 1, #{ AP, P2P-client, P2P-GO } <= 1,
//	  total <= 3, #channels <= 2
func supportsAPSTACombination(info string) bool {
	inBlock := false
	for _, line := range strings.Split(info, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "valid interface combinations:"):
			inBlock = true
			continue
		case inBlock && strings.HasPrefix(trimmed, "*"):
			if combinationHasManagedAndAP(trimmed) {
				return true
			}
		case inBlock && trimmed != "" && !strings.HasPrefix(trimmed, "*") &&
			!strings.HasPrefix(trimmed, "#") && !strings.HasPrefix(trimmed, "total") &&
			!strings.Contains(trimmed, "<="):
			// next top-level section ends the block
			inBlock = false
		}
	}
	return false
}

func combinationHasManagedAndAP(line string) bool {
	hasManaged := false
	hasAP := false
	for _, set := range strings.Split(line, "#{") {
		end := strings.Index(set, "}")
		if end < 0 {
			continue
		}
		for _, mode := range strings.Split(set[:end], ",") {
			switch strings.TrimSpace(mode) {
			case "managed", "station":
				hasManaged = true
			case "AP":
				hasAP = true
			}
		}
	}
	return hasManaged && hasAP
}
