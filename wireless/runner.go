// Package wireless discovers the STA/WAN interfaces, verifies the radio can
// run STA+AP concurrently, and manages the virtual AP interface. rtnetlink
// operations go through vishvananda/netlink; nl80211-only operations
// (virtual interface creation, phy introspection, station dumps) go through
// the iw binary, which is treated as an external capability.
package wireless

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an external tool and returns its combined output.
// It exists so command-driven logic stays testable without the tools.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s %s: %w (%s)", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}
