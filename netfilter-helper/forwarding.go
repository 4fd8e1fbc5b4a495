package netfilterHelper

import (
	"bytes"
	"fmt"
	"os"

	"hotspotd/rollback"

	"github.com/rs/zerolog/log"
)

var ipForwardPath = "/proc/sys/net/ipv4/ip_forward"

// EnableForwarding turns on IPv4 forwarding. The returned compensation is
// nil when forwarding was already enabled: forwarding enabled by someone
// else is never disabled on our way out.
func EnableForwarding() (rollback.Fn, error) {
	current, err := os.ReadFile(ipForwardPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ip_forward: %w", err)
	}
	if bytes.HasPrefix(bytes.TrimSpace(current), []byte("1")) {
		log.Debug().Msg("IPv4 forwarding already enabled, leaving it alone")
		return nil, nil
	}
	if err := os.WriteFile(ipForwardPath, []byte("1\n"), 0o644); err != nil {
		return nil, fmt.Errorf("failed to enable ip_forward: %w", err)
	}
	log.Info().Msg("enabled IPv4 forwarding")
	return func() error {
		return os.WriteFile(ipForwardPath, []byte("0\n"), 0o644)
	}, nil
}
