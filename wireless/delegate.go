package wireless

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Delegate is the host's network-management layer (NetworkManager via
// nmcli). It is capability-probed and optional; every caller must cope
// with it being absent.
type Delegate interface {
	Available(ctx context.Context) bool
	ActiveWifiDevice(ctx context.Context) (string, error)
	StartHotspot(ctx context.Context, iface, ssid, passphrase string) error
	StopHotspot(ctx context.Context) error
}

const delegateConnName = "hotspotd-managed"

type nmcliDelegate struct {
	runner Runner
}

func NewDelegate(runner Runner) Delegate {
	return &nmcliDelegate{runner: runner}
}

func (d *nmcliDelegate) Available(ctx context.Context) bool {
	out, err := d.runner.Output(ctx, "nmcli", "-t", "-f", "RUNNING", "general")
	return err == nil && strings.TrimSpace(string(out)) == "running"
}

// ActiveWifiDevice returns the connected Wi-Fi device, if any.
func (d *nmcliDelegate) ActiveWifiDevice(ctx context.Context) (string, error) {
	out, err := d.runner.Output(ctx, "nmcli", "-t", "-f", "DEVICE,TYPE,STATE", "device")
	if err != nil {
		return "", err
	}
	dev := parseActiveWifiDevice(string(out))
	if dev == "" {
		return "", fmt.Errorf("no connected wifi device reported")
	}
	return dev, nil
}

func parseActiveWifiDevice(out string) string {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Split(strings.TrimSpace(line), ":")
		if len(fields) < 3 {
			continue
		}
		if fields[1] == "wifi" && fields[2] == "connected" {
			return fields[0]
		}
	}
	return ""
}

func (d *nmcliDelegate) StartHotspot(ctx context.Context, iface, ssid, passphrase string) error {
	args := []string{"device", "wifi", "hotspot",
		"ifname", iface, "con-name", delegateConnName, "ssid", ssid}
	if passphrase != "" {
		args = append(args, "password", passphrase)
	}
	if _, err := d.runner.Output(ctx, "nmcli", args...); err != nil {
		return fmt.Errorf("network manager refused to create the hotspot: %w", err)
	}
	log.Info().Str("iface", iface).Str("ssid", ssid).Msg("hotspot delegated to network manager")
	return nil
}

func (d *nmcliDelegate) StopHotspot(ctx context.Context) error {
	if _, err := d.runner.Output(ctx, "nmcli", "connection", "down", delegateConnName); err != nil {
		return err
	}
	_, err := d.runner.Output(ctx, "nmcli", "connection", "delete", delegateConnName)
	return err
}
