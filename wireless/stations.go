package wireless

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"hotspotd/models"
)

// Stations lists the clients currently associated with iface.
func (l *Lifecycle) Stations(ctx context.Context, iface string) ([]models.Station, error) {
	out, err := l.runner.Output(ctx, "iw", "dev", iface, "station", "dump")
	if err != nil {
		return nil, fmt.Errorf("station dump failed on %s: %w", iface, err)
	}
	return parseStationDump(string(out)), nil
}

// parseStationDump extracts per-station MAC, signal and byte counters from
// iw station dump output.
func parseStationDump(out string) []models.Station {
	var stations []models.Station
	var cur *models.Station
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "Station "); ok {
			if cur != nil {
				stations = append(stations, *cur)
			}
			// trimmed is whitespace-trimmed, so rest has a non-space char
			cur = &models.Station{MAC: strings.Fields(rest)[0]}
			continue
		}
		if cur == nil {
			continue
		}
		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "signal":
			// "-54 [-60, -55] dBm"
			if f := strings.Fields(value); len(f) > 0 {
				if v, err := strconv.Atoi(f[0]); err == nil {
					cur.SignalDBM = v
				}
			}
		case "rx bytes":
			if v, err := strconv.ParseUint(value, 10, 64); err == nil {
				cur.RxBytes = v
			}
		case "tx bytes":
			if v, err := strconv.ParseUint(value, 10, 64); err == nil {
				cur.TxBytes = v
			}
		}
	}
	if cur != nil {
		stations = append(stations, *cur)
	}
	return stations
}
