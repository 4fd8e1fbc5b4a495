package policy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrBadRate = errors.New("invalid rate")

var rateUnits = map[string]uint64{
	"bit":  1,
	"kbit": 1_000,
	"mbit": 1_000_000,
	"gbit": 1_000_000_000,
}

// ParseRate parses a tc-style rate string ("2mbit", "512kbit", "1gbit")
// into bits per second. A bare number is taken as bits per second.
func ParseRate(s string) (uint64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrBadRate)
	}
	num := s
	unit := "bit"
	for u := range rateUnits {
		if strings.HasSuffix(s, u) && len(s) > len(u) {
			// "bit" is a suffix of "kbit" etc., prefer the longest match
			if len(u) > len(unit) || unit == "bit" {
				num = s[:len(s)-len(u)]
				unit = u
			}
		}
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadRate, s)
	}
	return uint64(v * float64(rateUnits[unit])), nil
}

// FormatRate renders bits/s back into the largest exact tc unit.
func FormatRate(bps uint64) string {
	switch {
	case bps >= 1_000_000_000 && bps%1_000_000_000 == 0:
		return strconv.FormatUint(bps/1_000_000_000, 10) + "gbit"
	case bps >= 1_000_000 && bps%1_000_000 == 0:
		return strconv.FormatUint(bps/1_000_000, 10) + "mbit"
	case bps >= 1_000 && bps%1_000 == 0:
		return strconv.FormatUint(bps/1_000, 10) + "kbit"
	default:
		return strconv.FormatUint(bps, 10) + "bit"
	}
}
