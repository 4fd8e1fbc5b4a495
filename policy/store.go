// Package policy persists the per-device QoS policy: the blocked-MAC list,
// the MAC→rate list and the priority-MAC list. Each list is a line-oriented
// file under the config directory, read once at startup and rewritten
// wholesale on every mutation.
package policy

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"hotspotd/models"

	"github.com/rs/zerolog/log"
)

const (
	blockedFile  = "blocked.list"
	ratesFile    = "qos.list"
	priorityFile = "priority.list"
)

var ErrBadMAC = errors.New("invalid MAC address")

// Store is the single owner of the persisted policy. All mutating methods
// persist before returning; callers rebuild derived state from Snapshot.
type Store struct {
	mu       sync.Mutex
	dir      string
	blocked  map[string]struct{}
	rates    map[string]uint64
	priority map[string]struct{}
}

// Load reads the three policy lists from dir, creating the directory if
// needed. Unparseable lines are logged and skipped, never fatal.
func Load(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create policy dir: %w", err)
	}
	s := &Store{
		dir:      dir,
		blocked:  map[string]struct{}{},
		rates:    map[string]uint64{},
		priority: map[string]struct{}{},
	}
	if err := s.readList(blockedFile, func(fields []string) error {
		mac, err := normalizeMAC(fields[0])
		if err != nil {
			return err
		}
		s.blocked[mac] = struct{}{}
		return nil
	}); err != nil {
		return nil, err
	}
	if err := s.readList(ratesFile, func(fields []string) error {
		if len(fields) < 2 {
			return errors.New("missing rate")
		}
		mac, err := normalizeMAC(fields[0])
		if err != nil {
			return err
		}
		rate, err := ParseRate(fields[1])
		if err != nil {
			return err
		}
		// last line wins on duplicate MACs
		s.rates[mac] = rate
		return nil
	}); err != nil {
		return nil, err
	}
	if err := s.readList(priorityFile, func(fields []string) error {
		mac, err := normalizeMAC(fields[0])
		if err != nil {
			return err
		}
		s.priority[mac] = struct{}{}
		return nil
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) readList(name string, each func(fields []string) error) error {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := each(strings.Fields(line)); err != nil {
			log.Warn().Str("file", name).Str("line", line).Err(err).Msg("skipping bad policy line")
		}
	}
	return sc.Err()
}

func (s *Store) writeList(name string, lines []string) error {
	path := filepath.Join(s.dir, name)
	data := strings.Join(lines, "\n")
	if data != "" {
		data += "\n"
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func normalizeMAC(s string) (string, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(s))
	if err != nil || len(hw) != 6 {
		return "", fmt.Errorf("%w: %q", ErrBadMAC, s)
	}
	return hw.String(), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns an independent copy of the current policy.
func (s *Store) Snapshot() models.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	rates := make(map[string]uint64, len(s.rates))
	for k, v := range s.rates {
		rates[k] = v
	}
	return models.Policy{
		Blocked:  sortedKeys(s.blocked),
		Rates:    rates,
		Priority: sortedKeys(s.priority),
	}
}

// Block adds mac to the blocked list and persists it.
func (s *Store) Block(mac string) error {
	m, err := normalizeMAC(mac)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked[m] = struct{}{}
	return s.writeList(blockedFile, sortedKeys(s.blocked))
}

// Unblock removes mac from the blocked list and persists it. Unblocking an
// unknown MAC is not an error.
func (s *Store) Unblock(mac string) error {
	m, err := normalizeMAC(mac)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blocked, m)
	return s.writeList(blockedFile, sortedKeys(s.blocked))
}

// SetRate sets the rate limit for mac (last write wins) and persists it.
func (s *Store) SetRate(mac, rate string) error {
	m, err := normalizeMAC(mac)
	if err != nil {
		return err
	}
	bps, err := ParseRate(rate)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[m] = bps
	return s.persistRates()
}

func (s *Store) persistRates() error {
	lines := make([]string, 0, len(s.rates))
	for _, mac := range sortedKeys(s.rates) {
		lines = append(lines, mac+" "+FormatRate(s.rates[mac]))
	}
	return s.writeList(ratesFile, lines)
}

// SetPriority adds mac to the priority list and persists it.
func (s *Store) SetPriority(mac string) error {
	m, err := normalizeMAC(mac)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priority[m] = struct{}{}
	return s.writeList(priorityFile, sortedKeys(s.priority))
}

// ClearPriority removes mac from the priority list and persists it.
// Clearing an unknown MAC is not an error.
func (s *Store) ClearPriority(mac string) error {
	m, err := normalizeMAC(mac)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.priority, m)
	return s.writeList(priorityFile, sortedKeys(s.priority))
}

// Reset clears all three lists and persists the empty state.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked = map[string]struct{}{}
	s.rates = map[string]uint64{}
	s.priority = map[string]struct{}{}
	var errs []error
	errs = append(errs, s.writeList(blockedFile, nil))
	errs = append(errs, s.persistRates())
	errs = append(errs, s.writeList(priorityFile, nil))
	return errors.Join(errs...)
}
