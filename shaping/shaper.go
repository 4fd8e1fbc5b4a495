package shaping

import (
	"errors"
	"fmt"

	"hotspotd/models"

	"github.com/rs/zerolog/log"
)

var ErrShapingRebuildFailed = errors.New("failed to rebuild shaping hierarchy")

// filterPrefBase keeps filter preferences clear of the redirect filter and
// stable across rebuilds.
const filterPrefBase = 10

// Shaper owns the shaping state on the AP interface and its IFB twin.
type Shaper struct {
	tc     tcOps
	base   string
	ifb    string
	ownIFB bool
}

// New returns a Shaper for the AP interface. Nothing is touched until the
// first Rebuild.
func New(apIface string) *Shaper {
	return &Shaper{tc: netlinkTC{}, base: apIface, ifb: ifbName(apIface)}
}

// ifbName derives the IFB device name from the shaped interface, capped at
// the kernel's 15-byte limit.
func ifbName(iface string) string {
	name := "ifb" + iface
	if len(name) > 15 {
		name = name[:15]
	}
	return name
}

// IFB exposes the ingress-redirect device name.
func (s *Shaper) IFB() string { return s.ifb }

// Rebuild tears down any existing hierarchy and recreates it from the
// policy. On any mid-rebuild failure the partial hierarchy is removed
// before the error is returned: the caller observes last-known-good or
// fully-torn-down, never a half-built tree.
func (s *Shaper) Rebuild(p models.Policy) error {
	if err := s.rebuild(p); err != nil {
		s.teardown()
		return fmt.Errorf("%w: %w", ErrShapingRebuildFailed, err)
	}
	return nil
}

func (s *Shaper) rebuild(p models.Policy) error {
	s.teardownQdiscs()

	// ownership must be recorded even when bring-up fails after creation,
	// so the failure-path teardown deletes the device we made
	created, err := s.tc.EnsureIFB(s.ifb)
	if created {
		s.ownIFB = true
	}
	if err != nil {
		return err
	}

	if err := s.tc.AddRoot(s.base, unlimitedBps); err != nil {
		return err
	}
	if err := s.tc.AddRoot(s.ifb, unlimitedBps); err != nil {
		return err
	}
	if err := s.tc.AddIngressRedirect(s.base, s.ifb); err != nil {
		return err
	}

	plan := buildPlan(p)
	for _, iface := range []string{s.base, s.ifb} {
		for _, class := range plan.Classes {
			if err := s.tc.AddClass(iface, class); err != nil {
				return err
			}
		}
	}
	for i, f := range plan.Filters {
		pref := uint16(filterPrefBase + i)
		// toward the client on the AP side, from the client on the IFB side
		if err := s.tc.AddMACFilter(s.base, f.MAC, f.Minor, false, pref); err != nil {
			return err
		}
		if err := s.tc.AddMACFilter(s.ifb, f.MAC, f.Minor, true, pref); err != nil {
			return err
		}
	}

	log.Debug().Str("iface", s.base).Str("ifb", s.ifb).
		Int("classes", len(plan.Classes)).Int("filters", len(plan.Filters)).
		Msg("shaping hierarchy rebuilt")
	return nil
}

func (s *Shaper) teardownQdiscs() {
	_ = s.tc.ClearIngress(s.base)
	_ = s.tc.ClearRoot(s.base)
	_ = s.tc.ClearRoot(s.ifb)
}

func (s *Shaper) teardown() {
	s.teardownQdiscs()
	if s.ownIFB {
		if err := s.tc.DeleteIFB(s.ifb); err != nil {
			log.Warn().Err(err).Str("ifb", s.ifb).Msg("failed to delete ifb device")
		} else {
			s.ownIFB = false
		}
	}
}

// Teardown removes the whole hierarchy and the IFB device if this Shaper
// created it. Safe to call when nothing was ever built.
func (s *Shaper) Teardown() error {
	s.teardown()
	return nil
}
