package app

import (
	"errors"

	"github.com/rs/zerolog/log"
)

// Policy commands mutate the persistent store first, then re-apply the
// derived kernel state when the hotspot is running. They work offline too:
// with the hotspot down only the store changes, and the next start picks
// the policy up.

func (a *App) Block(mac string) error {
	if err := a.store.Block(mac); err != nil {
		return err
	}
	return a.reapplyPolicy()
}

func (a *App) Unblock(mac string) error {
	if err := a.store.Unblock(mac); err != nil {
		return err
	}
	return a.reapplyPolicy()
}

func (a *App) SetRate(mac, rate string) error {
	if err := a.store.SetRate(mac, rate); err != nil {
		return err
	}
	return a.reapplyPolicy()
}

func (a *App) SetPriority(mac string, enabled bool) error {
	var err error
	if enabled {
		err = a.store.SetPriority(mac)
	} else {
		err = a.store.ClearPriority(mac)
	}
	if err != nil {
		return err
	}
	return a.reapplyPolicy()
}

func (a *App) ResetPolicy() error {
	if err := a.store.Reset(); err != nil {
		return err
	}
	return a.reapplyPolicy()
}

// reapplyPolicy pushes the current policy snapshot into the firewall deny
// set and rebuilds the shaping hierarchy. A re-apply failure is logged but
// does not unwind the store mutation: the store is the source of truth and
// the kernel converges on the next successful rebuild.
func (a *App) reapplyPolicy() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateRunning {
		return nil
	}
	p := a.store.Snapshot()
	var errs []error
	if a.fw != nil {
		errs = append(errs, a.fw.SyncBlocked(p.Blocked))
	}
	if a.shaper != nil {
		errs = append(errs, a.shaper.Rebuild(p))
	}
	if err := errors.Join(errs...); err != nil {
		log.Error().Err(err).Msg("failed to re-apply policy to running hotspot")
		return err
	}
	return nil
}
