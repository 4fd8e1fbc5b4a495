package app

import (
	"context"
	"fmt"

	"hotspotd/daemons"
	"hotspotd/models"
	"hotspotd/rollback"
	"hotspotd/wireless"

	"github.com/rs/zerolog/log"
)

// StartHotspot runs the full startup sequence. Validation happens before
// any system mutation; once mutation begins, every successful step records
// its compensation and any later failure drains the log in reverse order.
func (a *App) StartHotspot(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateIdle {
		return ErrAlreadyRunning
	}

	pass := a.config.Hotspot.Passphrase
	if len(pass) > 0 && len(pass) < 8 {
		return ErrWeakPassphrase
	}

	res, err := a.resolver.Resolve(ctx, a.config.Interfaces.STA, a.config.Interfaces.WAN)
	if err != nil {
		return err
	}
	verdict, err := a.prober.Probe(ctx, res.APBase)
	if err != nil {
		return err
	}
	if !verdict.ConcurrentAPSTA {
		return fmt.Errorf("%w: %s", wireless.ErrConcurrencyUnsupported, verdict.Phy)
	}
	a.res = res
	a.log = rollback.New()
	a.setState(StateCapabilityChecked)

	if err := a.startLocked(ctx); err != nil {
		undone := a.log.Drain()
		log.Error().Err(err).Int("compensations", undone).
			Msg("hotspot startup failed, changes rolled back")
		a.resetLocked()
		return err
	}
	a.setState(StateRunning)
	log.Info().
		Str("ap", a.apIface).
		Str("wan", a.res.WAN).
		Bool("delegate", a.delegateActive).
		Msg("hotspot is up")
	return nil
}

func (a *App) startLocked(ctx context.Context) error {
	if a.config.Hotspot.PreferDelegate && a.delegate != nil && a.delegate.Available(ctx) {
		err := a.startDelegateLocked(ctx)
		if err == nil {
			return a.applyNetworkLocked(ctx)
		}
		log.Warn().Err(err).Msg("delegate hotspot failed, falling back to self-hosted")
	}
	if err := a.startSelfHostedLocked(ctx); err != nil {
		return err
	}
	if err := a.applyNetworkLocked(ctx); err != nil {
		return err
	}
	return a.startDaemonsLocked(ctx)
}

// startDelegateLocked hands the access point itself to the host network
// manager. NAT and shaping still run locally on top of the delegate's
// interface.
func (a *App) startDelegateLocked(ctx context.Context) error {
	h := a.config.Hotspot
	if err := a.delegate.StartHotspot(ctx, a.res.APBase, h.SSID, h.Passphrase); err != nil {
		return err
	}
	a.log.Push("stop delegate hotspot", func() error {
		return a.delegate.StopHotspot(context.Background())
	})
	a.apIface = a.res.APBase
	a.delegateActive = true
	a.setState(StateDelegateHotspotActive)
	return nil
}

func (a *App) startSelfHostedLocked(ctx context.Context) error {
	iface, err := a.lifecycle.CreateVirtualAP(ctx, a.res.APBase)
	if err != nil {
		return err
	}
	a.log.Push("destroy virtual AP interface", func() error {
		return a.lifecycle.Destroy(iface)
	})
	a.apIface = iface.Name
	a.setState(StateInterfaceCreated)

	if err := a.lifecycle.AssignAddr(iface.Name, a.config.Hotspot.Gateway); err != nil {
		return err
	}
	a.log.Push("flush AP addresses", func() error {
		return a.lifecycle.FlushAddr(iface.Name)
	})
	if err := a.lifecycle.BringUp(iface.Name); err != nil {
		// hostapd brings the interface up itself once it binds
		log.Warn().Err(err).Str("iface", iface.Name).Msg("failed to bring AP interface up")
	}
	return nil
}

// applyNetworkLocked programs NAT, forwarding, the blocked-MAC deny set
// and the traffic shaping hierarchy on the AP interface.
func (a *App) applyNetworkLocked(ctx context.Context) error {
	fw, err := a.probeFirewall()
	if err != nil {
		return err
	}
	a.fw = fw

	steps := []struct {
		name string
		run  func() (rollback.Fn, error)
	}{
		{"remove firewall scaffolding", fw.Setup},
		{"remove masquerade rule", func() (rollback.Fn, error) {
			return fw.EnsureMasquerade(a.res.WAN)
		}},
		{"remove downstream forward rule", func() (rollback.Fn, error) {
			return fw.EnsureForward(a.res.WAN, a.apIface, true)
		}},
		{"remove upstream forward rule", func() (rollback.Fn, error) {
			return fw.EnsureForward(a.apIface, a.res.WAN, false)
		}},
		{"restore ip_forward", a.enableFwd},
	}
	for _, step := range steps {
		comp, err := step.run()
		if err != nil {
			return err
		}
		if comp != nil {
			a.log.Push(step.name, comp)
		}
	}

	if err := fw.SyncBlocked(a.store.Snapshot().Blocked); err != nil {
		return err
	}
	a.log.Push("clear blocked MACs", fw.ClearBlocked)
	a.setState(StateRuleEngineApplied)

	sh := a.newShaper(a.apIface)
	if err := sh.Rebuild(a.store.Snapshot()); err != nil {
		return err
	}
	a.shaper = sh
	a.log.Push("tear down traffic shaping", sh.Teardown)
	a.setState(StateShapingApplied)
	return nil
}

func (a *App) startDaemonsLocked(ctx context.Context) error {
	h := a.config.Hotspot

	hostapd, err := a.spawnHostapd(a.runDir, a.apIface, h.SSID, h.Passphrase, h.Channel)
	if err != nil {
		return err
	}
	a.log.Push("stop hostapd", hostapd.Stop)

	gw, err := wireless.GatewayIP(h.Gateway)
	if err != nil {
		return err
	}
	dnsmasq, err := a.spawnDnsmasq(a.runDir, a.apIface, gw, h.LeaseTime, h.UpstreamDNS)
	if err != nil {
		return err
	}
	a.log.Push("stop dnsmasq", dnsmasq.Stop)
	a.setState(StateDaemonsRunning)

	// a daemon that dies inside the grace window means a broken setup, not
	// a transient crash: fail the whole start
	for _, d := range []struct {
		name   string
		handle daemonHandle
	}{{"hostapd", hostapd}, {"dnsmasq", dnsmasq}} {
		if err := d.handle.AwaitGrace(ctx); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	return nil
}

// StopHotspot drains the compensation log, undoing every recorded mutation
// in reverse order. Individual compensation failures are logged and skipped.
func (a *App) StopHotspot(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateIdle {
		return ErrNotRunning
	}
	a.setState(StateStopping)
	undone := a.log.Drain()
	log.Info().Int("compensations", undone).Msg("hotspot stopped")
	a.resetLocked()
	return nil
}

// Clients lists the stations currently associated with the AP interface.
func (a *App) Clients(ctx context.Context) ([]models.Station, error) {
	a.mu.Lock()
	iface := a.apIface
	running := a.state == StateRunning
	a.mu.Unlock()
	if !running {
		return nil, ErrNotRunning
	}
	return a.lifecycle.Stations(ctx, iface)
}

func (a *App) setState(s State) {
	log.Debug().Stringer("from", a.state).Stringer("to", s).Msg("state transition")
	a.state = s
}

func (a *App) resetLocked() {
	a.state = StateIdle
	a.res = models.Resolution{}
	a.apIface = ""
	a.delegateActive = false
	a.fw = nil
	a.shaper = nil
}

var _ daemonHandle = (*daemons.Daemon)(nil)
