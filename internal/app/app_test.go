package app

import (
	"context"
	"errors"
	"net"
	"testing"

	"hotspotd/internal/logbuffer"
	"hotspotd/models"
	netfilterHelper "hotspotd/netfilter-helper"
	"hotspotd/policy"
	"hotspotd/rollback"
	"hotspotd/wireless"
)

type fakeResolver struct {
	res    models.Resolution
	err    error
	called int
}

func (f *fakeResolver) Resolve(_ context.Context, _, _ string) (models.Resolution, error) {
	f.called++
	return f.res, f.err
}

type fakeProber struct {
	verdict models.Verdict
	err     error
}

func (f *fakeProber) Probe(_ context.Context, _ string) (models.Verdict, error) {
	return f.verdict, f.err
}

type fakeLifecycle struct {
	created   int
	destroyed int
	assigned  []string
	flushed   int
	createErr error
	stations  []models.Station
}

func (f *fakeLifecycle) CreateVirtualAP(_ context.Context, base string) (models.Interface, error) {
	if f.createErr != nil {
		return models.Interface{}, f.createErr
	}
	f.created++
	return models.Interface{Name: "ap" + base, Role: models.RoleAP, Owned: true}, nil
}

func (f *fakeLifecycle) Destroy(iface models.Interface) error {
	if !iface.Owned {
		return errors.New("unowned")
	}
	f.destroyed++
	return nil
}

func (f *fakeLifecycle) BringUp(string) error { return nil }

func (f *fakeLifecycle) AssignAddr(name, cidr string) error {
	f.assigned = append(f.assigned, name+" "+cidr)
	return nil
}

func (f *fakeLifecycle) FlushAddr(string) error {
	f.flushed++
	return nil
}

func (f *fakeLifecycle) Stations(context.Context, string) ([]models.Station, error) {
	return f.stations, nil
}

type fakeFirewall struct {
	setups   int
	masq     int
	forwards int
	synced   [][]string
	cleared  int
	undone   []string
	syncErr  error
}

func (f *fakeFirewall) Name() string { return "fake" }

func (f *fakeFirewall) comp(name string) rollback.Fn {
	return func() error {
		f.undone = append(f.undone, name)
		return nil
	}
}

func (f *fakeFirewall) Setup() (rollback.Fn, error) {
	f.setups++
	return f.comp("setup"), nil
}

func (f *fakeFirewall) EnsureMasquerade(string) (rollback.Fn, error) {
	f.masq++
	return f.comp("masquerade"), nil
}

func (f *fakeFirewall) EnsureForward(string, string, bool) (rollback.Fn, error) {
	f.forwards++
	return f.comp("forward"), nil
}

func (f *fakeFirewall) SyncBlocked(macs []string) error {
	if f.syncErr != nil {
		return f.syncErr
	}
	f.synced = append(f.synced, macs)
	return nil
}

func (f *fakeFirewall) ClearBlocked() error {
	f.cleared++
	return nil
}

type fakeShaper struct {
	rebuilds   []models.Policy
	teardowns  int
	rebuildErr error
}

func (f *fakeShaper) Rebuild(p models.Policy) error {
	if f.rebuildErr != nil {
		return f.rebuildErr
	}
	f.rebuilds = append(f.rebuilds, p)
	return nil
}

func (f *fakeShaper) Teardown() error {
	f.teardowns++
	return nil
}

type fakeDaemon struct {
	graceErr error
	stopped  int
}

func (f *fakeDaemon) Alive() bool { return f.stopped == 0 }

func (f *fakeDaemon) AwaitGrace(context.Context) error { return f.graceErr }

func (f *fakeDaemon) Stop() error { f.stopped++; return nil }

func (f *fakeDaemon) Tail(int) []string { return nil }

type fakeDelegate struct {
	available bool
	startErr  error
	started   int
	stopped   int
}

func (f *fakeDelegate) Available(context.Context) bool { return f.available }

func (f *fakeDelegate) ActiveWifiDevice(context.Context) (string, error) { return "", nil }

func (f *fakeDelegate) StartHotspot(_ context.Context, _, _, _ string) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started++
	return nil
}

func (f *fakeDelegate) StopHotspot(context.Context) error {
	f.stopped++
	return nil
}

type fixture struct {
	app       *App
	resolver  *fakeResolver
	prober    *fakeProber
	lifecycle *fakeLifecycle
	fw        *fakeFirewall
	shaper    *fakeShaper
	hostapd   *fakeDaemon
	dnsmasq   *fakeDaemon
	delegate  *fakeDelegate
	fwdOn     int
	fwdOff    int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := policy.Load(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create policy store: %v", err)
	}
	f := &fixture{
		resolver: &fakeResolver{res: models.Resolution{
			STA: "wlan0", WAN: "eth0", APBase: "wlan1",
		}},
		prober:    &fakeProber{verdict: models.Verdict{Phy: "phy1", ConcurrentAPSTA: true}},
		lifecycle: &fakeLifecycle{},
		fw:        &fakeFirewall{},
		shaper:    &fakeShaper{},
		hostapd:   &fakeDaemon{},
		dnsmasq:   &fakeDaemon{},
		delegate:  &fakeDelegate{},
	}
	cfg := defaultAppConfig
	cfg.Hotspot.Passphrase = "hunter2hunter2"
	f.app = &App{
		config:        cfg,
		store:         store,
		logs:          logbuffer.NewRingBuffer(16),
		resolver:      f.resolver,
		prober:        f.prober,
		lifecycle:     f.lifecycle,
		delegate:      f.delegate,
		probeFirewall: func() (netfilterHelper.Backend, error) { return f.fw, nil },
		newShaper:     func(string) shaper { return f.shaper },
		spawnHostapd: func(_, _, _, _ string, _ int) (daemonHandle, error) {
			return f.hostapd, nil
		},
		spawnDnsmasq: func(_, _ string, _ net.IP, _, _ string) (daemonHandle, error) {
			return f.dnsmasq, nil
		},
		enableFwd: func() (rollback.Fn, error) {
			f.fwdOn++
			return func() error { f.fwdOff++; return nil }, nil
		},
		runDir: t.TempDir(),
		state:  StateIdle,
		log:    rollback.New(),
	}
	return f
}

func TestStartRejectsWeakPassphrase(t *testing.T) {
	f := newFixture(t)
	f.app.config.Hotspot.Passphrase = "short"
	err := f.app.StartHotspot(context.Background())
	if !errors.Is(err, ErrWeakPassphrase) {
		t.Fatalf("expected ErrWeakPassphrase, got %v", err)
	}
	if f.resolver.called != 0 {
		t.Fatal("resolution must not run before validation passes")
	}
}

func TestStartOpenNetworkAllowed(t *testing.T) {
	f := newFixture(t)
	f.app.config.Hotspot.Passphrase = ""
	if err := f.app.StartHotspot(context.Background()); err != nil {
		t.Fatalf("open network start failed: %v", err)
	}
}

func TestStartConcurrencyUnsupportedMutatesNothing(t *testing.T) {
	f := newFixture(t)
	f.resolver.res.SharedRadio = true
	f.prober.verdict.ConcurrentAPSTA = false
	err := f.app.StartHotspot(context.Background())
	if !errors.Is(err, wireless.ErrConcurrencyUnsupported) {
		t.Fatalf("expected ErrConcurrencyUnsupported, got %v", err)
	}
	if f.lifecycle.created != 0 || f.fw.setups != 0 || f.fwdOn != 0 {
		t.Fatal("capability failure must leave the system untouched")
	}
	if got := f.app.Status(); got.State != "idle" {
		t.Fatalf("state = %s, want idle", got.State)
	}
}

func TestStartConcurrencyUnsupportedDistinctRadio(t *testing.T) {
	// the verdict gates the start even when the AP rides its own radio
	f := newFixture(t)
	f.prober.verdict.ConcurrentAPSTA = false
	err := f.app.StartHotspot(context.Background())
	if !errors.Is(err, wireless.ErrConcurrencyUnsupported) {
		t.Fatalf("expected ErrConcurrencyUnsupported, got %v", err)
	}
	if f.lifecycle.created != 0 || f.fw.setups != 0 || f.fwdOn != 0 {
		t.Fatal("capability failure must leave the system untouched")
	}
}

func TestStartSelfHostedSequence(t *testing.T) {
	f := newFixture(t)
	if err := f.app.StartHotspot(context.Background()); err != nil {
		t.Fatalf("StartHotspot failed: %v", err)
	}
	st := f.app.Status()
	if !st.Running || st.AP != "apwlan1" || st.WAN != "eth0" {
		t.Fatalf("unexpected status: %+v", st)
	}
	if f.lifecycle.created != 1 {
		t.Fatalf("virtual AP created %d times, want 1", f.lifecycle.created)
	}
	if f.fw.setups != 1 || f.fw.masq != 1 || f.fw.forwards != 2 {
		t.Fatalf("firewall calls setup=%d masq=%d forwards=%d, want 1/1/2",
			f.fw.setups, f.fw.masq, f.fw.forwards)
	}
	if f.fwdOn != 1 {
		t.Fatal("ip_forward not enabled")
	}
	if len(f.fw.synced) != 1 || len(f.shaper.rebuilds) != 1 {
		t.Fatalf("blocked sync=%d shaping rebuilds=%d, want 1/1",
			len(f.fw.synced), len(f.shaper.rebuilds))
	}
	if err := f.app.StartHotspot(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second start: expected ErrAlreadyRunning, got %v", err)
	}
}

func TestStartRollsBackWhenDaemonDiesInGrace(t *testing.T) {
	f := newFixture(t)
	f.dnsmasq.graceErr = errors.New("exited during grace period")
	err := f.app.StartHotspot(context.Background())
	if err == nil {
		t.Fatal("expected start to fail")
	}
	if f.lifecycle.destroyed != 1 {
		t.Fatal("virtual AP not destroyed on rollback")
	}
	if f.hostapd.stopped != 1 || f.dnsmasq.stopped != 1 {
		t.Fatalf("daemons not stopped: hostapd=%d dnsmasq=%d",
			f.hostapd.stopped, f.dnsmasq.stopped)
	}
	if f.shaper.teardowns != 1 || f.fw.cleared != 1 || f.fwdOff != 1 {
		t.Fatalf("kernel state not unwound: shaping=%d blocked=%d fwd=%d",
			f.shaper.teardowns, f.fw.cleared, f.fwdOff)
	}
	// scaffolding removal must run last of the firewall compensations
	if len(f.fw.undone) == 0 || f.fw.undone[len(f.fw.undone)-1] != "setup" {
		t.Fatalf("compensation order wrong: %v", f.fw.undone)
	}
	if got := f.app.Status(); got.State != "idle" {
		t.Fatalf("state = %s, want idle after rollback", got.State)
	}
}

func TestStopDrainsEverything(t *testing.T) {
	f := newFixture(t)
	if err := f.app.StartHotspot(context.Background()); err != nil {
		t.Fatalf("StartHotspot failed: %v", err)
	}
	if err := f.app.StopHotspot(context.Background()); err != nil {
		t.Fatalf("StopHotspot failed: %v", err)
	}
	if f.lifecycle.destroyed != 1 || f.shaper.teardowns != 1 ||
		f.hostapd.stopped != 1 || f.dnsmasq.stopped != 1 || f.fwdOff != 1 {
		t.Fatal("stop did not undo every recorded mutation")
	}
	if err := f.app.StopHotspot(context.Background()); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("second stop: expected ErrNotRunning, got %v", err)
	}
}

func TestDelegatePathSkipsSelfHostedPieces(t *testing.T) {
	f := newFixture(t)
	f.app.config.Hotspot.PreferDelegate = true
	f.delegate.available = true
	if err := f.app.StartHotspot(context.Background()); err != nil {
		t.Fatalf("StartHotspot failed: %v", err)
	}
	if f.delegate.started != 1 {
		t.Fatal("delegate hotspot not started")
	}
	if f.lifecycle.created != 0 || f.hostapd.stopped != 0 {
		t.Fatal("delegate path must not create interfaces or spawn daemons")
	}
	// NAT and shaping still apply on top of the delegate's interface
	if f.fw.masq != 1 || len(f.shaper.rebuilds) != 1 {
		t.Fatal("NAT/shaping missing on delegate path")
	}
	st := f.app.Status()
	if !st.Delegate || st.AP != "wlan1" {
		t.Fatalf("unexpected status: %+v", st)
	}
	if err := f.app.StopHotspot(context.Background()); err != nil {
		t.Fatalf("StopHotspot failed: %v", err)
	}
	if f.delegate.stopped != 1 {
		t.Fatal("delegate hotspot not stopped on drain")
	}
}

func TestDelegateFailureFallsBackToSelfHosted(t *testing.T) {
	f := newFixture(t)
	f.app.config.Hotspot.PreferDelegate = true
	f.delegate.available = true
	f.delegate.startErr = errors.New("nmcli refused")
	if err := f.app.StartHotspot(context.Background()); err != nil {
		t.Fatalf("StartHotspot failed: %v", err)
	}
	if f.lifecycle.created != 1 {
		t.Fatal("fallback did not run the self-hosted path")
	}
	if f.app.Status().Delegate {
		t.Fatal("status must not claim delegate mode after fallback")
	}
}

func TestPolicyCommandsOfflineOnlyTouchStore(t *testing.T) {
	f := newFixture(t)
	if err := f.app.Block("aa:bb:cc:dd:ee:ff"); err != nil {
		t.Fatalf("Block failed while idle: %v", err)
	}
	if len(f.fw.synced) != 0 || len(f.shaper.rebuilds) != 0 {
		t.Fatal("idle policy mutation must not touch kernel state")
	}
	if !f.app.Policy().IsBlocked("aa:bb:cc:dd:ee:ff") {
		t.Fatal("store not updated")
	}
}

func TestPolicyReappliedWhileRunning(t *testing.T) {
	f := newFixture(t)
	if err := f.app.StartHotspot(context.Background()); err != nil {
		t.Fatalf("StartHotspot failed: %v", err)
	}
	if err := f.app.Block("aa:bb:cc:dd:ee:ff"); err != nil {
		t.Fatalf("Block failed: %v", err)
	}
	last := f.fw.synced[len(f.fw.synced)-1]
	if len(last) != 1 || last[0] != "aa:bb:cc:dd:ee:ff" {
		t.Fatalf("deny set not resynced: %v", last)
	}
	if err := f.app.SetRate("11:22:33:44:55:66", "2mbit"); err != nil {
		t.Fatalf("SetRate failed: %v", err)
	}
	lastPlan := f.shaper.rebuilds[len(f.shaper.rebuilds)-1]
	if lastPlan.Rates["11:22:33:44:55:66"] != 2_000_000 {
		t.Fatalf("shaping not rebuilt with new rate: %+v", lastPlan)
	}
	if err := f.app.ResetPolicy(); err != nil {
		t.Fatalf("ResetPolicy failed: %v", err)
	}
	last = f.fw.synced[len(f.fw.synced)-1]
	if len(last) != 0 {
		t.Fatalf("reset did not clear the deny set: %v", last)
	}
}

func TestStartFailsCleanWhenShapingBreaks(t *testing.T) {
	f := newFixture(t)
	f.shaper.rebuildErr = errors.New("htb refused")
	if err := f.app.StartHotspot(context.Background()); err == nil {
		t.Fatal("expected start to fail")
	}
	if f.lifecycle.destroyed != 1 || f.fw.cleared != 1 || f.fwdOff != 1 {
		t.Fatal("partial state left behind after shaping failure")
	}
	if f.hostapd.stopped != 0 {
		t.Fatal("daemons must never have been spawned")
	}
}
