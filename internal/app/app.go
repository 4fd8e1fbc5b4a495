package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"hotspotd/constant"
	"hotspotd/daemons"
	"hotspotd/internal/logbuffer"
	"hotspotd/models"
	netfilterHelper "hotspotd/netfilter-helper"
	"hotspotd/policy"
	"hotspotd/rollback"
	"hotspotd/shaping"
	"hotspotd/wireless"

	"github.com/rs/zerolog/log"
)

var (
	ErrAlreadyRunning = errors.New("hotspot already running")
	ErrNotRunning     = errors.New("hotspot not running")
	ErrWeakPassphrase = errors.New("passphrase must be at least 8 characters or empty for an open network")

	ErrConfigUnsupportedVersion = errors.New("config unsupported version")
)

var defaultAppConfig = models.App{
	Hotspot: models.Hotspot{
		SSID:        "hotspotd",
		Passphrase:  "",
		Channel:     6,
		Gateway:     "192.168.18.1/24",
		LeaseTime:   "12h",
		UpstreamDNS: "1.1.1.1",
	},
	Interfaces: models.Interfaces{
		Exclude: []string{"p2p-*", "ifb*", "lo"},
	},
	HTTPAPI: models.HTTPAPI{
		Enabled: false,
		Host:    models.APIServer{Address: "127.0.0.1", Port: 8737},
	},
	LogLevel: "info",
}

// narrow views of the collaborators, so tests can stand in for the kernel
// and the external tools

type resolver interface {
	Resolve(ctx context.Context, userSTA, userWAN string) (models.Resolution, error)
}

type prober interface {
	Probe(ctx context.Context, iface string) (models.Verdict, error)
}

type lifecycle interface {
	CreateVirtualAP(ctx context.Context, base string) (models.Interface, error)
	Destroy(iface models.Interface) error
	BringUp(name string) error
	AssignAddr(name, cidr string) error
	FlushAddr(name string) error
	Stations(ctx context.Context, iface string) ([]models.Station, error)
}

type shaper interface {
	Rebuild(p models.Policy) error
	Teardown() error
}

type daemonHandle interface {
	Alive() bool
	AwaitGrace(ctx context.Context) error
	Stop() error
	Tail(n int) []string
}

// App is the hotspot core: it sequences resolution, capability checking,
// interface lifecycle, NAT, shaping and the external daemons, and drains
// the compensation log on the way down.
type App struct {
	mu     sync.Mutex
	config models.App
	store  *policy.Store
	logs   *logbuffer.RingBuffer

	resolver      resolver
	prober        prober
	lifecycle     lifecycle
	delegate      wireless.Delegate
	probeFirewall func() (netfilterHelper.Backend, error)
	newShaper     func(iface string) shaper
	spawnHostapd  func(runDir, iface, ssid, pass string, channel int) (daemonHandle, error)
	spawnDnsmasq  func(runDir, iface string, gw net.IP, lease, dns string) (daemonHandle, error)
	enableFwd     func() (rollback.Fn, error)
	runDir        string

	// per-run state, valid between StartHotspot and the following drain
	state          State
	log            *rollback.Log
	res            models.Resolution
	apIface        string
	delegateActive bool
	fw             netfilterHelper.Backend
	shaper         shaper
}

// New wires the real collaborators.
func New() (*App, error) {
	runner := wireless.NewRunner()
	delegate := wireless.NewDelegate(runner)
	a := &App{
		config:        defaultAppConfig,
		logs:          logbuffer.NewRingBuffer(256),
		prober:        wireless.NewProber(runner),
		lifecycle:     wireless.NewLifecycle(runner),
		delegate:      delegate,
		probeFirewall: netfilterHelper.Probe,
		newShaper:     func(iface string) shaper { return shaping.New(iface) },
		spawnHostapd: func(runDir, iface, ssid, pass string, channel int) (daemonHandle, error) {
			return daemons.SpawnHostapd(runDir, iface, ssid, pass, channel)
		},
		spawnDnsmasq: func(runDir, iface string, gw net.IP, lease, dns string) (daemonHandle, error) {
			return daemons.SpawnDnsmasq(runDir, iface, gw, lease, dns)
		},
		enableFwd: netfilterHelper.EnableForwarding,
		runDir:    constant.RunDir + "/hotspotd",
		state:     StateIdle,
		log:       rollback.New(),
	}
	if err := a.LoadConfig(); err != nil {
		log.Error().Err(err).Msg("failed to load config file, using defaults")
	}
	a.resolver = wireless.NewResolver(runner, delegate, a.config.Interfaces.Exclude)

	store, err := policy.Load(constant.AppDataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy store: %w", err)
	}
	a.store = store
	return a, nil
}

// Config returns the active configuration.
func (a *App) Config() models.App {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config
}

// Logs returns the daemon log ring buffer (also wired as a zerolog hook).
func (a *App) Logs() *logbuffer.RingBuffer {
	return a.logs
}

// Policy returns the current policy snapshot.
func (a *App) Policy() models.Policy {
	return a.store.Snapshot()
}

// ListInterfaces enumerates the host's network interfaces.
func (a *App) ListInterfaces() ([]net.Interface, error) {
	return net.Interfaces()
}
