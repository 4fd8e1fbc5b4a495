// Package daemons supervises the external AP-broadcast and DHCP/DNS
// processes (hostapd, dnsmasq). The engine talks to them only through
// process lifetime and their captured output; everything else is theirs.
package daemons

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"hotspotd/internal/logbuffer"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

var (
	ErrDaemonSpawnFailed = errors.New("failed to spawn daemon")
	ErrDaemonDiedEarly   = errors.New("daemon died during the grace period")
)

const (
	// GracePeriod is how long a freshly spawned daemon must stay alive
	// before the start sequence trusts it.
	GracePeriod = 2 * time.Second

	stopTimeout = 3 * time.Second
	logLines    = 64
)

// Daemon is a supervised child process.
type Daemon struct {
	name string
	cmd  *exec.Cmd
	out  *logbuffer.LineRing
	done chan struct{}
	err  error
}

// Spawn starts the named binary and begins capturing its output.
func Spawn(name string, confPath string, args ...string) (*Daemon, error) {
	d := &Daemon{
		name: name,
		out:  logbuffer.NewLineRing(logLines),
		done: make(chan struct{}),
	}
	d.cmd = exec.Command(name, args...)
	d.cmd.Stdout = d.out
	d.cmd.Stderr = d.out
	if err := d.cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDaemonSpawnFailed, name, err)
	}
	go func() {
		d.err = d.cmd.Wait()
		close(d.done)
	}()
	log.Info().Str("daemon", name).Int("pid", d.cmd.Process.Pid).Str("conf", confPath).Msg("daemon started")
	return d, nil
}

// Alive reports whether the process is still running.
func (d *Daemon) Alive() bool {
	select {
	case <-d.done:
		return false
	default:
		return true
	}
}

// AwaitGrace blocks for the grace period and fails if the daemon exits
// within it. The captured output tail is logged so the cause is visible.
func (d *Daemon) AwaitGrace(ctx context.Context) error {
	select {
	case <-d.done:
		for _, line := range d.out.Tail(10) {
			log.Error().Str("daemon", d.name).Msg(line)
		}
		return fmt.Errorf("%w: %s: %v", ErrDaemonDiedEarly, d.name, d.err)
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(GracePeriod):
		return nil
	}
}

// Stop terminates the daemon: TERM first, KILL when it lingers. Stopping
// an already-dead daemon is a no-op.
func (d *Daemon) Stop() error {
	if !d.Alive() {
		return nil
	}
	_ = d.cmd.Process.Signal(unix.SIGTERM)
	select {
	case <-d.done:
	case <-time.After(stopTimeout):
		_ = d.cmd.Process.Kill()
		<-d.done
	}
	log.Info().Str("daemon", d.name).Msg("daemon stopped")
	return nil
}

// Tail returns the most recent captured output lines.
func (d *Daemon) Tail(n int) []string {
	return d.out.Tail(n)
}

// WriteConf writes a generated config under the runtime dir and returns
// its path.
func WriteConf(dir, name, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}
