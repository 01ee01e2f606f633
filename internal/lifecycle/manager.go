// Package lifecycle implements the Lifecycle Manager (C6): start-up crash
// reconciliation, kill/exit sentinel-file handling, and graceful-then-forced
// shutdown sequencing around the Downloader and Inference Supervisor.
package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wingmand/internal/hub"
	"wingmand/internal/store"
	"wingmand/pkg/types"
)

var log *zerolog.Logger

// SetLogger installs a structured logger for the lifecycle package.
func SetLogger(l zerolog.Logger) { log = &l }

func logf() *zerolog.Event {
	if log == nil {
		return nil
	}
	return log.Info()
}

// Service is anything the Lifecycle Manager starts and stops: the
// Downloader and the Inference Supervisor both satisfy this with their
// Run(ctx) methods.
type Service interface {
	Run(ctx context.Context) error
}

// Manager owns the sentinel-file poll loop, the periodic Hub snapshot, and
// the start/stop sequencing of the services given to it.
type Manager struct {
	store    *store.Store
	hub      *hub.Hub
	cfg      Config
	services []Service

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	exitCode     atomicInt
}

// New constructs a Manager around st and the services to supervise.
// Reconciliation runs immediately, before Run is called, so a caller can
// inspect ExitCode() if reconciliation itself demands an unclean exit (a
// kill file left by a prior crash).
func New(st *store.Store, h *hub.Hub, cfg Config, services ...Service) (*Manager, error) {
	cfg = cfg.withDefaults()
	result, err := reconcile(st, cfg.HomeDir)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		store:      st,
		hub:        h,
		cfg:        cfg,
		services:   services,
		shutdownCh: make(chan struct{}),
	}
	if result.killFileFound {
		if result.anyPreparing {
			m.exitCode.set(exitKillDuringLoad)
		} else {
			m.exitCode.set(exitKillDuringInference)
		}
	}
	removeSentinels(cfg.HomeDir)
	return m, nil
}

// ExitCode reports the process exit code reconciliation demands, or 0 for
// an ordinary start-up.
func (m *Manager) ExitCode() int { return m.exitCode.get() }

// AddServices registers additional services to launch when Run is called.
// Separated from New so callers can run reconciliation (and inspect
// ExitCode) before constructing services that depend on its outcome.
func (m *Manager) AddServices(services ...Service) {
	m.services = append(m.services, services...)
}

// RequestShutdown signals a clean shutdown, the same action a SIGINT or the
// exit sentinel file triggers. Safe to call more than once and from any
// goroutine; the Control API's /api/shutdown and the websocket "shutdown"
// message both call this.
func (m *Manager) RequestShutdown() {
	m.shutdownOnce.Do(func() { close(m.shutdownCh) })
}

// Run launches every supervised service on its own goroutine, starts the
// sentinel-poll and Hub-snapshot loops, and blocks until a clean shutdown
// completes or the force-shutdown timeout elapses. It returns the process
// exit code: 0 for an ordinary clean shutdown, or exitKillDuringLoad /
// exitKillDuringInference if a kill file forced termination mid-run.
func (m *Manager) Run(ctx context.Context) int {
	if m.exitCode.get() != 0 {
		return m.exitCode.get()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, svc := range m.services {
		wg.Add(1)
		go func(s Service) {
			defer wg.Done()
			if err := s.Run(runCtx); err != nil {
				if e := logf(); e != nil {
					e.Err(err).Msg("lifecycle: service exited with error")
				}
			}
		}(svc)
	}

	done := make(chan struct{})
	go func() {
		m.sentinelLoop(runCtx)
		close(done)
	}()
	go m.snapshotLoop(runCtx)

	select {
	case <-m.shutdownCh:
	case <-ctx.Done():
	case <-done:
		// A kill file was found mid-run; sentinelLoop already set exitCode.
	}
	if logf() != nil {
		logf().Msg("lifecycle: shutdown initiated")
	}
	cancel()

	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(m.cfg.ForceShutdownWaitTimeout):
		if e := logf(); e != nil {
			e.Msg("lifecycle: force shutdown timeout reached")
		}
	}
	return m.exitCode.get()
}

// sentinelLoop polls for wingman.kill/wingman.exit every
// SentinelPollInterval, grounded on the original control process's
// runtimeMonitoring thread. A kill file found mid-run sets exitCode from
// the active rows' state and triggers an immediate shutdown; an exit file
// is equivalent to RequestShutdown.
func (m *Manager) sentinelLoop(ctx context.Context) {
	killPath := filepath.Join(m.cfg.HomeDir, killFileName)
	exitPath := filepath.Join(m.cfg.HomeDir, exitFileName)
	ticker := time.NewTicker(m.cfg.SentinelPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if _, err := os.Stat(killPath); err == nil {
			active, _ := m.store.Wingmen.GetAllActive()
			anyPreparing := false
			for _, item := range active {
				if item.Status == types.WingmanPreparing {
					anyPreparing = true
				}
			}
			if anyPreparing {
				m.exitCode.set(exitKillDuringLoad)
			} else {
				m.exitCode.set(exitKillDuringInference)
			}
			m.RequestShutdown()
			return
		}
		if _, err := os.Stat(exitPath); err == nil {
			m.RequestShutdown()
			return
		}
	}
}

// snapshotLoop republishes the full state of every entity to the Hub at
// SnapshotInterval, independent of the row-level events the Downloader and
// Inference Supervisor publish as they mutate rows — so a subscriber that
// connects mid-run sees current state within one interval rather than
// waiting for the next mutation.
func (m *Manager) snapshotLoop(ctx context.Context) {
	if m.hub == nil {
		return
	}
	ticker := time.NewTicker(m.cfg.SnapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if downloads, err := m.store.Downloads.GetAll("", ""); err == nil {
			m.hub.Publish(hub.DownloadFrame(downloads))
		}
		if wingmen, err := m.store.Wingmen.GetAll(); err == nil {
			m.hub.Publish(hub.WingmanFrame(wingmen))
		}
		if app, err := m.store.Apps.GetDownloadServerApp(); err == nil {
			m.hub.Publish(hub.AppFrame([]types.DownloadServerAppItem{app}))
		}
		if app, err := m.store.Apps.GetWingmanServiceApp(); err == nil {
			m.hub.Publish(hub.AppFrame([]types.WingmanServiceAppItem{app}))
		}
	}
}
