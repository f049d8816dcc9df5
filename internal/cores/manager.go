// Package cores manages board-support packages on top of a device adapter:
// it aggregates bundled, installed and searched cores and serializes
// installs.
package cores

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/buckleypaul/boardbridge/internal/device"
	"github.com/buckleypaul/boardbridge/internal/store"
)

const (
	msgUnsupported = "Board package management is only available in the desktop app."
	msgUnavailable = "The Arduino toolchain is not reachable right now."
)

var (
	// ErrInstallInProgress rejects an install while another is pending.
	ErrInstallInProgress = errors.New("another core installation is already in progress")
	// ErrUnsupported is reported when the platform has no core management.
	ErrUnsupported = errors.New(msgUnsupported)
)

// History records install attempts. *store.Store satisfies it.
type History interface {
	AddInstall(r store.InstallRecord) error
}

// State is a snapshot of the manager. Slices are never mutated after the
// snapshot is taken.
type State struct {
	Loading         bool
	Installing      bool
	InstallingCore  string
	InstalledCores  []device.CoreInfo
	InstalledBoards []device.BoardInfo
	BundledCores    []string
	SearchResults   []device.CoreInfo
	Err             string
	CLIAvailable    bool
	CLIVersion      string
}

// Manager is the core manager for one session.
type Manager struct {
	adapter device.Adapter
	history History
	log     zerolog.Logger

	mu      sync.Mutex
	state   State
	seq     uint64
	loading int
}

// New returns a Manager over adapter. history may be nil.
func New(adapter device.Adapter, history History, log zerolog.Logger) *Manager {
	return &Manager{adapter: adapter, history: history, log: log}
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

type snapshot struct {
	available bool
	version   string
	cores     []device.CoreInfo
	boards    []device.BoardInfo
	bundled   []string
}

// Refresh reloads toolchain state. The new snapshot replaces the old one
// only if every fetch succeeds; otherwise the old lists stay and Err is
// set. A refresh that completes after a newer one started is discarded.
func (m *Manager) Refresh(ctx context.Context) error {
	if !device.ManagesCores(m.adapter) {
		m.mu.Lock()
		m.state.Err = msgUnsupported
		m.mu.Unlock()
		return ErrUnsupported
	}

	m.mu.Lock()
	m.seq++
	seq := m.seq
	m.loading++
	m.state.Loading = true
	m.mu.Unlock()

	snap, err := m.fetch(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading--
	m.state.Loading = m.loading > 0

	if seq != m.seq {
		m.log.Debug().Uint64("seq", seq).Uint64("latest", m.seq).Msg("Discarding stale refresh")
		return nil
	}
	if err != nil {
		m.log.Warn().Err(err).Msg("Core refresh failed")
		m.state.Err = msgUnavailable
		return err
	}

	m.state.CLIAvailable = snap.available
	m.state.CLIVersion = snap.version
	m.state.InstalledCores = snap.cores
	m.state.InstalledBoards = snap.boards
	m.state.BundledCores = snap.bundled
	m.state.Err = ""
	return nil
}

func (m *Manager) fetch(ctx context.Context) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		snap.available = m.adapter.CheckArduinoCLI(gctx)
		return nil
	})
	g.Go(func() error {
		v, err := m.adapter.ArduinoCLIVersion(gctx)
		snap.version = v
		return err
	})
	g.Go(func() error {
		snap.cores = m.adapter.ListInstalledCores(gctx)
		return nil
	})
	g.Go(func() error {
		snap.boards = m.adapter.ListInstalledBoards(gctx)
		return nil
	})
	g.Go(func() error {
		snap.bundled = m.adapter.BundledCores(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

// InstallCore installs coreID and refreshes on success. It reports success
// as a boolean; the failure message is available in State().Err. Only one
// install may run at a time: a second call while one is pending fails
// immediately without reaching the adapter.
func (m *Manager) InstallCore(ctx context.Context, coreID string) bool {
	m.mu.Lock()
	if m.state.Installing {
		pending := m.state.InstallingCore
		m.mu.Unlock()
		m.log.Warn().Err(ErrInstallInProgress).Str("core", coreID).Str("pending", pending).Msg("Rejected install")
		return false
	}
	m.state.Installing = true
	m.state.InstallingCore = coreID
	m.state.Err = ""
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.state.Installing = false
		m.state.InstallingCore = ""
		m.mu.Unlock()
	}()

	start := time.Now()
	out, err := m.adapter.InstallCore(ctx, coreID)
	m.recordInstall(coreID, start, out, err)

	if err != nil {
		m.log.Error().Err(err).Str("core", coreID).Msg("Core install failed")
		m.mu.Lock()
		m.state.Err = err.Error()
		m.mu.Unlock()
		return false
	}

	m.log.Info().Str("core", coreID).Dur("took", time.Since(start)).Msg("Core installed")
	if err := m.Refresh(ctx); err != nil {
		m.log.Warn().Err(err).Str("core", coreID).Msg("Refresh after install failed")
	}
	return true
}

// Installing reports whether an install is pending.
func (m *Manager) Installing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Installing
}

func (m *Manager) recordInstall(coreID string, start time.Time, out string, err error) {
	if m.history == nil {
		return
	}
	rec := store.InstallRecord{
		CoreID:    coreID,
		Timestamp: start,
		Success:   err == nil,
		Duration:  time.Since(start).Round(time.Millisecond).String(),
		Output:    out,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if herr := m.history.AddInstall(rec); herr != nil {
		m.log.Warn().Err(herr).Msg("Could not record install")
	}
}

// Search replaces the search results with the cores matching query.
func (m *Manager) Search(ctx context.Context, query string) []device.CoreInfo {
	if !device.ManagesCores(m.adapter) {
		return nil
	}
	found := m.adapter.SearchCores(ctx, query)
	m.mu.Lock()
	m.state.SearchResults = found
	m.mu.Unlock()
	return found
}

// CheckCoreStatus resolves the install state of the core owning fqbn. On a
// platform without core management it returns an empty status at once.
func (m *Manager) CheckCoreStatus(ctx context.Context, fqbn string) device.CoreStatus {
	if !device.ManagesCores(m.adapter) {
		return device.CoreStatus{}
	}
	return m.adapter.CheckCoreStatus(ctx, fqbn)
}

// IsInstalled reports whether coreID is in the installed list.
func (m *Manager) IsInstalled(coreID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.state.InstalledCores {
		if c.ID == coreID {
			return true
		}
	}
	return false
}

// IsBundled reports whether coreID ships with the companion. Bundled does
// not imply installed.
func (m *Manager) IsBundled(coreID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.state.BundledCores {
		if id == coreID {
			return true
		}
	}
	return false
}
