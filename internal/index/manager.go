package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// Engine answers questions against the current index. Satisfied by
// answer.Engine; defined here so the manager can be tested with a stub.
type Engine interface {
	Answer(ctx context.Context, question string) string
}

// Builder rebuilds the index from the document folder. Satisfied by *Indexer.
type Builder interface {
	IndexFolder(ctx context.Context) (*IndexResult, error)
}

// Store is the subset of the knowledge store the manager drives.
type Store interface {
	Count() int
	Reset() error
}

// EngineFactory builds a query engine over the live store. Called whenever
// the manager transitions an index into memory.
type EngineFactory func() Engine

// lockFileName is the advisory lock taken during rebuilds so two processes
// sharing a persist directory cannot rebuild concurrently.
const lockFileName = ".rebuild.lock"

// Manager owns the index/engine cache and its lifecycle, replacing ambient
// global state with an explicitly passed object. It decides, per request,
// whether the cached engine is reusable, loadable from disk, or must be
// rebuilt from the document folder.
//
// All state transitions are serialized by a mutex; concurrent requests during
// a rebuild block until it finishes.
type Manager struct {
	mu         sync.Mutex
	dataDir    string
	persistDir string
	markerPath string
	store      Store
	builder    Builder
	newEngine  EngineFactory
	logger     *slog.Logger

	engine     Engine // nil when no index is loaded or no data exists
	lastResult *IndexResult
}

// ManagerConfig contains the dependencies for NewManager.
type ManagerConfig struct {
	DataDir    string
	PersistDir string
	MarkerPath string
	Store      Store
	Builder    Builder
	NewEngine  EngineFactory
	Logger     *slog.Logger
}

// NewManager creates an index manager. All fields of cfg except Logger are
// required.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Builder == nil {
		return nil, fmt.Errorf("builder is required")
	}
	if cfg.NewEngine == nil {
		return nil, fmt.Errorf("engine factory is required")
	}
	if cfg.DataDir == "" || cfg.PersistDir == "" || cfg.MarkerPath == "" {
		return nil, fmt.Errorf("data, persist and marker paths are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		dataDir:    cfg.DataDir,
		persistDir: cfg.PersistDir,
		markerPath: cfg.MarkerPath,
		store:      cfg.Store,
		builder:    cfg.Builder,
		newEngine:  cfg.NewEngine,
		logger:     logger,
	}, nil
}

// Engine returns a query engine over an index no staler than the document
// folder, rebuilding if necessary. It returns (nil, nil) when the folder is
// missing or empty and no build is possible: callers must treat a nil engine
// as "no data available". Build errors propagate.
func (m *Manager) Engine(ctx context.Context) (Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dataMtime := LatestMtime(m.dataDir)
	buildTime := ReadBuildTime(m.markerPath)
	fresh := !dataMtime.After(buildTime)

	// Case 1: engine already in memory and the data hasn't changed.
	if m.engine != nil && fresh {
		return m.engine, nil
	}

	// Case 2: persisted index exists and is still fresh.
	if fresh && !buildTime.IsZero() && m.store.Count() > 0 {
		m.logger.Debug("loading index from disk cache", "build_time", buildTime)
		m.engine = m.newEngine()
		return m.engine, nil
	}

	// Case 3: no data at all. Expose a nil engine instead of failing so the
	// application stays responsive until files appear.
	if dataMtime.IsZero() {
		m.logger.Warn("no files in document folder, question answering disabled", "dir", m.dataDir)
		m.engine = nil
		return nil, nil
	}

	// Case 4: rebuild.
	if err := m.rebuild(ctx); err != nil {
		m.engine = nil
		return nil, err
	}

	m.engine = m.newEngine()
	return m.engine, nil
}

// Invalidate drops the in-memory engine so the next request re-runs the
// staleness check. Called by the file watcher and by the reindex command.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine = nil
}

// Rebuild forces a full rebuild regardless of staleness. Used by the reindex
// command.
func (m *Manager) Rebuild(ctx context.Context) (*IndexResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if LatestMtime(m.dataDir).IsZero() {
		return nil, fmt.Errorf("document folder %q is missing or empty", m.dataDir)
	}
	if err := m.rebuild(ctx); err != nil {
		m.engine = nil
		return nil, err
	}
	m.engine = m.newEngine()
	return m.lastResult, nil
}

// rebuild re-indexes the document folder and records the new build time.
// Caller must hold m.mu.
func (m *Manager) rebuild(ctx context.Context) error {
	m.logger.Info("rebuilding index", "dir", m.dataDir)

	if err := os.MkdirAll(m.persistDir, 0o750); err != nil {
		return fmt.Errorf("creating persist directory: %w", err)
	}

	// Cross-process guard: another process pointing at the same persist
	// directory must not rebuild at the same time.
	fileLock := flock.New(filepath.Join(m.persistDir, lockFileName))
	if err := fileLock.Lock(); err != nil {
		return fmt.Errorf("locking persist directory: %w", err)
	}
	defer func() {
		if err := fileLock.Unlock(); err != nil {
			m.logger.Warn("failed to release rebuild lock", "error", err)
		}
	}()

	// Capture the folder mtime before indexing: a write landing mid-build
	// then keeps the index marked stale rather than silently missed.
	dataMtime := LatestMtime(m.dataDir)

	if err := m.store.Reset(); err != nil {
		return fmt.Errorf("resetting index: %w", err)
	}

	result, err := m.builder.IndexFolder(ctx)
	if err != nil {
		return fmt.Errorf("indexing documents: %w", err)
	}
	m.lastResult = result

	if err := WriteBuildTime(m.markerPath, dataMtime); err != nil {
		return err
	}

	m.logger.Info("index built and persisted",
		"added", result.FilesAdded,
		"build_time", dataMtime,
	)
	return nil
}
