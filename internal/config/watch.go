package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/rwalling/arbiter/internal/logging"
)

// Store holds the live configuration shared by long-running components.
// Components keep a *Store and call Get per operation, so a hot reload is
// picked up on the next call without restarting anything. The returned
// *Config is replaced wholesale on reload and must be treated as read-only.
type Store struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewStore creates a Store seeded with the given configuration.
func NewStore(cfg *Config) *Store {
	return &Store{cfg: cfg}
}

// Get returns the current configuration snapshot.
func (s *Store) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Set replaces the current configuration.
func (s *Store) Set(cfg *Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// Watcher reloads the config file into a Store whenever it changes on disk.
// A reload that fails to parse or validate is logged and discarded; the
// Store keeps serving the last good configuration. Once started, the watch
// runs for the life of the process.
type Watcher struct {
	path  string
	store *Store
	log   *logging.Logger

	mu       sync.Mutex
	onReload []func(*Config)
	started  bool
}

// NewWatcher creates a Watcher for the given config file path.
func NewWatcher(path string, store *Store, log *logging.Logger) *Watcher {
	if log == nil {
		log = logging.Global()
	}
	return &Watcher{
		path:  expandPath(path),
		store: store,
		log:   log.WithComponent("Config"),
	}
}

// OnReload registers a callback invoked after each successful reload.
// Callbacks run on the watcher goroutine and should return quickly.
func (w *Watcher) OnReload(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = append(w.onReload, fn)
}

// Start begins watching the config file. The file must already exist
// (LoadFromPath creates it on first run).
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return fmt.Errorf("config watcher already started")
	}
	w.started = true
	w.mu.Unlock()

	v := viper.New()
	v.SetConfigFile(w.path)
	v.SetConfigType("yaml")
	v.OnConfigChange(func(_ fsnotify.Event) {
		w.reload()
	})
	v.WatchConfig()

	w.log.Debug("Watching config file: %s", w.path)
	return nil
}

// reload re-reads the config file and swaps it into the Store. Editors
// often fire several write events per save; reloading is idempotent, so
// duplicate events are harmless.
func (w *Watcher) reload() {
	cfg, err := readConfigFile(w.path)
	if err != nil {
		w.log.Warn("Config reload failed, keeping last good config: %v", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		w.log.Warn("Reloaded config invalid, keeping last good config: %v", err)
		return
	}

	w.store.Set(cfg)
	w.log.Info("Config reloaded from %s", w.path)

	w.mu.Lock()
	callbacks := make([]func(*Config), len(w.onReload))
	copy(callbacks, w.onReload)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
}
