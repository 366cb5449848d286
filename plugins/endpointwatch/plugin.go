// Package endpointwatch recreates the server endpoint when its socket file is
// removed from disk while the server is waiting for a sensor. Without it a
// deleted socket leaves the server listening on an unreachable inode.
package endpointwatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tigra-astronomy/skycondition/pkg/skyserver"
)

// Plugin watches the socket's directory and recycles the endpoint when the
// socket file disappears.
type Plugin struct {
	mu sync.Mutex

	debounceDelay  time.Duration
	rescanInterval time.Duration

	path     string
	recycle  func() bool
	logger   skyserver.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the endpoint watch plugin.
type Config struct {
	// DebounceDelay is the delay after a filesystem event before the socket is checked.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// RescanInterval is how often the socket is checked without an event,
	// covering a removed or recreated directory.
	// Default: 5 seconds
	RescanInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay:  100 * time.Millisecond,
		RescanInterval: 5 * time.Second,
	}
}

// New creates an endpoint watch plugin.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	if cfg.RescanInterval <= 0 {
		cfg.RescanInterval = 5 * time.Second
	}
	return &Plugin{
		debounceDelay:  cfg.DebounceDelay,
		rescanInterval: cfg.RescanInterval,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "endpointwatch"
}

// Initialize starts watching cfg.Address. Named pipes have no file to watch,
// so the plugin is a no-op on Windows.
func (p *Plugin) Initialize(ctx context.Context, cfg skyserver.PluginConfig) error {
	p.mu.Lock()
	p.path = cfg.Address
	p.recycle = cfg.Recycle
	p.logger = cfg.Logger
	p.mu.Unlock()

	if runtime.GOOS == "windows" || p.path == "" || p.recycle == nil {
		p.logger.Warn("endpoint watch disabled: no socket file")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("endpoint watch started", skyserver.LogField{Key: "path", Value: p.path})

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	dir := filepath.Dir(p.path)
	name := filepath.Base(p.path)
	watching := p.addWatch(watcher, dir)

	ticker := time.NewTicker(p.rescanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name == dir && event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				watching = false
				p.debounceCheck(ctx)
				continue
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceCheck(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("endpoint watch error", skyserver.LogField{Key: "error", Value: err})

		case <-ticker.C:
			if !watching {
				watching = p.addWatch(watcher, dir)
			}
			p.check()
		}
	}
}

func (p *Plugin) addWatch(watcher *fsnotify.Watcher, dir string) bool {
	if err := watcher.Add(dir); err != nil {
		p.logger.Warn("endpoint watch: cannot watch directory",
			skyserver.LogField{Key: "dir", Value: dir},
			skyserver.LogField{Key: "error", Value: err})
		return false
	}
	return true
}

func (p *Plugin) debounceCheck(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() == nil {
			p.check()
		}
	})
}

// check recycles the endpoint if the socket file is gone. The listener also
// unlinks the file itself after accepting a client; Recycle is a no-op then
// because no accept is pending.
func (p *Plugin) check() bool {
	if _, err := os.Lstat(p.path); !errors.Is(err, os.ErrNotExist) {
		return false
	}
	if !p.recycle() {
		return false
	}
	p.logger.Warn("socket file removed, recreating endpoint",
		skyserver.LogField{Key: "path", Value: p.path})
	return true
}

// Ensure Plugin implements skyserver.Plugin.
var _ skyserver.Plugin = (*Plugin)(nil)
