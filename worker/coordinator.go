package worker

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-loader/errors"
)

const (
	// DefaultScriptURL is registered when Config.URL is empty.
	DefaultScriptURL = "service_worker.js"
	// AppModuleName selects the Config.Content entry for the application.
	AppModuleName = "main"
)

// Config describes the worker to register.
type Config struct {
	// URL of the worker script. Empty means DefaultScriptURL.
	URL string `yaml:"url"`
	// Content maps module name to resource path to content hash.
	Content map[string]map[string]string `yaml:"content"`
}

// ScriptURL returns the script to register.
func (c *Config) ScriptURL() string {
	if c == nil || c.URL == "" {
		return DefaultScriptURL
	}
	return c.URL
}

// Entries returns the content hashes of the application module.
func (c *Config) Entries() map[string]string {
	entries := make(map[string]string)
	if c == nil {
		return entries
	}
	for path, hash := range c.Content[AppModuleName] {
		entries[path] = hash
	}
	return entries
}

// Callbacks are lifecycle hooks supplied by the host. Nil fields are skipped.
type Callbacks struct {
	OnUpdateFound       func()
	OnWorkerInitialized func()
}

// Coordinator registers the worker and observes its lifecycle.
type Coordinator struct {
	container Container
	logger    *zap.Logger
	observers []Observer
	wg        sync.WaitGroup
	obsMu     sync.RWMutex
}

// NewCoordinator creates a coordinator. A nil container means no worker
// subsystem is available.
func NewCoordinator(container Container, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		container: container,
		logger:    logger,
	}
}

// Subscribe adds an observer for transitions seen by later Load calls.
func (c *Coordinator) Subscribe(o Observer) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, o)
}

// Load registers the worker and attaches lifecycle watchers. It returns
// once registration completes; it does not wait for activation. The update
// watcher runs until ctx is cancelled.
func (c *Coordinator) Load(ctx context.Context, cfg *Config, cb Callbacks) error {
	if c.container == nil {
		c.logger.Debug("no worker subsystem, skipping registration")
		return nil
	}

	script := cfg.ScriptURL()
	entries := cfg.Entries()

	c.publish(Transition{Script: script, From: Unregistered, To: Registering})

	reg, err := c.container.Register(ctx, script, entries)
	if err != nil {
		return errors.Registration(script, err)
	}
	if reg == nil {
		return errors.Registration(script, stderrors.New("container returned no registration"))
	}

	c.logger.Debug("worker registered",
		zap.String("script", script),
		zap.Strings("entries", sortedKeys(entries)))

	var initOnce sync.Once
	initialized := func() {
		initOnce.Do(func() {
			if cb.OnWorkerInitialized != nil {
				cb.OnWorkerInitialized()
			}
		})
	}

	// Installing is read before Active: a worker that activates in between
	// is then seen as active rather than missed.
	installing := reg.Installing()
	active := reg.Active()

	// Subscribe before skipping waiting so no transition of the installing
	// worker is missed.
	seen := make(map[Worker]bool)
	if installing != nil {
		seen[installing] = true
		var onActivated func()
		if active == nil {
			onActivated = initialized
		}
		c.wg.Add(1)
		go c.watch(ctx, script, installing.Watch(ctx), cb.OnUpdateFound, onActivated)
	}

	updates := reg.Updates(ctx)
	c.wg.Add(1)
	go c.watchUpdates(ctx, updates, seen, cb.OnUpdateFound)

	if active != nil {
		if err := active.SkipWaiting(ctx); err != nil {
			c.logger.Warn("skip waiting",
				zap.String("script", script),
				zap.Error(err))
		}
		initialized()
	}

	return nil
}

// Wait blocks until every watcher started by Load has exited. Update
// watchers only exit once their Load context is done, so cancel it first:
// with a context that is never cancelled Wait does not return.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) watchUpdates(ctx context.Context, updates <-chan Worker, seen map[Worker]bool, onUpdate func()) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case w, ok := <-updates:
			if !ok {
				return
			}
			if w == nil || seen[w] {
				continue
			}
			seen[w] = true
			c.wg.Add(1)
			go c.watch(ctx, w.ScriptURL(), w.Watch(ctx), onUpdate, nil)
		}
	}
}

// watch follows one worker stream until it activates, the stream ends, or
// ctx is cancelled. onActivated may be nil.
func (c *Coordinator) watch(ctx context.Context, script string, changes <-chan StateChange, onUpdate func(), onActivated func()) {
	defer c.wg.Done()

	prev := Registering

	for {
		select {
		case <-ctx.Done():
			return
		case ch, ok := <-changes:
			if !ok {
				return
			}
			if ch.State != prev {
				switch {
				case CanTransition(prev, ch.State):
				case Reachable(prev, ch.State):
					c.logger.Debug("worker states skipped",
						zap.String("script", script),
						zap.Stringer("from", prev),
						zap.Stringer("to", ch.State))
				default:
					c.logger.Warn("unexpected worker transition",
						zap.String("script", script),
						zap.Stringer("from", prev),
						zap.Stringer("to", ch.State))
				}
				c.publish(Transition{Script: script, From: prev, To: ch.State})
				prev = ch.State
			}

			if ch.State == Installed && ch.Controlled && onUpdate != nil {
				c.logger.Info("worker update found", zap.String("script", script))
				onUpdate()
			}
			if ch.State == Activated {
				if onActivated != nil {
					onActivated()
				}
				return
			}
		}
	}
}

func (c *Coordinator) publish(t Transition) {
	c.obsMu.RLock()
	defer c.obsMu.RUnlock()
	for _, o := range c.observers {
		o.OnTransition(t)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
