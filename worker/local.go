package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-loader/errors"
)

// watchBuffer exceeds the number of states a worker can pass through, so
// deliveries to a subscriber never block.
const watchBuffer = 8

const updateBuffer = 16

// LocalContainer is an in-process worker subsystem.
type LocalContainer struct {
	logger     *zap.Logger
	regs       map[string]*localRegistration
	controlled atomic.Bool
	mu         sync.Mutex
}

func NewLocalContainer(logger *zap.Logger) *LocalContainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalContainer{
		logger: logger,
		regs:   make(map[string]*localRegistration),
	}
}

// Controlled reports whether any worker has activated and claimed the host.
func (c *LocalContainer) Controlled() bool {
	return c.controlled.Load()
}

// Register starts installing a new worker unless the active or installing
// worker already has the same content version.
func (c *LocalContainer) Register(ctx context.Context, scriptURL string, entries map[string]string) (Registration, error) {
	if scriptURL == "" {
		return nil, errors.InvalidInput(errors.PhaseRegister, "worker script URL is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	version := fingerprint(entries)

	c.mu.Lock()
	defer c.mu.Unlock()

	reg, ok := c.regs[scriptURL]
	if !ok {
		reg = &localRegistration{container: c, script: scriptURL}
		c.regs[scriptURL] = reg
	}

	if reg.installing != nil {
		return reg, nil
	}
	if reg.active != nil && reg.active.version == version {
		return reg, nil
	}

	w := &localWorker{
		container: c,
		reg:       reg,
		script:    scriptURL,
		version:   version,
		state:     Installing,
		skip:      make(chan struct{}),
	}
	reg.installing = w
	reg.announce(w)

	c.logger.Debug("installing worker",
		zap.String("script", scriptURL),
		zap.String("version", version))

	go c.install(w)
	return reg, nil
}

func (c *LocalContainer) install(w *localWorker) {
	w.set(Installed)

	c.mu.Lock()
	waiting := w.reg.active != nil
	c.mu.Unlock()
	if waiting {
		<-w.skip
	}

	w.set(Activating)

	c.mu.Lock()
	prev := w.reg.active
	w.reg.active = w
	w.reg.installing = nil
	c.mu.Unlock()
	c.controlled.Store(true)

	if prev != nil {
		prev.retire()
	}
	w.set(Activated)

	c.logger.Debug("worker activated",
		zap.String("script", w.script),
		zap.String("version", w.version))
}

type localRegistration struct {
	container  *LocalContainer
	active     *localWorker
	installing *localWorker
	subs       []chan Worker
	script     string
}

func (r *localRegistration) Active() Worker {
	r.container.mu.Lock()
	defer r.container.mu.Unlock()
	if r.active == nil {
		return nil
	}
	return r.active
}

func (r *localRegistration) Installing() Worker {
	r.container.mu.Lock()
	defer r.container.mu.Unlock()
	if r.installing == nil {
		return nil
	}
	return r.installing
}

// Updates subscribes to installing workers. The channel is closed once ctx
// is done.
func (r *localRegistration) Updates(ctx context.Context) <-chan Worker {
	ch := make(chan Worker, updateBuffer)
	r.container.mu.Lock()
	defer r.container.mu.Unlock()
	if r.installing != nil {
		ch <- r.installing
	}
	r.subs = append(r.subs, ch)

	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			r.unsubscribe(ch)
		}()
	}
	return ch
}

func (r *localRegistration) unsubscribe(ch chan Worker) {
	r.container.mu.Lock()
	defer r.container.mu.Unlock()
	for i, sub := range r.subs {
		if sub == ch {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// announce must be called with the container lock held.
func (r *localRegistration) announce(w *localWorker) {
	for _, ch := range r.subs {
		select {
		case ch <- w:
		default:
			r.container.logger.Warn("dropped worker update notification",
				zap.String("script", r.script))
		}
	}
}

type localWorker struct {
	container *LocalContainer
	reg       *localRegistration
	skip      chan struct{}
	subs      []chan StateChange
	script    string
	version   string
	state     State
	skipOnce  sync.Once
	mu        sync.Mutex
	retired   bool
}

func (w *localWorker) ScriptURL() string {
	return w.script
}

func (w *localWorker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *localWorker) Watch(ctx context.Context) <-chan StateChange {
	ch := make(chan StateChange, watchBuffer)
	w.mu.Lock()
	defer w.mu.Unlock()
	ch <- StateChange{State: w.state, Controlled: w.container.Controlled()}
	if w.retired {
		close(ch)
		return ch
	}
	w.subs = append(w.subs, ch)
	return ch
}

// SkipWaiting releases the waiting worker of this registration. Called on
// the active worker it targets the installing one.
func (w *localWorker) SkipWaiting(ctx context.Context) error {
	target := w
	w.container.mu.Lock()
	if w.reg.active == w && w.reg.installing != nil {
		target = w.reg.installing
	}
	w.container.mu.Unlock()

	target.skipOnce.Do(func() { close(target.skip) })
	return nil
}

func (w *localWorker) set(s State) {
	change := StateChange{State: s, Controlled: w.container.Controlled()}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = s
	for _, ch := range w.subs {
		ch <- change
	}
}

// retire ends every watch stream of a replaced worker.
func (w *localWorker) retire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.retired = true
	for _, ch := range w.subs {
		close(ch)
	}
	w.subs = nil
}

func fingerprint(entries map[string]string) string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(entries[k]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
