package fiber

import (
	"sort"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/fibers/errors"
	"github.com/wippyai/fibers/ledger"
)

// Runtime owns a group of fibers of which at most one runs at a time.
type Runtime struct {
	mu      sync.Mutex
	sw      Switcher
	native  Switcher
	current *Fiber
	live    map[uint64]*Fiber
	log     *zap.Logger
	caps    ledger.Capabilities
	key     BackendKey
	cfg     Config
	nextID  atomic.Uint64
	created atomic.Uint64

	observers []Observer
	obsMu     sync.RWMutex
}

// Option configures a Runtime.
type Option func(*options)

type options struct {
	cfg        Config
	log        *zap.Logger
	host       any
	tp         trace.TracerProvider
	key        *BackendKey
	hostSet    bool
	switcherFn func(Switcher) Switcher
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger sets the runtime logger. Defaults to the package Logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithCausality enables or disables causality preservation.
func WithCausality(enabled bool) Option {
	return func(o *options) { o.cfg.PreserveCausality = enabled }
}

// WithLedgerHost sets the host probed for ledger primitives. Defaults to
// ledger.Default(). A nil host disables causality preservation.
func WithLedgerHost(host any) Option {
	return func(o *options) {
		o.host = host
		o.hostSet = true
	}
}

// WithTraceLevel sets the diagnostic level for intercepted switches.
func WithTraceLevel(level TraceLevel) Option {
	return func(o *options) { o.cfg.TraceLevel = level }
}

// WithIncludeInPath restricts TraceStack output to matching stacks.
func WithIncludeInPath(substr string) Option {
	return func(o *options) { o.cfg.IncludeInPath = substr }
}

// WithTracerProvider records a span per intercepted switch. Defaults to
// the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}

// WithBackendKey overrides the platform key used to resolve the backend.
func WithBackendKey(key BackendKey) Option {
	return func(o *options) { o.key = &key }
}

// WithSwitcher wraps the native switcher before causality preservation is
// applied. Used to observe or instrument raw stack switches.
func WithSwitcher(wrap func(Switcher) Switcher) Option {
	return func(o *options) { o.switcherFn = wrap }
}

// NewRuntime resolves the native backend for this platform, probes the
// ledger host once and wires the causality interceptor when enabled.
// The configuration is read from the environment first and opts are
// applied on top of it. A missing backend is fatal and returned as an
// error.
func NewRuntime(opts ...Option) (*Runtime, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	o := options{cfg: cfg}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = Logger()
	}
	if !o.hostSet {
		o.host = ledger.Default()
	}

	key := CurrentKey()
	switch {
	case o.key != nil:
		key = *o.key
	case o.cfg.Backend != "":
		k, err := ParseBackendKey(o.cfg.Backend)
		if err != nil {
			return nil, err
		}
		key = k
	}

	factory, err := ResolveBackend(key)
	if err != nil {
		o.log.Error("fiber backend missing", zap.String("key", key.String()), zap.Error(err))
		return nil, err
	}

	rt := &Runtime{
		live: make(map[uint64]*Fiber),
		log:  o.log,
		key:  key,
		cfg:  o.cfg,
		caps: ledger.Unavailable(),
	}
	rt.native = factory(rt)
	if rt.native == nil {
		return nil, errors.MissingBackend(key.String(), errors.InvalidInput(errors.PhaseResolve, "factory returned nil"))
	}
	sw := rt.native
	if o.switcherFn != nil {
		sw = o.switcherFn(sw)
	}

	if o.cfg.PreserveCausality {
		rt.caps = ledger.Probe(o.host)
		if !rt.caps.Available {
			rt.log.Debug("causality preservation disabled", zap.Error(rt.caps.Err()))
		}
		popts := []PreserveOption{WithDiagnostics(rt.log, o.cfg.TraceLevel, o.cfg.IncludeInPath)}
		if o.tp != nil {
			popts = append(popts, WithTracer(o.tp))
		}
		sw = Preserve(sw, rt.caps, popts...)
	}
	rt.sw = sw

	rt.log.Debug("fiber runtime ready",
		zap.String("backend", key.String()),
		zap.Bool("causality", rt.caps.Available))
	return rt, nil
}

// New creates a fiber that runs fn on its first Run.
func (rt *Runtime) New(fn Func) *Fiber {
	f := &Fiber{
		rt:     rt,
		fn:     fn,
		id:     rt.nextID.Add(1),
		resume: make(chan message),
		out:    make(chan message),
		state:  StateCreated,
	}
	rt.created.Add(1)

	rt.mu.Lock()
	rt.live[f.id] = f
	rt.mu.Unlock()

	rt.notify(Event{Type: EventCreated, Fiber: f.id})
	return f
}

// Yield suspends the running fiber, handing v to the caller of Run.
// It returns the value of the next Run or the error of the next ThrowInto.
// Calling Yield outside of a fiber returns an error.
func (rt *Runtime) Yield(v any) (any, error) {
	return rt.sw.Yield(v)
}

// Current returns the running fiber, or nil outside of any fiber.
func (rt *Runtime) Current() *Fiber {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.current
}

// Capabilities returns the result of the ledger probe. It is unavailable
// when causality preservation is disabled.
func (rt *Runtime) Capabilities() ledger.Capabilities {
	return rt.caps
}

// Preserving reports whether stack switches are wrapped by the causality
// interceptor.
func (rt *Runtime) Preserving() bool {
	_, ok := rt.sw.(*preserving)
	return ok
}

// Backend returns the key the native backend was resolved for.
func (rt *Runtime) Backend() BackendKey {
	return rt.key
}

// Stats reports fiber counters.
type Stats struct {
	Created uint64
	Live    int
}

// Stats returns the number of fibers created and not yet terminated.
func (rt *Runtime) Stats() Stats {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return Stats{Created: rt.created.Load(), Live: len(rt.live)}
}

// Close resets every fiber that has not terminated. Fibers still running
// cannot be reset and are reported in the returned error.
func (rt *Runtime) Close() error {
	rt.mu.Lock()
	fibers := make([]*Fiber, 0, len(rt.live))
	for _, f := range rt.live {
		fibers = append(fibers, f)
	}
	rt.mu.Unlock()

	sort.Slice(fibers, func(i, j int) bool { return fibers[i].id < fibers[j].id })

	var err error
	for _, f := range fibers {
		if rerr := f.Reset(); rerr != nil {
			rt.log.Warn("fiber reset failed", zap.Uint64("fiber", f.id), zap.Error(rerr))
			err = multierr.Append(err, rerr)
		}
	}
	return err
}
