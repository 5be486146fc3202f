package fiber

import (
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/wippyai/fibers/errors"
)

// Operation names used in errors, diagnostics and spans.
const (
	OpYield     = "Fiber.yield"
	OpRun       = "Fiber.run"
	OpThrowInto = "Fiber.throwInto"
	OpReset     = "Fiber.reset"
)

// Switcher performs the transitions that move execution from one fiber
// stack to another. Each call blocks until control comes back to the
// caller, which may be much later.
type Switcher interface {
	// Yield suspends the running fiber and hands v to whoever resumed it.
	// It returns the value of the next Run, or the error of the next ThrowInto.
	Yield(v any) (any, error)
	// Run starts or resumes f with v and returns what f yields next, or
	// the result of its entry function when f terminates.
	Run(f *Fiber, v any) (any, error)
	// ThrowInto resumes f so that its pending Yield fails with err.
	ThrowInto(f *Fiber, err error) (any, error)
}

// message crosses a stack switch in either direction.
type message struct {
	value any
	err   error
}

// goroutineSwitcher gives every fiber its own goroutine and hands control
// back and forth over unbuffered channels, so exactly one side runs at a
// time.
type goroutineSwitcher struct {
	rt *Runtime
}

func newGoroutineSwitcher(rt *Runtime) Switcher {
	return &goroutineSwitcher{rt: rt}
}

func (s *goroutineSwitcher) Run(f *Fiber, v any) (any, error) {
	return s.resume(f, OpRun, message{value: v})
}

func (s *goroutineSwitcher) ThrowInto(f *Fiber, err error) (any, error) {
	if err == nil {
		return nil, errors.InvalidInput(errors.PhaseSwitch, "ThrowInto needs a non-nil error")
	}
	return s.resume(f, OpThrowInto, message{err: err})
}

func (s *goroutineSwitcher) resume(f *Fiber, op string, in message) (any, error) {
	rt := s.rt
	if f == nil || f.rt != rt {
		return nil, errors.InvalidInput(errors.PhaseSwitch, "fiber does not belong to this runtime")
	}

	rt.mu.Lock()
	switch f.state {
	case StateRunning:
		rt.mu.Unlock()
		return nil, errors.InvalidState(op, f.id, f.state.String())
	case StateTerminated:
		rt.mu.Unlock()
		return nil, errors.DeadFiber(op, f.id)
	case StateCreated:
		if in.err != nil {
			// never started: the entry function does not run at all
			f.state = StateTerminated
			delete(rt.live, f.id)
			rt.mu.Unlock()
			rt.notify(Event{Type: EventTerminated, Fiber: f.id, Err: in.err})
			return nil, in.err
		}
		f.enter(rt.current)
		rt.current = f
		rt.mu.Unlock()
		rt.notify(Event{Type: EventStarted, Fiber: f.id})
		go f.main(in.value)
	case StateSuspended:
		f.enter(rt.current)
		rt.current = f
		rt.mu.Unlock()
		f.resume <- in
	}

	out := <-f.out
	return out.value, out.err
}

func (s *goroutineSwitcher) Yield(v any) (any, error) {
	rt := s.rt
	rt.mu.Lock()
	f := rt.current
	if f == nil {
		rt.mu.Unlock()
		return nil, errors.NotInFiber(OpYield)
	}
	f.state = StateSuspended
	rt.current = f.leave()
	rt.mu.Unlock()

	f.out <- message{value: v}
	in := <-f.resume
	return in.value, in.err
}

// main runs the entry function on the fiber's own goroutine.
func (f *Fiber) main(arg any) {
	var out message
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("fiber panicked", zap.Uint64("fiber", f.id), zap.Any("panic", r))
			out = message{err: errors.Panic(f.id, r, debug.Stack())}
		}
		rt := f.rt
		rt.mu.Lock()
		f.state = StateTerminated
		rt.current = f.leave()
		delete(rt.live, f.id)
		rt.mu.Unlock()
		rt.notify(Event{Type: EventTerminated, Fiber: f.id, Err: out.err})
		f.out <- out
	}()

	v, err := f.fn(arg)
	out = message{value: v, err: err}
}
