package fiber

import (
	stderrors "errors"

	"github.com/wippyai/fibers/errors"
)

// Func is a fiber entry function. arg is the value of the first Run.
// With causality preservation on, ledger frames the function leaves open
// when it returns or panics are dropped and logged, so the caller of Run
// gets back exactly the frames it had.
type Func func(arg any) (any, error)

// Fiber is a cooperative coroutine with its own stack. It only runs while
// some caller is blocked in Run or ThrowInto.
type Fiber struct {
	rt     *Runtime
	fn     Func
	resume chan message
	out    chan message
	caller *Fiber
	id     uint64
	state  State
}

// ID returns the fiber's runtime-unique id.
func (f *Fiber) ID() uint64 {
	return f.id
}

// State returns the current lifecycle state.
func (f *Fiber) State() State {
	f.rt.mu.Lock()
	defer f.rt.mu.Unlock()
	return f.state
}

// Started reports whether the entry function has been entered.
func (f *Fiber) Started() bool {
	return f.State() != StateCreated
}

// Run starts or resumes the fiber with v. It returns the next value the
// fiber yields, or its entry function's result once it terminates.
func (f *Fiber) Run(v any) (any, error) {
	return f.rt.sw.Run(f, v)
}

// ThrowInto resumes the fiber with err raised from its pending Yield.
// A fiber that never started terminates without running and err is
// returned unchanged. A nil err is rejected and leaves the fiber as it was.
func (f *Fiber) ThrowInto(err error) (any, error) {
	return f.rt.sw.ThrowInto(f, err)
}

// Reset terminates a suspended fiber by throwing errors.ErrReset into it.
// The fiber must let the error unwind its entry function; a fiber that
// yields again is left suspended and Reset reports an invalid state.
func (f *Fiber) Reset() error {
	rt := f.rt
	rt.mu.Lock()
	switch f.state {
	case StateTerminated:
		rt.mu.Unlock()
		return nil
	case StateCreated:
		f.state = StateTerminated
		delete(rt.live, f.id)
		rt.mu.Unlock()
		rt.notify(Event{Type: EventTerminated, Fiber: f.id})
		return nil
	case StateRunning:
		rt.mu.Unlock()
		return errors.InvalidState(OpReset, f.id, StateRunning.String())
	}
	rt.mu.Unlock()

	_, err := f.ThrowInto(errors.ErrReset)
	if st := f.State(); st != StateTerminated {
		return errors.New(errors.PhaseSwitch, errors.KindInvalidState).
			Op(OpReset).
			Fiber(f.id).
			Detail("fiber is %s after reset", st).
			Build()
	}
	if err != nil && !stderrors.Is(err, errors.ErrReset) {
		return err
	}
	return nil
}

func (f *Fiber) enter(caller *Fiber) {
	f.state = StateRunning
	f.caller = caller
}

func (f *Fiber) leave() *Fiber {
	c := f.caller
	f.caller = nil
	return c
}
