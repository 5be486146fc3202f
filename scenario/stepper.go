package scenario

import (
	stderrors "errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/fibers/errors"
	"github.com/wippyai/fibers/fiber"
	"github.com/wippyai/fibers/ledger"
)

// Event records one driver action and what each side of the switch saw.
type Event struct {
	Input    any    `yaml:"input,omitempty"`
	Output   any    `yaml:"output,omitempty"`
	Action   string `yaml:"action"`
	Error    string `yaml:"error,omitempty"`
	State    string `yaml:"state"`
	Fiber    string `yaml:"fiber_ledger"`
	Driver   string `yaml:"driver_ledger"`
	Restored bool   `yaml:"restored"`
}

// Trace is the outcome of executing a scenario.
type Trace struct {
	Name       string  `yaml:"name"`
	Initial    string  `yaml:"initial_ledger"`
	Events     []Event `yaml:"events"`
	Preserving bool    `yaml:"preserving"`
	Consistent bool    `yaml:"consistent"`
}

// Stepper executes a scenario one driver action at a time.
type Stepper struct {
	rt      *fiber.Runtime
	host    *ledger.Stack
	sc      *Scenario
	fib     *fiber.Fiber
	initial ledger.Snapshot
	inside  ledger.Snapshot
	events  []Event
	base    int
	next    int
	closed  bool
}

// NewStepper pushes the scenario's ledger frames onto host and creates the
// fiber. host must be the ledger rt was built with. Call Close to reset the
// fiber and remove the frames again.
func NewStepper(rt *fiber.Runtime, host *ledger.Stack, sc *Scenario) (*Stepper, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	st := &Stepper{
		rt:      rt,
		host:    host,
		sc:      sc,
		initial: sc.Snapshot(),
		base:    host.StackDepth(),
	}

	for _, f := range st.initial {
		// frames entered by the fiber must not reuse the scenario's ops
		host.Reserve(f.ID)
		host.PushAsyncContext(f.ID, f.TriggerID)
		host.AppendExecutionResource(f.Resource)
	}
	st.initial = host.Frames()
	st.fib = rt.New(st.body)

	Logger().Debug("scenario started",
		zap.String("name", sc.Name),
		zap.Uint64("fiber", st.fib.ID()),
		zap.Stringer("ledger", st.initial))
	return st, nil
}

// Fiber returns the fiber driven by the scenario.
func (st *Stepper) Fiber() *fiber.Fiber {
	return st.fib
}

// Events returns the events recorded so far.
func (st *Stepper) Events() []Event {
	return st.events
}

// Done reports whether no driver action is left.
func (st *Stepper) Done() bool {
	_, ok := st.action()
	return !ok
}

// Pending returns the next driver action, if any.
func (st *Stepper) Pending() (Step, bool) {
	return st.action()
}

func (st *Stepper) action() (Step, bool) {
	if st.closed {
		return Step{}, false
	}
	if len(st.sc.Driver) > 0 {
		if st.next >= len(st.sc.Driver) {
			return Step{}, false
		}
		return st.sc.Driver[st.next], true
	}
	// without explicit actions the fiber is run to completion
	if st.fib.State() == fiber.StateTerminated || st.next > len(st.sc.Fiber) {
		return Step{}, false
	}
	return Step{Kind: ActionRun}, true
}

// Next performs the next driver action. It reports false when the
// scenario is exhausted.
func (st *Stepper) Next() (Event, bool) {
	act, ok := st.action()
	if !ok {
		return Event{}, false
	}
	return st.perform(act)
}

// NextWith performs the next driver action with v in place of the value
// written in the scenario.
func (st *Stepper) NextWith(v any) (Event, bool) {
	act, ok := st.action()
	if !ok {
		return Event{}, false
	}
	act.Value = v
	return st.perform(act)
}

func (st *Stepper) perform(act Step) (Event, bool) {
	st.next++

	var (
		out any
		err error
	)
	switch act.Kind {
	case ActionRun:
		out, err = st.fib.Run(act.Value)
	case ActionThrow:
		out, err = st.fib.ThrowInto(thrown(act.Value))
	case ActionReset:
		err = st.fib.Reset()
	}

	driver := st.host.Frames()
	ev := Event{
		Action:   act.Kind,
		Input:    act.Value,
		Output:   out,
		State:    st.fib.State().String(),
		Fiber:    st.inside.String(),
		Driver:   driver.String(),
		Restored: driver.Equal(st.initial),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	st.events = append(st.events, ev)

	Logger().Debug("scenario step",
		zap.String("action", act.String()),
		zap.String("state", ev.State),
		zap.Bool("restored", ev.Restored),
		zap.Error(err))
	return ev, true
}

// Trace summarises the events recorded so far.
func (st *Stepper) Trace() *Trace {
	t := &Trace{
		Name:       st.sc.Name,
		Initial:    st.initial.String(),
		Events:     append([]Event(nil), st.events...),
		Preserving: st.rt.Preserving(),
		Consistent: true,
	}
	for _, ev := range t.Events {
		if !ev.Restored {
			t.Consistent = false
		}
	}
	return t
}

// Close resets the fiber and pops everything above the depth the ledger
// had before NewStepper.
func (st *Stepper) Close() error {
	if st.closed {
		return nil
	}
	st.closed = true

	err := st.fib.Reset()
	for st.host.StackDepth() > st.base {
		if !st.host.PopAsyncContext(st.host.ExecutionAsyncID()) {
			err = multierr.Append(err, errors.Corruption("scenario frame pop failed at depth %d", st.host.StackDepth()))
			break
		}
	}
	return err
}

// body returns the last value it was resumed with unless a step returns
// or fails first.
func (st *Stepper) body(arg any) (any, error) {
	last := arg
	var entered []ledger.Frame
	defer func() {
		for i := len(entered) - 1; i >= 0; i-- {
			st.host.Exit(entered[i])
		}
	}()

	for _, step := range st.sc.Fiber {
		switch step.Kind {
		case StepEnter:
			entered = append(entered, st.host.Enter(resourceOf(step.Value), 0))
		case StepExit:
			if len(entered) == 0 {
				return nil, errors.InvalidInput(errors.PhaseScenario, "exit without matching enter")
			}
			st.host.Exit(entered[len(entered)-1])
			entered = entered[:len(entered)-1]
		case StepYield:
			st.inside = st.host.Frames()
			v, err := st.rt.Yield(step.Value)
			if err != nil {
				return nil, err
			}
			last = v
		case StepReturn:
			st.inside = st.host.Frames()
			return step.Value, nil
		case StepFail:
			st.inside = st.host.Frames()
			return nil, thrown(step.Value)
		}
	}
	st.inside = st.host.Frames()
	return last, nil
}

func resourceOf(v any) ledger.Resource {
	if v == nil {
		return nil
	}
	return fmt.Sprint(v)
}

// thrown builds the scripted error a step raises. Its message is the
// step value verbatim.
func thrown(v any) error {
	if v == nil {
		return stderrors.New("thrown")
	}
	return stderrors.New(fmt.Sprint(v))
}

// Execute runs every driver action of sc and returns the trace.
func Execute(rt *fiber.Runtime, host *ledger.Stack, sc *Scenario) (*Trace, error) {
	st, err := NewStepper(rt, host, sc)
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := st.Next(); !ok {
			break
		}
	}
	tr := st.Trace()
	return tr, st.Close()
}
