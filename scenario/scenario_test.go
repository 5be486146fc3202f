package scenario

import (
	stderrors "errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/fibers/errors"
	"github.com/wippyai/fibers/fiber"
	"github.com/wippyai/fibers/ledger"
)

func newRuntime(t *testing.T, opts ...fiber.Option) (*fiber.Runtime, *ledger.Stack) {
	t.Helper()
	host := ledger.NewStack()
	rt, err := fiber.NewRuntime(append([]fiber.Option{fiber.WithLedgerHost(host)}, opts...)...)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt, host
}

func isKind(err error, kind errors.Kind) bool {
	var e *errors.Error
	return stderrors.As(err, &e) && e.Kind == kind
}

func TestExecute_DemoPreserving(t *testing.T) {
	rt, host := newRuntime(t)

	tr, err := Execute(rt, host, Demo())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !tr.Preserving || !tr.Consistent {
		t.Errorf("trace preserving=%v consistent=%v", tr.Preserving, tr.Consistent)
	}
	if tr.Initial != "[{op:1,trig:0},{op:2,trig:1}]" {
		t.Errorf("initial = %s", tr.Initial)
	}
	if len(tr.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(tr.Events))
	}

	first := tr.Events[0]
	if first.Output != "x" || first.State != "suspended" {
		t.Errorf("first event = %+v", first)
	}
	if first.Fiber != "[{op:3,trig:0}]" {
		t.Errorf("fiber saw %s, want only its own frame", first.Fiber)
	}
	if first.Driver != tr.Initial {
		t.Errorf("driver ledger after yield = %s", first.Driver)
	}

	last := tr.Events[1]
	if last.Output != "done" || last.State != "terminated" || last.Fiber != "[]" {
		t.Errorf("last event = %+v", last)
	}
	if host.StackDepth() != 0 {
		t.Errorf("ledger not cleaned up: %v", host.Frames())
	}
}

func TestExecute_DemoWithoutPreservation(t *testing.T) {
	rt, host := newRuntime(t, fiber.WithCausality(false))

	tr, err := Execute(rt, host, Demo())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if tr.Preserving || tr.Consistent {
		t.Errorf("trace preserving=%v consistent=%v", tr.Preserving, tr.Consistent)
	}
	if tr.Events[0].Restored {
		t.Error("the fiber's frame should leak into the driver after yield")
	}
	if !strings.Contains(tr.Events[0].Driver, "{op:3,trig:2}") {
		t.Errorf("driver ledger = %s", tr.Events[0].Driver)
	}
	if !tr.Events[1].Restored {
		t.Error("the leaked frame is gone once the fiber exits it")
	}
}

func TestLoad_Cancel(t *testing.T) {
	sc, err := Load("testdata/cancel.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sc.Name != "cancel-while-waiting" || len(sc.Fiber) != 3 || len(sc.Driver) != 2 {
		t.Fatalf("scenario = %+v", sc)
	}
	if sc.Fiber[1].Kind != StepYield || sc.Fiber[1].Value != "waiting" {
		t.Errorf("step = %v", sc.Fiber[1])
	}

	rt, host := newRuntime(t)
	tr, err := Execute(rt, host, sc)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !tr.Consistent {
		t.Errorf("trace not consistent: %+v", tr.Events)
	}
	thrown := tr.Events[1]
	if thrown.Error != "cancelled" || thrown.State != "terminated" {
		t.Errorf("throw event = %+v", thrown)
	}
	if tr.Events[0].Fiber != "[{op:8,trig:0}]" {
		t.Errorf("fiber frame = %s, want an id past the scenario ops", tr.Events[0].Fiber)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load("testdata/nope.yaml")
	if !isKind(err, errors.KindNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		kind errors.Kind
	}{
		{"unknown step", "fiber:\n  - jump: 1\n", errors.KindNotFound},
		{"unknown action", "driver:\n  - kick: 1\n", errors.KindNotFound},
		{"two keys", "fiber:\n  - {yield: 1, fail: x}\n", errors.KindInvalidInput},
		{"zero op", "ledger:\n  - {op: 0}\n", errors.KindInvalidInput},
		{"duplicate op", "ledger:\n  - {op: 1}\n  - {op: 1}\n", errors.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if !isKind(err, tt.kind) {
				t.Errorf("err = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestStepper_ResetAndRunToCompletion(t *testing.T) {
	rt, host := newRuntime(t)

	st, err := NewStepper(rt, host, &Scenario{
		Fiber:  []Step{{Kind: StepEnter, Value: "job"}, {Kind: StepYield, Value: 1}, {Kind: StepYield, Value: 2}},
		Driver: []Step{{Kind: ActionRun}, {Kind: ActionReset}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if act, ok := st.Pending(); !ok || act.Kind != ActionRun {
		t.Fatalf("pending = %v, %v", act, ok)
	}
	st.Next()
	ev, ok := st.Next()
	if !ok || ev.Action != ActionReset || ev.Error != "" || ev.State != "terminated" {
		t.Errorf("reset event = %+v", ev)
	}
	if !st.Done() {
		t.Error("stepper should be exhausted")
	}
	if err := st.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	// no driver actions: run until the fiber returns
	tr, err := Execute(rt, host, &Scenario{
		Fiber: []Step{{Kind: StepYield, Value: 1}, {Kind: StepYield, Value: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.Events) != 3 || tr.Events[2].State != "terminated" {
		t.Errorf("events = %+v", tr.Events)
	}
}

func TestStepper_CloseKeepsOuterFrames(t *testing.T) {
	rt, host := newRuntime(t, fiber.WithCausality(false))
	outer := host.Enter("outer", 0)

	st, err := NewStepper(rt, host, Demo())
	if err != nil {
		t.Fatal(err)
	}
	// leave the fiber suspended with its frame leaked onto the ledger
	st.Next()
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := host.Frames(); len(got) != 1 || got[0].ID != outer.ID {
		t.Errorf("ledger after Close = %v", got)
	}
	if _, ok := st.Next(); ok {
		t.Error("closed stepper should not advance")
	}
}

func TestStep_MarshalYAML(t *testing.T) {
	out, err := yaml.Marshal(Step{Kind: StepYield, Value: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(out)) != "yield: x" {
		t.Errorf("marshal = %q", out)
	}
}

func TestStepper_NextWith(t *testing.T) {
	rt, host := newRuntime(t)

	st, err := NewStepper(rt, host, &Scenario{
		Fiber:  []Step{{Kind: StepYield, Value: "ready"}, {Kind: StepFail, Value: "unused"}},
		Driver: []Step{{Kind: ActionRun}, {Kind: ActionThrow, Value: "scripted"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	st.Next()
	ev, _ := st.NextWith("overridden")
	if ev.Error != "overridden" || ev.Input != "overridden" {
		t.Errorf("event = %+v", ev)
	}
}

func TestStep_UnmarshalYAMLShape(t *testing.T) {
	for _, doc := range []string{"yield", "[run, 1]", "{run: 1, yield: 2}"} {
		var s Step
		err := yaml.Unmarshal([]byte(doc), &s)
		if !isKind(err, errors.KindInvalidInput) {
			t.Errorf("Unmarshal(%q) err = %v, want invalid input", doc, err)
		}
	}
}

func TestStepper_ExitWithoutEnter(t *testing.T) {
	rt, host := newRuntime(t)

	st, err := NewStepper(rt, host, &Scenario{
		Fiber:  []Step{{Kind: StepExit}},
		Driver: []Step{{Kind: ActionRun}},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	ev, ok := st.Next()
	if !ok {
		t.Fatal("expected one event")
	}
	if ev.State != "terminated" {
		t.Errorf("state = %s", ev.State)
	}
	if !strings.Contains(ev.Error, "[scenario] invalid_input") || !strings.Contains(ev.Error, "exit without matching enter") {
		t.Errorf("error = %q", ev.Error)
	}
	if !ev.Restored {
		t.Errorf("driver ledger = %s", ev.Driver)
	}
}
