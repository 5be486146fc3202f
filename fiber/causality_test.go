package fiber

import (
	"testing"

	"github.com/wippyai/fibers/ledger"
)

// Each side of a switch must keep seeing its own frames.
func TestCausality_AcrossRealSwitches(t *testing.T) {
	rt, host := newTestRuntime(t)

	driver := host.Enter("driver", 0)
	defer host.Exit(driver)

	var insideBeforeYield, insideAfterResume ledger.Snapshot
	f := rt.New(func(any) (any, error) {
		if host.StackDepth() != 0 {
			t.Errorf("fiber started with inherited frames: %v", host.Frames())
		}
		own := host.Enter("fiber", 0)
		insideBeforeYield = host.Frames()

		if _, err := rt.Yield("first"); err != nil {
			return nil, err
		}
		insideAfterResume = host.Frames()
		host.Exit(own)
		return "done", nil
	})

	if _, err := f.Run(nil); err != nil {
		t.Fatal(err)
	}
	afterYield := host.Frames()
	if len(afterYield) != 1 || afterYield[0].ID != driver.ID {
		t.Errorf("driver ledger after yield = %v", afterYield)
	}

	// driver work in between must not leak into the fiber
	extra := host.Enter("between", 0)
	if _, err := f.Run(nil); err != nil {
		t.Fatal(err)
	}
	host.Exit(extra)

	if !insideAfterResume.Equal(insideBeforeYield) {
		t.Errorf("fiber ledger after resume = %v, want %v", insideAfterResume, insideBeforeYield)
	}
	if len(insideBeforeYield) != 1 || insideBeforeYield[0].Resource != "fiber" {
		t.Errorf("fiber ledger = %v", insideBeforeYield)
	}
	if got := host.Frames(); len(got) != 1 || got[0].ID != driver.ID {
		t.Errorf("driver ledger at end = %v", got)
	}
}

func TestCausality_DisabledLeaksFrames(t *testing.T) {
	rt, host := newTestRuntime(t, WithCausality(false))
	if rt.Capabilities().Available {
		t.Fatal("probe should not run when causality is disabled")
	}

	driver := host.Enter("driver", 0)
	defer host.Exit(driver)

	var depthInside int
	f := rt.New(func(any) (any, error) {
		depthInside = host.StackDepth()
		return nil, nil
	})
	if _, err := f.Run(nil); err != nil {
		t.Fatal(err)
	}
	if depthInside != 1 {
		t.Errorf("without preservation the fiber sees the driver's frames, depth = %d", depthInside)
	}
}

func TestCausality_UnavailableHost(t *testing.T) {
	rt, err := NewRuntime(WithLedgerHost(nil))
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close()

	if rt.Preserving() {
		t.Error("runtime without ledger host should not intercept")
	}
	if rt.Capabilities().Err() == nil {
		t.Error("capabilities should explain what is missing")
	}

	f := rt.New(func(arg any) (any, error) {
		v, err := rt.Yield(arg)
		return v, err
	})
	if v, err := f.Run(1); v != 1 || err != nil {
		t.Errorf("Run = %v, %v", v, err)
	}
	if v, err := f.Run(2); v != 2 || err != nil {
		t.Errorf("Run = %v, %v", v, err)
	}
}

// Frames a fiber leaves open when it ends must not land on the driver.
func TestCausality_TerminatedFiberLeavesNoFrames(t *testing.T) {
	tests := []struct {
		name string
		fn   func(rt *Runtime, host *ledger.Stack) Func
	}{
		{"return", func(_ *Runtime, host *ledger.Stack) Func {
			return func(any) (any, error) {
				host.Enter("leaked", 0)
				return "done", nil
			}
		}},
		{"panic", func(_ *Runtime, host *ledger.Stack) Func {
			return func(any) (any, error) {
				host.Enter("leaked", 0)
				panic("boom")
			}
		}},
		{"after yield", func(rt *Runtime, host *ledger.Stack) Func {
			return func(any) (any, error) {
				host.Enter("leaked", 0)
				return rt.Yield(nil)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, logs := observed()
			rt, host := newTestRuntime(t, WithLogger(log))

			driver := host.Enter("driver", 0)
			defer host.Exit(driver)
			want := host.Frames()

			f := rt.New(tt.fn(rt, host))
			for i := 0; i < 3 && f.State() != StateTerminated; i++ {
				_, _ = f.Run(nil)
				if got := host.Frames(); !got.Equal(want) {
					t.Errorf("driver ledger after run %d = %v, want %v", i+1, got, want)
				}
			}

			if f.State() != StateTerminated {
				t.Fatalf("state = %s", f.State())
			}
			if logs.FilterMessage("fiber terminated with open ledger frames").Len() != 1 {
				t.Error("dropped frames should be logged once")
			}
		})
	}
}
