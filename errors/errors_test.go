package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseSwitch,
				Kind:   KindInvalidState,
				Op:     "Fiber.run",
				Fiber:  7,
				Detail: "fiber is running",
			},
			contains: []string{"[switch]", "invalid_state", "Fiber.run", "fiber 7", "fiber is running"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseLedger,
				Kind:  KindCorruption,
			},
			contains: []string{"[ledger]", "corruption"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseConfig,
				Kind:   KindInvalidInput,
				Detail: "bad env",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[config]", "invalid_input", "bad env", "caused by", "underlying error"},
		},
		{
			name:     "error with hint",
			err:      MissingBackend("plan9-mips-go1.25", nil),
			contains: []string{"[resolve]", "missing_backend", "plan9-mips-go1.25", "RegisterBackend"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseSwitch,
		Kind:  KindPanic,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:  PhaseSwitch,
		Kind:   KindDeadFiber,
		Detail: "whatever",
	}

	if !err.Is(&Error{Phase: PhaseSwitch, Kind: KindDeadFiber}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseLedger, Kind: KindDeadFiber}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseSwitch, Kind: KindInvalidState}) {
		t.Error("Is should not match different kind")
	}

	if !errors.Is(DeadFiber("Fiber.run", 3), &Error{Phase: PhaseSwitch, Kind: KindDeadFiber}) {
		t.Error("errors.Is should match")
	}
}

func TestErrReset(t *testing.T) {
	wrapped := Wrap(PhaseSwitch, KindInvalidState, ErrReset, "reset ignored")
	if !errors.Is(wrapped, ErrReset) {
		t.Error("wrapped reset should match ErrReset through the cause chain")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseSwitch, KindInvalidState).
		Op("Fiber.throwInto").
		Fiber(12).
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "suspended", "running").
		Hint("call %s first", "Yield").
		Build()

	if err.Phase != PhaseSwitch {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseSwitch)
	}
	if err.Kind != KindInvalidState {
		t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidState)
	}
	if err.Op != "Fiber.throwInto" {
		t.Errorf("Op = %q, want Fiber.throwInto", err.Op)
	}
	if err.Fiber != 12 {
		t.Errorf("Fiber = %d, want 12", err.Fiber)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected suspended, got running" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if err.Hint != "call Yield first" {
		t.Errorf("Hint = %q", err.Hint)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("Unavailable", func(t *testing.T) {
		err := Unavailable([]string{"stack-depth", "push"})
		if err.Kind != KindUnavailable {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnavailable)
		}
		if !strings.Contains(err.Detail, "stack-depth, push") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("Corruption", func(t *testing.T) {
		err := Corruption("pop %d on empty ledger", 4)
		if err.Kind != KindCorruption || err.Phase != PhaseLedger {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
		if err.Detail != "pop 4 on empty ledger" {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("Panic with error value", func(t *testing.T) {
		cause := errors.New("boom")
		err := Panic(3, cause, nil)
		if !errors.Is(err, cause) {
			t.Error("panic error should unwrap to the recovered error")
		}
		if err.Hint != "" {
			t.Errorf("Hint = %q, want empty", err.Hint)
		}
	})

	t.Run("Panic with stack", func(t *testing.T) {
		err := Panic(3, "oops", []byte("goroutine 1"))
		if err.Cause != nil {
			t.Error("non-error panic value should have no cause")
		}
		if err.Hint != "goroutine 1" {
			t.Errorf("Hint = %q", err.Hint)
		}
	})

	t.Run("NotInFiber", func(t *testing.T) {
		err := NotInFiber("Fiber.yield")
		if err.Kind != KindNotInFiber || err.Op != "Fiber.yield" {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseScenario, "step", "jump")
		if !strings.Contains(err.Error(), `step "jump" not found`) {
			t.Errorf("message = %q", err.Error())
		}
	})
}
