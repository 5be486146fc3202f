package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseProbe    Phase = "probe"    // ledger capability detection
	PhaseResolve  Phase = "resolve"  // native backend lookup
	PhaseSwitch   Phase = "switch"   // run, yield, throwInto
	PhaseLedger   Phase = "ledger"   // causality ledger access
	PhaseConfig   Phase = "config"   // environment and options
	PhaseScenario Phase = "scenario" // scenario files
)

// Kind categorizes the error
type Kind string

const (
	KindUnavailable    Kind = "unavailable"
	KindMissingBackend Kind = "missing_backend"
	KindCorruption     Kind = "corruption"
	KindInvalidState   Kind = "invalid_state"
	KindDeadFiber      Kind = "dead_fiber"
	KindNotInFiber     Kind = "not_in_fiber"
	KindPanic          Kind = "panic"
	KindReset          Kind = "reset"
	KindInvalidInput   Kind = "invalid_input"
	KindNotFound       Kind = "not_found"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	Fiber  uint64
	Detail string
	Hint   string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if e.Fiber != 0 {
		fmt.Fprintf(&b, " (fiber %d)", e.Fiber)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	if e.Hint != "" {
		b.WriteString("\n\n")
		b.WriteString(e.Hint)
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Op sets the operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Fiber sets the fiber id
func (b *Builder) Fiber(id uint64) *Builder {
	b.err.Fiber = id
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Hint sets a remediation instruction shown after the message
func (b *Builder) Hint(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Hint = fmt.Sprintf(msg, args...)
	} else {
		b.err.Hint = msg
	}
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// ErrReset is thrown into a suspended fiber by Reset. Fiber bodies that
// intercept errors from Yield should let it propagate.
var ErrReset = &Error{
	Phase:  PhaseSwitch,
	Kind:   KindReset,
	Detail: "fiber reset",
}

// Convenience constructors for common error patterns

// Unavailable creates an error describing ledger primitives the host lacks
func Unavailable(missing []string) *Error {
	return &Error{
		Phase:  PhaseProbe,
		Kind:   KindUnavailable,
		Detail: fmt.Sprintf("missing primitives: %s", strings.Join(missing, ", ")),
		Value:  missing,
	}
}

// MissingBackend creates the fatal startup error for an unresolved native backend
func MissingBackend(key string, cause error) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindMissingBackend,
		Detail: fmt.Sprintf("no fiber backend registered for %q", key),
		Cause:  cause,
		Value:  key,
		Hint:   fmt.Sprintf("Register a backend for this platform with fiber.RegisterBackend(%q, factory), or use \"*\" to fall back to the goroutine backend.", key),
	}
}

// Corruption creates a ledger invariant violation
func Corruption(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseLedger,
		Kind:   KindCorruption,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// InvalidState creates an invalid lifecycle transition error
func InvalidState(op string, fiber uint64, state string) *Error {
	return &Error{
		Phase:  PhaseSwitch,
		Kind:   KindInvalidState,
		Op:     op,
		Fiber:  fiber,
		Detail: fmt.Sprintf("fiber is %s", state),
	}
}

// DeadFiber creates an error for operations on a terminated fiber
func DeadFiber(op string, fiber uint64) *Error {
	return &Error{
		Phase:  PhaseSwitch,
		Kind:   KindDeadFiber,
		Op:     op,
		Fiber:  fiber,
		Detail: "fiber has terminated",
	}
}

// NotInFiber creates an error for yielding outside of any fiber
func NotInFiber(op string) *Error {
	return &Error{
		Phase:  PhaseSwitch,
		Kind:   KindNotInFiber,
		Op:     op,
		Detail: "no fiber is running",
	}
}

// Panic wraps a value recovered from a fiber body
func Panic(fiber uint64, recovered any, stack []byte) *Error {
	e := &Error{
		Phase:  PhaseSwitch,
		Kind:   KindPanic,
		Fiber:  fiber,
		Detail: fmt.Sprintf("fiber panicked: %v", recovered),
		Value:  recovered,
	}
	if err, ok := recovered.(error); ok {
		e.Cause = err
	}
	if len(stack) > 0 {
		e.Hint = string(stack)
	}
	return e
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(phase Phase, what string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}
