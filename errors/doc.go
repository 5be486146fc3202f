// Package errors provides structured error types for the fibers module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the operation name, the fiber id, a remediation hint and
// a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseSwitch, errors.KindInvalidState).
//		Op("Fiber.run").
//		Fiber(f.ID()).
//		Detail("fiber is running").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.DeadFiber("Fiber.run", id)
//	err := errors.MissingBackend(key.String(), nil)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
