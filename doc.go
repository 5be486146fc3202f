// Package fibers provides cooperative coroutines for Go that keep the
// causality ledger of each side intact across stack switches.
//
// A fiber runs on its own stack and only while some caller is blocked in
// Run or ThrowInto. Every switch leaves the ledger of async operations that
// was live on the running side behind, so without help a fiber would see
// its caller's frames and the caller would see the fiber's. The runtime
// snapshots and clears the ledger before each switch and replays the
// snapshot when control comes back.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	fibers/
//	├── fiber/       Runtime, Fiber lifecycle, switch interception, backends
//	├── ledger/      Causality ledger, snapshot/replay and the capability probe
//	├── scenario/    Scripted fiber runs recorded as ledger traces
//	├── errors/      Structured error types for debugging
//	└── cmd/run/     CLI and interactive stepper for scenarios
//
// # Quick Start
//
// Create a runtime and drive a generator:
//
//	rt, err := fiber.NewRuntime()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	gen := rt.New(func(arg any) (any, error) {
//	    for i := 0; i < 3; i++ {
//	        if _, err := rt.Yield(i); err != nil {
//	            return nil, err
//	        }
//	    }
//	    return "done", nil
//	})
//
//	v, err := gen.Run(nil) // 0
//
// # Causality Preservation
//
// NewRuntime probes the ledger host once. When every primitive is found,
// Yield, Run and ThrowInto are wrapped so that each side keeps its own
// frames. When the host lacks a primitive the runtime logs at debug level
// and switches stacks without touching the ledger.
//
// # Configuration
//
// fiber.NewRuntime reads FIBERS_PRESERVE_CAUSALITY, FIBERS_BACKEND,
// ENABLE_LOG_USE_FIBERS and LOG_USE_FIBERS_INCLUDE_IN_PATH from the
// environment through fiber.LoadConfig. Options passed to NewRuntime
// override the environment.
//
// # Thread Safety
//
// A Runtime runs at most one of its fibers at a time. Its fibers must not
// be driven from several goroutines concurrently.
package fibers
