// Package fiber provides cooperative fibers: functions that can suspend in
// the middle of execution and later resume exactly where they left off.
//
// # Quick Start
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
//	v, _ := gen.Run(nil) // 0
//	v, _ = gen.Run(nil)  // 1
//
// # Lifecycle
//
//	created --Run--> running --Yield--> suspended --Run/ThrowInto--> running
//	running --return/error/panic--> terminated
//
// Run and ThrowInto block until the fiber yields or terminates. At most
// one fiber of a Runtime runs at a time. Cancellation is done by throwing
// an error into a suspended fiber; Reset throws errors.ErrReset and Close
// resets every fiber still alive.
//
// # Causality Preservation
//
// A stack switch bypasses normal call/return, so the causality ledger
// (package ledger) would describe the wrong fiber after every switch.
// NewRuntime probes the ledger host once and, when every primitive is
// present, wraps the native Switcher with Preserve: each Yield, Run and
// ThrowInto drains the ledger into a snapshot, performs the switch, and
// replays the snapshot on every exit path. Results and errors pass
// through untouched. When the probe fails the native switcher is used
// directly.
//
// # Configuration
//
// LoadConfig reads the environment:
//
//	FIBERS_PRESERVE_CAUSALITY       enable the interceptor (default true)
//	ENABLE_LOG_USE_FIBERS           0 off, 1 one line per switch, 2 stack dump
//	LOG_USE_FIBERS_INCLUDE_IN_PATH  only dump stacks containing this text
//	FIBERS_BACKEND                  backend key override (os-arch-abi[-libc])
//
// # Backends
//
// The native switcher is resolved by platform key. The goroutine backend is
// registered for every key; RegisterBackend adds platform-specific ones.
//
// # Lifecycle Events
//
// Runtime.Subscribe registers an Observer that is told when a fiber is
// created, first started and terminated.
package fiber
