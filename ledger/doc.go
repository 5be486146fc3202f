// Package ledger models the causality ledger: the stack of currently
// executing async operations that attributes every callback to the
// operation that triggered it.
//
// A fiber switch replaces the running call stack without going through
// normal call/return, so the ledger has to be saved before the switch and
// put back afterward:
//
//	snap := ledger.CaptureAndClear(l)
//	defer ledger.Replay(l, snap)
//	jump()
//
// The ledger is only reachable through the Ledger interface. A Ledger is
// obtained by probing a host once:
//
//	caps := ledger.Probe(ledger.Default())
//	if caps.Available {
//	    use(caps.Ledger)
//	}
//
// Probe resolves each primitive (stack depth, pop, push, execution id,
// trigger id, execution resource, resource registry) from an ordered list
// of method-name variants and reports what it found. A host that lacks a
// primitive yields unavailable capabilities rather than an error.
//
// # Corruption
//
// Popping an id that is not on top is an invariant violation. Ledger
// implementations panic with an *errors.Error of kind corruption and make
// no attempt to recover.
package ledger
