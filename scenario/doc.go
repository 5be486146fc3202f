// Package scenario drives a fiber through a scripted sequence of switches
// and records the causality ledger each side observes.
//
// A scenario file names the frames live on the driver side, the steps the
// fiber body executes and the actions the driver performs:
//
//	name: cancel-while-waiting
//	ledger:
//	  - {op: 1, trig: 0, resource: request}
//	  - {op: 2, trig: 1}
//	fiber:
//	  - enter: job
//	  - yield: waiting
//	  - return: done
//	driver:
//	  - run: start
//	  - throw: cancelled
//
// Fiber steps are enter, exit, yield, return and fail. Driver actions are
// run, throw and reset. Without driver actions the fiber is run until it
// terminates.
//
// Execute runs the whole script, while a Stepper advances one action at a
// time:
//
//	sc, err := scenario.Load("cancel.yaml")
//	if err != nil {
//		return err
//	}
//	trace, err := scenario.Execute(rt, ledger.Default(), sc)
//
// Each Event reports whether the driver's ledger after the action equals
// the ledger it held before. Trace.Consistent is true when every event did.
package scenario
