package ledger

import (
	"fmt"
	"reflect"
	"strings"
)

// ID identifies one in-flight async operation. Zero means no operation.
type ID uint64

// Resource is an opaque handle to the async resource owning a frame.
// The ledger never owns it.
type Resource any

// Frame is one entry of the causality ledger.
type Frame struct {
	Resource  Resource
	ID        ID
	TriggerID ID
}

func (f Frame) String() string {
	return fmt.Sprintf("{op:%d,trig:%d}", f.ID, f.TriggerID)
}

// Ledger is the access surface of a causality ledger. Implementations
// panic with a corruption error when Pop is called with an id that is
// not on top, including on an empty ledger.
type Ledger interface {
	// Depth returns the number of live frames.
	Depth() int
	// Top returns the currently executing frame, or the zero Frame when empty.
	Top() Frame
	// Pop removes the top frame, which must carry id.
	Pop(id ID)
	// Push makes f the new top and appends its resource to the
	// resource registry.
	Push(f Frame)
}

// Snapshot is a point-in-time copy of a ledger. Slot 0 holds the deepest
// frame, the last slot holds the frame that was on top.
type Snapshot []Frame

// Equal reports whether both snapshots hold the same ids in the same order.
// Resources are compared with == when their dynamic values are comparable
// and structurally otherwise.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i].ID != other[i].ID || s[i].TriggerID != other[i].TriggerID {
			return false
		}
		if !sameResource(s[i].Resource, other[i].Resource) {
			return false
		}
	}
	return true
}

func (s Snapshot) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = f.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func sameResource(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	if va.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
