package ledger

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Stack is an in-process causality ledger. It records nested executing
// operations the way a host runtime's async tracking does: an id stack
// plus a parallel registry of executing resources, one per position.
//
// The methods named after the host primitives (StackDepth, PopAsyncContext,
// PushAsyncContext, ExecutionAsyncID, TriggerAsyncID, ExecutionAsyncResource,
// AppendExecutionResource) form the surface resolved by Probe.
type Stack struct {
	mu        sync.Mutex
	frames    []Frame
	resources []Resource
	nextID    atomic.Uint64
}

var defaultStack = NewStack()

// Default returns the process-wide ledger.
func Default() *Stack {
	return defaultStack
}

// NewStack creates an empty ledger. Ids start at 1.
func NewStack() *Stack {
	return &Stack{}
}

// NewID allocates a fresh operation id.
func (s *Stack) NewID() ID {
	return ID(s.nextID.Add(1))
}

// Reserve makes sure NewID never again returns an id at or below id.
func (s *Stack) Reserve(id ID) {
	for {
		cur := s.nextID.Load()
		if uint64(id) <= cur || s.nextID.CompareAndSwap(cur, uint64(id)) {
			return
		}
	}
}

// Enter starts executing a new operation triggered by trigger and makes it
// the current one. A zero trigger means "triggered by the current operation".
func (s *Stack) Enter(resource Resource, trigger ID) Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	if trigger == 0 && len(s.frames) > 0 {
		trigger = s.frames[len(s.frames)-1].ID
	}
	f := Frame{ID: s.NewID(), TriggerID: trigger, Resource: resource}
	s.frames = append(s.frames, Frame{ID: f.ID, TriggerID: f.TriggerID})
	s.resources = append(s.resources, resource)
	return f
}

// Exit leaves f, which must be the current operation.
func (s *Stack) Exit(f Frame) {
	if !s.PopAsyncContext(f.ID) {
		panic(corruptPop(f.ID, s.ExecutionAsyncID()))
	}
}

// StackDepth returns the number of live frames.
func (s *Stack) StackDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// ExecutionAsyncID returns the id of the current operation, or 0.
func (s *Stack) ExecutionAsyncID() ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return 0
	}
	return s.frames[len(s.frames)-1].ID
}

// TriggerAsyncID returns the trigger of the current operation, or 0.
func (s *Stack) TriggerAsyncID() ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return 0
	}
	return s.frames[len(s.frames)-1].TriggerID
}

// ExecutionAsyncResource returns the resource of the current operation.
func (s *Stack) ExecutionAsyncResource() Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.frames)
	if n == 0 || len(s.resources) < n {
		return nil
	}
	return s.resources[n-1]
}

// PopAsyncContext removes the top frame if it carries id. It reports false
// when the ledger is empty or the top frame has a different id; nothing is
// removed in that case.
func (s *Stack) PopAsyncContext(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.frames)
	if n == 0 || s.frames[n-1].ID != id {
		return false
	}
	if len(s.resources) == n {
		s.resources[n-1] = nil
		s.resources = s.resources[:n-1]
	}
	s.frames = s.frames[:n-1]
	return true
}

// PushAsyncContext pushes ids only. The caller restores the resource
// registry separately with AppendExecutionResource.
func (s *Stack) PushAsyncContext(id, trigger ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, Frame{ID: id, TriggerID: trigger})
}

// AppendExecutionResource appends r to the resource registry.
func (s *Stack) AppendExecutionResource(r Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.resources) >= len(s.frames) {
		Logger().Warn("resource registry ahead of id stack",
			zap.Int("resources", len(s.resources)),
			zap.Int("frames", len(s.frames)))
	}
	s.resources = append(s.resources, r)
}

// Frames returns a copy of the live frames, deepest first.
func (s *Stack) Frames() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(Snapshot, len(s.frames))
	for i, f := range s.frames {
		out[i] = f
		if i < len(s.resources) {
			out[i].Resource = s.resources[i]
		}
	}
	return out
}

// Resources returns a copy of the resource registry.
func (s *Stack) Resources() []Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Resource(nil), s.resources...)
}

// Reset drops every frame. Ids keep increasing.
func (s *Stack) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.resources)
	s.frames = s.frames[:0]
	s.resources = s.resources[:0]
}
