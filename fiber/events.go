package fiber

// Event types for fiber lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventStarted
	EventTerminated
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventStarted:
		return "started"
	case EventTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Event represents a fiber lifecycle event. Err is the error the fiber
// terminated with, if any.
type Event struct {
	Err   error
	Fiber uint64
	Type  EventType
}

// Observer receives notifications about fiber lifecycle events. Observers
// are called synchronously on the goroutine that caused the transition and
// must not block.
type Observer interface {
	OnFiberEvent(Event)
}

// Subscribe adds an observer for lifecycle events.
func (rt *Runtime) Subscribe(o Observer) {
	rt.obsMu.Lock()
	defer rt.obsMu.Unlock()
	rt.observers = append(rt.observers, o)
}

// Unsubscribe removes an observer. o must be comparable.
func (rt *Runtime) Unsubscribe(o Observer) {
	rt.obsMu.Lock()
	defer rt.obsMu.Unlock()
	for i, obs := range rt.observers {
		if obs == o {
			rt.observers = append(rt.observers[:i], rt.observers[i+1:]...)
			return
		}
	}
}

func (rt *Runtime) notify(e Event) {
	rt.obsMu.RLock()
	defer rt.obsMu.RUnlock()
	for _, o := range rt.observers {
		o.OnFiberEvent(e)
	}
}
