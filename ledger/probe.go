package ledger

import (
	"sort"

	"go.uber.org/zap"

	"github.com/wippyai/fibers/errors"
)

// Primitive names one host capability the ledger view is built from.
type Primitive string

const (
	PrimStackDepth       Primitive = "stack-depth"
	PrimPop              Primitive = "pop"
	PrimPush             Primitive = "push"
	PrimExecutionID      Primitive = "execution-id"
	PrimTriggerID        Primitive = "trigger-id"
	PrimExecutionRes     Primitive = "execution-resource"
	PrimResourceRegistry Primitive = "resource-registry"
)

// Primitives lists every capability Probe requires, in probe order.
var Primitives = []Primitive{
	PrimStackDepth,
	PrimPop,
	PrimPush,
	PrimExecutionID,
	PrimTriggerID,
	PrimExecutionRes,
	PrimResourceRegistry,
}

// Host surfaces. Current names first, then the historical variant.
type (
	stackDepther       interface{ StackDepth() int }
	stackLengther      interface{ StackLength() int }
	asyncContextPop    interface{ PopAsyncContext(ID) bool }
	asyncIDsPop        interface{ PopAsyncIDs(ID) bool }
	asyncContextPush   interface{ PushAsyncContext(id, trigger ID) }
	asyncIDsPush       interface{ PushAsyncIDs(id, trigger ID) }
	executionIDer      interface{ ExecutionAsyncID() ID }
	currentIDer        interface{ CurrentAsyncID() ID }
	triggerIDer        interface{ TriggerAsyncID() ID }
	currentTriggerer   interface{ CurrentTriggerID() ID }
	executionResourcer interface{ ExecutionAsyncResource() Resource }
	resourceAppender   interface{ AppendExecutionResource(Resource) }
)

// Capabilities is the typed result of probing a host.
type Capabilities struct {
	// Ledger is nil unless Available.
	Ledger Ledger
	// Variants maps each resolved primitive to the host method that serves it.
	Variants map[Primitive]string
	// Missing lists unresolved primitives in probe order.
	Missing   []Primitive
	Available bool
}

// Err describes why the capabilities are unavailable, or nil.
func (c Capabilities) Err() error {
	if c.Available {
		return nil
	}
	names := make([]string, len(c.Missing))
	for i, p := range c.Missing {
		names[i] = string(p)
	}
	return errors.Unavailable(names)
}

// Unavailable returns capabilities with every primitive missing.
func Unavailable() Capabilities {
	return Capabilities{Missing: append([]Primitive(nil), Primitives...)}
}

type variant[T any] struct {
	name    string
	resolve func(host any) (T, bool)
}

func resolve[T any](host any, vs ...variant[T]) (T, string, bool) {
	for _, v := range vs {
		if fn, ok := v.resolve(host); ok {
			return fn, v.name, true
		}
	}
	var zero T
	return zero, "", false
}

// Probe inspects host once and builds a Ledger view over its primitives.
// Each primitive is resolved from an ordered list of variants. When any
// primitive cannot be resolved the result is unavailable; no error is
// raised.
func Probe(host any) Capabilities {
	caps := Capabilities{Variants: make(map[Primitive]string)}
	if host == nil {
		caps.Missing = append(caps.Missing, Primitives...)
		Logger().Debug("ledger probe: no host")
		return caps
	}

	var hl hostLedger
	note := func(p Primitive, name string, ok bool) {
		if ok {
			caps.Variants[p] = name
		} else {
			caps.Missing = append(caps.Missing, p)
		}
	}

	var (
		name string
		ok   bool
	)

	hl.depth, name, ok = resolve(host,
		variant[func() int]{"StackDepth", func(h any) (func() int, bool) {
			v, ok := h.(stackDepther)
			if !ok {
				return nil, false
			}
			return v.StackDepth, true
		}},
		variant[func() int]{"StackLength", func(h any) (func() int, bool) {
			v, ok := h.(stackLengther)
			if !ok {
				return nil, false
			}
			return v.StackLength, true
		}},
	)
	note(PrimStackDepth, name, ok)

	hl.pop, name, ok = resolve(host,
		variant[func(ID) bool]{"PopAsyncContext", func(h any) (func(ID) bool, bool) {
			v, ok := h.(asyncContextPop)
			if !ok {
				return nil, false
			}
			return v.PopAsyncContext, true
		}},
		variant[func(ID) bool]{"PopAsyncIDs", func(h any) (func(ID) bool, bool) {
			v, ok := h.(asyncIDsPop)
			if !ok {
				return nil, false
			}
			return v.PopAsyncIDs, true
		}},
	)
	note(PrimPop, name, ok)

	hl.push, name, ok = resolve(host,
		variant[func(ID, ID)]{"PushAsyncContext", func(h any) (func(ID, ID), bool) {
			v, ok := h.(asyncContextPush)
			if !ok {
				return nil, false
			}
			return v.PushAsyncContext, true
		}},
		variant[func(ID, ID)]{"PushAsyncIDs", func(h any) (func(ID, ID), bool) {
			v, ok := h.(asyncIDsPush)
			if !ok {
				return nil, false
			}
			return v.PushAsyncIDs, true
		}},
	)
	note(PrimPush, name, ok)

	hl.executionID, name, ok = resolve(host,
		variant[func() ID]{"ExecutionAsyncID", func(h any) (func() ID, bool) {
			v, ok := h.(executionIDer)
			if !ok {
				return nil, false
			}
			return v.ExecutionAsyncID, true
		}},
		variant[func() ID]{"CurrentAsyncID", func(h any) (func() ID, bool) {
			v, ok := h.(currentIDer)
			if !ok {
				return nil, false
			}
			return v.CurrentAsyncID, true
		}},
	)
	note(PrimExecutionID, name, ok)

	hl.triggerID, name, ok = resolve(host,
		variant[func() ID]{"TriggerAsyncID", func(h any) (func() ID, bool) {
			v, ok := h.(triggerIDer)
			if !ok {
				return nil, false
			}
			return v.TriggerAsyncID, true
		}},
		variant[func() ID]{"CurrentTriggerID", func(h any) (func() ID, bool) {
			v, ok := h.(currentTriggerer)
			if !ok {
				return nil, false
			}
			return v.CurrentTriggerID, true
		}},
	)
	note(PrimTriggerID, name, ok)

	if v, ok := host.(executionResourcer); ok {
		hl.resource = v.ExecutionAsyncResource
		note(PrimExecutionRes, "ExecutionAsyncResource", true)
	} else {
		note(PrimExecutionRes, "", false)
	}

	if v, ok := host.(resourceAppender); ok {
		hl.appendResource = v.AppendExecutionResource
		note(PrimResourceRegistry, "AppendExecutionResource", true)
	} else {
		note(PrimResourceRegistry, "", false)
	}

	if len(caps.Missing) > 0 {
		Logger().Debug("ledger probe: primitives missing, causality preservation disabled",
			zap.Strings("missing", primitiveNames(caps.Missing)))
		return caps
	}

	caps.Available = true
	caps.Ledger = &hl
	Logger().Debug("ledger probe: available", zap.Any("variants", sortedVariants(caps.Variants)))
	return caps
}

// hostLedger adapts resolved host primitives to Ledger.
type hostLedger struct {
	depth          func() int
	pop            func(ID) bool
	push           func(id, trigger ID)
	executionID    func() ID
	triggerID      func() ID
	resource       func() Resource
	appendResource func(Resource)
}

func (h *hostLedger) Depth() int {
	return h.depth()
}

func (h *hostLedger) Top() Frame {
	return Frame{
		ID:        h.executionID(),
		TriggerID: h.triggerID(),
		Resource:  h.resource(),
	}
}

func (h *hostLedger) Pop(id ID) {
	if !h.pop(id) {
		panic(corruptPop(id, h.executionID()))
	}
}

func (h *hostLedger) Push(f Frame) {
	h.push(f.ID, f.TriggerID)
	h.appendResource(f.Resource)
}

func corruptPop(id, top ID) *errors.Error {
	if top == 0 {
		return errors.Corruption("pop %d on empty ledger", id)
	}
	return errors.Corruption("pop %d but current operation is %d", id, top)
}

func primitiveNames(ps []Primitive) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}

func sortedVariants(m map[Primitive]string) []string {
	out := make([]string, 0, len(m))
	for p, name := range m {
		out = append(out, string(p)+"="+name)
	}
	sort.Strings(out)
	return out
}
