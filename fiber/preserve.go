package fiber

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/fibers/ledger"
)

const tracerName = "github.com/wippyai/fibers/fiber"

// PreserveOption configures Preserve.
type PreserveOption func(*preserving)

// WithDiagnostics logs every intercepted switch at the given level.
func WithDiagnostics(log *zap.Logger, level TraceLevel, includeInPath string) PreserveOption {
	return func(p *preserving) {
		p.diag = newDiagnostics(log, level, includeInPath)
		if log != nil {
			p.log = log
		}
	}
}

// WithTracer records one span per intercepted switch.
func WithTracer(tp trace.TracerProvider) PreserveOption {
	return func(p *preserving) {
		if tp != nil {
			p.tracer = tp.Tracer(tracerName)
		}
	}
}

// preserving drains the causality ledger before every switch and replays
// it once control comes back, on every exit path.
type preserving struct {
	inner  Switcher
	ledger ledger.Ledger
	diag   *diagnostics
	tracer trace.Tracer
	log    *zap.Logger
}

// Preserve wraps inner so that the causality ledger in caps survives every
// stack switch. When caps is unavailable inner is returned as is.
func Preserve(inner Switcher, caps ledger.Capabilities, opts ...PreserveOption) Switcher {
	if !caps.Available || caps.Ledger == nil {
		return inner
	}
	p := &preserving{
		inner:  inner,
		ledger: caps.Ledger,
		tracer: otel.GetTracerProvider().Tracer(tracerName),
		log:    Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *preserving) Yield(v any) (any, error) {
	return p.around(OpYield, func() (any, error) {
		return p.inner.Yield(v)
	})
}

func (p *preserving) Run(f *Fiber, v any) (any, error) {
	return p.around(OpRun, func() (any, error) {
		return p.inner.Run(f, v)
	})
}

func (p *preserving) ThrowInto(f *Fiber, err error) (any, error) {
	return p.around(OpThrowInto, func() (any, error) {
		return p.inner.ThrowInto(f, err)
	})
}

func (p *preserving) around(op string, jump func() (any, error)) (res any, err error) {
	p.diag.usingFibers(op)

	depth := p.ledger.Depth()
	_, span := p.tracer.Start(context.Background(), op,
		trace.WithAttributes(attribute.Int("fiber.ledger.depth", depth)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	snap := ledger.CaptureAndClear(p.ledger)
	defer func() {
		// both sides clear before switching, so anything still here was
		// left open by a fiber that terminated
		if left := ledger.CaptureAndClear(p.ledger); len(left) > 0 {
			p.log.Warn("fiber terminated with open ledger frames",
				zap.String("op", op),
				zap.Stringer("frames", left))
		}
		ledger.Replay(p.ledger, snap)
	}()

	return jump()
}
