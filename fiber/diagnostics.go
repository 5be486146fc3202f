package fiber

import (
	"bytes"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
)

// diagnostics reports every intercepted switch according to a TraceLevel.
type diagnostics struct {
	log           *zap.Logger
	includeInPath []byte
	level         TraceLevel
	stack         func() []byte
}

func newDiagnostics(log *zap.Logger, level TraceLevel, includeInPath string) *diagnostics {
	return &diagnostics{
		log:           log,
		level:         level,
		includeInPath: []byte(includeInPath),
		stack:         debug.Stack,
	}
}

// usingFibers must never fail the switch it reports, so it swallows its
// own panics.
func (d *diagnostics) usingFibers(op string) {
	if d == nil || d.level <= TraceOff {
		return
	}
	defer func() {
		_ = recover()
	}()

	msg := fmt.Sprintf("[FIBERS_LOG] Using %s.", op)
	if d.level == TraceNotice {
		d.log.Warn(msg)
		return
	}

	stack := d.stack()
	if len(d.includeInPath) > 0 && !bytes.Contains(stack, d.includeInPath) {
		return
	}
	d.log.Warn(msg, zap.ByteString("stack", stack))
}
