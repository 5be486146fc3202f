package ledger

// CaptureAndClear drains l into a snapshot. The ledger is empty afterward.
func CaptureAndClear(l Ledger) Snapshot {
	n := l.Depth()
	s := make(Snapshot, n)
	for i := n - 1; i >= 0; i-- {
		top := l.Top()
		s[i] = top
		l.Pop(top.ID)
	}
	return s
}

// Replay pushes s back onto l, deepest frame first, so that
// Replay(l, CaptureAndClear(l)) leaves l unchanged.
func Replay(l Ledger, s Snapshot) {
	for i := range s {
		l.Push(s[i])
	}
}
