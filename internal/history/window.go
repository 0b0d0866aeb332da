package history

// Window is a read-only view over the events of one buffer inside a time
// range: the newest event at or before the window start ("prev"), plus a
// forward cursor over the newer events.
//
// A Window borrows the buffer's storage. It must not be retained across an
// Append, extension, compaction, or scan touching that buffer; relocation
// would leave it pointing at stale bytes.
type Window struct {
	// PrevTime is the time of the event preceding the cursor.
	PrevTime uint32
	// Remaining is the number of events the cursor has not yet consumed.
	Remaining int

	prevTrace []byte
	times     []uint32 // unconsumed events, ascending
	traces    []byte
	stride    int
}

// PrevTrace returns the payload of the event preceding the cursor. The
// slice aliases arena memory; treat it as read-only.
func (w *Window) PrevTrace() []byte { return w.prevTrace }

// NextTime returns the time of the upcoming event without consuming it.
// Calling it with Remaining == 0 is a contract violation.
func (w *Window) NextTime() uint32 {
	if w.Remaining == 0 {
		panic("history: window advanced past its end")
	}
	return w.times[0]
}

// Next consumes the upcoming event: it becomes the new "prev" and the
// cursor moves forward. Calling it with Remaining == 0 is a contract
// violation.
func (w *Window) Next() {
	if w.Remaining == 0 {
		panic("history: window advanced past its end")
	}
	w.PrevTime = w.times[0]
	w.prevTrace = w.traces[:w.stride]
	w.times = w.times[1:]
	w.traces = w.traces[w.stride:]
	w.Remaining--
}

// NextDelayed consumes the upcoming event but records delayedTime as the
// new "prev" time, modeling synaptic transmission delay on the consumed
// spike. The trace still advances with the event.
func (w *Window) NextDelayed(delayedTime uint32) {
	if w.Remaining == 0 {
		panic("history: window advanced past its end")
	}
	w.PrevTime = delayedTime
	w.prevTrace = w.traces[:w.stride]
	w.times = w.times[1:]
	w.traces = w.traces[w.stride:]
	w.Remaining--
}

// Window locates the events of a neuron newer than beginTime. The returned
// view's prev is the newest event with time <= beginTime (at worst the
// time-0 placeholder), and the cursor covers everything after it in
// ascending order.
func (s *Store) Window(neuron int, beginTime uint32) Window {
	b := &s.bufs[neuron]
	return s.window(b, beginTime, int(b.count))
}

// WindowDelayed is Window with the far edge clipped: events newer than
// endTime are excluded, modeling spikes still in flight.
func (s *Store) WindowDelayed(neuron int, beginTime, endTime uint32) Window {
	b := &s.bufs[neuron]
	times := s.times(b)

	end := int(b.count)
	for end > 0 && times[end-1] > endTime {
		end--
	}
	return s.window(b, beginTime, end)
}

// window walks back from the event at index end-1 until it finds one at or
// before beginTime, or hits the buffer start.
func (s *Store) window(b *Buffer, beginTime uint32, end int) Window {
	times := s.times(b)
	traces := s.traces(b)
	ts := int(s.traceStride)

	prev := end - 1
	for prev > 0 && times[prev] > beginTime {
		prev--
	}

	return Window{
		PrevTime:  times[prev],
		Remaining: end - prev - 1,
		prevTrace: traces[prev*ts : (prev+1)*ts],
		times:     times[prev+1 : end],
		traces:    traces[(prev+1)*ts : end*ts],
		stride:    ts,
	}
}
