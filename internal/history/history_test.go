package history

import (
	"errors"
	"strings"
	"testing"

	"github.com/synaptik/tracearena/internal/arena"
)

// newTestStore builds an arena sized for the config plus slackEvents extra
// event slots and lays the store out in it.
func newTestStore(t *testing.T, cfg Config, slackEvents int) (*arena.Arena, *Store) {
	t.Helper()

	traceStride := (cfg.TraceSize + int(arena.Word) - 1) &^ (int(arena.Word) - 1)
	stride := int(timeStride) + traceStride
	a, err := arena.New((cfg.Neurons*cfg.BaseCapacity + slackEvents) * stride)
	if err != nil {
		t.Fatalf("arena.New: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	s, err := NewStore(a, cfg)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return a, s
}

// tr builds a recognizable 4-byte payload.
func tr(n, t byte) []byte { return []byte{n, t, 0xab, 0xcd} }

func TestNewStore_Layout(t *testing.T) {
	a, s := newTestStore(t, Config{
		Neurons:       3,
		BaseCapacity:  4,
		TraceSize:     4,
		FragmentCount: 4,
	}, 0)

	if s.EventStride() != 8 {
		t.Errorf("expected event stride 8, got %d", s.EventStride())
	}
	if s.Neurons() != 3 {
		t.Errorf("expected 3 neurons, got %d", s.Neurons())
	}
	if a.Frontier() != a.Size() {
		t.Errorf("expected buffers to fill the region, frontier %d size %d", a.Frontier(), a.Size())
	}

	spans := s.Spans(nil)
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	var at uint32
	for i, sp := range spans {
		if sp.Off != at || sp.Len != 32 {
			t.Errorf("span %d: expected {%d 32}, got %+v", i, at, sp)
		}
		at = sp.End()
	}

	// Every buffer boots with the time-0 placeholder.
	for n := 0; n < 3; n++ {
		b := s.Buffer(n)
		if b.Count() != 1 || b.Capacity() != 4 {
			t.Errorf("neuron %d: expected count 1 cap 4, got %d %d", n, b.Count(), b.Capacity())
		}
		w := s.Window(n, 100)
		if w.PrevTime != 0 || w.Remaining != 0 {
			t.Errorf("neuron %d: expected bare placeholder window, got %+v", n, w)
		}
	}
}

func TestNewStore_InitialTrace(t *testing.T) {
	_, s := newTestStore(t, Config{
		Neurons:       2,
		BaseCapacity:  2,
		TraceSize:     4,
		InitialTrace:  []byte{1, 2, 3, 4},
		FragmentCount: 4,
	}, 0)

	w := s.Window(1, 10)
	if got := w.PrevTrace(); string(got) != string([]byte{1, 2, 3, 4}) {
		t.Errorf("expected placeholder trace seeded, got %v", got)
	}
}

func TestNewStore_Invalid(t *testing.T) {
	a, err := arena.New(64)
	if err != nil {
		t.Fatalf("arena.New: %v", err)
	}
	defer a.Close()

	bad := []Config{
		{Neurons: 0, BaseCapacity: 4, TraceSize: 4, FragmentCount: 4},
		{Neurons: 2, BaseCapacity: 1, TraceSize: 4, FragmentCount: 4},
		{Neurons: 2, BaseCapacity: 4, TraceSize: 0, FragmentCount: 4},
		{Neurons: 2, BaseCapacity: 4, TraceSize: 4, FragmentCount: 0},
		{Neurons: 2, BaseCapacity: 4, TraceSize: 4, InitialTrace: []byte{1}, FragmentCount: 4},
	}
	for i, cfg := range bad {
		if _, err := NewStore(a, cfg); err == nil {
			t.Errorf("config %d: expected validation error", i)
		}
	}
}

func TestNewStore_RegionTooSmall(t *testing.T) {
	a, err := arena.New(32)
	if err != nil {
		t.Fatalf("arena.New: %v", err)
	}
	defer a.Close()

	_, err = NewStore(a, Config{Neurons: 8, BaseCapacity: 4, TraceSize: 4, FragmentCount: 4})
	if !errors.Is(err, arena.ErrRegionReserve) {
		t.Errorf("expected ErrRegionReserve, got %v", err)
	}
}

func TestAppend_Fast(t *testing.T) {
	_, s := newTestStore(t, Config{
		Neurons:       1,
		BaseCapacity:  4,
		TraceSize:     4,
		FragmentCount: 4,
	}, 0)

	for _, tick := range []uint32{1, 5, 9} {
		if got := s.Append(0, tick, tr(0, byte(tick))); got != OutcomeFast {
			t.Errorf("append %d: expected fast outcome, got %v", tick, got)
		}
	}

	w := s.Window(0, 0)
	if w.PrevTime != 0 || w.Remaining != 3 {
		t.Fatalf("expected window over 3 events, got %+v", w)
	}
	for _, want := range []uint32{1, 5, 9} {
		if got := w.NextTime(); got != want {
			t.Errorf("expected next time %d, got %d", want, got)
		}
		w.Next()
		if w.PrevTime != want {
			t.Errorf("expected prev time %d after consume, got %d", want, w.PrevTime)
		}
		if got := w.PrevTrace(); got[1] != byte(want) {
			t.Errorf("expected trace tagged %d, got %v", want, got)
		}
	}
}

func TestAppend_GrowInPlace(t *testing.T) {
	a, s := newTestStore(t, Config{
		Neurons:       1,
		BaseCapacity:  2,
		TraceSize:     4,
		FragmentCount: 4,
	}, 4)

	s.Append(0, 1, tr(0, 1))
	if got := s.Append(0, 2, tr(0, 2)); got != OutcomeExtended {
		t.Fatalf("expected extended outcome, got %v", got)
	}

	// The sole buffer owns the frontier, so it grows where it stands.
	b := s.Buffer(0)
	if s.span(b).Off != 0 {
		t.Errorf("expected in-place growth, buffer moved to %d", s.span(b).Off)
	}
	if b.Capacity() != 3 {
		t.Errorf("expected capacity 3, got %d", b.Capacity())
	}
	if a.Frontier() != 24 {
		t.Errorf("expected frontier advanced to 24, got %d", a.Frontier())
	}
	if a.Stats().Moves != 0 {
		t.Errorf("in-place growth is not a relocation, got %d moves", a.Stats().Moves)
	}

	w := s.Window(0, 0)
	for _, want := range []uint32{1, 2} {
		if got := w.NextTime(); got != want {
			t.Errorf("expected time %d preserved across growth, got %d", want, got)
		}
		w.Next()
		if got := w.PrevTrace(); got[1] != byte(want) {
			t.Errorf("expected trace %d preserved across growth, got %v", want, got)
		}
	}
}

func TestAppend_ExtendRelocates(t *testing.T) {
	a, s := newTestStore(t, Config{
		Neurons:       2,
		BaseCapacity:  2,
		TraceSize:     4,
		FragmentCount: 4,
	}, 8)

	s.Append(0, 1, tr(0, 1))
	if got := s.Append(0, 2, tr(0, 2)); got != OutcomeExtended {
		t.Fatalf("expected extended outcome, got %v", got)
	}

	// Neuron 1 sits above neuron 0, so neuron 0 relocates to the frontier.
	b := s.Buffer(0)
	if off := s.span(b).Off; off != 32 {
		t.Errorf("expected relocation to the old frontier 32, got %d", off)
	}
	if b.Capacity() != 3 {
		t.Errorf("expected capacity 3, got %d", b.Capacity())
	}
	if a.Stats().Moves != 1 {
		t.Errorf("expected one recorded move, got %d", a.Stats().Moves)
	}

	// Contents survive the move, including the placeholder.
	w := s.Window(0, 0)
	if w.PrevTime != 0 || w.Remaining != 2 {
		t.Fatalf("expected placeholder plus 2 events, got %+v", w)
	}
	w.Next()
	w.Next()
	if w.PrevTime != 2 || w.PrevTrace()[1] != 2 {
		t.Errorf("expected newest event intact after move, got %d %v", w.PrevTime, w.PrevTrace())
	}

	// Neuron 1 is untouched.
	if sp := s.span(s.Buffer(1)); sp.Off != 16 {
		t.Errorf("expected neuron 1 left at 16, got %d", sp.Off)
	}
}

func TestAppend_DropWhenExhausted(t *testing.T) {
	_, s := newTestStore(t, Config{
		Neurons:       2,
		BaseCapacity:  2,
		TraceSize:     4,
		FragmentCount: 4,
	}, 0)

	s.Append(0, 1, tr(0, 1))
	s.Append(1, 1, tr(1, 1))

	// No slack: neuron 0 cannot relocate, neuron 1 cannot grow in place.
	for n := 0; n < 2; n++ {
		if got := s.Append(n, 2, tr(byte(n), 2)); got != OutcomeDropped {
			t.Errorf("neuron %d: expected dropped outcome, got %v", n, got)
		}
		b := s.Buffer(n)
		if b.Count() != 2 || b.Capacity() != 2 {
			t.Errorf("neuron %d: expected count and cap unchanged, got %d %d", n, b.Count(), b.Capacity())
		}
		// The placeholder survives; the oldest retained event does not.
		w := s.Window(n, 0)
		if w.PrevTime != 0 {
			t.Errorf("neuron %d: expected placeholder retained, got prev %d", n, w.PrevTime)
		}
		if w.Remaining != 1 || w.NextTime() != 2 {
			t.Errorf("neuron %d: expected only the newest event, got %+v", n, w)
		}
	}
}

func TestAppend_DropKeepsOrder(t *testing.T) {
	_, s := newTestStore(t, Config{
		Neurons:       1,
		BaseCapacity:  4,
		TraceSize:     4,
		FragmentCount: 4,
	}, 0)

	for tick := uint32(1); tick <= 6; tick++ {
		s.Append(0, tick, tr(0, byte(tick)))
	}

	// Capacity 4 holds the placeholder plus the 3 newest events.
	w := s.Window(0, 0)
	if w.Remaining != 3 {
		t.Fatalf("expected 3 retained events, got %d", w.Remaining)
	}
	for _, want := range []uint32{4, 5, 6} {
		if got := w.NextTime(); got != want {
			t.Errorf("expected time %d, got %d", want, got)
		}
		w.Next()
		if got := w.PrevTrace(); got[1] != byte(want) {
			t.Errorf("expected trace %d shifted with its time, got %v", want, got)
		}
	}
}

func TestAppend_Panics(t *testing.T) {
	_, s := newTestStore(t, Config{
		Neurons:       1,
		BaseCapacity:  4,
		TraceSize:     4,
		FragmentCount: 4,
	}, 0)
	s.Append(0, 5, tr(0, 5))

	expectPanic := func(name, want string, fn func()) {
		defer func() {
			r := recover()
			if r == nil {
				t.Errorf("%s: expected panic", name)
				return
			}
			if msg, ok := r.(string); !ok || !strings.Contains(msg, want) {
				t.Errorf("%s: expected panic mentioning %q, got %v", name, want, r)
			}
		}()
		fn()
	}

	expectPanic("stale time", "not after newest", func() { s.Append(0, 5, tr(0, 5)) })
	expectPanic("short trace", "trace payload", func() { s.Append(0, 6, []byte{1}) })
}

func TestWindowDelayed(t *testing.T) {
	_, s := newTestStore(t, Config{
		Neurons:       1,
		BaseCapacity:  8,
		TraceSize:     4,
		FragmentCount: 4,
	}, 0)

	for _, tick := range []uint32{2, 4, 6, 8, 10} {
		s.Append(0, tick, tr(0, byte(tick)))
	}

	// [4, 9): prev is the newest event at or before 4, cursor covers 6 and 8.
	w := s.WindowDelayed(0, 4, 8)
	if w.PrevTime != 4 || w.Remaining != 2 {
		t.Fatalf("expected prev 4 with 2 events, got %+v", w)
	}
	w.NextDelayed(7) // consume 6 as if it arrived at 7
	if w.PrevTime != 7 || w.PrevTrace()[1] != 6 {
		t.Errorf("expected delayed prev 7 carrying trace 6, got %d %v", w.PrevTime, w.PrevTrace())
	}
	if w.NextTime() != 8 {
		t.Errorf("expected 8 next, got %d", w.NextTime())
	}

	// A window entirely before the first event sees only the placeholder.
	w = s.WindowDelayed(0, 0, 1)
	if w.PrevTime != 0 || w.Remaining != 0 {
		t.Errorf("expected bare placeholder window, got %+v", w)
	}
}

func TestWindow_ExhaustedPanics(t *testing.T) {
	_, s := newTestStore(t, Config{
		Neurons:       1,
		BaseCapacity:  2,
		TraceSize:     4,
		FragmentCount: 4,
	}, 0)

	w := s.Window(0, 0)
	defer func() {
		if recover() == nil {
			t.Error("expected panic advancing an exhausted window")
		}
	}()
	w.Next()
}

func TestScan_RecyclesExpiredPrefix(t *testing.T) {
	a, s := newTestStore(t, Config{
		Neurons:       2,
		BaseCapacity:  4,
		TraceSize:     4,
		FragmentCount: 4,
	}, 0)

	for n := 0; n < 2; n++ {
		for _, tick := range []uint32{1, 2, 3} {
			s.Append(n, tick, tr(byte(n), byte(tick)))
		}
	}

	if got := s.Scan(3); got != 4 {
		t.Fatalf("expected 4 events recycled, got %d", got)
	}

	for n := 0; n < 2; n++ {
		b := s.Buffer(n)
		if b.Count() != 2 || b.Capacity() != 2 {
			t.Errorf("neuron %d: expected count 2 cap 2, got %d %d", n, b.Count(), b.Capacity())
		}
		w := s.Window(n, 0)
		if w.PrevTime != 0 {
			t.Errorf("neuron %d: expected placeholder kept, got prev %d", n, w.PrevTime)
		}
		if w.Remaining != 1 || w.NextTime() != 3 {
			t.Errorf("neuron %d: expected only time 3 retained, got %+v", n, w)
		}
		w.Next()
		if got := w.PrevTrace(); got[1] != 3 {
			t.Errorf("neuron %d: expected trace realigned with time 3, got %v", n, got)
		}
	}

	// Recycling leaves holes behind each advanced span start.
	if free := a.FreeSpans(s.Spans(nil)); len(free) == 0 {
		t.Error("expected recycling to leave free spans")
	}

	// A second pass has nothing left to recycle.
	if got := s.Scan(3); got != 0 {
		t.Errorf("expected second scan idle, got %d", got)
	}
}

func TestScan_PlaceholderTraceSurvives(t *testing.T) {
	_, s := newTestStore(t, Config{
		Neurons:       1,
		BaseCapacity:  4,
		TraceSize:     4,
		InitialTrace:  []byte{0xde, 0xad, 0xbe, 0xef},
		FragmentCount: 4,
	}, 0)

	s.Append(0, 1, tr(0, 1))
	s.Append(0, 2, tr(0, 2))
	s.Scan(10)

	w := s.Window(0, 10)
	if w.PrevTime != 0 {
		t.Fatalf("expected placeholder, got prev %d", w.PrevTime)
	}
	if got := w.PrevTrace(); string(got) != string([]byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Errorf("expected placeholder trace untouched by recycling, got %v", got)
	}
}

func TestScan_AppendAfterRecycle(t *testing.T) {
	_, s := newTestStore(t, Config{
		Neurons:       1,
		BaseCapacity:  4,
		TraceSize:     4,
		FragmentCount: 4,
	}, 4)

	for _, tick := range []uint32{1, 2, 3} {
		s.Append(0, tick, tr(0, byte(tick)))
	}
	s.Scan(4) // drops everything but the placeholder

	// The shrunken buffer keeps accepting events; times stay ascending
	// because recycling never rewinds the newest time seen.
	s.Append(0, 7, tr(0, 7))
	w := s.Window(0, 0)
	if w.Remaining != 1 || w.NextTime() != 7 {
		t.Errorf("expected fresh event after recycle, got %+v", w)
	}
}

func TestGenerations(t *testing.T) {
	_, s := newTestStore(t, Config{
		Neurons:         2,
		BaseCapacity:    4,
		TraceSize:       4,
		FragmentCount:   4,
		Generations:     4,
		GenerationWidth: 8,
	}, 0)

	if s.Generations() == nil {
		t.Fatal("expected generation index enabled")
	}

	s.Append(0, 3, tr(0, 3))
	if !s.Generations().Due(8) {
		t.Error("expected neuron 0 registered in the first generation")
	}

	// Recycling the last real event drops the registration.
	s.Scan(8)
	if s.Generations().Due(100) {
		t.Error("expected registration dropped after full recycle")
	}

	// The next first event re-registers.
	s.Append(0, 20, tr(0, 20))
	if !s.Generations().Due(24) {
		t.Error("expected re-registration after recycle")
	}
}

func TestGenerations_Disabled(t *testing.T) {
	_, s := newTestStore(t, Config{
		Neurons:       1,
		BaseCapacity:  2,
		TraceSize:     4,
		FragmentCount: 4,
	}, 0)
	if s.Generations() != nil {
		t.Error("expected generation index disabled")
	}
}
