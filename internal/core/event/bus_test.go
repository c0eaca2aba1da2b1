package event

import "testing"

type testEvent struct {
	n int
}

type otherEvent struct {
	s string
}

func TestEventsDeliveredNextSwap(t *testing.T) {
	b := NewBus()
	var got []int
	Subscribe(b, func(e testEvent) { got = append(got, e.n) })

	Emit(b, testEvent{n: 1})
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatalf("event delivered before buffer swap")
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("got %v, want [1]", got)
	}

	// A second dispatch of the same front buffer would double-deliver; the
	// next swap must clear it.
	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 {
		t.Fatalf("stale events redelivered: %v", got)
	}
}

func TestSubscribersAreTypeScoped(t *testing.T) {
	b := NewBus()
	var ints, strs int
	Subscribe(b, func(testEvent) { ints++ })
	Subscribe(b, func(otherEvent) { strs++ })

	Emit(b, testEvent{n: 1})
	Emit(b, testEvent{n: 2})
	Emit(b, otherEvent{s: "x"})
	b.SwapBuffers()
	b.DispatchAll()

	if ints != 2 || strs != 1 {
		t.Fatalf("deliveries = (%d, %d), want (2, 1)", ints, strs)
	}
}

func TestMultipleHandlersPerType(t *testing.T) {
	b := NewBus()
	calls := 0
	Subscribe(b, func(testEvent) { calls++ })
	Subscribe(b, func(testEvent) { calls++ })

	Emit(b, testEvent{})
	b.SwapBuffers()
	b.DispatchAll()
	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2", calls)
	}
}
