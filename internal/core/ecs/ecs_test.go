package ecs

import "testing"

func TestPoolGenerationalInvalidation(t *testing.T) {
	p := NewPool()
	a := p.Create()
	if a.IsZero() {
		t.Fatalf("zero id allocated for a live entity")
	}
	if !p.Alive(a) {
		t.Fatalf("freshly created entity not alive")
	}

	p.Destroy(a)
	if p.Alive(a) {
		t.Fatalf("destroyed entity still alive")
	}

	b := p.Create()
	if b.Index() != a.Index() {
		t.Fatalf("slot not recycled: index %d, want %d", b.Index(), a.Index())
	}
	if b.Generation() == a.Generation() {
		t.Fatalf("recycled slot kept its generation")
	}
	if p.Alive(a) {
		t.Fatalf("stale id alive after slot recycling")
	}
	if !p.Alive(b) {
		t.Fatalf("recycled entity not alive")
	}
}

func TestPoolDestroyStaleIsNoop(t *testing.T) {
	p := NewPool()
	a := p.Create()
	p.Destroy(a)
	b := p.Create()
	p.Destroy(a) // stale, must not touch b's slot
	if !p.Alive(b) {
		t.Fatalf("stale destroy killed the current occupant")
	}
}

func TestStoreSwapDelete(t *testing.T) {
	s := NewStore[int]()
	ids := []EntityID{MakeEntityID(1, 0), MakeEntityID(2, 0), MakeEntityID(3, 0)}
	for i, id := range ids {
		s.Set(id, i*10)
	}

	s.Remove(ids[0])
	if s.Has(ids[0]) {
		t.Fatalf("removed id still present")
	}
	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
	for i := 1; i < 3; i++ {
		v, ok := s.Get(ids[i])
		if !ok || *v != i*10 {
			t.Fatalf("survivor %d lost its value after swap-delete", i)
		}
	}
}

func TestStoreSetOverwrites(t *testing.T) {
	s := NewStore[string]()
	id := MakeEntityID(5, 0)
	s.Set(id, "a")
	s.Set(id, "b")
	if s.Len() != 1 {
		t.Fatalf("overwrite grew the store to %d entries", s.Len())
	}
	if v, _ := s.Get(id); *v != "b" {
		t.Fatalf("value = %q, want overwrite to win", *v)
	}
}

func TestStoreEachVisitsAll(t *testing.T) {
	s := NewStore[int]()
	for i := 1; i <= 5; i++ {
		s.Set(MakeEntityID(uint32(i), 0), i)
	}
	sum := 0
	s.Each(func(_ EntityID, v *int) { sum += *v })
	if sum != 15 {
		t.Fatalf("Each visited sum %d, want 15", sum)
	}
}

func TestJoin2IntersectsStores(t *testing.T) {
	a := NewStore[int]()
	b := NewStore[string]()
	both := MakeEntityID(1, 0)
	onlyA := MakeEntityID(2, 0)
	a.Set(both, 7)
	a.Set(onlyA, 8)
	b.Set(both, "x")

	visited := 0
	Join2(a, b, func(id EntityID, _ *int, _ *string) {
		visited++
		if id != both {
			t.Fatalf("join visited %v, want only the shared entity", id)
		}
	})
	if visited != 1 {
		t.Fatalf("join visited %d entities, want 1", visited)
	}
}

func TestWorldDeferredDestroy(t *testing.T) {
	w := NewWorld()
	s := NewStore[int]()
	w.Registry().Register(s)

	id := w.Create()
	s.Set(id, 42)

	w.Destroy(id)
	if !w.Alive(id) {
		t.Fatalf("destroy must be deferred until the flush")
	}
	if !s.Has(id) {
		t.Fatalf("components must stay readable until the flush")
	}

	w.FlushDestroyQueue()
	if w.Alive(id) {
		t.Fatalf("entity alive after flush")
	}
	if s.Has(id) {
		t.Fatalf("components not cleared by flush")
	}
}
