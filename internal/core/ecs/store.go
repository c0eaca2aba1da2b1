package ecs

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID)
}

// Store is a dense arena for one component type: components live in a packed
// slice, with an index map from EntityID to slot. Iteration walks the packed
// slice, so per-tick scans are cache-friendly and slot-order deterministic.
// Removal swap-deletes, so iteration order is stable between mutations but
// not insertion order.
type Store[T any] struct {
	slots map[EntityID]int
	ids   []EntityID
	data  []T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		slots: make(map[EntityID]int, 128),
	}
}

// Set inserts or overwrites the component for an entity.
func (s *Store[T]) Set(id EntityID, c T) {
	if slot, ok := s.slots[id]; ok {
		s.data[slot] = c
		return
	}
	s.slots[id] = len(s.data)
	s.ids = append(s.ids, id)
	s.data = append(s.data, c)
}

// Get returns a pointer into the arena, valid until the next Set or Remove.
func (s *Store[T]) Get(id EntityID) (*T, bool) {
	slot, ok := s.slots[id]
	if !ok {
		return nil, false
	}
	return &s.data[slot], true
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.slots[id]
	return ok
}

func (s *Store[T]) Remove(id EntityID) {
	slot, ok := s.slots[id]
	if !ok {
		return
	}
	last := len(s.data) - 1
	if slot != last {
		s.data[slot] = s.data[last]
		s.ids[slot] = s.ids[last]
		s.slots[s.ids[slot]] = slot
	}
	s.data = s.data[:last]
	s.ids = s.ids[:last]
	delete(s.slots, id)
}

func (s *Store[T]) Len() int {
	return len(s.data)
}

// Each visits every component in slot order. The callback must not add or
// remove components of this store.
func (s *Store[T]) Each(fn func(EntityID, *T)) {
	for i := range s.data {
		fn(s.ids[i], &s.data[i])
	}
}

// Join2 visits entities present in both stores, walking the smaller arena.
func Join2[A, B any](sa *Store[A], sb *Store[B], fn func(EntityID, *A, *B)) {
	if sa.Len() > sb.Len() {
		Join2(sb, sa, func(id EntityID, b *B, a *A) { fn(id, a, b) })
		return
	}
	for i := range sa.data {
		id := sa.ids[i]
		if b, ok := sb.Get(id); ok {
			fn(id, &sa.data[i], b)
		}
	}
}

// Join3 visits entities present in all three stores, driven by the first.
// Callers should pass their sparsest store first.
func Join3[A, B, C any](sa *Store[A], sb *Store[B], sc *Store[C], fn func(EntityID, *A, *B, *C)) {
	for i := range sa.data {
		id := sa.ids[i]
		b, ok := sb.Get(id)
		if !ok {
			continue
		}
		c, ok := sc.Get(id)
		if !ok {
			continue
		}
		fn(id, &sa.data[i], b, c)
	}
}
