package ecs

// EntityID encodes a 32-bit slot index in the lower bits and a 32-bit
// generation in the upper bits. The generation increments when the slot is
// released, so identifiers held across ticks go stale instead of silently
// pointing at a recycled entity.
type EntityID uint64

func MakeEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

// Pool allocates entity identifiers from a free list with generational
// invalidation. Slot 0 is burned at construction so the zero EntityID is
// never a live entity.
type Pool struct {
	generations []uint32
	freeList    []uint32
	nextIndex   uint32
}

func NewPool() *Pool {
	p := &Pool{
		generations: make([]uint32, 1, 512),
		freeList:    make([]uint32, 0, 128),
	}
	p.nextIndex = 1
	return p
}

func (p *Pool) Create() EntityID {
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return MakeEntityID(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	p.generations = append(p.generations, 0)
	return MakeEntityID(idx, p.generations[idx])
}

func (p *Pool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx == 0 || idx >= p.nextIndex {
		return false
	}
	return p.generations[idx] == id.Generation()
}

func (p *Pool) Destroy(id EntityID) {
	idx := id.Index()
	if idx == 0 || idx >= p.nextIndex {
		return
	}
	if p.generations[idx] != id.Generation() {
		return // stale reference, already destroyed
	}
	p.generations[idx]++
	p.freeList = append(p.freeList, idx)
}
