package claims

import (
	"sort"

	"golang.org/x/exp/maps"

	"voxelclaim.ai/internal/sim/world/terrain/coord"
	"voxelclaim.ai/internal/sim/world/terrain/store"
)

// Record is the persisted unit of ownership: one owner and one whole chunk.
// It is always moved by value, so a record never aliases a ChunkStore chunk.
type Record[ID comparable] struct {
	Owner ID
	Chunk store.Chunk
}

// RecordMap is the keyed container a Registry reads and writes. Get returns a
// copy; Insert replaces the whole record.
type RecordMap[ID comparable] interface {
	Get(k coord.ChunkKey) (Record[ID], bool)
	Contains(k coord.ChunkKey) bool
	Insert(k coord.ChunkKey, r Record[ID])
	Keys() []coord.ChunkKey
}

type MemMap[ID comparable] struct {
	m map[coord.ChunkKey]Record[ID]
}

func NewMemMap[ID comparable]() *MemMap[ID] {
	return &MemMap[ID]{m: map[coord.ChunkKey]Record[ID]{}}
}

func (s *MemMap[ID]) Get(k coord.ChunkKey) (Record[ID], bool) {
	r, ok := s.m[k]
	return r, ok
}

func (s *MemMap[ID]) Contains(k coord.ChunkKey) bool {
	_, ok := s.m[k]
	return ok
}

func (s *MemMap[ID]) Insert(k coord.ChunkKey, r Record[ID]) {
	s.m[k] = r
}

func (s *MemMap[ID]) Keys() []coord.ChunkKey {
	return sortKeys(maps.Keys(s.m))
}

func (s *MemMap[ID]) Len() int { return len(s.m) }

func sortKeys(keys []coord.ChunkKey) []coord.ChunkKey {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Overlay stages inserts on top of a base map until Commit or Discard.
type Overlay[ID comparable] struct {
	base   RecordMap[ID]
	staged map[coord.ChunkKey]Record[ID]
	order  []coord.ChunkKey
}

type Staged[ID comparable] struct {
	Key    coord.ChunkKey
	Record Record[ID]
}

func NewOverlay[ID comparable](base RecordMap[ID]) *Overlay[ID] {
	return &Overlay[ID]{base: base, staged: map[coord.ChunkKey]Record[ID]{}}
}

func (o *Overlay[ID]) Get(k coord.ChunkKey) (Record[ID], bool) {
	if r, ok := o.staged[k]; ok {
		return r, true
	}
	return o.base.Get(k)
}

func (o *Overlay[ID]) Contains(k coord.ChunkKey) bool {
	if _, ok := o.staged[k]; ok {
		return true
	}
	return o.base.Contains(k)
}

func (o *Overlay[ID]) Insert(k coord.ChunkKey, r Record[ID]) {
	if _, ok := o.staged[k]; !ok {
		o.order = append(o.order, k)
	}
	o.staged[k] = r
}

func (o *Overlay[ID]) Keys() []coord.ChunkKey {
	keys := o.base.Keys()
	for _, k := range o.order {
		if !o.base.Contains(k) {
			keys = append(keys, k)
		}
	}
	return sortKeys(keys)
}

// Pending lists staged records in first-insert order.
func (o *Overlay[ID]) Pending() []Staged[ID] {
	out := make([]Staged[ID], 0, len(o.order))
	for _, k := range o.order {
		out = append(out, Staged[ID]{Key: k, Record: o.staged[k]})
	}
	return out
}

func (o *Overlay[ID]) Commit() {
	for _, k := range o.order {
		o.base.Insert(k, o.staged[k])
	}
	o.Discard()
}

func (o *Overlay[ID]) Discard() {
	o.staged = map[coord.ChunkKey]Record[ID]{}
	o.order = nil
}
