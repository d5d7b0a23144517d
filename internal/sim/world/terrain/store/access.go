package store

import (
	"sort"

	"golang.org/x/exp/maps"

	"voxelclaim.ai/internal/sim/world/terrain/coord"
)

// Keys returns the stored chunk keys ordered by (x, y, z).
func (s *ChunkStore) Keys() []coord.ChunkKey {
	keys := maps.Keys(s.Chunks)
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

func (s *ChunkStore) Len() int { return len(s.Chunks) }

// Each visits stored chunks in key order. The chunk handle must not be
// retained after fn returns.
func (s *ChunkStore) Each(fn func(k coord.ChunkKey, ch *Chunk)) {
	for _, k := range s.Keys() {
		fn(k, s.Chunks[k])
	}
}

// Voxels visits every cell of every stored chunk, keys in order and cells in
// local index order, with its world position.
func (s *ChunkStore) Voxels(fn func(pos coord.Pos, b uint16)) {
	s.Each(func(k coord.ChunkKey, ch *Chunk) {
		for i, b := range ch.Blocks {
			fn(coord.ToWorld(k, i), b)
		}
	})
}

func (s *ChunkStore) GetOrCreate(k coord.ChunkKey) *Chunk {
	if ch, ok := s.Chunks[k]; ok {
		return ch
	}
	ch := &Chunk{}
	s.Chunks[k] = ch
	return ch
}

func (s *ChunkStore) SetVoxel(pos coord.Pos, b uint16) {
	k, local := coord.ToChunkLocal(pos)
	s.GetOrCreate(k).Set(local, b)
}

// Voxel reads a cell without materializing its chunk.
func (s *ChunkStore) Voxel(pos coord.Pos) uint16 {
	k, local := coord.ToChunkLocal(pos)
	ch, ok := s.Chunks[k]
	if !ok {
		return Air
	}
	return ch.Get(local)
}
