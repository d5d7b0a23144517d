package store

import (
	"fmt"

	snapv1 "voxelclaim.ai/internal/persistence/snapshot"
	"voxelclaim.ai/internal/sim/world/terrain/coord"
)

// ExportChunks converts stored chunk data into snapshot chunks, in key order.
func ExportChunks(s *ChunkStore) []snapv1.ChunkV1 {
	out := make([]snapv1.ChunkV1, 0, s.Len())
	s.Each(func(k coord.ChunkKey, ch *Chunk) {
		blocks := make([]uint16, len(ch.Blocks))
		copy(blocks, ch.Blocks[:])
		out = append(out, snapv1.ChunkV1{
			CX:     k.CX,
			CY:     k.CY,
			CZ:     k.CZ,
			Blocks: blocks,
		})
	})
	return out
}

// ImportChunks rebuilds a chunk store from snapshot chunks.
func ImportChunks(chunks []snapv1.ChunkV1) (*ChunkStore, error) {
	s := NewChunkStore()
	for _, ch := range chunks {
		if len(ch.Blocks) != coord.ChunkVolume {
			return nil, fmt.Errorf("snapshot chunk blocks length mismatch: got %d want %d", len(ch.Blocks), coord.ChunkVolume)
		}
		k := coord.ChunkKey{CX: ch.CX, CY: ch.CY, CZ: ch.CZ}
		if _, dup := s.Chunks[k]; dup {
			return nil, fmt.Errorf("snapshot chunk %v appears twice", k.ToArray())
		}
		c := &Chunk{}
		copy(c.Blocks[:], ch.Blocks)
		s.Chunks[k] = c
	}
	return s, nil
}
