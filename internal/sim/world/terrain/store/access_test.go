package store

import (
	"testing"

	"voxelclaim.ai/internal/sim/world/terrain/coord"
)

func TestGetOrCreateIsLazyAndStable(t *testing.T) {
	s := NewChunkStore()
	k := coord.ChunkKey{CX: 2, CY: -1, CZ: 0}
	ch := s.GetOrCreate(k)
	if s.Len() != 1 {
		t.Fatalf("expected one chunk, got %d", s.Len())
	}
	if ch.NonEmpty() != 0 {
		t.Fatalf("fresh chunk should be empty")
	}
	if s.GetOrCreate(k) != ch {
		t.Fatalf("expected same handle on second lookup")
	}
}

func TestSetVoxelNegativeCoordinates(t *testing.T) {
	s := NewChunkStore()
	s.SetVoxel(coord.Pos{X: -1, Y: -1, Z: -1}, 7)
	ch, ok := s.Chunks[coord.ChunkKey{CX: -1, CY: -1, CZ: -1}]
	if !ok {
		t.Fatalf("expected chunk (-1,-1,-1)")
	}
	if ch.Get(coord.ChunkVolume-1) != 7 {
		t.Fatalf("expected voxel at local (15,15,15)")
	}
	if _, ok := s.Chunks[coord.ChunkKey{}]; ok {
		t.Fatalf("negative coordinate leaked into chunk (0,0,0)")
	}
}

func TestVoxelReadDoesNotCreate(t *testing.T) {
	s := NewChunkStore()
	if s.Voxel(coord.Pos{X: 100, Y: 100, Z: 100}) != Air {
		t.Fatalf("expected air")
	}
	if s.Len() != 0 {
		t.Fatalf("read materialized a chunk")
	}
}

func TestKeysOrderedLexicographically(t *testing.T) {
	s := NewChunkStore()
	for _, k := range []coord.ChunkKey{{CX: 1}, {CX: 0, CY: 2}, {CX: 0, CY: 0, CZ: -5}, {CX: -3, CY: 9}} {
		s.GetOrCreate(k)
	}
	keys := s.Keys()
	want := []coord.ChunkKey{{CX: -3, CY: 9}, {CX: 0, CY: 0, CZ: -5}, {CX: 0, CY: 2}, {CX: 1}}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys[%d]=%+v want %+v", i, keys[i], want[i])
		}
	}
}

func TestVoxelsEnumeratesWorldPositions(t *testing.T) {
	s := NewChunkStore()
	s.SetVoxel(coord.Pos{X: -16, Y: 3, Z: 5}, 11)
	n := 0
	found := false
	s.Voxels(func(pos coord.Pos, b uint16) {
		n++
		if b == 11 {
			found = pos == coord.Pos{X: -16, Y: 3, Z: 5}
		}
	})
	if n != coord.ChunkVolume {
		t.Fatalf("expected %d cells, got %d", coord.ChunkVolume, n)
	}
	if !found {
		t.Fatalf("voxel not reported at its world position")
	}
}

func TestChunkOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	var ch Chunk
	ch.Set(coord.ChunkVolume, 1)
}

func TestDigestTracksContents(t *testing.T) {
	var a, b Chunk
	if a.Digest() != b.Digest() {
		t.Fatalf("equal chunks hash differently")
	}
	b.Set(10, 1)
	if a.Digest() == b.Digest() {
		t.Fatalf("digest ignored a change")
	}
}
