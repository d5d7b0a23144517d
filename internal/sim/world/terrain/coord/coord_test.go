package coord

import (
	"math"
	"testing"
)

func TestToChunkLocalNegative(t *testing.T) {
	k, local := ToChunkLocal(Pos{X: -1, Y: -1, Z: -1})
	if k != (ChunkKey{CX: -1, CY: -1, CZ: -1}) {
		t.Fatalf("unexpected key: %+v", k)
	}
	lx, ly, lz := Unflatten(local)
	if lx != 15 || ly != 15 || lz != 15 {
		t.Fatalf("unexpected local: %d,%d,%d", lx, ly, lz)
	}
	if local != ChunkVolume-1 {
		t.Fatalf("expected last index, got %d", local)
	}
}

func TestFlattenOrderXMajor(t *testing.T) {
	if Flatten(1, 0, 0) != 256 || Flatten(0, 1, 0) != 16 || Flatten(0, 0, 1) != 1 {
		t.Fatalf("flatten order changed")
	}
	_, local := ToChunkLocal(Pos{X: 17, Y: 2, Z: -13})
	if local != 1*256+2*16+3 {
		t.Fatalf("unexpected local %d", local)
	}
}

func TestRoundTrip(t *testing.T) {
	vals := []int32{0, 1, 15, 16, 17, -1, -15, -16, -17, 31, -33, 1000, -1000,
		math.MaxInt32, math.MinInt32, math.MaxInt32 - 15, math.MinInt32 + 16}
	for _, x := range vals {
		for _, y := range vals {
			for _, z := range vals {
				p := Pos{X: x, Y: y, Z: z}
				k, local := ToChunkLocal(p)
				if local < 0 || local >= ChunkVolume {
					t.Fatalf("local out of range for %+v: %d", p, local)
				}
				if got := ToWorld(k, local); got != p {
					t.Fatalf("round trip %+v -> %+v/%d -> %+v", p, k, local, got)
				}
			}
		}
	}
}

func TestEveryLocalIndexIsReachable(t *testing.T) {
	k := ChunkKey{CX: -3, CY: 0, CZ: 7}
	seen := make(map[int]bool, ChunkVolume)
	for i := 0; i < ChunkVolume; i++ {
		p := ToWorld(k, i)
		gotK, gotLocal := ToChunkLocal(p)
		if gotK != k || gotLocal != i {
			t.Fatalf("index %d: got %+v/%d", i, gotK, gotLocal)
		}
		seen[gotLocal] = true
	}
	if len(seen) != ChunkVolume {
		t.Fatalf("expected %d distinct locals, got %d", ChunkVolume, len(seen))
	}
}

func TestKeyLess(t *testing.T) {
	a := ChunkKey{CX: 0, CY: 5, CZ: 5}
	b := ChunkKey{CX: 0, CY: 5, CZ: 6}
	c := ChunkKey{CX: 1, CY: -9, CZ: -9}
	if !a.Less(b) || !b.Less(c) || c.Less(a) || a.Less(a) {
		t.Fatalf("unexpected ordering")
	}
}
