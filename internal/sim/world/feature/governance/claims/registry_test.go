package claims

import (
	"errors"
	"testing"

	"voxelclaim.ai/internal/sim/world/terrain/coord"
)

var origin = coord.ChunkKey{}

func TestFillChunk(t *testing.T) {
	r := NewRegistry[int]()
	if err := r.Claim(origin, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	for x := int32(0); x < 16; x++ {
		for y := int32(0); y < 16; y++ {
			for z := int32(0); z < 16; z++ {
				if err := r.WriteBlock(coord.Pos{X: x, Y: y, Z: z}, 1, 1); err != nil {
					t.Fatalf("write %d,%d,%d: %v", x, y, z, err)
				}
			}
		}
	}
	rec, ok := r.Record(origin)
	if !ok || rec.Owner != 1 {
		t.Fatalf("unexpected record owner: %v %v", ok, rec.Owner)
	}
	for i, b := range rec.Chunk.Blocks {
		if b != 1 {
			t.Fatalf("cell %d = %d, want 1", i, b)
		}
	}
}

func TestClaimStartsEmpty(t *testing.T) {
	r := NewRegistry[string]()
	k := coord.ChunkKey{CX: -4, CY: 2, CZ: 9}
	if err := r.Claim(k, "alice"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	rec, _ := r.Record(k)
	if rec.Chunk.NonEmpty() != 0 {
		t.Fatalf("claimed chunk should be empty")
	}
}

func TestWriteBeforeClaim(t *testing.T) {
	r := NewRegistry[int]()
	err := r.WriteBlock(coord.Pos{}, 1, 1)
	if !errors.Is(err, ErrChunkDoesNotExist) {
		t.Fatalf("expected ErrChunkDoesNotExist, got %v", err)
	}
	if len(r.Keys()) != 0 {
		t.Fatalf("failed write created a record")
	}
}

func TestWriteByOtherIdentity(t *testing.T) {
	r := NewRegistry[int]()
	if err := r.Claim(origin, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := r.WriteBlock(coord.Pos{X: 3}, 9, 1); err != nil {
		t.Fatalf("write: %v", err)
	}
	before, _ := r.Record(origin)

	err := r.WriteBlock(coord.Pos{}, 1, 2)
	if !errors.Is(err, ErrNotYours) {
		t.Fatalf("expected ErrNotYours, got %v", err)
	}
	after, _ := r.Record(origin)
	if after != before {
		t.Fatalf("failed write changed the record")
	}
}

func TestWriteResolvesNegativeCoordinates(t *testing.T) {
	r := NewRegistry[int]()
	if err := r.Claim(origin, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	// (-1,0,0) lives in chunk (-1,0,0), not in the origin chunk.
	if err := r.WriteBlock(coord.Pos{X: -1}, 5, 1); !errors.Is(err, ErrChunkDoesNotExist) {
		t.Fatalf("expected ErrChunkDoesNotExist, got %v", err)
	}
	neg := coord.ChunkKey{CX: -1, CY: -1, CZ: -1}
	if err := r.Claim(neg, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := r.WriteBlock(coord.Pos{X: -1, Y: -1, Z: -1}, 5, 1); err != nil {
		t.Fatalf("write: %v", err)
	}
	rec, _ := r.Record(neg)
	if rec.Chunk.Get(coord.Flatten(15, 15, 15)) != 5 {
		t.Fatalf("voxel not at local (15,15,15)")
	}
}

func TestDoubleClaim(t *testing.T) {
	r := NewRegistry[int]()
	k := coord.ChunkKey{CX: 7}
	if err := r.Claim(k, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := r.WriteBlock(coord.Pos{X: 7 * 16}, 3, 1); err != nil {
		t.Fatalf("write: %v", err)
	}
	before, _ := r.Record(k)
	for _, who := range []int{1, 2} {
		if err := r.Claim(k, who); !errors.Is(err, ErrAlreadyOwned) {
			t.Fatalf("claim by %d: expected ErrAlreadyOwned, got %v", who, err)
		}
	}
	after, _ := r.Record(k)
	if after != before {
		t.Fatalf("failed claim changed the record")
	}
}

func TestGiveChunkPreservesData(t *testing.T) {
	r := NewRegistry[int]()
	k := coord.ChunkKey{CX: 1, CY: 0, CZ: -1}
	if err := r.Claim(k, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	for i, p := range []coord.Pos{{X: 16, Y: 0, Z: -16}, {X: 31, Y: 15, Z: -1}, {X: 20, Y: 7, Z: -9}} {
		if err := r.WriteBlock(p, uint16(i+1), 1); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	before, _ := r.Record(k)

	if err := r.GiveChunk(k, 1, 2); err != nil {
		t.Fatalf("give: %v", err)
	}
	after, _ := r.Record(k)
	if after.Owner != 2 {
		t.Fatalf("expected owner 2, got %d", after.Owner)
	}
	if after.Chunk != before.Chunk {
		t.Fatalf("transfer changed voxel contents")
	}
	if err := r.WriteBlock(coord.Pos{X: 16, Y: 0, Z: -16}, 9, 1); !errors.Is(err, ErrNotYours) {
		t.Fatalf("previous owner can still write: %v", err)
	}
	if err := r.WriteBlock(coord.Pos{X: 16, Y: 0, Z: -16}, 9, 2); err != nil {
		t.Fatalf("new owner write: %v", err)
	}
}

func TestGiveChunkToSelf(t *testing.T) {
	r := NewRegistry[int]()
	if err := r.Claim(origin, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	before, _ := r.Record(origin)
	if err := r.GiveChunk(origin, 1, 1); err != nil {
		t.Fatalf("give to self: %v", err)
	}
	after, _ := r.Record(origin)
	if after != before {
		t.Fatalf("self transfer changed state")
	}
}

func TestGiveChunkFailures(t *testing.T) {
	r := NewRegistry[int]()
	if err := r.GiveChunk(origin, 1, 2); !errors.Is(err, ErrChunkDoesNotExist) {
		t.Fatalf("expected ErrChunkDoesNotExist, got %v", err)
	}
	if err := r.Claim(origin, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := r.GiveChunk(origin, 2, 2); !errors.Is(err, ErrNotYours) {
		t.Fatalf("expected ErrNotYours, got %v", err)
	}
	if owner, _ := r.Owner(origin); owner != 1 {
		t.Fatalf("failed give changed owner to %d", owner)
	}
}

func TestKeysOrdered(t *testing.T) {
	r := NewRegistry[int]()
	for _, k := range []coord.ChunkKey{{CX: 2}, {CX: -1, CZ: 4}, {CX: -1, CZ: -4}} {
		if err := r.Claim(k, 1); err != nil {
			t.Fatalf("claim: %v", err)
		}
	}
	keys := r.Keys()
	if keys[0] != (coord.ChunkKey{CX: -1, CZ: -4}) || keys[2] != (coord.ChunkKey{CX: 2}) {
		t.Fatalf("unexpected order: %+v", keys)
	}
}

func TestLocationFormsResolveChunk(t *testing.T) {
	r := NewRegistry[string]()
	if err := r.ClaimAt(coord.Pos{X: -1, Y: 17, Z: 40}, "alice"); err != nil {
		t.Fatalf("ClaimAt: %v", err)
	}
	k := coord.ChunkKey{CX: -1, CY: 1, CZ: 2}
	if owner, ok := r.Owner(k); !ok || owner != "alice" {
		t.Fatalf("owner=%q ok=%v", owner, ok)
	}
	if err := r.ClaimAt(coord.Pos{X: -16, Y: 31, Z: 47}, "bob"); !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("expected ErrAlreadyOwned, got %v", err)
	}
	if err := r.GiveAt(coord.Pos{X: -8, Y: 16, Z: 32}, "alice", "bob"); err != nil {
		t.Fatalf("GiveAt: %v", err)
	}
	if owner, _ := r.Owner(k); owner != "bob" {
		t.Fatalf("owner=%q want bob", owner)
	}
}
