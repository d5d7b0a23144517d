// Package claims holds the chunk ownership registry and the three calls that
// mutate it: claim, write and give. Every call either applies fully or
// returns one of the sentinel errors below with the registry untouched.
//
// The registry does no locking. Callers serialize calls themselves.
package claims

import (
	"errors"

	"voxelclaim.ai/internal/sim/world/terrain/coord"
)

var (
	// ErrChunkDoesNotExist: the chunk has not been claimed yet.
	ErrChunkDoesNotExist = errors.New("chunk does not exist")
	// ErrNotYours: the chunk belongs to someone else.
	ErrNotYours = errors.New("chunk does not belong to you")
	// ErrAlreadyOwned: the chunk already has an owner.
	ErrAlreadyOwned = errors.New("chunk is already owned")
)

type Registry[ID comparable] struct {
	records RecordMap[ID]
}

func NewRegistry[ID comparable]() *Registry[ID] {
	return &Registry[ID]{records: NewMemMap[ID]()}
}

// NewRegistryOn runs the calls against an existing container, e.g. an Overlay.
func NewRegistryOn[ID comparable](m RecordMap[ID]) *Registry[ID] {
	return &Registry[ID]{records: m}
}

// Claim gives an unclaimed chunk to requester with every cell empty.
func (r *Registry[ID]) Claim(k coord.ChunkKey, requester ID) error {
	if r.records.Contains(k) {
		return ErrAlreadyOwned
	}
	r.records.Insert(k, Record[ID]{Owner: requester})
	return nil
}

// WriteBlock sets one voxel in a chunk owned by requester. The whole record is
// read and written back, so each voxel write costs one full record write.
func (r *Registry[ID]) WriteBlock(pos coord.Pos, b uint16, requester ID) error {
	k, local := coord.ToChunkLocal(pos)
	rec, ok := r.records.Get(k)
	if !ok {
		return ErrChunkDoesNotExist
	}
	if rec.Owner != requester {
		return ErrNotYours
	}
	rec.Chunk.Set(local, b)
	r.records.Insert(k, rec)
	return nil
}

// GiveChunk hands a chunk to recipient, keeping its contents. Giving a chunk
// to its current owner is allowed.
func (r *Registry[ID]) GiveChunk(k coord.ChunkKey, requester, recipient ID) error {
	rec, ok := r.records.Get(k)
	if !ok {
		return ErrChunkDoesNotExist
	}
	if rec.Owner != requester {
		return ErrNotYours
	}
	rec.Owner = recipient
	r.records.Insert(k, rec)
	return nil
}

func (r *Registry[ID]) Record(k coord.ChunkKey) (Record[ID], bool) {
	return r.records.Get(k)
}

func (r *Registry[ID]) Owner(k coord.ChunkKey) (ID, bool) {
	rec, ok := r.records.Get(k)
	return rec.Owner, ok
}

// Keys lists claimed chunks ordered by (x, y, z).
func (r *Registry[ID]) Keys() []coord.ChunkKey {
	return r.records.Keys()
}

// ClaimAt claims the chunk containing a world location.
func (r *Registry[ID]) ClaimAt(loc coord.Pos, requester ID) error {
	return r.Claim(coord.KeyOf(loc), requester)
}

// GiveAt gives away the chunk containing a world location.
func (r *Registry[ID]) GiveAt(loc coord.Pos, requester, recipient ID) error {
	return r.GiveChunk(coord.KeyOf(loc), requester, recipient)
}
