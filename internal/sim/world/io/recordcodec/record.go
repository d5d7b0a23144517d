// Package recordcodec is the byte form of an ownership record shared by the
// durable stores and the call journal digests:
//
//	version:1 | owner_len:uvarint | owner | cells:4096*uint16le
//
// Cells are in x-major, z-minor order.
package recordcodec

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"voxelclaim.ai/internal/sim/world/terrain/coord"
	"voxelclaim.ai/internal/sim/world/terrain/store"
)

const version byte = 1

var ErrShortRecord = errors.New("record truncated")

func Encode(owner string, blocks *store.Blocks) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(owner)))
	out := make([]byte, 0, 1+n+len(owner)+coord.ChunkVolume*2)
	out = append(out, version)
	out = append(out, tmp[:n]...)
	out = append(out, owner...)
	for _, v := range blocks {
		out = binary.LittleEndian.AppendUint16(out, v)
	}
	return out
}

func Decode(b []byte) (string, store.Blocks, error) {
	var blocks store.Blocks
	if len(b) == 0 {
		return "", blocks, ErrShortRecord
	}
	if b[0] != version {
		return "", blocks, fmt.Errorf("record version %d unsupported", b[0])
	}
	b = b[1:]
	ownerLen, n := binary.Uvarint(b)
	if n <= 0 {
		return "", blocks, fmt.Errorf("bad owner length varint")
	}
	b = b[n:]
	if uint64(len(b)) < ownerLen {
		return "", blocks, ErrShortRecord
	}
	owner := string(b[:ownerLen])
	b = b[ownerLen:]
	if len(b) != coord.ChunkVolume*2 {
		return "", blocks, fmt.Errorf("record cells: got %d bytes want %d", len(b), coord.ChunkVolume*2)
	}
	for i := range blocks {
		blocks[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return owner, blocks, nil
}

// Digest is the hex sha256 of the encoded record.
func Digest(owner string, blocks *store.Blocks) string {
	sum := sha256.Sum256(Encode(owner, blocks))
	return hex.EncodeToString(sum[:])
}

// Key is the store key of a chunk record.
func Key(k coord.ChunkKey) []byte {
	return []byte(fmt.Sprintf("chunk:%d:%d:%d", k.CX, k.CY, k.CZ))
}

func ParseKey(b []byte) (coord.ChunkKey, error) {
	var k coord.ChunkKey
	if _, err := fmt.Sscanf(string(b), "chunk:%d:%d:%d", &k.CX, &k.CY, &k.CZ); err != nil {
		return k, fmt.Errorf("parse chunk key %q: %w", b, err)
	}
	return k, nil
}

// Row is one record as the durable stores see it.
type Row struct {
	Key    coord.ChunkKey
	Owner  string
	Blocks store.Blocks
}
