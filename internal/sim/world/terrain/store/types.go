package store

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"voxelclaim.ai/internal/sim/world/terrain/coord"
)

// Air is the empty voxel code every fresh chunk is filled with.
const Air uint16 = 0

// Blocks is one chunk's cells in coord.Flatten order.
type Blocks [coord.ChunkVolume]uint16

// Chunk is a fixed-size value; copying a Chunk copies its cells.
type Chunk struct {
	Blocks Blocks
}

func checkLocal(local int) {
	if local < 0 || local >= coord.ChunkVolume {
		panic(fmt.Sprintf("store: local index %d out of range [0,%d)", local, coord.ChunkVolume))
	}
}

func (c *Chunk) Get(local int) uint16 {
	checkLocal(local)
	return c.Blocks[local]
}

func (c *Chunk) Set(local int, b uint16) {
	checkLocal(local)
	c.Blocks[local] = b
}

// NonEmpty counts cells that are not Air.
func (c *Chunk) NonEmpty() int {
	n := 0
	for _, v := range c.Blocks {
		if v != Air {
			n++
		}
	}
	return n
}

// Digest hashes the cells as little-endian uint16s.
func (c *Chunk) Digest() [32]byte {
	var buf [coord.ChunkVolume * 2]byte
	for i, v := range c.Blocks {
		binary.LittleEndian.PutUint16(buf[i*2:], v)
	}
	return sha256.Sum256(buf[:])
}

// ChunkStore is the ungated sparse side of the world: chunks appear the first
// time they are referenced and are never dropped. Not safe for concurrent use.
type ChunkStore struct {
	Chunks map[coord.ChunkKey]*Chunk
}

func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		Chunks: map[coord.ChunkKey]*Chunk{},
	}
}
