// Package coord maps world voxel coordinates to chunk keys and in-chunk
// indices. The flattening order (x-major, z-minor) is shared by the sparse
// chunk store, the ownership records and every persisted form of a chunk.
package coord

import "voxelclaim.ai/internal/sim/world/logic/mathx"

const (
	ChunkEdge   = 16
	ChunkVolume = ChunkEdge * ChunkEdge * ChunkEdge
)

// Pos is a world voxel coordinate.
type Pos struct {
	X, Y, Z int32
}

func (p Pos) ToArray() [3]int32 { return [3]int32{p.X, p.Y, p.Z} }

func PosFromArray(a [3]int32) Pos { return Pos{X: a[0], Y: a[1], Z: a[2]} }

// ChunkKey identifies one 16x16x16 cube of the world grid.
type ChunkKey struct {
	CX, CY, CZ int32
}

func (k ChunkKey) ToArray() [3]int32 { return [3]int32{k.CX, k.CY, k.CZ} }

func KeyFromArray(a [3]int32) ChunkKey { return ChunkKey{CX: a[0], CY: a[1], CZ: a[2]} }

// Less orders keys lexicographically on (x, y, z).
func (k ChunkKey) Less(o ChunkKey) bool {
	if k.CX != o.CX {
		return k.CX < o.CX
	}
	if k.CY != o.CY {
		return k.CY < o.CY
	}
	return k.CZ < o.CZ
}

// Origin is the world position of local (0,0,0).
func (k ChunkKey) Origin() Pos {
	return Pos{X: k.CX * ChunkEdge, Y: k.CY * ChunkEdge, Z: k.CZ * ChunkEdge}
}

func KeyOf(p Pos) ChunkKey {
	return ChunkKey{
		CX: mathx.FloorDiv(p.X, ChunkEdge),
		CY: mathx.FloorDiv(p.Y, ChunkEdge),
		CZ: mathx.FloorDiv(p.Z, ChunkEdge),
	}
}

// Flatten packs in-chunk offsets, each in [0,15].
func Flatten(lx, ly, lz int) int {
	return lx*ChunkEdge*ChunkEdge + ly*ChunkEdge + lz
}

func Unflatten(local int) (lx, ly, lz int) {
	return local / (ChunkEdge * ChunkEdge), local / ChunkEdge % ChunkEdge, local % ChunkEdge
}

func ToChunkLocal(p Pos) (ChunkKey, int) {
	lx := int(mathx.Mod(p.X, ChunkEdge))
	ly := int(mathx.Mod(p.Y, ChunkEdge))
	lz := int(mathx.Mod(p.Z, ChunkEdge))
	return KeyOf(p), Flatten(lx, ly, lz)
}

func ToWorld(k ChunkKey, local int) Pos {
	lx, ly, lz := Unflatten(local)
	o := k.Origin()
	return Pos{X: o.X + int32(lx), Y: o.Y + int32(ly), Z: o.Z + int32(lz)}
}
