// Package gen fills a sparse chunk store with demo content.
package gen

import (
	"math"

	"voxelclaim.ai/internal/sim/world/terrain/coord"
	"voxelclaim.ai/internal/sim/world/terrain/store"
)

// SpiralPoint is the i-th point of a spiral wound around a sphere of the
// given radius, rounded to the nearest voxel.
func SpiralPoint(i int, radius float64) coord.Pos {
	fi := float64(i)
	f2 := fi * 100
	s := math.Cos(f2)
	return coord.Pos{
		X: int32(math.Round(math.Sin(fi) * s * radius)),
		Y: int32(math.Round(math.Cos(fi) * s * radius)),
		Z: int32(math.Round(math.Sin(f2) * radius)),
	}
}

// Spiral writes count voxels along SpiralPoint, voxel i getting code i
// (wrapping past 65535). Later points overwrite earlier ones on collision.
// It returns the number of chunks the store holds afterwards.
func Spiral(s *store.ChunkStore, count int, radius float64) int {
	for i := 0; i < count; i++ {
		s.SetVoxel(SpiralPoint(i, radius), uint16(i))
	}
	return s.Len()
}
