// Package waypoint implements the waypoint track the NPC is commanded
// along and the per-step adjustment of that track by the policy's
// chosen speed.
package waypoint

import (
	"sort"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// Track geometry constants for the BorregasAve lane the NPC drives in
const (
	LaneX        = 13.81 // Lateral position of the NPC lane
	StartY       = -3.15 // Road height at the NPC spawn
	HeadingAngle = 180.0 // Degrees, facing down the -z axis

	// Road height ramp: the first few waypoints climb faster than the
	// rest of the lane
	earlyRise     = 0.28
	lateRise      = 0.08
	earlyRiseSpan = 5
)

// Waypoint is a target pose and speed the NPC is commanded to move
// toward
type Waypoint struct {
	Position r3.Vec
	Angle    r3.Vec
	Speed    float64
}

// UniformTrack samples n waypoints uniformly along the track axis
// between zMin and zMax, ordered from farthest to nearest so the NPC
// drives toward the EGO. The lateral position and heading are fixed to
// the NPC lane and the road height ramps up with the road.
func UniformTrack(n int, zMin, zMax float64, seed uint64) []Waypoint {
	dist := distuv.Uniform{
		Min: zMin,
		Max: zMax,
		Src: rand.NewSource(seed),
	}

	zs := make([]float64, n)
	for i := range zs {
		zs[i] = dist.Rand()
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(zs)))

	y := StartY
	points := make([]Waypoint, n)
	for i := range points {
		if i < earlyRiseSpan {
			y += earlyRise
		} else {
			y += lateRise
		}
		points[i] = Waypoint{
			Position: r3.Vec{X: LaneX, Y: y, Z: zs[i]},
			Angle:    r3.Vec{X: 0, Y: HeadingAngle, Z: 0},
			Speed:    0,
		}
	}
	return points
}
