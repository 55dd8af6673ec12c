package waypoint

import "fmt"

// Vertical offsets applied when the NPC is commanded backward, to keep
// the vehicle on the road surface while it moves against the height
// ramp of the lane
const (
	earlyDrop = 0.56
	lateDrop  = 0.16
)

// Scheduler owns the ordered waypoint sequence for one episode and
// produces the waypoint to command at each step. A non-negative target
// speed uses the scheduled waypoint in place with the speed assigned.
// A negative target speed moves the waypoint backward along the track
// axis, lowers it onto the road, and re-inserts a path slot so the
// remaining track is long enough for the rest of the episode.
type Scheduler struct {
	points []Waypoint
}

// NewScheduler returns a Scheduler over the given waypoint sequence.
// The Scheduler takes ownership of the slice.
func NewScheduler(points []Waypoint) *Scheduler {
	return &Scheduler{points: points}
}

// Len returns the number of waypoints remaining on the track
func (s *Scheduler) Len() int {
	return len(s.points)
}

// At returns the waypoint at index i without adjusting it
func (s *Scheduler) At(i int) Waypoint {
	return s.points[i]
}

// Target returns the waypoint to command at the given step index,
// adjusted for the signed target speed chosen by the policy.
//
// When speed < 0 the waypoint's track coordinate is shifted backward
// by the speed magnitude and its height lowered so the NPC does not
// float above the road. Backward motion consumes no forward progress
// along the precomputed track, so the final waypoint is duplicated and
// the sequence from step onward is shifted left by one slot.
func (s *Scheduler) Target(step int, speed float64) (Waypoint, error) {
	if step < 0 || step >= len(s.points) {
		return Waypoint{}, fmt.Errorf("target: step index %v out of range "+
			"[0, %v)", step, len(s.points))
	}

	wp := s.points[step]
	if speed >= 0 {
		wp.Speed = speed
		s.points[step] = wp
		return wp, nil
	}

	wp.Position.Z -= speed
	wp.Speed = -speed
	if step < earlyRiseSpan {
		wp.Position.Y -= earlyDrop
	} else {
		wp.Position.Y -= lateDrop
	}
	s.points[step] = wp

	// Reuse a path slot: copy the tail left and duplicate the final
	// waypoint so the track length stays adequate
	s.points = append(s.points, s.points[len(s.points)-1])
	copy(s.points[step:], s.points[step+1:])

	return wp, nil
}
