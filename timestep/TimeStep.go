// Package timestep implements timesteps of the scenario-simulator interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either the first
// step of an episode, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// TimeStep packages together a single timestep of an episode. The
// Observation holds the NPC position along the track axis, Speed holds
// the speed commanded to the NPC on this step, and Collision records
// whether the simulator reported a collision after the step was run.
type TimeStep struct {
	stepType    StepType
	Reward      float64
	Speed       float64
	Observation mat.Vector
	Collision   bool
	Number      int
}

func New(t StepType, r, speed float64, o mat.Vector, collision bool,
	n int) TimeStep {
	return TimeStep{t, r, speed, o, collision, n}
}

// First returns whether a TimeStep is the first in an episode
func (t *TimeStep) First() bool {
	return t.stepType == First
}

// Mid returns whether a TimeStep is a middle step in an episode
func (t *TimeStep) Mid() bool {
	return t.stepType == Mid
}

// Last returns whether a TimeStep is the last step in an episode
func (t *TimeStep) Last() bool {
	return t.stepType == Last
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Speed: %.2f  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.stepType, t.Reward, t.Speed, t.Number)
}
