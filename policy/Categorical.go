// Package policy implements action selection over the two-action
// adversarial driving policy: sampling from the actor's probability
// distribution and mapping the drawn action to a signed target speed.
package policy

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/floats"
)

// Action indices produced by the actor head
const (
	Decelerate = 0
	Accelerate = 1
)

// NumActions is the size of the discrete action space
const NumActions = 2

// SpeedScale converts an action probability into a target speed in m/s
const SpeedScale = 10.0

// probTolerance is the floating tolerance used when validating that an
// action distribution sums to one
const probTolerance = 1e-6

// Categorical samples discrete actions from the actor's probability
// distribution. Sampling is stochastic but reproducible under a fixed
// seed.
type Categorical struct {
	rng *rand.Rand
}

// NewCategorical returns a Categorical sampler seeded with the given
// seed
func NewCategorical(seed uint64) *Categorical {
	return &Categorical{rng: rand.New(rand.NewSource(seed))}
}

// Sample draws one action according to the given distribution and
// returns the action index together with the log of its probability.
func (c *Categorical) Sample(probs []float64) (int, float64, error) {
	if err := validate(probs); err != nil {
		return 0, 0, fmt.Errorf("sample: %v", err)
	}

	threshold := c.rng.Float64()
	cumulative := 0.0
	action := len(probs) - 1
	for i, p := range probs {
		cumulative += p
		if threshold <= cumulative {
			action = i
			break
		}
	}

	return action, math.Log(probs[action]), nil
}

// Speed maps a sampled action to the signed target speed commanded to
// the NPC. The magnitude is the probability mass of the chosen
// direction scaled by a fixed factor, so the more confident the policy
// is in an action the harder it drives it: accelerating with
// probability p yields +p*SpeedScale, decelerating yields
// -(1-p)*SpeedScale.
func Speed(action int, probs []float64) float64 {
	if action == Accelerate {
		return probs[Accelerate] * SpeedScale
	}
	return -probs[Decelerate] * SpeedScale
}

// validate checks that probs is a probability distribution over the
// action space: non-negative entries summing to one within tolerance
func validate(probs []float64) error {
	if len(probs) != NumActions {
		return fmt.Errorf("invalid distribution size \n\twant(%v)"+
			"\n\thave(%v)", NumActions, len(probs))
	}
	for i, p := range probs {
		if p < 0 || math.IsNaN(p) {
			return fmt.Errorf("probability %v of action %v is not "+
				"non-negative", p, i)
		}
	}
	if sum := floats.Sum(probs); math.Abs(sum-1.0) > probTolerance {
		return fmt.Errorf("distribution sums to %v, not 1", sum)
	}
	return nil
}
