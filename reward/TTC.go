// Package reward implements the proximity reward given to the NPC for
// closing in on the EGO vehicle.
package reward

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// Collision is the terminal reward granted when the NPC makes
	// contact with the EGO
	Collision float64 = 100.0

	// MinRelativeSpeed is the magnitude the relative speed between the
	// two vehicles is clamped to when computing the time to collision.
	// When the vehicles move at the same speed the time to collision
	// is undefined; clamping saturates it to a very large value so the
	// reward decays to near zero instead of faulting.
	MinRelativeSpeed float64 = 1e-3

	// ttcPrecision is the number of decimals the time to collision is
	// rounded to
	ttcPrecision = 3
)

// TTC implements the reward model for adversarial driving. On
// collision the reward is the fixed terminal constant. Otherwise the
// reward is the reciprocal of the time to collision between the NPC
// and the EGO, so the NPC earns more the closer it steers to a crash.
//
// The reciprocal grows without bound as the time to collision shrinks.
// This shape is kept from the reference scenario; the terminal
// collision constant caps a collided episode but near-miss rewards can
// still be large.
type TTC struct {
	precision int
}

// NewTTC returns a new TTC reward model
func NewTTC() *TTC {
	return &TTC{precision: ttcPrecision}
}

// Evaluate returns the reward for the current simulator state and
// whether the episode should terminate. The positions are the current
// 3-D positions of the two vehicles, npcSpeed is the speed most
// recently commanded to the NPC, and egoSpeed is the speed the
// simulator reports for the EGO.
func (t *TTC) Evaluate(npcPos, egoPos r3.Vec, npcSpeed, egoSpeed float64,
	collided bool) (float64, bool) {
	if collided {
		return Collision, true
	}

	ttc := t.TimeToCollision(npcPos, egoPos, npcSpeed, egoSpeed)
	if ttc == 0 {
		// Rounding can floor a sub-millisecond TTC to zero. Saturate
		// at one precision step so the reward stays finite.
		ttc = math.Pow(10, -float64(t.precision))
	}
	return 1.0 / ttc, false
}

// TimeToCollision returns the time until the NPC and EGO would occupy
// the same position given their current separation and speeds, rounded
// to a fixed precision. The relative speed is clamped away from zero
// so the result is always finite.
func (t *TTC) TimeToCollision(npcPos, egoPos r3.Vec, npcSpeed,
	egoSpeed float64) float64 {
	dist := r3.Norm(r3.Sub(npcPos, egoPos))

	relativeSpeed := npcSpeed - egoSpeed
	if math.Abs(relativeSpeed) < MinRelativeSpeed {
		if relativeSpeed < 0 {
			relativeSpeed = -MinRelativeSpeed
		} else {
			relativeSpeed = MinRelativeSpeed
		}
	}

	return round(math.Abs(dist/relativeSpeed), t.precision)
}

// round rounds a value to the given number of decimals
func round(val float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	return math.Round(val*scale) / scale
}
