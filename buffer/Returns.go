package buffer

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NormEpsilon guards the return normalization against near-zero
// variance
const NormEpsilon = 1e-8

// DiscountedReturns computes the discounted return at each step of a
// chronological reward sequence by backward accumulation: the return
// at the terminal step is its own reward, and the return at step t is
// reward_t + gamma * return_{t+1}. The result is in chronological
// order.
func DiscountedReturns(rewards []float64, gamma float64) []float64 {
	returns := make([]float64, len(rewards))

	acc := 0.0
	for i := len(rewards) - 1; i >= 0; i-- {
		acc = rewards[i] + gamma*acc
		returns[i] = acc
	}
	return returns
}

// Normalize returns the input sequence shifted to zero mean and scaled
// to unit standard deviation. The divisor carries a small additive
// epsilon so a degenerate zero-variance episode normalizes to zeros
// rather than faulting.
func Normalize(returns []float64) []float64 {
	if len(returns) < 2 {
		// The sample standard deviation of a single step is undefined;
		// a one-step episode carries no ranking information anyway
		return make([]float64, len(returns))
	}

	mean := stat.Mean(returns, nil)
	std := stat.StdDev(returns, nil) + NormEpsilon

	normalized := make([]float64, len(returns))
	copy(normalized, returns)
	floats.AddConst(-mean, normalized)
	floats.Scale(1.0/std, normalized)
	return normalized
}

// Advantages computes the per-step advantage as the normalized return
// minus the critic's value estimate for the step. The value estimates
// are not normalized.
func Advantages(normReturns, values []float64) ([]float64, error) {
	if len(normReturns) != len(values) {
		return nil, fmt.Errorf("advantages: length mismatch "+
			"\n\twant(%v)\n\thave(%v)", len(normReturns), len(values))
	}

	adv := make([]float64, len(normReturns))
	floats.SubTo(adv, normReturns, values)
	return adv, nil
}
