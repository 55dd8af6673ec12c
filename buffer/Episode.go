// Package buffer implements per-episode storage of training data and
// the conversion of an episode's rewards into normalized returns and
// advantages.
package buffer

import "fmt"

// Episode accumulates the per-step records of a single episode: the
// log probability and value estimate produced when the action was
// selected, the observation and action themselves, and the reward the
// simulator produced for the step. The sequences are index-aligned by
// step and owned exclusively by the current episode.
type Episode struct {
	logProbs []float64
	values   []float64
	obs      []float64
	actions  []float64
	rewards  []float64
}

// NewEpisode returns an empty Episode with capacity for the given
// number of steps
func NewEpisode(steps int) *Episode {
	return &Episode{
		logProbs: make([]float64, 0, steps),
		values:   make([]float64, 0, steps),
		obs:      make([]float64, 0, steps),
		actions:  make([]float64, 0, steps),
		rewards:  make([]float64, 0, steps),
	}
}

// StoreAction records the data produced when an action was selected:
// the observation the policy saw, the action index drawn, its log
// probability, and the critic's value estimate for the observation.
func (e *Episode) StoreAction(obs float64, action int, logProb,
	value float64) {
	e.obs = append(e.obs, obs)
	e.actions = append(e.actions, float64(action))
	e.logProbs = append(e.logProbs, logProb)
	e.values = append(e.values, value)
}

// StoreReward records the reward the simulator produced for the most
// recent action
func (e *Episode) StoreReward(reward float64) {
	e.rewards = append(e.rewards, reward)
}

// Len returns the number of completed steps stored in the Episode
func (e *Episode) Len() int {
	return len(e.rewards)
}

// Record holds the drained contents of an Episode
type Record struct {
	LogProbs []float64
	Values   []float64
	Obs      []float64
	Actions  []float64
	Rewards  []float64
}

// Drain returns the stored sequences and empties the Episode. It must
// be called exactly once per episode, after the terminal step. Drain
// fails if the sequences are not index-aligned or if no steps were
// stored.
func (e *Episode) Drain() (Record, error) {
	if len(e.rewards) == 0 {
		return Record{}, fmt.Errorf("drain: empty episode")
	}
	if len(e.rewards) != len(e.logProbs) {
		return Record{}, fmt.Errorf("drain: misaligned episode "+
			"\n\twant(%v rewards)\n\thave(%v)", len(e.logProbs),
			len(e.rewards))
	}

	record := Record{
		LogProbs: e.logProbs,
		Values:   e.values,
		Obs:      e.obs,
		Actions:  e.actions,
		Rewards:  e.rewards,
	}

	e.logProbs = nil
	e.values = nil
	e.obs = nil
	e.actions = nil
	e.rewards = nil

	return record, nil
}
