package tracker

import (
	"encoding/gob"
	"fmt"
	"os"

	ts "sfneuman.com/nearmiss/timestep"
)

// Return tracks and saves the episodic return of a training run. When
// the step loop produces a TimeStep, this Tracker extracts the reward
// and accumulates the return for each episode in the run.
//
// Note: An episode must finish for this Tracker to record its data. If
// the last episode in a run does not finish, that episode's return is
// not saved.
type Return struct {
	lastTimeStep   int
	currentReturn  float64
	episodeReturns []float64
	filename       string
}

// NewReturn creates and returns a new *Return Tracker that saves to
// filename on Close
func NewReturn(filename string) *Return {
	return &Return{lastTimeStep: -1, filename: filename}
}

// Track tracks the reward seen on a timestep. By calling this method on
// every timestep, the Tracker stores all rewards seen in the episode
// and caches the cumulative reward as the episodic return once the
// final timestep arrives.
//
// Track panics if it is called for non-sequential timesteps
func (r *Return) Track(step ts.TimeStep) {
	// Ensure that Track is called on sequential timesteps
	if r.lastTimeStep+1 != step.Number {
		msg := fmt.Sprintf("warning: last two timesteps tracked are not "+
			"sequential: timestep %v --> timestep %v were tracked",
			r.lastTimeStep, step.Number)
		panic(msg)
	}

	r.currentReturn += step.Reward
	if !step.Last() {
		r.lastTimeStep = step.Number
	} else {
		// Episode has ended, cache the return and begin tracking the
		// return for a new episode
		r.episodeReturns = append(r.episodeReturns, r.currentReturn)
		r.currentReturn = 0.0
		r.lastTimeStep = -1
	}
}

// EndEpisode implements Tracker. Returns are accumulated from the
// timesteps themselves, so episode summaries carry nothing new.
func (r *Return) EndEpisode(Stats) error {
	return nil
}

// Close saves the data tracked by the Return Tracker to disk
func (r *Return) Close() error {
	file, err := os.Create(r.filename)
	if err != nil {
		return fmt.Errorf("close: could not open save file: %v", err)
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	if err = en.Encode(r.episodeReturns); err != nil {
		return fmt.Errorf("close: could not encode return data: %v", err)
	}
	return nil
}
