// Package tracker records training progress. Trackers observe every
// timestep of every episode and persist whatever view of the run they
// implement: episodic returns, a human-readable log, an episode history
// table, or a reward curve plot.
package tracker

import (
	"encoding/gob"
	"fmt"
	"os"

	ts "sfneuman.com/nearmiss/timestep"
)

// Stats summarizes one finished episode
type Stats struct {
	Episode  int
	Return   float64
	Running  float64
	AvgSpeed float64
	Collided bool
	Steps    int
}

// Tracker tracks and saves data generated during a training run.
// Track is called on every timestep, EndEpisode once per finished
// episode, and Close once when the run ends.
type Tracker interface {
	Track(t ts.TimeStep)
	EndEpisode(stats Stats) error
	Close() error
}

// LoadData loads and returns the data saved by a Return Tracker
func LoadData(filename string) ([]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loaddata: could not open data file: %v", err)
	}
	defer file.Close()

	var data []float64
	dec := gob.NewDecoder(file)
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("loaddata: could not decode data: %v", err)
	}
	return data, nil
}
