package tracker

import (
	"fmt"
	"io"

	ts "sfneuman.com/nearmiss/timestep"
)

// Log writes a human-readable episode table to an io.Writer, filtered
// to every interval'th episode. Each row carries the episode's total
// reward, the running reward average, the NPC's average commanded
// speed, and whether the episode ended in a collision.
type Log struct {
	w        io.Writer
	interval int
}

// NewLog returns a Log writing to w every interval episodes and writes
// the table header. An interval below one logs every episode.
func NewLog(w io.Writer, interval int) (*Log, error) {
	if interval < 1 {
		interval = 1
	}

	_, err := fmt.Fprintf(w, "Episode\tEpisode-reward\trunning-reward\t"+
		"speed\tcollided\n")
	if err != nil {
		return nil, fmt.Errorf("newlog: could not write header: %v", err)
	}
	return &Log{w: w, interval: interval}, nil
}

// Track implements Tracker. The log only reports episode summaries.
func (l *Log) Track(ts.TimeStep) {}

// EndEpisode writes the episode's row if the episode falls on the log
// interval
func (l *Log) EndEpisode(stats Stats) error {
	if stats.Episode%l.interval != 0 {
		return nil
	}

	_, err := fmt.Fprintf(l.w, "   %v\t\t%.2f\t\t%.2f\t%v \t%v\n",
		stats.Episode, stats.Return, stats.Running, stats.AvgSpeed,
		stats.Collided)
	if err != nil {
		return fmt.Errorf("endepisode: could not write log line: %v", err)
	}
	return nil
}

// Close implements Tracker. The underlying writer is owned by the
// caller and is not closed here.
func (l *Log) Close() error {
	return nil
}
