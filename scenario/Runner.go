package scenario

import (
	"fmt"
	"log"

	"sfneuman.com/nearmiss/config"
	"sfneuman.com/nearmiss/policy"
	"sfneuman.com/nearmiss/sim"
	"sfneuman.com/nearmiss/tracker"
	"sfneuman.com/nearmiss/trainer"
	"sfneuman.com/nearmiss/utils/progressbar"
	"sfneuman.com/nearmiss/waypoint"
)

// progressBarWidth is the character width of the terminal progress bar
const progressBarWidth = 50

// Runner executes a full training run against one simulator session: a
// fresh Scenario per episode, a shared trainer.Session carrying the
// network and optimizer across episodes, and trackers recording
// progress. Episodes that fail are logged and skipped; the run
// continues with the next episode.
type Runner struct {
	cfg       config.Config
	simulator sim.Simulator
	session   *trainer.Session
	sampler   *policy.Categorical
	trackers  []tracker.Tracker

	// ShowProgress draws a terminal progress bar over episodes
	ShowProgress bool
}

// NewRunner returns a Runner over the given simulator session
func NewRunner(cfg config.Config, simulator sim.Simulator,
	session *trainer.Session, sampler *policy.Categorical,
	trackers []tracker.Tracker) *Runner {
	return &Runner{
		cfg:       cfg,
		simulator: simulator,
		session:   session,
		sampler:   sampler,
		trackers:  trackers,
	}
}

// Run samples the waypoint track and runs every episode of the
// training run. The track is sampled once per run; each episode
// schedules its own copy, since backward commands mutate the sequence.
func (r *Runner) Run() error {
	base := waypoint.UniformTrack(r.cfg.Waypoints, r.cfg.TrackMinZ,
		r.cfg.TrackMaxZ, r.cfg.Seed)

	var bar *progressbar.ManualProgressBar
	if r.ShowProgress {
		bar = progressbar.NewManualProgressBar(progressBarWidth,
			r.cfg.Episodes)
		bar.Display()
	}

	for episode := 1; episode <= r.cfg.Episodes; episode++ {
		points := make([]waypoint.Waypoint, len(base))
		copy(points, base)

		if err := r.runEpisode(episode, waypoint.NewScheduler(points)); err != nil {
			log.Printf("episode %v failed: %v", episode, err)
		}

		if bar != nil {
			bar.Increment()
			bar.Display()
		}
	}

	for _, t := range r.trackers {
		if err := t.Close(); err != nil {
			return fmt.Errorf("run: could not close tracker: %v", err)
		}
	}
	return nil
}

// runEpisode sets up and runs one episode, then feeds its summary to
// the trackers and checkpoints the network on the checkpoint interval
func (r *Runner) runEpisode(episode int, track *waypoint.Scheduler) error {
	sc := New(r.simulator, r.cfg)
	if err := sc.Setup(); err != nil {
		return err
	}
	if err := sc.Connect(); err != nil {
		return err
	}

	result, err := sc.RunEpisode(r.session, r.sampler, track, r.trackers)
	if err != nil {
		return err
	}

	stats := tracker.Stats{
		Episode:  episode,
		Return:   result.Reward,
		Running:  result.Running,
		AvgSpeed: result.AvgSpeed,
		Collided: result.Collided,
		Steps:    result.Steps,
	}
	for _, t := range r.trackers {
		if err := t.EndEpisode(stats); err != nil {
			log.Printf("episode %v: tracker failed: %v", episode, err)
		}
	}

	if err := r.session.Checkpoint(episode); err != nil {
		log.Printf("episode %v: checkpoint failed: %v", episode, err)
	}
	return nil
}
