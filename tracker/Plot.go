package tracker

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	ts "sfneuman.com/nearmiss/timestep"
)

// RewardPlot renders the episodic reward curve to a PNG when the run
// ends. Both the raw per-episode reward and the running average are
// drawn.
type RewardPlot struct {
	filename string
	returns  plotter.XYs
	running  plotter.XYs
}

// NewRewardPlot returns a RewardPlot that saves to filename on Close
func NewRewardPlot(filename string) *RewardPlot {
	return &RewardPlot{filename: filename}
}

// Track implements Tracker. The plot only uses episode summaries.
func (r *RewardPlot) Track(ts.TimeStep) {}

// EndEpisode appends the episode's reward and running average to the
// curves
func (r *RewardPlot) EndEpisode(stats Stats) error {
	x := float64(stats.Episode)
	r.returns = append(r.returns, plotter.XY{X: x, Y: stats.Return})
	r.running = append(r.running, plotter.XY{X: x, Y: stats.Running})
	return nil
}

// Close renders and saves the reward curve
func (r *RewardPlot) Close() error {
	if len(r.returns) == 0 {
		return nil
	}

	p := plot.New()
	p.Title.Text = "Episodic reward"
	p.X.Label.Text = "Episode"
	p.Y.Label.Text = "Reward"

	curves := []plotter.XYs{r.returns, r.running}
	names := []string{"reward", "running average"}
	for i, curve := range curves {
		line, err := plotter.NewLine(curve)
		if err != nil {
			return fmt.Errorf("close: could not plot %v: %v", names[i], err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(names[i], line)
	}

	if err := p.Save(8*vg.Inch, 8*vg.Inch, r.filename); err != nil {
		return fmt.Errorf("close: could not save plot: %v", err)
	}
	return nil
}
