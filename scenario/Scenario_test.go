package scenario

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"gorgonia.org/tensor"

	"sfneuman.com/nearmiss/config"
	"sfneuman.com/nearmiss/policy"
	"sfneuman.com/nearmiss/sim/kinematic"
	"sfneuman.com/nearmiss/solver"
	"sfneuman.com/nearmiss/tracker"
	"sfneuman.com/nearmiss/trainer"
	"sfneuman.com/nearmiss/waypoint"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.CheckpointDir = filepath.Join(t.TempDir(), "weights")
	cfg.BridgePollSeconds = 0
	cfg.BridgeMaxAttempts = 10

	sol, err := solver.NewDefaultAdam(0.001, 1)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Solver = sol
	return cfg
}

// weightsEqual reports whether two weight snapshots hold identical
// values
func weightsEqual(a, b map[string]*tensor.Dense) bool {
	for name, w := range a {
		other, ok := b[name]
		if !ok {
			return false
		}
		x := w.Data().([]float64)
		y := other.Data().([]float64)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
	}
	return true
}

func testScheduler(cfg config.Config) *waypoint.Scheduler {
	points := waypoint.UniformTrack(cfg.Waypoints, cfg.TrackMinZ,
		cfg.TrackMaxZ, cfg.Seed)
	return waypoint.NewScheduler(points)
}

func TestScenarioLifecycle(t *testing.T) {
	cfg := testConfig(t)
	sc := New(kinematic.New(8.0), cfg)

	if sc.Phase() != Initializing {
		t.Fatalf("wrong starting phase \n\twant(%v)\n\thave(%v)",
			Initializing, sc.Phase())
	}

	if err := sc.Setup(); err != nil {
		t.Fatal(err)
	}
	if err := sc.Connect(); err != nil {
		t.Fatal(err)
	}
	if sc.Phase() != Connected {
		t.Fatalf("wrong phase after connect \n\twant(%v)\n\thave(%v)",
			Connected, sc.Phase())
	}

	session, _, err := trainer.NewSession(cfg)
	if err != nil {
		t.Fatal(err)
	}
	before, err := session.WeightValues()
	if err != nil {
		t.Fatal(err)
	}

	result, err := sc.RunEpisode(session, policy.NewCategorical(cfg.Seed),
		testScheduler(cfg), nil)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Phase() != Updated {
		t.Errorf("wrong phase after episode \n\twant(%v)\n\thave(%v)",
			Updated, sc.Phase())
	}

	// The episode must end in a parameter update
	after, err := session.WeightValues()
	if err != nil {
		t.Fatal(err)
	}
	if weightsEqual(before, after) {
		t.Error("episode update left the policy parameters unchanged")
	}

	if result.Steps < 1 || result.Steps > cfg.Waypoints-1 {
		t.Errorf("episode ran for %v steps, outside [1, %v]", result.Steps,
			cfg.Waypoints-1)
	}
	if result.Reward <= 0 {
		t.Errorf("episode reward should be positive, got %v", result.Reward)
	}
	if result.Running == trainer.InitialRunningReward {
		t.Error("running reward was not updated")
	}
}

func TestRunEpisodeRequiresConnection(t *testing.T) {
	cfg := testConfig(t)
	sc := New(kinematic.New(8.0), cfg)

	session, _, err := trainer.NewSession(cfg)
	if err != nil {
		t.Fatal(err)
	}

	_, err = sc.RunEpisode(session, policy.NewCategorical(cfg.Seed),
		testScheduler(cfg), nil)
	if err == nil {
		t.Error("running an unconnected scenario should fail")
	}
}

func TestRunnerFullRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Episodes = 3

	session, _, err := trainer.NewSession(cfg)
	if err != nil {
		t.Fatal(err)
	}

	var logOutput bytes.Buffer
	logTracker, err := tracker.NewLog(&logOutput, cfg.LogInterval)
	if err != nil {
		t.Fatal(err)
	}

	runner := NewRunner(cfg, kinematic.New(8.0), session,
		policy.NewCategorical(cfg.Seed), []tracker.Tracker{logTracker})
	if err := runner.Run(); err != nil {
		t.Fatal(err)
	}

	// Header plus one row per episode
	lines := strings.Split(strings.TrimRight(logOutput.String(), "\n"), "\n")
	if len(lines) != cfg.Episodes+1 {
		t.Errorf("wrong number of log lines \n\twant(%v)\n\thave(%v)\n%v",
			cfg.Episodes+1, len(lines), logOutput.String())
	}
}
