package trainer

import (
	"math"
	"path/filepath"
	"testing"

	"sfneuman.com/nearmiss/buffer"
	"sfneuman.com/nearmiss/checkpoint"
	"sfneuman.com/nearmiss/config"
	"sfneuman.com/nearmiss/solver"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Waypoints = 5
	cfg.CheckpointDir = filepath.Join(t.TempDir(), "weights")

	// A small step size keeps repeated updates on one fixed episode
	// inside the descent region of the loss surface
	sol, err := solver.NewDefaultAdam(1e-5, 1)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Solver = sol
	return cfg
}

func testRecord() buffer.Record {
	return buffer.Record{
		LogProbs: []float64{-0.7, -0.4, -0.9},
		Values:   []float64{0.1, 0.2, 0.3},
		Obs:      []float64{10.0, 8.0, 6.0},
		Actions:  []float64{1, 0, 1},
		Rewards:  []float64{1.0, 2.0, 5.0},
	}
}

func TestNewSessionStartsFresh(t *testing.T) {
	session, loaded, err := NewSession(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	if loaded != checkpoint.Absent {
		t.Errorf("fresh session should start without a checkpoint "+
			"\n\twant(%v)\n\thave(%v)", checkpoint.Absent, loaded)
	}
	if session.RunningReward() != InitialRunningReward {
		t.Errorf("wrong initial running reward \n\twant(%v)\n\thave(%v)",
			InitialRunningReward, session.RunningReward())
	}
}

func TestNewSessionDeterministicInit(t *testing.T) {
	cfg := testConfig(t)

	first, _, err := NewSession(cfg)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := NewSession(cfg)
	if err != nil {
		t.Fatal(err)
	}

	want, err := first.WeightValues()
	if err != nil {
		t.Fatal(err)
	}
	have, err := second.WeightValues()
	if err != nil {
		t.Fatal(err)
	}
	for name, w := range want {
		other, ok := have[name]
		if !ok {
			t.Fatalf("missing weight %v", name)
		}
		wantData := w.Data().([]float64)
		haveData := other.Data().([]float64)
		for i := range wantData {
			if wantData[i] != haveData[i] {
				t.Fatalf("weight %v differs at %v for one seed "+
					"\n\twant(%v)\n\thave(%v)", name, i, wantData[i],
					haveData[i])
			}
		}
	}

	// A different run seed initializes different weights
	cfg.Seed++
	reseeded, _, err := NewSession(cfg)
	if err != nil {
		t.Fatal(err)
	}
	reseededWeights, err := reseeded.WeightValues()
	if err != nil {
		t.Fatal(err)
	}
	changed := false
	for name, w := range want {
		wantData := w.Data().([]float64)
		haveData := reseededWeights[name].Data().([]float64)
		for i := range wantData {
			if wantData[i] != haveData[i] {
				changed = true
				break
			}
		}
	}
	if !changed {
		t.Error("reseeding should change the initial weights")
	}
}

func TestForward(t *testing.T) {
	session, _, err := NewSession(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}

	probs, value, err := session.Forward(72.0)
	if err != nil {
		t.Fatal(err)
	}

	sum := 0.0
	for _, p := range probs {
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("action distribution sums to %v, not 1", sum)
	}
	if math.IsNaN(value) {
		t.Error("value estimate is NaN")
	}
}

func TestFinishEpisodeDecreasesLoss(t *testing.T) {
	session, _, err := NewSession(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}

	// Repeated updates on the same episode must descend the combined
	// loss surface
	first, err := session.FinishEpisode(testRecord())
	if err != nil {
		t.Fatal(err)
	}
	second, err := session.FinishEpisode(testRecord())
	if err != nil {
		t.Fatal(err)
	}

	if second >= first {
		t.Errorf("loss did not decrease across updates "+
			"\n\tfirst(%v)\n\tsecond(%v)", first, second)
	}
}

func TestFinishEpisodeEmpty(t *testing.T) {
	session, _, err := NewSession(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := session.FinishEpisode(buffer.Record{}); err == nil {
		t.Error("empty episode should fail")
	}

	// The failed update must not corrupt the parameters
	if _, _, err := session.Forward(10.0); err != nil {
		t.Errorf("forward pass broken after failed update: %v", err)
	}
}

func TestFinishEpisodeOverBudget(t *testing.T) {
	cfg := testConfig(t)
	cfg.Waypoints = 2
	session, _, err := NewSession(cfg)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := session.FinishEpisode(testRecord()); err == nil {
		t.Error("episode longer than the step budget should fail")
	}
}

func TestRecordReturn(t *testing.T) {
	session, _, err := NewSession(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}

	running := session.RecordReturn(30.0)
	want := 0.05*30.0 + 0.95*InitialRunningReward
	if math.Abs(running-want) > 1e-12 {
		t.Errorf("wrong running reward \n\twant(%v)\n\thave(%v)", want,
			running)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	cfg := testConfig(t)

	session, _, err := NewSession(cfg)
	if err != nil {
		t.Fatal(err)
	}

	// Not on the interval: nothing saved yet
	if err := session.Checkpoint(cfg.CheckpointInterval - 1); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewSession(cfg); err != nil {
		t.Fatal(err)
	}

	if err := session.Checkpoint(cfg.CheckpointInterval); err != nil {
		t.Fatal(err)
	}

	restored, loaded, err := NewSession(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if loaded != checkpoint.Loaded {
		t.Fatalf("checkpoint not restored \n\twant(%v)\n\thave(%v)",
			checkpoint.Loaded, loaded)
	}

	// The restored session computes the same outputs
	wantProbs, wantValue, err := session.Forward(15.0)
	if err != nil {
		t.Fatal(err)
	}
	haveProbs, haveValue, err := restored.Forward(15.0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(wantProbs[0]-haveProbs[0]) > 1e-9 ||
		math.Abs(wantValue-haveValue) > 1e-9 {
		t.Error("restored session disagrees with the saved one")
	}
}
