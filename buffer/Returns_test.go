package buffer

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
)

func TestDiscountedReturns(t *testing.T) {
	rewards := []float64{1.0, 2.0, 3.0}
	returns := DiscountedReturns(rewards, 0.5)

	// R_t = r_t + gamma * R_{t+1}, accumulated backward
	want := []float64{2.75, 3.5, 3.0}
	for i := range want {
		if returns[i] != want[i] {
			t.Errorf("wrong return at step %v \n\twant(%v)\n\thave(%v)", i,
				want[i], returns[i])
		}
	}

	// The input must not be modified
	if rewards[0] != 1.0 || rewards[2] != 3.0 {
		t.Error("rewards were modified in place")
	}
}

func TestNormalizeMoments(t *testing.T) {
	returns := []float64{2.75, 3.5, 3.0, 1.0, 8.25}
	normalized := Normalize(returns)

	mean := stat.Mean(normalized, nil)
	if math.Abs(mean) > 1e-9 {
		t.Errorf("normalized returns should have zero mean, got %v", mean)
	}

	std := stat.StdDev(normalized, nil)
	if math.Abs(std-1.0) > 1e-6 {
		t.Errorf("normalized returns should have unit deviation, got %v", std)
	}
}

func TestNormalizeSingleStep(t *testing.T) {
	// A one-step episode has no defined deviation; its normalized
	// return is zero rather than NaN
	normalized := Normalize([]float64{100.0})
	if len(normalized) != 1 || normalized[0] != 0 {
		t.Errorf("wrong single-step normalization \n\twant([0])\n\thave(%v)",
			normalized)
	}
}

func TestAdvantages(t *testing.T) {
	normReturns := []float64{1.0, -0.5, 0.25}
	values := []float64{0.5, 0.5, 0.5}

	adv, err := Advantages(normReturns, values)
	if err != nil {
		t.Fatal(err)
	}

	want := []float64{0.5, -1.0, -0.25}
	for i := range want {
		if adv[i] != want[i] {
			t.Errorf("wrong advantage at step %v \n\twant(%v)\n\thave(%v)",
				i, want[i], adv[i])
		}
	}
}

func TestAdvantagesMisaligned(t *testing.T) {
	if _, err := Advantages([]float64{1, 2}, []float64{1}); err == nil {
		t.Error("misaligned inputs should fail")
	}
}

func TestEpisodeDrain(t *testing.T) {
	e := NewEpisode(4)
	e.StoreAction(10.0, 1, -0.3, 0.7)
	e.StoreReward(2.0)
	e.StoreAction(8.0, 0, -1.2, 0.6)
	e.StoreReward(3.0)

	if e.Len() != 2 {
		t.Fatalf("wrong episode length \n\twant(%v)\n\thave(%v)", 2, e.Len())
	}

	rec, err := e.Drain()
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Rewards) != 2 || rec.Rewards[1] != 3.0 {
		t.Errorf("wrong drained rewards: %v", rec.Rewards)
	}
	if rec.Actions[0] != 1.0 || rec.Actions[1] != 0.0 {
		t.Errorf("wrong drained actions: %v", rec.Actions)
	}

	// Draining empties the episode
	if _, err := e.Drain(); err == nil {
		t.Error("draining an empty episode should fail")
	}
}

func TestEpisodeDrainMisaligned(t *testing.T) {
	e := NewEpisode(2)
	e.StoreAction(10.0, 1, -0.3, 0.7)
	e.StoreReward(2.0)
	e.StoreReward(3.0)

	if _, err := e.Drain(); err == nil {
		t.Error("misaligned episode should fail to drain")
	}
}
