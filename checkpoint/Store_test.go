package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"gorgonia.org/tensor"

	"sfneuman.com/nearmiss/network"
)

func testWeights() map[string]*tensor.Dense {
	weights := make(map[string]*tensor.Dense, len(network.WeightNames))
	for i, name := range network.WeightNames {
		backing := []float64{float64(i), float64(i) + 0.5, 1.0, -1.0}
		weights[name] = tensor.New(
			tensor.WithShape(2, 2),
			tensor.WithBacking(backing),
		)
	}
	return weights
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "weights")
	store := NewStore(dir)

	saved := testWeights()
	if err := store.Save(saved); err != nil {
		t.Fatal(err)
	}

	loaded, result := store.Load()
	if result != Loaded {
		t.Fatalf("wrong load result \n\twant(%v)\n\thave(%v)", Loaded, result)
	}

	for _, name := range network.WeightNames {
		want := saved[name].Data().([]float64)
		have := loaded[name].Data().([]float64)
		if len(want) != len(have) {
			t.Fatalf("layer %v changed size on disk", name)
		}
		for i := range want {
			if want[i] != have[i] {
				t.Errorf("layer %v differs at %v \n\twant(%v)\n\thave(%v)",
					name, i, want[i], have[i])
			}
		}
	}
}

func TestLoadAbsent(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nothing-here"))

	weights, result := store.Load()
	if result != Absent {
		t.Errorf("wrong load result \n\twant(%v)\n\thave(%v)", Absent, result)
	}
	if weights != nil {
		t.Error("an absent checkpoint should return no weights")
	}
}

func TestLoadCorrupt(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "weights")
	store := NewStore(dir)

	if err := store.Save(testWeights()); err != nil {
		t.Fatal(err)
	}

	// Truncate one layer's file so it no longer decodes
	name := network.WeightNames[0]
	path := filepath.Join(dir, name+fileExtension)
	if err := os.WriteFile(path, []byte("not a gob"), 0o644); err != nil {
		t.Fatal(err)
	}

	weights, result := store.Load()
	if result != Invalid {
		t.Errorf("wrong load result \n\twant(%v)\n\thave(%v)", Invalid,
			result)
	}
	if weights != nil {
		t.Error("an invalid checkpoint should return no weights")
	}
}

func TestLoadIncomplete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "weights")
	store := NewStore(dir)

	if err := store.Save(testWeights()); err != nil {
		t.Fatal(err)
	}

	// Remove one layer: a partially present checkpoint must not load
	name := network.WeightNames[len(network.WeightNames)-1]
	if err := os.Remove(filepath.Join(dir, name+fileExtension)); err != nil {
		t.Fatal(err)
	}

	if _, result := store.Load(); result != Invalid {
		t.Errorf("wrong load result \n\twant(%v)\n\thave(%v)", Invalid,
			result)
	}
}

func TestSaveMissingLayer(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "weights"))

	weights := testWeights()
	delete(weights, network.WeightNames[0])

	if err := store.Save(weights); err == nil {
		t.Error("saving an incomplete weight set should fail")
	}
}
