package initwfn

import (
	"encoding/json"
	"math"
	"testing"

	"gorgonia.org/tensor"
)

func TestGlorotUDeterministicForSeed(t *testing.T) {
	wfn, err := NewGlorotU(1.0)
	if err != nil {
		t.Fatal(err)
	}

	first := wfn.InitWFn(543)(tensor.Float64, 4, 3).([]float64)
	second := wfn.InitWFn(543)(tensor.Float64, 4, 3).([]float64)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("same seed filled different weights at %v "+
				"\n\twant(%v)\n\thave(%v)", i, first[i], second[i])
		}
	}

	other := wfn.InitWFn(544)(tensor.Float64, 4, 3).([]float64)
	same := true
	for i := range first {
		if first[i] != other[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds should fill different weights")
	}
}

func TestGlorotUBounds(t *testing.T) {
	wfn, err := NewGlorotU(1.0)
	if err != nil {
		t.Fatal(err)
	}

	data := wfn.InitWFn(543)(tensor.Float64, 6, 4).([]float64)
	if len(data) != 24 {
		t.Fatalf("wrong fill size \n\twant(%v)\n\thave(%v)", 24, len(data))
	}

	limit := math.Sqrt(6.0 / float64(6+4))
	for i, w := range data {
		if math.Abs(w) > limit {
			t.Errorf("weight %v outside [-%v, %v]: %v", i, limit, limit, w)
		}
	}
}

func TestZeroesFillsZeros(t *testing.T) {
	wfn, err := NewZeroes()
	if err != nil {
		t.Fatal(err)
	}

	data := wfn.InitWFn(543)(tensor.Float64, 2, 2).([]float64)
	for i, w := range data {
		if w != 0 {
			t.Errorf("weight %v should be zero, got %v", i, w)
		}
	}
}

func TestUnmarshalJSON(t *testing.T) {
	var wfn InitWFn
	data := []byte(`{"Type": "GlorotU", "Config": {"Gain": 2.0}}`)
	if err := json.Unmarshal(data, &wfn); err != nil {
		t.Fatal(err)
	}

	if wfn.Type != GlorotU {
		t.Errorf("wrong initializer type \n\twant(%v)\n\thave(%v)",
			GlorotU, wfn.Type)
	}
	cfg, ok := wfn.Config.(GlorotUConfig)
	if !ok || cfg.Gain != 2.0 {
		t.Errorf("wrong initializer configuration: %+v", wfn.Config)
	}

	if err := json.Unmarshal([]byte(`{"Type": "Bogus"}`), &wfn); err == nil {
		t.Error("unknown initializer type should fail to unmarshal")
	}
}
