package solver

import (
	"encoding/json"
	"testing"
)

func TestUnmarshalJSON(t *testing.T) {
	var s Solver
	data := []byte(`{"Type": "Adam", "Config": {"StepSize": 0.01,
		"Epsilon": 1e-8, "Beta1": 0.9, "Beta2": 0.999, "Batch": 1}}`)
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatal(err)
	}

	if s.Type != Adam {
		t.Errorf("wrong solver type \n\twant(%v)\n\thave(%v)", Adam, s.Type)
	}
	cfg, ok := s.Config.(AdamConfig)
	if !ok || cfg.StepSize != 0.01 {
		t.Errorf("wrong solver configuration: %+v", s.Config)
	}
	if s.Solver == nil {
		t.Error("unmarshalling should create the wrapped solver")
	}

	if err := json.Unmarshal([]byte(`{"Type": "Bogus"}`), &s); err == nil {
		t.Error("unknown solver type should fail to unmarshal")
	}
}

func TestNewVanilla(t *testing.T) {
	s, err := NewVanilla(0.1, 1)
	if err != nil {
		t.Fatal(err)
	}

	if s.Type != Vanilla {
		t.Errorf("wrong solver type \n\twant(%v)\n\thave(%v)", Vanilla, s.Type)
	}
	if s.Create() == nil {
		t.Error("vanilla configuration should create an optimizer")
	}
}
