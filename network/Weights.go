package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// WeightValues returns a copy of the network's weight matrices keyed
// by layer name. Biases are not included; only the weight matrices are
// checkpointed.
func (a *ActorCritic) WeightValues() (map[string]*tensor.Dense, error) {
	weights := make(map[string]*tensor.Dense, len(a.layers))
	for i, layer := range a.layers {
		value, ok := layer.Weights().Value().(*tensor.Dense)
		if !ok {
			return nil, fmt.Errorf("weightvalues: layer %v holds no dense "+
				"weight tensor", WeightNames[i])
		}
		weights[WeightNames[i]] = value.Clone().(*tensor.Dense)
	}
	return weights, nil
}

// SetWeightValues sets the network's weight matrices from a map keyed
// by layer name. Every layer must be present with a tensor of the
// exact shape the layer expects; otherwise no weight is modified and
// an error describes the mismatch.
func (a *ActorCritic) SetWeightValues(weights map[string]*tensor.Dense) error {
	// Validate everything before touching the network so a partial
	// checkpoint cannot leave it half-loaded
	for i, layer := range a.layers {
		name := WeightNames[i]
		value, ok := weights[name]
		if !ok {
			return fmt.Errorf("setweightvalues: missing weights for layer %v",
				name)
		}
		if !value.Shape().Eq(layer.Weights().Shape()) {
			return fmt.Errorf("setweightvalues: invalid shape for layer %v "+
				"\n\twant(%v)\n\thave(%v)", name, layer.Weights().Shape(),
				value.Shape())
		}
	}

	for i, layer := range a.layers {
		value := weights[WeightNames[i]].Clone().(*tensor.Dense)
		if err := G.Let(layer.Weights(), value); err != nil {
			return fmt.Errorf("setweightvalues: could not set layer %v: %v",
				WeightNames[i], err)
		}
	}
	return nil
}
