// Package solver wraps Gorgonia Solvers so that optimizer choices can
// be JSON serialized into configuration files.
package solver

import (
	"encoding/json"
	"fmt"
	"reflect"

	G "gorgonia.org/gorgonia"
)

// Type describes the types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	Vanilla Type = "Vanilla"
)

// Solver wraps Gorgonia Solvers so that they can be JSON marshalled
// and unmarshalled.
type Solver struct {
	G.Solver `json:"-"`
	Type
	Config
}

// Config implements a Gorgonia Solver configuration and can be used to
// create the Gorgonia Solver it describes.
type Config interface {
	Create() G.Solver

	// ValidType returns whether a specific Solver type can be created
	// with the Config
	ValidType(Type) bool
}

// newSolver returns a new solver with the given type and configuration
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newsolver: invalid solver type %v for "+
			"configuration %T", t, c)
	}
	solver := Solver{Type: t, Config: c}
	solver.Solver = solver.Config.Create()

	return &solver, nil
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (s *Solver) UnmarshalJSON(data []byte) error {
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	typeName, _ := m["Type"].(string)
	concreteTypes := map[string]reflect.Type{
		string(Adam):    reflect.TypeOf(AdamConfig{}),
		string(Vanilla): reflect.TypeOf(VanillaConfig{}),
	}
	ty, found := concreteTypes[typeName]
	if !found {
		return fmt.Errorf("unmarshaljson: no such solver type %v", typeName)
	}
	value := reflect.New(ty).Interface().(Config)

	valueBytes, err := json.Marshal(m["Config"])
	if err != nil {
		return err
	}
	if err := json.Unmarshal(valueBytes, &value); err != nil {
		return err
	}

	s.Type = Type(typeName)
	s.Config = reflect.ValueOf(value).Elem().Interface().(Config)
	s.Solver = s.Config.Create()

	return nil
}
