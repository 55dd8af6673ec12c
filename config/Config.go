// Package config provides the JSON-serializable process configuration
// for a training run. All values are fixed at process start; there is
// no runtime reconfiguration.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"sfneuman.com/nearmiss/initwfn"
	"sfneuman.com/nearmiss/solver"
)

// Defaults for the adversarial driving scenario
const (
	DefaultScene     = "BorregasAve"
	DefaultWaypoints = 15
	DefaultTrackMinZ = -45.0
	DefaultTrackMaxZ = 25.0

	// DefaultSignalPolicy keeps the intersection light green so the
	// EGO never stops for a signal
	DefaultSignalPolicy = "trigger=100;green=100;yellow=0;red=0;loop"
)

// Config describes one full training run
type Config struct {
	// Training hyperparameters
	Gamma       float64 // Discount factor
	Seed        uint64
	Episodes    int
	LogInterval int // Log every LogInterval episodes

	// Solver describes the optimizer taking the per-episode gradient
	// step. InitWFn describes the weight initialization scheme, which
	// draws from a source seeded with Seed.
	Solver  *solver.Solver
	InitWFn *initwfn.InitWFn

	// Scenario
	Scene     string
	Waypoints int
	TrackMinZ float64
	TrackMaxZ float64

	// Persistence
	CheckpointDir      string
	CheckpointInterval int // Checkpoint every CheckpointInterval episodes

	// External simulator session and autonomy stack bridge
	SimulatorHost     string
	SimulatorPort     int
	BridgeHost        string
	BridgePort        int
	BridgePollSeconds int

	// BridgeMaxAttempts bounds the bridge wait; zero polls forever
	BridgeMaxAttempts int
}

// DefaultLearningRate is the step size of the default Adam solver
const DefaultLearningRate = 0.1

// Default returns the Config matching the reference scenario
func Default() Config {
	sol, err := solver.NewDefaultAdam(DefaultLearningRate, 1)
	if err != nil {
		panic(fmt.Sprintf("default: %v", err))
	}
	wfn, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		panic(fmt.Sprintf("default: %v", err))
	}

	return Config{
		Gamma:       0.99,
		Seed:        543,
		Episodes:    70,
		LogInterval: 1,

		Solver:  sol,
		InitWFn: wfn,

		Scene:     DefaultScene,
		Waypoints: DefaultWaypoints,
		TrackMinZ: DefaultTrackMinZ,
		TrackMaxZ: DefaultTrackMaxZ,

		CheckpointDir:      "weights",
		CheckpointInterval: 5,

		SimulatorHost:     "127.0.0.1",
		SimulatorPort:     8181,
		BridgeHost:        "127.0.0.1",
		BridgePort:        9090,
		BridgePollSeconds: 1,
		BridgeMaxAttempts: 0,
	}
}

// Load reads a Config from a JSON file, filling unset fields from the
// defaults
func Load(path string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load: could not read config: %v", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("load: could not parse config: %v", err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("load: %v", err)
	}
	return c, nil
}

// Validate checks that the Config describes a runnable training run
func (c Config) Validate() error {
	if c.Gamma <= 0 || c.Gamma >= 1 {
		return fmt.Errorf("validate: discount factor must be in (0, 1) "+
			"\n\thave(%v)", c.Gamma)
	}
	if c.Solver == nil {
		return fmt.Errorf("validate: no solver configured")
	}
	if c.InitWFn == nil {
		return fmt.Errorf("validate: no weight initializer configured")
	}
	if c.Episodes <= 0 {
		return fmt.Errorf("validate: episode count must be positive "+
			"\n\thave(%v)", c.Episodes)
	}
	if c.Waypoints < 2 {
		return fmt.Errorf("validate: need at least 2 waypoints "+
			"\n\thave(%v)", c.Waypoints)
	}
	if c.TrackMinZ >= c.TrackMaxZ {
		return fmt.Errorf("validate: track bounds reversed \n\thave(%v, %v)",
			c.TrackMinZ, c.TrackMaxZ)
	}
	if c.LogInterval <= 0 {
		return fmt.Errorf("validate: log interval must be positive "+
			"\n\thave(%v)", c.LogInterval)
	}
	if c.CheckpointInterval <= 0 {
		return fmt.Errorf("validate: checkpoint interval must be positive "+
			"\n\thave(%v)", c.CheckpointInterval)
	}
	return nil
}
