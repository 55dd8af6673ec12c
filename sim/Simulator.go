// Package sim defines the boundary to the external 3-D traffic
// simulator. The trainer consumes these interfaces as opaque
// capabilities; the wire protocol behind them is out of scope.
package sim

import (
	"gonum.org/v1/gonum/spatial/r3"

	"sfneuman.com/nearmiss/waypoint"
)

// AgentType identifies the kind of vehicle to spawn
type AgentType int

const (
	// Ego is the vehicle under test, driven by the external autonomy
	// stack over the bridge
	Ego AgentType = iota

	// NPC is the adversarial vehicle driven by the trained policy
	NPC
)

func (t AgentType) String() string {
	if t == Ego {
		return "EGO"
	}
	return "NPC"
}

// Pose is a position and rotation in the simulated scene. Rotation is
// in degrees per axis.
type Pose struct {
	Position r3.Vec
	Rotation r3.Vec
}

// AgentState is the simulator-reported state of a spawned vehicle
type AgentState struct {
	Pose
	Speed float64
}

// Agent is a vehicle spawned into the scene
type Agent interface {
	// State returns the agent's current position, rotation, and speed
	State() (AgentState, error)

	// Follow commands the agent to drive along the given waypoints
	Follow([]waypoint.Waypoint) error
}

// Simulator is one external simulator session. Exactly one training
// process drives a Simulator at a time, strictly sequentially.
//
// Collision and waypoint arrival are exposed as synchronous queries
// polled after each tick rather than as callbacks, so the step loop's
// ordering guarantees do not depend on an external callback mechanism.
type Simulator interface {
	// Load loads the named scene, or resets it if already loaded
	Load(scene string) error

	// SpawnPoint returns the scene's default spawn pose
	SpawnPoint() (Pose, error)

	// Spawn adds a vehicle of the given type at the given pose
	Spawn(kind AgentType, pose Pose) (Agent, error)

	// Run advances simulation time by the given number of ticks
	Run(ticks int) error

	// SetSignalPolicy sets the control policy of the traffic signal
	// governing the scenario intersection
	SetSignalPolicy(policy string) error

	// HasCollided reports whether any spawned vehicle has collided
	// since the scene was loaded
	HasCollided() bool

	// LastWaypointReached reports whether the NPC has arrived at the
	// final waypoint of its commanded track
	LastWaypointReached() bool
}
