// Package kinematic implements a local stand-in for the external 3-D
// simulator. Vehicles move with simple constant-speed kinematics and
// collide when they come within a fixed radius of each other. It
// exists so the training loop can run and be tested without a
// simulator session; it is not a physics engine.
package kinematic

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"sfneuman.com/nearmiss/sim"
	"sfneuman.com/nearmiss/waypoint"
)

const (
	// TickDuration is the simulated seconds that pass per tick
	TickDuration = 1.0

	// CollisionRadius is the separation below which the two vehicles
	// are considered to have collided
	CollisionRadius = 2.0

	// LaneEndZ is the track coordinate at which the NPC lane ends.
	// An NPC at or past this coordinate has consumed its whole track.
	LaneEndZ = -45.0
)

// Simulator is an in-process sim.Simulator with constant-speed
// kinematics. The EGO cruises down its lane at a fixed speed; the NPC
// moves toward its commanded waypoint at the waypoint's speed.
type Simulator struct {
	scene    string
	loaded   bool
	spawn    sim.Pose
	egoSpeed float64

	ego *vehicle
	npc *vehicle

	signalPolicy string
	collided     bool
	trackDone    bool

	// BridgePolls is the number of BridgeConnected polls before the
	// stand-in bridge reports connected. Zero connects immediately.
	BridgePolls int
	bridgePolls int
	bridgeUp    bool
}

// New returns a Simulator whose EGO cruises at the given speed
func New(egoSpeed float64) *Simulator {
	return &Simulator{
		egoSpeed: egoSpeed,
		spawn: sim.Pose{
			Position: r3.Vec{X: 13.81, Y: -3.15, Z: 0},
			Rotation: r3.Vec{},
		},
	}
}

// Load loads or resets the named scene, removing all spawned vehicles
func (s *Simulator) Load(scene string) error {
	s.scene = scene
	s.loaded = true
	s.ego = nil
	s.npc = nil
	s.collided = false
	s.trackDone = false
	s.bridgeUp = false
	s.bridgePolls = s.BridgePolls
	return nil
}

// SpawnPoint returns the scene's default spawn pose
func (s *Simulator) SpawnPoint() (sim.Pose, error) {
	if !s.loaded {
		return sim.Pose{}, fmt.Errorf("spawnpoint: no scene loaded")
	}
	return s.spawn, nil
}

// Spawn adds a vehicle at the given pose. At most one EGO and one NPC
// may exist in the scene.
func (s *Simulator) Spawn(kind sim.AgentType, pose sim.Pose) (sim.Agent,
	error) {
	if !s.loaded {
		return nil, fmt.Errorf("spawn: no scene loaded")
	}

	v := &vehicle{sim: s, kind: kind}
	v.state.Pose = pose
	switch kind {
	case sim.Ego:
		if s.ego != nil {
			return nil, fmt.Errorf("spawn: EGO already spawned")
		}
		v.state.Speed = s.egoSpeed
		s.ego = v
	case sim.NPC:
		if s.npc != nil {
			return nil, fmt.Errorf("spawn: NPC already spawned")
		}
		s.npc = v
	default:
		return nil, fmt.Errorf("spawn: unknown agent type %v", kind)
	}
	return v, nil
}

// Run advances simulation time by the given number of ticks
func (s *Simulator) Run(ticks int) error {
	if s.ego == nil || s.npc == nil {
		return fmt.Errorf("run: both vehicles must be spawned")
	}

	for i := 0; i < ticks; i++ {
		// The EGO cruises up its lane toward the NPC
		s.ego.state.Position.Z += s.egoSpeed * TickDuration

		s.npc.advance()

		if s.npc.state.Position.Z <= LaneEndZ {
			s.trackDone = true
		}

		sep := r3.Norm(r3.Sub(s.npc.state.Position, s.ego.state.Position))
		if sep < CollisionRadius {
			s.collided = true
		}
	}
	return nil
}

// SetSignalPolicy records the traffic signal control policy. The
// stand-in has no signals, so the policy only needs to be accepted.
func (s *Simulator) SetSignalPolicy(policy string) error {
	s.signalPolicy = policy
	return nil
}

// HasCollided reports whether the vehicles have collided since the
// scene was loaded
func (s *Simulator) HasCollided() bool {
	return s.collided
}

// LastWaypointReached reports whether the NPC has consumed its whole
// lane
func (s *Simulator) LastWaypointReached() bool {
	return s.trackDone
}

// vehicle is one spawned vehicle. The EGO additionally implements
// sim.Bridged with a bridge that connects after a configurable number
// of polls.
type vehicle struct {
	sim   *Simulator
	kind  sim.AgentType
	state sim.AgentState
	track []waypoint.Waypoint
	next  int
}

// State returns the vehicle's current state
func (v *vehicle) State() (sim.AgentState, error) {
	return v.state, nil
}

// Follow commands the vehicle to drive along the given waypoints,
// replacing any waypoints not yet reached
func (v *vehicle) Follow(track []waypoint.Waypoint) error {
	if len(track) == 0 {
		return fmt.Errorf("follow: empty waypoint list")
	}
	v.track = track
	v.next = 0
	return nil
}

// advance moves the vehicle toward its current target waypoint for one
// tick at the waypoint's speed
func (v *vehicle) advance() {
	if v.next >= len(v.track) {
		v.state.Speed = 0
		return
	}

	target := v.track[v.next]
	to := r3.Sub(target.Position, v.state.Position)
	dist := r3.Norm(to)
	travel := target.Speed * TickDuration

	v.state.Speed = target.Speed
	if travel >= dist || dist == 0 {
		v.state.Position = target.Position
		v.next++
		return
	}
	v.state.Position = r3.Add(v.state.Position, r3.Scale(travel/dist, to))
}

// ConnectBridge implements sim.Bridged for the EGO
func (v *vehicle) ConnectBridge(host string, port int) error {
	if v.kind != sim.Ego {
		return fmt.Errorf("connectbridge: only the EGO carries a bridge")
	}
	v.sim.bridgePolls = v.sim.BridgePolls
	return nil
}

// BridgeConnected implements sim.Bridged for the EGO
func (v *vehicle) BridgeConnected() bool {
	if v.kind != sim.Ego {
		return false
	}
	if v.sim.bridgePolls > 0 {
		v.sim.bridgePolls--
		return false
	}
	v.sim.bridgeUp = true
	return true
}
