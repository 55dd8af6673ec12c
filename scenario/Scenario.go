// Package scenario drives full training episodes against a simulator
// session: scene setup, bridge connection, the step loop, and the
// end-of-episode parameter update.
package scenario

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"sfneuman.com/nearmiss/buffer"
	"sfneuman.com/nearmiss/config"
	"sfneuman.com/nearmiss/policy"
	"sfneuman.com/nearmiss/reward"
	"sfneuman.com/nearmiss/sim"
	"sfneuman.com/nearmiss/timestep"
	"sfneuman.com/nearmiss/tracker"
	"sfneuman.com/nearmiss/trainer"
	"sfneuman.com/nearmiss/waypoint"
)

const (
	// NPC spawn pose relative to the scene's default spawn point. The
	// NPC starts one lane over and well up the road, heading back
	// toward the EGO.
	npcSpawnXOffset = -8.0
	npcSpawnZOffset = 72.0
	npcSpawnHeading = 180.0

	// InitialNPCSpeed is the speed the NPC drives at before the policy
	// issues its first command
	InitialNPCSpeed = 6.5

	// warmupTicks are run after the bridge connects so the autonomy
	// stack settles before the first step
	warmupTicks = 3
)

// Phase tracks an episode's progress through its lifecycle
type Phase int

const (
	// Initializing: the scene is being loaded and vehicles spawned
	Initializing Phase = iota

	// Connected: the EGO's bridge handshake has completed
	Connected

	// Stepping: the step loop is running
	Stepping

	// Terminating: the episode has ended and its returns are being
	// computed
	Terminating

	// Updated: the parameter update for this episode has been applied
	Updated
)

func (p Phase) String() string {
	switch p {
	case Initializing:
		return "Initializing"
	case Connected:
		return "Connected"
	case Stepping:
		return "Stepping"
	case Terminating:
		return "Terminating"
	case Updated:
		return "Updated"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Scenario is one episode's worth of simulator state: the loaded
// scene, the two spawned vehicles, and the reward model. A Scenario is
// used for exactly one episode and then discarded; training state
// lives in the trainer.Session shared across episodes.
type Scenario struct {
	simulator   sim.Simulator
	cfg         config.Config
	rewardModel *reward.TTC

	ego sim.Agent
	npc sim.Agent

	phase Phase
}

// New returns a Scenario ready for Setup
func New(simulator sim.Simulator, cfg config.Config) *Scenario {
	return &Scenario{
		simulator:   simulator,
		cfg:         cfg,
		rewardModel: reward.NewTTC(),
		phase:       Initializing,
	}
}

// Phase returns the Scenario's current lifecycle phase
func (s *Scenario) Phase() Phase {
	return s.phase
}

// Setup loads (or resets) the scene, spawns the EGO at the scene's
// default spawn point and the NPC up the road facing it, and pins the
// intersection signal so the EGO never stops for a light
func (s *Scenario) Setup() error {
	if err := s.simulator.Load(s.cfg.Scene); err != nil {
		return fmt.Errorf("setup: could not load scene %v: %v",
			s.cfg.Scene, err)
	}

	spawn, err := s.simulator.SpawnPoint()
	if err != nil {
		return fmt.Errorf("setup: %v", err)
	}

	s.ego, err = s.simulator.Spawn(sim.Ego, spawn)
	if err != nil {
		return fmt.Errorf("setup: could not spawn EGO: %v", err)
	}

	npcPose := spawn
	npcPose.Position.X += npcSpawnXOffset
	npcPose.Position.Z += npcSpawnZOffset
	npcPose.Rotation.Y = npcSpawnHeading
	s.npc, err = s.simulator.Spawn(sim.NPC, npcPose)
	if err != nil {
		return fmt.Errorf("setup: could not spawn NPC: %v", err)
	}

	if err := s.simulator.SetSignalPolicy(config.DefaultSignalPolicy); err != nil {
		return fmt.Errorf("setup: could not set signal policy: %v", err)
	}
	return nil
}

// Connect waits for the EGO's bridge to the external autonomy stack
// and runs a few warmup ticks once it is up
func (s *Scenario) Connect() error {
	bridged, ok := s.ego.(sim.Bridged)
	if !ok {
		return fmt.Errorf("connect: EGO does not carry a bridge")
	}

	interval := time.Duration(s.cfg.BridgePollSeconds) * time.Second
	err := sim.WaitForBridge(bridged, s.cfg.BridgeHost, s.cfg.BridgePort,
		interval, s.cfg.BridgeMaxAttempts)
	if err != nil {
		return fmt.Errorf("connect: %v", err)
	}

	if err := s.simulator.Run(warmupTicks); err != nil {
		return fmt.Errorf("connect: %v", err)
	}

	s.phase = Connected
	return nil
}

// Result summarizes one finished episode
type Result struct {
	// Reward is the episode's total (undiscounted) reward
	Reward float64

	// Running is the running reward average after this episode
	Running float64

	// AvgSpeed is the NPC's average commanded speed over the episode
	AvgSpeed float64

	// Steps is the number of steps the episode ran for
	Steps int

	// Collided reports whether the episode ended in a collision
	Collided bool

	// Loss is the combined actor and critic loss at the pre-update
	// parameters
	Loss float64
}

// RunEpisode runs the step loop until collision or track exhaustion,
// then performs the episode's parameter update. Each step selects an
// action from the policy, maps it to a signed target speed, commands
// the scheduled waypoint at that speed, advances the simulator one
// tick, and polls the simulator for a collision before computing the
// reward.
//
// Trackers observe the episode's timesteps only if the episode
// finishes; an aborted episode leaves them untouched.
func (s *Scenario) RunEpisode(session *trainer.Session,
	sampler *policy.Categorical, track *waypoint.Scheduler,
	trackers []tracker.Tracker) (Result, error) {
	if s.phase != Connected {
		return Result{}, fmt.Errorf("runepisode: scenario not connected "+
			"\n\twant(%v)\n\thave(%v)", Connected, s.phase)
	}
	s.phase = Stepping

	episode := buffer.NewEpisode(s.cfg.Waypoints)
	recorded := make([]timestep.TimeStep, 0, s.cfg.Waypoints)

	var (
		epReward float64
		speedSum float64
		steps    int
		collided bool
	)

	for iteration := 1; iteration < s.cfg.Waypoints; iteration++ {
		npcState, err := s.npc.State()
		if err != nil {
			return Result{}, fmt.Errorf("runepisode: %v", err)
		}
		obs := npcState.Position.Z

		probs, value, err := session.Forward(obs)
		if err != nil {
			return Result{}, fmt.Errorf("runepisode: %v", err)
		}
		action, logProb, err := sampler.Sample(probs)
		if err != nil {
			return Result{}, fmt.Errorf("runepisode: %v", err)
		}
		speed := policy.Speed(action, probs)
		episode.StoreAction(obs, action, logProb, value)

		wp, err := track.Target(iteration, speed)
		if err != nil {
			return Result{}, fmt.Errorf("runepisode: %v", err)
		}
		if err := s.npc.Follow([]waypoint.Waypoint{wp}); err != nil {
			return Result{}, fmt.Errorf("runepisode: %v", err)
		}

		if err := s.simulator.Run(1); err != nil {
			return Result{}, fmt.Errorf("runepisode: %v", err)
		}
		collided = s.simulator.HasCollided()

		npcState, err = s.npc.State()
		if err != nil {
			return Result{}, fmt.Errorf("runepisode: %v", err)
		}
		egoState, err := s.ego.State()
		if err != nil {
			return Result{}, fmt.Errorf("runepisode: %v", err)
		}

		r, done := s.rewardModel.Evaluate(npcState.Position,
			egoState.Position, speed, egoState.Speed, collided)
		episode.StoreReward(r)
		epReward += r
		speedSum += speed
		steps++

		last := done || s.simulator.LastWaypointReached() ||
			iteration == s.cfg.Waypoints-1
		stepType := timestep.Mid
		if steps == 1 {
			stepType = timestep.First
		}
		if last {
			stepType = timestep.Last
		}
		recorded = append(recorded, timestep.New(stepType, r, speed,
			mat.NewVecDense(1, []float64{obs}), collided, steps-1))

		if last {
			break
		}
	}

	s.phase = Terminating
	running := session.RecordReturn(epReward)

	rec, err := episode.Drain()
	if err != nil {
		return Result{}, fmt.Errorf("runepisode: %v", err)
	}
	loss, err := session.FinishEpisode(rec)
	if err != nil {
		return Result{}, fmt.Errorf("runepisode: %v", err)
	}
	s.phase = Updated

	for _, t := range trackers {
		for _, step := range recorded {
			t.Track(step)
		}
	}

	return Result{
		Reward:   epReward,
		Running:  running,
		AvgSpeed: round(speedSum/float64(steps), 3),
		Steps:    steps,
		Collided: collided,
		Loss:     loss,
	}, nil
}

// round rounds a value to the given number of decimals
func round(val float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	return math.Round(val*scale) / scale
}
