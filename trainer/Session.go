// Package trainer implements the actor-critic parameter update. A
// TrainingSession owns the policy/value network, the optimizer state,
// and the running-reward accumulator for a whole run; episodes borrow
// the session but never own training state themselves.
package trainer

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"sfneuman.com/nearmiss/buffer"
	"sfneuman.com/nearmiss/checkpoint"
	"sfneuman.com/nearmiss/config"
	"sfneuman.com/nearmiss/network"
)

const (
	// InitialRunningReward seeds the running exponential moving
	// average of episode rewards
	InitialRunningReward = 10.0

	// runningRewardRate is the EMA weight of the newest episode
	runningRewardRate = 0.05
)

// Session holds the training state shared across episodes. Two copies
// of the network exist: a behaviour copy with batch size one used to
// select actions during episodes, and a train copy with batch size
// equal to the episode step budget used to compute the combined loss
// and take the gradient step. After every update the behaviour copy is
// synchronized to the train copy.
type Session struct {
	behaviour   *network.ActorCritic
	behaviourVM G.VM

	train   *network.ActorCritic
	trainVM G.VM
	solver  G.Solver

	advantages *G.Node
	returns    *G.Node
	stepMask   *G.Node
	lossVal    G.Value

	store              *checkpoint.Store
	checkpointInterval int

	maxSteps      int
	gamma         float64
	runningReward float64
}

// NewSession builds the networks, the combined loss graph, and the
// optimizer for one training run. If a checkpoint exists in the
// config's checkpoint directory it initializes the weights; an absent
// or invalid checkpoint falls back to random initialization. The
// returned LoadResult reports which happened.
func NewSession(cfg config.Config) (*Session, checkpoint.LoadResult, error) {
	if cfg.Solver == nil || cfg.InitWFn == nil {
		return nil, checkpoint.Absent, fmt.Errorf("newsession: config " +
			"missing a solver or weight initializer")
	}

	maxSteps := cfg.Waypoints

	// Weight initialization draws from a source seeded with the run
	// seed, so a fixed config always builds the same starting network
	train, err := network.NewActorCritic(1, maxSteps, G.NewGraph(),
		cfg.InitWFn.InitWFn(cfg.Seed))
	if err != nil {
		return nil, checkpoint.Absent, fmt.Errorf("newsession: could not "+
			"build train network: %v", err)
	}

	// Restore weights before the behaviour copy is synchronized so
	// both copies observe the checkpoint
	store := checkpoint.NewStore(cfg.CheckpointDir)
	weights, result := store.Load()
	if result == checkpoint.Loaded {
		if err := train.SetWeightValues(weights); err != nil {
			// Shape mismatch with the live network: treat exactly like
			// a corrupt checkpoint and keep the random weights
			result = checkpoint.Invalid
		}
	}

	behaviour, err := train.CloneWithBatch(1)
	if err != nil {
		return nil, result, fmt.Errorf("newsession: could not build "+
			"behaviour network: %v", err)
	}

	session := &Session{
		behaviour:   behaviour,
		behaviourVM: G.NewTapeMachine(behaviour.Graph()),
		train:       train,

		store:              store,
		checkpointInterval: cfg.CheckpointInterval,

		maxSteps:      maxSteps,
		gamma:         cfg.Gamma,
		runningReward: InitialRunningReward,
	}
	if err := session.buildLoss(); err != nil {
		return nil, result, fmt.Errorf("newsession: %v", err)
	}

	// Each session steps its own optimizer instance, so Adam moment
	// state is never shared between sessions built from one config
	session.solver = cfg.Solver.Create()

	return session, result, nil
}

// buildLoss adds the combined actor-critic loss to the train network's
// graph:
//
//	policy loss = Σ −logProb(action) * advantage
//	value loss  = Σ smoothL1(value, normalized return)
//
// Advantages enter the graph as an input node, so they are constants
// with respect to the policy parameters. Episodes shorter than the
// step budget zero out their padding rows through the step mask.
func (s *Session) buildLoss() error {
	g := s.train.Graph()

	s.advantages = G.NewVector(
		g,
		tensor.Float64,
		G.WithName("advantages"),
		G.WithShape(s.maxSteps),
	)
	s.returns = G.NewMatrix(
		g,
		tensor.Float64,
		G.WithName("returnTargets"),
		G.WithShape(s.maxSteps, 1),
	)
	s.stepMask = G.NewMatrix(
		g,
		tensor.Float64,
		G.WithName("stepMask"),
		G.WithShape(s.maxSteps, 1),
	)

	policyLoss := G.Must(G.HadamardProd(s.train.LogProbNode(), s.advantages))
	policyLoss = G.Must(G.Sum(policyLoss))
	policyLoss = G.Must(G.Neg(policyLoss))

	// Smooth-L1 between value predictions and return targets: squared
	// error below unit residual, absolute error above
	one := G.NewConstant(1.0, G.WithName("huberDelta"))
	half := G.NewConstant(0.5)

	diff := G.Must(G.Sub(s.train.ValueNode(), s.returns))
	absDiff := G.Must(G.Abs(diff))
	quadratic := G.Must(G.Mul(G.Must(G.Square(diff)), half))
	linear := G.Must(G.Sub(absDiff, half))

	isSmall := G.Must(G.Lt(absDiff, one, true))
	huber := G.Must(G.Add(
		G.Must(G.HadamardProd(isSmall, quadratic)),
		G.Must(G.HadamardProd(G.Must(G.Sub(one, isSmall)), linear)),
	))

	valueLoss := G.Must(G.HadamardProd(huber, s.stepMask))
	valueLoss = G.Must(G.Sum(valueLoss))

	totalLoss := G.Must(G.Add(policyLoss, valueLoss))
	G.Read(totalLoss, &s.lossVal)

	if _, err := G.Grad(totalLoss, s.train.Learnables()...); err != nil {
		return fmt.Errorf("buildloss: could not construct gradient: %v", err)
	}
	s.trainVM = G.NewTapeMachine(g,
		G.BindDualValues(s.train.Learnables()...))

	return nil
}

// Forward runs the behaviour network on one observation and returns
// the action probability distribution and the critic's value estimate
func (s *Session) Forward(obs float64) ([]float64, float64, error) {
	if err := s.behaviour.SetInput([]float64{obs}); err != nil {
		return nil, 0, fmt.Errorf("forward: %v", err)
	}
	if err := s.behaviourVM.RunAll(); err != nil {
		return nil, 0, fmt.Errorf("forward: %v", err)
	}

	probs := make([]float64, network.NumActions)
	copy(probs, s.behaviour.Probs())
	value := s.behaviour.Value()[0]
	s.behaviourVM.Reset()

	return probs, value, nil
}

// FinishEpisode consumes one drained episode and performs exactly one
// gradient update on the combined actor and critic parameters,
// minimizing the summed policy and value losses in a single backward
// pass. It returns the total loss evaluated at the pre-update
// parameters.
//
// Any failure before the optimizer step leaves the parameters of the
// previous successful episode untouched.
func (s *Session) FinishEpisode(rec buffer.Record) (float64, error) {
	steps := len(rec.Rewards)
	if steps == 0 {
		return 0, fmt.Errorf("finishepisode: empty episode")
	}
	if steps > s.maxSteps {
		return 0, fmt.Errorf("finishepisode: episode of %v steps exceeds "+
			"budget %v", steps, s.maxSteps)
	}

	returns := buffer.DiscountedReturns(rec.Rewards, s.gamma)
	normReturns := buffer.Normalize(returns)
	advantages, err := buffer.Advantages(normReturns, rec.Values)
	if err != nil {
		return 0, fmt.Errorf("finishepisode: %v", err)
	}

	if err := s.train.SetInput(pad(rec.Obs, s.maxSteps)); err != nil {
		return 0, fmt.Errorf("finishepisode: %v", err)
	}
	if err := s.train.SetActions(pad(rec.Actions, s.maxSteps)); err != nil {
		return 0, fmt.Errorf("finishepisode: %v", err)
	}

	advTensor := tensor.New(
		tensor.WithBacking(pad(advantages, s.maxSteps)),
		tensor.WithShape(s.maxSteps),
	)
	if err := G.Let(s.advantages, advTensor); err != nil {
		return 0, fmt.Errorf("finishepisode: %v", err)
	}

	retTensor := tensor.New(
		tensor.WithBacking(pad(normReturns, s.maxSteps)),
		tensor.WithShape(s.maxSteps, 1),
	)
	if err := G.Let(s.returns, retTensor); err != nil {
		return 0, fmt.Errorf("finishepisode: %v", err)
	}

	mask := make([]float64, s.maxSteps)
	for i := 0; i < steps; i++ {
		mask[i] = 1.0
	}
	maskTensor := tensor.New(
		tensor.WithBacking(mask),
		tensor.WithShape(s.maxSteps, 1),
	)
	if err := G.Let(s.stepMask, maskTensor); err != nil {
		return 0, fmt.Errorf("finishepisode: %v", err)
	}

	if err := s.trainVM.RunAll(); err != nil {
		return 0, fmt.Errorf("finishepisode: forward/backward pass: %v", err)
	}
	loss := s.lossVal.Data().(float64)

	if err := s.solver.Step(s.train.Model()); err != nil {
		return 0, fmt.Errorf("finishepisode: optimizer step: %v", err)
	}
	s.trainVM.Reset()

	if err := network.Set(s.behaviour, s.train); err != nil {
		return loss, fmt.Errorf("finishepisode: could not synchronize "+
			"behaviour network: %v", err)
	}

	return loss, nil
}

// RecordReturn folds one episode's total reward into the running
// exponential moving average and returns the updated average
func (s *Session) RecordReturn(episodeReward float64) float64 {
	s.runningReward = runningRewardRate*episodeReward +
		(1-runningRewardRate)*s.runningReward
	return s.runningReward
}

// RunningReward returns the current running reward average
func (s *Session) RunningReward() float64 {
	return s.runningReward
}

// Checkpoint saves the network weights if the episode index falls on
// the checkpoint interval
func (s *Session) Checkpoint(episode int) error {
	if episode%s.checkpointInterval != 0 {
		return nil
	}

	weights, err := s.train.WeightValues()
	if err != nil {
		return fmt.Errorf("checkpoint: %v", err)
	}
	if err := s.store.Save(weights); err != nil {
		return fmt.Errorf("checkpoint: %v", err)
	}
	return nil
}

// WeightValues exposes a copy of the current network weights, used by
// callers that snapshot parameters across updates
func (s *Session) WeightValues() (map[string]*tensor.Dense, error) {
	return s.train.WeightValues()
}

// pad returns values extended with zeros to the given length
func pad(values []float64, length int) []float64 {
	padded := make([]float64, length)
	copy(padded, values)
	return padded
}
