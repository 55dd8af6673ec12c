// Package network implements the actor-critic policy/value network
// that drives the adversarial NPC.
package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// HiddenSize is the width of every hidden layer in the network
const HiddenSize = 128

// Weight node names. The checkpoint store keys the saved weight arrays
// by these names, one per layer.
const (
	SharedLayer       = "affine1"
	ActorHiddenLayer  = "actor_1"
	ActorOutputLayer  = "actor_2"
	CriticHiddenLayer = "value_1"
	CriticOutputLayer = "value_2"
)

// WeightNames lists the weight node names in network order
var WeightNames = []string{
	SharedLayer,
	ActorHiddenLayer,
	ActorOutputLayer,
	CriticHiddenLayer,
	CriticOutputLayer,
}

// ActorCritic implements both the actor and the critic in one network
// with a shared hidden representation:
//
//	              ╭─→ Actor  ─→ softmax over {decelerate, accelerate}
//	Input ─→ Root ┤
//	              ╰─→ Critic ─→ state value
//
// The forward pass produces the action probability distribution, the
// scalar value estimate, and (given action indices) the log
// probability of those actions. The network is a pure function of its
// input and current parameters.
type ActorCritic struct {
	g      *G.ExprGraph
	input  *G.Node
	layers []*fcLayer // Shared, actor hidden, actor out, critic hidden, critic out

	actionIndices *G.Node // One-hot selected actions for the log-prob pass

	probs    *G.Node
	value    *G.Node
	logProbs *G.Node

	probsVal    G.Value
	valueVal    G.Value
	logProbsVal G.Value

	features  int
	batchSize int

	// Store learnables and model so that they don't need to be computed
	// each time a gradient step is taken
	learnables G.Nodes
	model      []G.ValueGrad
}

// NewActorCritic returns a new ActorCritic on the graph g taking
// observations of features inputs in batches of batch rows. The init
// parameter determines the weight initialization scheme; biases start
// at zero.
func NewActorCritic(features, batch int, g *G.ExprGraph,
	init G.InitWFn) (*ActorCritic, error) {
	if features <= 0 || batch <= 0 {
		return nil, fmt.Errorf("newactorcritic: features and batch must be "+
			"positive \n\thave(%v, %v)", features, batch)
	}

	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	layers := []*fcLayer{
		newFCLayer(g, features, HiddenSize, SharedLayer, init, ReLU()),
		newFCLayer(g, HiddenSize, HiddenSize, ActorHiddenLayer, init, ReLU()),
		newFCLayer(g, HiddenSize, NumActions, ActorOutputLayer, init,
			Identity()),
		newFCLayer(g, HiddenSize, HiddenSize, CriticHiddenLayer, init,
			Identity()),
		newFCLayer(g, HiddenSize, 1, CriticOutputLayer, init, Identity()),
	}

	net := &ActorCritic{
		g:         g,
		input:     input,
		layers:    layers,
		features:  features,
		batchSize: batch,
	}
	if err := net.fwd(); err != nil {
		return nil, fmt.Errorf("newactorcritic: could not compute forward "+
			"pass: %v", err)
	}

	return net, nil
}

// NumActions is the size of the action space predicted by the actor
// head
const NumActions = 2

// fwd adds the forward pass of the network to the computational graph
func (a *ActorCritic) fwd() error {
	shared, err := a.layers[0].fwd(a.input)
	if err != nil {
		return fmt.Errorf("fwd: shared layer: %v", err)
	}

	// Actor head
	actorHidden, err := a.layers[1].fwd(shared)
	if err != nil {
		return fmt.Errorf("fwd: actor hidden layer: %v", err)
	}
	logits, err := a.layers[2].fwd(actorHidden)
	if err != nil {
		return fmt.Errorf("fwd: actor output layer: %v", err)
	}
	a.probs = G.Must(G.SoftMax(logits, 1))

	// Critic head
	criticHidden, err := a.layers[3].fwd(shared)
	if err != nil {
		return fmt.Errorf("fwd: critic hidden layer: %v", err)
	}
	a.value, err = a.layers[4].fwd(criticHidden)
	if err != nil {
		return fmt.Errorf("fwd: critic output layer: %v", err)
	}

	// Log probability of the actions input through SetActions(),
	// computed from the logits with the log-sum-exp trick
	a.actionIndices = G.NewMatrix(
		a.g,
		tensor.Float64,
		G.WithShape(a.batchSize, NumActions),
		G.WithInit(G.Zeroes()),
		G.WithName("actionIndices"),
	)
	selected := G.Must(G.HadamardProd(a.actionIndices, logits))
	selected = G.Must(G.Sum(selected, 1))
	a.logProbs = G.Must(G.Sub(selected, logSumExp(logits, 1)))

	G.Read(a.probs, &a.probsVal)
	G.Read(a.value, &a.valueVal)
	G.Read(a.logProbs, &a.logProbsVal)

	return nil
}

// logSumExp computes log(Σ exp(logits)) along an axis in a numerically
// stable way
func logSumExp(logits *G.Node, along int) *G.Node {
	max := G.Must(G.Max(logits, along))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, along))
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}

// Graph returns the computational graph of the network
func (a *ActorCritic) Graph() *G.ExprGraph {
	return a.g
}

// BatchSize returns the batch size for inputs to the network
func (a *ActorCritic) BatchSize() int {
	return a.batchSize
}

// Features returns the number of input features
func (a *ActorCritic) Features() int {
	return a.features
}

// SetInput sets the value of the input node before running the forward
// pass
func (a *ActorCritic) SetInput(input []float64) error {
	if len(input) != a.features*a.batchSize {
		return fmt.Errorf("setinput: invalid number of inputs "+
			"\n\twant(%v)\n\thave(%v)", a.features*a.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(a.input.Shape()...),
	)
	return G.Let(a.input, inputTensor)
}

// SetActions sets the action indices whose log probabilities the
// network computes on its next forward pass. One action index is given
// per batch row.
func (a *ActorCritic) SetActions(actions []float64) error {
	if len(actions) != a.batchSize {
		return fmt.Errorf("setactions: invalid number of actions "+
			"\n\twant(%v)\n\thave(%v)", a.batchSize, len(actions))
	}

	oneHot := make([]float64, a.batchSize*NumActions)
	for i, action := range actions {
		index := int(action)
		if index < 0 || index >= NumActions {
			return fmt.Errorf("setactions: action %v out of range [0, %v)",
				index, NumActions)
		}
		oneHot[i*NumActions+index] = 1.0
	}

	indicesTensor := tensor.NewDense(
		tensor.Float64,
		[]int{a.batchSize, NumActions},
		tensor.WithBacking(oneHot),
	)
	return G.Let(a.actionIndices, indicesTensor)
}

// ValueNode returns the node holding the critic's value predictions,
// shaped (batch, 1)
func (a *ActorCritic) ValueNode() *G.Node {
	return a.value
}

// LogProbNode returns the node holding the log probabilities of the
// actions input through SetActions(), shaped (batch)
func (a *ActorCritic) LogProbNode() *G.Node {
	return a.logProbs
}

// Probs returns the action probability distribution computed by the
// last forward pass, one row of NumActions probabilities per batch row
func (a *ActorCritic) Probs() []float64 {
	return a.probsVal.Data().([]float64)
}

// Value returns the value estimates computed by the last forward pass,
// one per batch row
func (a *ActorCritic) Value() []float64 {
	return a.valueVal.Data().([]float64)
}

// LogProbs returns the log probabilities computed by the last forward
// pass for the actions input through SetActions()
func (a *ActorCritic) LogProbs() []float64 {
	return a.logProbsVal.Data().([]float64)
}

// Learnables returns the learnable nodes of the network
func (a *ActorCritic) Learnables() G.Nodes {
	// Lazy instantiation
	if a.learnables == nil {
		learnables := make([]*G.Node, 0, 2*len(a.layers))
		for _, layer := range a.layers {
			learnables = append(learnables, layer.Weights())
			if bias := layer.Bias(); bias != nil {
				learnables = append(learnables, bias)
			}
		}
		a.learnables = G.Nodes(learnables)
	}
	return a.learnables
}

// Model returns the learnable nodes with their gradients
func (a *ActorCritic) Model() []G.ValueGrad {
	// Lazy instantiation
	if a.model == nil {
		model := make([]G.ValueGrad, 0, 2*len(a.layers))
		for _, node := range a.Learnables() {
			model = append(model, node)
		}
		a.model = model
	}
	return a.model
}

// CloneWithBatch returns a copy of the network on a fresh graph with a
// new input batch size. The clone starts with the same weights as the
// original.
func (a *ActorCritic) CloneWithBatch(batch int) (*ActorCritic, error) {
	clone, err := NewActorCritic(a.features, batch, G.NewGraph(), G.Zeroes())
	if err != nil {
		return nil, fmt.Errorf("clonewithbatch: %v", err)
	}
	if err := Set(clone, a); err != nil {
		return nil, fmt.Errorf("clonewithbatch: could not copy weights: %v",
			err)
	}
	return clone, nil
}

// Set sets the weights of dest to be equal to the weights of source
func Set(dest, source *ActorCritic) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("set: mismatched learnables \n\twant(%v)"+
			"\n\thave(%v)", len(nodes), len(sourceNodes))
	}
	for i, destLearnable := range nodes {
		sourceLearnable := sourceNodes[i].Clone()
		err := G.Let(destLearnable, sourceLearnable.(*G.Node).Value())
		if err != nil {
			return err
		}
	}
	return nil
}
