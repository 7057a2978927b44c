package optimizer

import (
	"fmt"

	"github.com/pranath-reddy/lens-sr/tensor"
)

// SGDConfig holds configuration for stochastic gradient descent
type SGDConfig struct {
	LearningRate float32
	Momentum     float32
	WeightDecay  float32
}

// DefaultSGDConfig returns a plain SGD configuration without momentum.
func DefaultSGDConfig() SGDConfig {
	return SGDConfig{
		LearningRate: 0.01,
		Momentum:     0.0,
		WeightDecay:  0.0,
	}
}

// SGD implements stochastic gradient descent with optional momentum.
type SGD struct {
	Config SGDConfig

	velocity [][]float32
	steps    uint64
}

// NewSGD creates a new SGD optimizer
func NewSGD(config SGDConfig) *SGD {
	return &SGD{Config: config}
}

func (s *SGD) Name() string {
	return "SGD"
}

func (s *SGD) Steps() uint64 {
	return s.steps
}

// Step performs a single SGD update over all parameters.
func (s *SGD) Step(params, grads []*tensor.Tensor) error {
	if len(params) != len(grads) {
		return fmt.Errorf("gradient count (%d) doesn't match parameter count (%d)", len(grads), len(params))
	}

	useMomentum := s.Config.Momentum != 0
	if useMomentum && s.velocity == nil {
		s.velocity = make([][]float32, len(params))
		for i, p := range params {
			s.velocity[i] = make([]float32, p.NumElems)
		}
	}

	s.steps++

	for i, p := range params {
		if grads[i] == nil {
			continue
		}
		if p.NumElems != grads[i].NumElems {
			return fmt.Errorf("parameter %d size %d doesn't match gradient size %d", i, p.NumElems, grads[i].NumElems)
		}

		w := p.Float32s()
		g := grads[i].Float32s()

		for j := range w {
			grad := g[j] + s.Config.WeightDecay*w[j]

			if useMomentum {
				s.velocity[i][j] = s.Config.Momentum*s.velocity[i][j] + grad
				grad = s.velocity[i][j]
			}

			w[j] -= s.Config.LearningRate * grad
		}
	}

	return nil
}
