package optimizer

import (
	"fmt"
	"math"

	"github.com/pranath-reddy/lens-sr/tensor"
)

// AdamConfig holds configuration for the Adam optimizer
type AdamConfig struct {
	LearningRate float32
	Beta1        float32 // Momentum decay (typically 0.9)
	Beta2        float32 // Variance decay (typically 0.999)
	Epsilon      float32 // Small constant to prevent division by zero
	WeightDecay  float32 // L2 regularization coefficient
}

// DefaultAdamConfig returns the configuration used by the reconstruction
// pipeline: lr 1e-4 with weight decay 1e-5.
func DefaultAdamConfig() AdamConfig {
	return AdamConfig{
		LearningRate: 1e-4,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		WeightDecay:  1e-5,
	}
}

// Adam implements adaptive moment estimation with bias correction. The
// first and second moment buffers are allocated lazily on the first Step
// so the optimizer does not need parameter shapes up front.
type Adam struct {
	Config AdamConfig

	momentum [][]float32
	variance [][]float32
	steps    uint64
}

// NewAdam creates a new Adam optimizer
func NewAdam(config AdamConfig) *Adam {
	return &Adam{Config: config}
}

func (a *Adam) Name() string {
	return "Adam"
}

func (a *Adam) Steps() uint64 {
	return a.steps
}

// Step performs a single Adam update over all parameters.
func (a *Adam) Step(params, grads []*tensor.Tensor) error {
	if len(params) != len(grads) {
		return fmt.Errorf("gradient count (%d) doesn't match parameter count (%d)", len(grads), len(params))
	}

	if a.momentum == nil {
		a.momentum = make([][]float32, len(params))
		a.variance = make([][]float32, len(params))
		for i, p := range params {
			a.momentum[i] = make([]float32, p.NumElems)
			a.variance[i] = make([]float32, p.NumElems)
		}
	}
	if len(a.momentum) != len(params) {
		return fmt.Errorf("optimizer state holds %d parameters, got %d", len(a.momentum), len(params))
	}

	a.steps++

	// Bias correction factors for the current step.
	c1 := 1.0 - math.Pow(float64(a.Config.Beta1), float64(a.steps))
	c2 := 1.0 - math.Pow(float64(a.Config.Beta2), float64(a.steps))

	for i, p := range params {
		if grads[i] == nil {
			continue
		}
		if p.NumElems != grads[i].NumElems {
			return fmt.Errorf("parameter %d size %d doesn't match gradient size %d", i, p.NumElems, grads[i].NumElems)
		}

		w := p.Float32s()
		g := grads[i].Float32s()
		m := a.momentum[i]
		v := a.variance[i]

		lr := float64(a.Config.LearningRate)
		b1 := float64(a.Config.Beta1)
		b2 := float64(a.Config.Beta2)
		eps := float64(a.Config.Epsilon)
		wd := float64(a.Config.WeightDecay)

		for j := range w {
			grad := float64(g[j]) + wd*float64(w[j])

			mj := b1*float64(m[j]) + (1-b1)*grad
			vj := b2*float64(v[j]) + (1-b2)*grad*grad
			m[j] = float32(mj)
			v[j] = float32(vj)

			mHat := mj / c1
			vHat := vj / c2

			w[j] = float32(float64(w[j]) - lr*mHat/(math.Sqrt(vHat)+eps))
		}
	}

	return nil
}
