package training

import (
	"fmt"

	"github.com/pranath-reddy/lens-sr/tensor"
)

// Reduction specifies how per-element losses are aggregated
type Reduction int

const (
	// Mean averages the loss over all elements
	Mean Reduction = iota
	// Sum adds the loss over all elements
	Sum
)

// MSELoss computes mean squared error between predictions and targets
type MSELoss struct {
	Reduction Reduction
}

// NewMSELoss creates an MSE loss with mean reduction
func NewMSELoss() *MSELoss {
	return &MSELoss{Reduction: Mean}
}

// Forward computes the scalar loss value
func (l *MSELoss) Forward(pred, target *tensor.Tensor) (float32, error) {
	if err := checkLossInputs(pred, target); err != nil {
		return 0, err
	}

	p := pred.Float32s()
	t := target.Float32s()

	var sum float64
	for i := range p {
		d := float64(p[i] - t[i])
		sum += d * d
	}

	if l.Reduction == Mean {
		sum /= float64(len(p))
	}
	return float32(sum), nil
}

// Backward computes the gradient of the loss with respect to predictions
func (l *MSELoss) Backward(pred, target *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkLossInputs(pred, target); err != nil {
		return nil, err
	}

	grad, err := tensor.Zeros(pred.Shape, tensor.Float32)
	if err != nil {
		return nil, err
	}

	p := pred.Float32s()
	t := target.Float32s()
	g := grad.Float32s()

	scale := float32(2.0)
	if l.Reduction == Mean {
		scale = 2.0 / float32(len(p))
	}

	for i := range p {
		g[i] = scale * (p[i] - t[i])
	}
	return grad, nil
}

func checkLossInputs(pred, target *tensor.Tensor) error {
	if pred == nil || target == nil {
		return fmt.Errorf("prediction and target must be non-nil")
	}
	if pred.DType != tensor.Float32 || target.DType != tensor.Float32 {
		return fmt.Errorf("loss requires float32 tensors")
	}
	if !tensor.SameShape(pred, target) {
		return fmt.Errorf("prediction shape %v doesn't match target shape %v", pred.Shape, target.Shape)
	}
	if pred.NumElems == 0 {
		return fmt.Errorf("empty tensors")
	}
	return nil
}
