// Package optimizer implements gradient-based parameter update rules.
// Optimizer state lives alongside the parameters it updates; Step mutates
// parameter tensors in place.
package optimizer

import (
	"github.com/pranath-reddy/lens-sr/tensor"
)

// Optimizer applies one update step given parameters and their gradients.
type Optimizer interface {
	// Step updates params in place. grads must align with params; a nil
	// gradient entry leaves the corresponding parameter untouched.
	Step(params, grads []*tensor.Tensor) error

	// Steps returns the number of update steps applied so far.
	Steps() uint64

	// Name returns the optimizer name for logging and checkpoints.
	Name() string
}
