package optimizer

import (
	"math"
	"testing"

	"github.com/pranath-reddy/lens-sr/tensor"
)

func TestSGDStepExact(t *testing.T) {
	cfg := SGDConfig{LearningRate: 0.1}
	opt := NewSGD(cfg)

	param, err := tensor.NewTensor([]int{3}, tensor.Float32, []float32{1.0, -2.0, 0.5})
	if err != nil {
		t.Fatalf("failed to create parameter: %v", err)
	}
	grad, err := tensor.NewTensor([]int{3}, tensor.Float32, []float32{2.0, 4.0, -1.0})
	if err != nil {
		t.Fatalf("failed to create gradient: %v", err)
	}

	if err := opt.Step([]*tensor.Tensor{param}, []*tensor.Tensor{grad}); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	expected := []float32{0.8, -2.4, 0.6}
	for i, w := range param.Float32s() {
		if math.Abs(float64(w-expected[i])) > 1e-6 {
			t.Errorf("param %d: expected %v, got %v", i, expected[i], w)
		}
	}
}

func TestSGDMomentumAccumulates(t *testing.T) {
	cfg := SGDConfig{LearningRate: 0.1, Momentum: 0.9}
	opt := NewSGD(cfg)

	param, err := tensor.NewTensor([]int{1}, tensor.Float32, []float32{0.0})
	if err != nil {
		t.Fatalf("failed to create parameter: %v", err)
	}
	grad, err := tensor.NewTensor([]int{1}, tensor.Float32, []float32{1.0})
	if err != nil {
		t.Fatalf("failed to create gradient: %v", err)
	}

	// First step: velocity = 1, update = -0.1.
	// Second step: velocity = 0.9 + 1 = 1.9, update = -0.19.
	for i := 0; i < 2; i++ {
		if err := opt.Step([]*tensor.Tensor{param}, []*tensor.Tensor{grad}); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
	}

	w := param.Float32s()[0]
	if math.Abs(float64(w)+0.29) > 1e-6 {
		t.Errorf("expected -0.29 after two momentum steps, got %v", w)
	}
}

func TestSGDWeightDecay(t *testing.T) {
	cfg := SGDConfig{LearningRate: 0.1, WeightDecay: 0.5}
	opt := NewSGD(cfg)

	param, err := tensor.NewTensor([]int{1}, tensor.Float32, []float32{2.0})
	if err != nil {
		t.Fatalf("failed to create parameter: %v", err)
	}
	grad, err := tensor.Zeros([]int{1}, tensor.Float32)
	if err != nil {
		t.Fatalf("failed to create gradient: %v", err)
	}

	if err := opt.Step([]*tensor.Tensor{param}, []*tensor.Tensor{grad}); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	// grad = 0 + 0.5*2 = 1, update = -0.1.
	w := param.Float32s()[0]
	if math.Abs(float64(w)-1.9) > 1e-6 {
		t.Errorf("expected 1.9, got %v", w)
	}
}

func TestSGDMismatchedLengths(t *testing.T) {
	opt := NewSGD(DefaultSGDConfig())

	param, err := tensor.NewTensor([]int{2}, tensor.Float32, []float32{1.0, 2.0})
	if err != nil {
		t.Fatalf("failed to create parameter: %v", err)
	}

	if err := opt.Step([]*tensor.Tensor{param}, nil); err == nil {
		t.Error("expected error for mismatched parameter/gradient counts")
	}
}
