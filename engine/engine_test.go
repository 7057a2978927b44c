package engine

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/pranath-reddy/lens-sr/layers"
	"github.com/pranath-reddy/lens-sr/tensor"
)

func smallSpec(t *testing.T, batch int) *layers.ModelSpec {
	t.Helper()
	spec, err := layers.NewModelBuilder([]int{batch, 1, 8, 8}).
		AddConv2D(4, 3, 1, 1, true, "conv1").
		AddReLU("relu1").
		AddConv2D(1, 3, 1, 1, true, "conv2").
		AddUpsample2D(16, 16, "upsample").
		Compile()
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return spec
}

func randomInput(t *testing.T, shape []int, seed int64) *tensor.Tensor {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	n := 1
	for _, d := range shape {
		n *= d
	}
	data := make([]float32, n)
	for i := range data {
		data[i] = rng.Float32()
	}
	in, err := tensor.NewTensor(shape, tensor.Float32, data)
	if err != nil {
		t.Fatalf("NewTensor failed: %v", err)
	}
	return in
}

func TestCompileRequiresCompiledSpec(t *testing.T) {
	if _, err := Compile(nil, 1); err == nil {
		t.Error("Compile(nil) should fail")
	}

	spec := &layers.ModelSpec{}
	if _, err := Compile(spec, 1); err == nil {
		t.Error("Compile on an uncompiled spec should fail")
	}
}

func TestCompileParameterShapes(t *testing.T) {
	spec := smallSpec(t, 2)
	eng, err := Compile(spec, 42)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	params := eng.Parameters()
	if len(params) != len(spec.ParameterShapes) {
		t.Fatalf("got %d parameter tensors, expected %d", len(params), len(spec.ParameterShapes))
	}
	for i, p := range params {
		if !reflect.DeepEqual(p.Shape, spec.ParameterShapes[i]) {
			t.Errorf("parameter %d shape = %v, expected %v", i, p.Shape, spec.ParameterShapes[i])
		}
	}
}

func TestCompileDeterministicInit(t *testing.T) {
	spec := smallSpec(t, 1)
	a, err := Compile(spec, 7)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	b, err := Compile(spec, 7)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	for i := range a.Parameters() {
		if !reflect.DeepEqual(a.Parameters()[i].Float32s(), b.Parameters()[i].Float32s()) {
			t.Fatalf("parameter %d differs across identically seeded engines", i)
		}
	}
}

func TestForwardShapeContract(t *testing.T) {
	spec, err := layers.SuperResolutionSpec(2)
	if err != nil {
		t.Fatalf("SuperResolutionSpec failed: %v", err)
	}
	eng, err := Compile(spec, 1)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	// The compiled batch size and a short final batch must both work.
	for _, batch := range []int{2, 1, 3} {
		in := randomInput(t, []int{batch, 1, 64, 64}, int64(batch))
		out, err := eng.Forward(in)
		if err != nil {
			t.Fatalf("Forward(batch=%d) failed: %v", batch, err)
		}
		if !reflect.DeepEqual(out.Shape, []int{batch, 1, 128, 128}) {
			t.Errorf("output shape = %v, expected [%d 1 128 128]", out.Shape, batch)
		}
	}
}

func TestForwardRejectsBadInput(t *testing.T) {
	spec := smallSpec(t, 1)
	eng, err := Compile(spec, 1)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if _, err := eng.Forward(nil); err == nil {
		t.Error("Forward(nil) should fail")
	}

	wrongSpatial := randomInput(t, []int{1, 1, 9, 9}, 1)
	if _, err := eng.Forward(wrongSpatial); err == nil {
		t.Error("Forward with wrong spatial dims should fail")
	}

	wrongRank, _ := tensor.Zeros([]int{8, 8}, tensor.Float32)
	if _, err := eng.Forward(wrongRank); err == nil {
		t.Error("Forward with a non-NCHW tensor should fail")
	}
}

func TestForwardIsPure(t *testing.T) {
	spec := smallSpec(t, 1)
	eng, err := Compile(spec, 9)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	in := randomInput(t, []int{1, 1, 8, 8}, 21)
	out1, err := eng.Forward(in)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	out2, err := eng.Forward(in)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if !reflect.DeepEqual(out1.Float32s(), out2.Float32s()) {
		t.Error("repeated forward passes over the same input diverge")
	}
}

func TestBeginInferenceRestoresMode(t *testing.T) {
	spec := smallSpec(t, 1)
	eng, err := Compile(spec, 1)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if eng.Training() {
		t.Fatal("fresh engine should start in inference mode")
	}

	eng.SetTraining(true)
	restore := eng.BeginInference()
	if eng.Training() {
		t.Error("BeginInference did not enter inference mode")
	}
	restore()
	if !eng.Training() {
		t.Error("restore did not reinstate training mode")
	}

	// Nested scopes restore the mode they found.
	eng.SetTraining(false)
	restore = eng.BeginInference()
	restore()
	if eng.Training() {
		t.Error("restore should reinstate inference mode when that was current")
	}
}

func TestBackwardRequiresTrainingForward(t *testing.T) {
	spec := smallSpec(t, 1)
	eng, err := Compile(spec, 1)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	gradOut, _ := tensor.Zeros([]int{1, 1, 16, 16}, tensor.Float32)

	if _, err := eng.Backward(gradOut); err == nil {
		t.Error("Backward on a fresh engine should fail")
	}

	in := randomInput(t, []int{1, 1, 8, 8}, 2)
	if _, err := eng.Forward(in); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if _, err := eng.Backward(gradOut); err == nil {
		t.Error("Backward after an inference-mode Forward should fail")
	}

	eng.SetTraining(true)
	if _, err := eng.Backward(gradOut); err == nil {
		t.Error("Backward without a training-mode Forward should fail")
	}
}

// TestBackwardFiniteDifference validates the end-to-end gradient through
// upsample, ReLU, and both convolutions with L = 0.5 * sum(out^2).
func TestBackwardFiniteDifference(t *testing.T) {
	spec := smallSpec(t, 1)
	eng, err := Compile(spec, 17)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	eng.SetTraining(true)

	in := randomInput(t, []int{1, 1, 8, 8}, 23)

	loss := func() float64 {
		out, err := eng.Forward(in)
		if err != nil {
			t.Fatalf("Forward failed: %v", err)
		}
		var l float64
		for _, v := range out.Float32s() {
			l += 0.5 * float64(v) * float64(v)
		}
		return l
	}

	out, err := eng.Forward(in)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	grads, err := eng.Backward(out)
	if err != nil {
		t.Fatalf("Backward failed: %v", err)
	}
	if len(grads) != len(eng.Parameters()) {
		t.Fatalf("got %d gradients, expected %d", len(grads), len(eng.Parameters()))
	}

	const eps = 1e-3
	for pi, param := range eng.Parameters() {
		data := param.Float32s()
		for _, idx := range []int{0, len(data) / 2, len(data) - 1} {
			orig := data[idx]
			data[idx] = orig + eps
			lp := loss()
			data[idx] = orig - eps
			lm := loss()
			data[idx] = orig

			numeric := (lp - lm) / (2 * eps)
			got := float64(grads[pi].Float32s()[idx])
			if math.Abs(numeric-got) > 5e-2*math.Max(1, math.Abs(numeric)) {
				t.Errorf("param %d grad[%d]: analytic %f vs numeric %f", pi, idx, got, numeric)
			}
		}
	}
}
