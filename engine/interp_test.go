package engine

import (
	"math"
	"math/rand"
	"testing"
)

func TestCubicKernelProperties(t *testing.T) {
	if got := cubicKernel(0); math.Abs(got-1) > 1e-12 {
		t.Errorf("cubicKernel(0) = %f, expected 1", got)
	}
	for _, x := range []float64{1, -1, 2, -2, 2.5} {
		if got := cubicKernel(x); math.Abs(got) > 1e-12 {
			t.Errorf("cubicKernel(%f) = %f, expected 0", x, got)
		}
	}

	// The four taps covering any sample position form a partition of unity.
	for _, frac := range []float64{0.0, 0.1, 0.25, 0.5, 0.75, 0.99} {
		sum := 0.0
		for m := -1; m <= 2; m++ {
			sum += cubicKernel(frac - float64(m))
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Errorf("tap weights at frac %f sum to %f, expected 1", frac, sum)
		}
	}
}

func TestResizeBicubicConstantImage(t *testing.T) {
	in := make([]float32, 2*1*8*8)
	for i := range in {
		in[i] = 0.37
	}

	out := resizeBicubic(in, 2, 1, 8, 8, 16, 16)

	if len(out) != 2*1*16*16 {
		t.Fatalf("output length = %d, expected %d", len(out), 2*16*16)
	}
	for i, v := range out {
		if math.Abs(float64(v)-0.37) > 1e-6 {
			t.Fatalf("constant image not preserved at %d: %f", i, v)
		}
	}
}

func TestResizeBicubicShapeContract(t *testing.T) {
	in := make([]float32, 3*1*64*64)
	out := resizeBicubic(in, 3, 1, 64, 64, 128, 128)
	if len(out) != 3*1*128*128 {
		t.Errorf("64->128 resize produced %d elements, expected %d", len(out), 3*128*128)
	}
}

// TestResizeBicubicBackwardMassConservation: since the forward weights at
// every output pixel sum to one, scattering gradients back must conserve
// their total.
func TestResizeBicubicBackwardMassConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	gradOut := make([]float32, 1*1*12*12)
	var total float64
	for i := range gradOut {
		gradOut[i] = rng.Float32()
		total += float64(gradOut[i])
	}

	dIn := resizeBicubicBackward(gradOut, 1, 1, 6, 6, 12, 12)

	var back float64
	for _, v := range dIn {
		back += float64(v)
	}
	if math.Abs(total-back) > 1e-3 {
		t.Errorf("gradient mass changed: forward total %f, scattered total %f", total, back)
	}
}

// TestResizeBicubicBackwardFiniteDifference checks the scatter gradients
// against central differences on L = 0.5 * sum(out^2).
func TestResizeBicubicBackwardFiniteDifference(t *testing.T) {
	const inH, inW, outH, outW = 5, 5, 10, 10

	rng := rand.New(rand.NewSource(13))
	in := make([]float32, inH*inW)
	for i := range in {
		in[i] = rng.Float32()
	}

	loss := func() float64 {
		out := resizeBicubic(in, 1, 1, inH, inW, outH, outW)
		var l float64
		for _, v := range out {
			l += 0.5 * float64(v) * float64(v)
		}
		return l
	}

	out := resizeBicubic(in, 1, 1, inH, inW, outH, outW)
	dIn := resizeBicubicBackward(out, 1, 1, inH, inW, outH, outW)

	const eps = 1e-3
	for _, idx := range []int{0, 3, 12, len(in) - 1} {
		orig := in[idx]
		in[idx] = orig + eps
		lp := loss()
		in[idx] = orig - eps
		lm := loss()
		in[idx] = orig

		numeric := (lp - lm) / (2 * eps)
		got := float64(dIn[idx])
		if math.Abs(numeric-got) > 5e-2*math.Max(1, math.Abs(numeric)) {
			t.Errorf("dIn[%d]: analytic %f vs numeric %f", idx, got, numeric)
		}
	}
}
