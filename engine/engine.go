// Package engine executes compiled model specifications on the CPU. The
// engine owns the parameter tensors for a model and provides the forward
// and backward passes the trainer drives.
package engine

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pranath-reddy/lens-sr/layers"
	"github.com/pranath-reddy/lens-sr/tensor"
)

// Engine holds the materialized parameters for a compiled model and runs
// forward/backward passes. Forward is a pure function of input and current
// parameters; the only state kept between calls is the parameters
// themselves plus the activations cached for the next Backward while in
// training mode.
type Engine struct {
	spec        *layers.ModelSpec
	params      []*tensor.Tensor
	layerParams [][]int // indices into params, per layer

	training bool
	inputs   []*tensor.Tensor // per-layer inputs cached by the last Forward
}

// Compile materializes parameter tensors for a compiled ModelSpec.
// Convolution weights and biases are drawn from U(-1/sqrt(fanIn),
// 1/sqrt(fanIn)); the seed makes initialization reproducible. A fresh
// engine starts in inference mode; callers that need gradients opt in
// with SetTraining.
func Compile(spec *layers.ModelSpec, seed int64) (*Engine, error) {
	if spec == nil || !spec.Compiled {
		return nil, fmt.Errorf("model spec must be compiled before execution")
	}

	e := &Engine{
		spec:        spec,
		layerParams: make([][]int, len(spec.Layers)),
	}

	rng := rand.New(rand.NewSource(seed))

	for i := range spec.Layers {
		layer := &spec.Layers[i]
		switch layer.Type {
		case layers.Conv2D:
			inC, _ := layer.IntParam("input_channels")
			kernel, _ := layer.IntParam("kernel_size")
			outC, _ := layer.IntParam("output_channels")
			useBias, _ := layer.BoolParam("use_bias")

			fanIn := inC * kernel * kernel
			bound := 1.0 / math.Sqrt(float64(fanIn))

			weight, err := tensor.Uniform([]int{outC, inC, kernel, kernel}, -bound, bound, rng)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize %s weight: %v", layer.Name, err)
			}
			e.layerParams[i] = append(e.layerParams[i], len(e.params))
			e.params = append(e.params, weight)

			if useBias {
				bias, err := tensor.Uniform([]int{outC}, -bound, bound, rng)
				if err != nil {
					return nil, fmt.Errorf("failed to initialize %s bias: %v", layer.Name, err)
				}
				e.layerParams[i] = append(e.layerParams[i], len(e.params))
				e.params = append(e.params, bias)
			}

		case layers.ReLU, layers.Upsample2D:
			// No parameters.

		default:
			return nil, fmt.Errorf("unsupported layer type: %s", layer.Type)
		}
	}

	return e, nil
}

// Spec returns the model specification this engine executes.
func (e *Engine) Spec() *layers.ModelSpec {
	return e.spec
}

// Parameters returns the parameter tensors in specification order. The
// optimizer mutates these in place.
func (e *Engine) Parameters() []*tensor.Tensor {
	return e.params
}

// Training reports whether the engine caches activations for Backward.
func (e *Engine) Training() bool {
	return e.training
}

// SetTraining toggles training mode. Leaving training mode drops any
// cached activations.
func (e *Engine) SetTraining(training bool) {
	e.training = training
	if !training {
		e.inputs = nil
	}
}

// BeginInference enters inference mode and returns a restore function that
// reinstates the previous mode. Callers are expected to defer the restore:
//
//	restore := eng.BeginInference()
//	defer restore()
func (e *Engine) BeginInference() func() {
	prev := e.training
	e.SetTraining(false)
	return func() { e.SetTraining(prev) }
}

// Forward runs the model on a NCHW float32 batch. The batch dimension may
// differ from the compiled spec (the final batch of an epoch is allowed to
// be short); channel and spatial dimensions must match.
func (e *Engine) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if input == nil {
		return nil, fmt.Errorf("input tensor is nil")
	}
	if input.DType != tensor.Float32 {
		return nil, fmt.Errorf("input dtype must be Float32, got %s", input.DType)
	}
	if len(input.Shape) != 4 {
		return nil, fmt.Errorf("input must be NCHW, got shape %v", input.Shape)
	}
	for d := 1; d < 4; d++ {
		if input.Shape[d] != e.spec.InputShape[d] {
			return nil, fmt.Errorf("input shape %v incompatible with model input %v", input.Shape, e.spec.InputShape)
		}
	}

	if e.training {
		e.inputs = make([]*tensor.Tensor, len(e.spec.Layers))
	}

	x := input
	for i := range e.spec.Layers {
		layer := &e.spec.Layers[i]
		if e.training {
			e.inputs[i] = x
		}

		var err error
		x, err = e.forwardLayer(layer, e.layerParams[i], x)
		if err != nil {
			return nil, fmt.Errorf("layer %s forward failed: %v", layer.Name, err)
		}
	}

	return x, nil
}

func (e *Engine) forwardLayer(layer *layers.LayerSpec, paramIdx []int, x *tensor.Tensor) (*tensor.Tensor, error) {
	n, c, h, w := x.Shape[0], x.Shape[1], x.Shape[2], x.Shape[3]

	switch layer.Type {
	case layers.Conv2D:
		kernel, _ := layer.IntParam("kernel_size")
		stride, _ := layer.IntParam("stride")
		padding, _ := layer.IntParam("padding")
		outC, _ := layer.IntParam("output_channels")
		useBias, _ := layer.BoolParam("use_bias")

		weight := e.params[paramIdx[0]].Float32s()
		var bias []float32
		if useBias {
			bias = e.params[paramIdx[1]].Float32s()
		}

		out, outH, outW := conv2dForward(x.Float32s(), n, c, h, w, weight, bias, outC, kernel, stride, padding)
		return tensor.NewTensor([]int{n, outC, outH, outW}, tensor.Float32, out)

	case layers.ReLU:
		return tensor.ReLU(x)

	case layers.Upsample2D:
		outH, _ := layer.IntParam("out_height")
		outW, _ := layer.IntParam("out_width")
		out := resizeBicubic(x.Float32s(), n, c, h, w, outH, outW)
		return tensor.NewTensor([]int{n, c, outH, outW}, tensor.Float32, out)

	default:
		return nil, fmt.Errorf("unsupported layer type: %s", layer.Type)
	}
}

// Backward propagates the loss gradient through the model and returns
// parameter gradients aligned with Parameters(). It consumes the
// activations cached by the last training-mode Forward.
func (e *Engine) Backward(gradOut *tensor.Tensor) ([]*tensor.Tensor, error) {
	if !e.training {
		return nil, fmt.Errorf("backward requires training mode")
	}
	if e.inputs == nil {
		return nil, fmt.Errorf("backward requires a preceding forward pass")
	}
	if gradOut == nil || gradOut.DType != tensor.Float32 {
		return nil, fmt.Errorf("output gradient must be a Float32 tensor")
	}

	grads := make([]*tensor.Tensor, len(e.params))

	grad := gradOut
	for i := len(e.spec.Layers) - 1; i >= 0; i-- {
		layer := &e.spec.Layers[i]
		in := e.inputs[i]
		n, c, h, w := in.Shape[0], in.Shape[1], in.Shape[2], in.Shape[3]

		switch layer.Type {
		case layers.Upsample2D:
			gh, gw := grad.Shape[2], grad.Shape[3]
			dIn := resizeBicubicBackward(grad.Float32s(), n, c, h, w, gh, gw)
			var err error
			grad, err = tensor.NewTensor([]int{n, c, h, w}, tensor.Float32, dIn)
			if err != nil {
				return nil, err
			}

		case layers.ReLU:
			inData := in.Float32s()
			gradData := grad.Float32s()
			dIn := make([]float32, len(gradData))
			for j := range gradData {
				if inData[j] > 0 {
					dIn[j] = gradData[j]
				}
			}
			var err error
			grad, err = tensor.NewTensor(in.Shape, tensor.Float32, dIn)
			if err != nil {
				return nil, err
			}

		case layers.Conv2D:
			kernel, _ := layer.IntParam("kernel_size")
			stride, _ := layer.IntParam("stride")
			padding, _ := layer.IntParam("padding")
			outC, _ := layer.IntParam("output_channels")
			useBias, _ := layer.BoolParam("use_bias")

			paramIdx := e.layerParams[i]
			weight := e.params[paramIdx[0]].Float32s()

			dW, dB, dIn := conv2dBackward(grad.Float32s(), in.Float32s(), n, c, h, w, weight, outC, kernel, stride, padding, useBias)

			wGrad, err := tensor.NewTensor(e.params[paramIdx[0]].Shape, tensor.Float32, dW)
			if err != nil {
				return nil, err
			}
			grads[paramIdx[0]] = wGrad

			if useBias {
				bGrad, err := tensor.NewTensor(e.params[paramIdx[1]].Shape, tensor.Float32, dB)
				if err != nil {
					return nil, err
				}
				grads[paramIdx[1]] = bGrad
			}

			grad, err = tensor.NewTensor([]int{n, c, h, w}, tensor.Float32, dIn)
			if err != nil {
				return nil, err
			}

		default:
			return nil, fmt.Errorf("unsupported layer type: %s", layer.Type)
		}
	}

	return grads, nil
}
