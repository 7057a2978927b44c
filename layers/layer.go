package layers

import (
	"fmt"
)

// LayerType represents the type of neural network layer
type LayerType int

const (
	Conv2D LayerType = iota
	ReLU
	Upsample2D
)

func (lt LayerType) String() string {
	switch lt {
	case Conv2D:
		return "Conv2D"
	case ReLU:
		return "ReLU"
	case Upsample2D:
		return "Upsample2D"
	default:
		return "Unknown"
	}
}

// LayerSpec defines layer configuration for the execution engine.
// This is pure configuration - no execution logic.
type LayerSpec struct {
	Type       LayerType              `json:"type"`
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters"`

	// Shape information (computed during model compilation)
	InputShape  []int `json:"input_shape,omitempty"`
	OutputShape []int `json:"output_shape,omitempty"`

	// Parameter metadata (computed during model compilation)
	ParameterShapes [][]int `json:"parameter_shapes,omitempty"`
	ParameterCount  int64   `json:"parameter_count,omitempty"`
}

// IntParam reads an integer configuration value. JSON decoding turns
// numbers into float64, so both representations are accepted.
func (ls *LayerSpec) IntParam(key string) (int, bool) {
	v, ok := ls.Parameters[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// BoolParam reads a boolean configuration value.
func (ls *LayerSpec) BoolParam(key string) (bool, bool) {
	v, ok := ls.Parameters[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// ModelSpec defines a complete neural network model as layer configuration.
type ModelSpec struct {
	Layers []LayerSpec `json:"layers"`

	// Compiled model information
	TotalParameters int64   `json:"total_parameters"`
	ParameterShapes [][]int `json:"parameter_shapes"`
	InputShape      []int   `json:"input_shape"`
	OutputShape     []int   `json:"output_shape"`
	Compiled        bool    `json:"compiled"`
}

// ModelBuilder helps construct neural network models
type ModelBuilder struct {
	layers     []LayerSpec
	inputShape []int
	compiled   bool
}

// NewModelBuilder creates a new model builder. The input shape is NCHW.
func NewModelBuilder(inputShape []int) *ModelBuilder {
	return &ModelBuilder{
		layers:     make([]LayerSpec, 0),
		inputShape: inputShape,
		compiled:   false,
	}
}

// AddLayer adds a layer to the model
func (mb *ModelBuilder) AddLayer(layer LayerSpec) *ModelBuilder {
	mb.layers = append(mb.layers, layer)
	mb.compiled = false
	return mb
}

// AddConv2D adds a Conv2D layer to the model. Input channels are inferred
// during compilation from the preceding layer's output shape.
func (mb *ModelBuilder) AddConv2D(
	outputChannels, kernelSize, stride, padding int,
	useBias bool, name string,
) *ModelBuilder {
	layer := LayerSpec{
		Type: Conv2D,
		Name: name,
		Parameters: map[string]interface{}{
			"output_channels": outputChannels,
			"kernel_size":     kernelSize,
			"stride":          stride,
			"padding":         padding,
			"use_bias":        useBias,
		},
	}
	return mb.AddLayer(layer)
}

// AddReLU adds a ReLU activation to the model
func (mb *ModelBuilder) AddReLU(name string) *ModelBuilder {
	layer := LayerSpec{
		Type:       ReLU,
		Name:       name,
		Parameters: map[string]interface{}{},
	}
	return mb.AddLayer(layer)
}

// AddUpsample2D adds a fixed-size bicubic upsampling step. Half-pixel
// centers are used (no corner alignment).
func (mb *ModelBuilder) AddUpsample2D(outHeight, outWidth int, name string) *ModelBuilder {
	layer := LayerSpec{
		Type: Upsample2D,
		Name: name,
		Parameters: map[string]interface{}{
			"out_height": outHeight,
			"out_width":  outWidth,
		},
	}
	return mb.AddLayer(layer)
}

// Compile compiles the model and computes shapes and parameter counts
func (mb *ModelBuilder) Compile() (*ModelSpec, error) {
	if len(mb.layers) == 0 {
		return nil, fmt.Errorf("cannot compile empty model")
	}
	if len(mb.inputShape) != 4 {
		return nil, fmt.Errorf("input shape must be NCHW, got %v", mb.inputShape)
	}

	model := &ModelSpec{
		Layers:     make([]LayerSpec, len(mb.layers)),
		InputShape: mb.inputShape,
		Compiled:   false,
	}

	copy(model.Layers, mb.layers)

	currentShape := mb.inputShape
	var allParameterShapes [][]int
	totalParams := int64(0)

	for i := range model.Layers {
		layer := &model.Layers[i]

		layer.InputShape = make([]int, len(currentShape))
		copy(layer.InputShape, currentShape)

		outputShape, paramShapes, paramCount, err := computeLayerInfo(layer, currentShape)
		if err != nil {
			return nil, fmt.Errorf("failed to compute layer %d (%s) info: %v", i, layer.Name, err)
		}

		layer.OutputShape = outputShape
		layer.ParameterShapes = paramShapes
		layer.ParameterCount = paramCount

		allParameterShapes = append(allParameterShapes, paramShapes...)
		totalParams += paramCount

		currentShape = outputShape
	}

	model.OutputShape = currentShape
	model.ParameterShapes = allParameterShapes
	model.TotalParameters = totalParams
	model.Compiled = true
	mb.compiled = true

	return model, nil
}

func computeLayerInfo(layer *LayerSpec, inputShape []int) ([]int, [][]int, int64, error) {
	switch layer.Type {
	case Conv2D:
		return computeConv2DInfo(layer, inputShape)
	case ReLU:
		return computeActivationInfo(layer, inputShape)
	case Upsample2D:
		return computeUpsample2DInfo(layer, inputShape)
	default:
		return nil, nil, 0, fmt.Errorf("unsupported layer type: %s", layer.Type.String())
	}
}

func computeConv2DInfo(layer *LayerSpec, inputShape []int) ([]int, [][]int, int64, error) {
	batch, inChannels, inH, inW := inputShape[0], inputShape[1], inputShape[2], inputShape[3]

	outChannels, ok := layer.IntParam("output_channels")
	if !ok {
		return nil, nil, 0, fmt.Errorf("missing output_channels")
	}
	kernel, ok := layer.IntParam("kernel_size")
	if !ok {
		return nil, nil, 0, fmt.Errorf("missing kernel_size")
	}
	stride, ok := layer.IntParam("stride")
	if !ok || stride <= 0 {
		return nil, nil, 0, fmt.Errorf("missing or invalid stride")
	}
	padding, ok := layer.IntParam("padding")
	if !ok || padding < 0 {
		return nil, nil, 0, fmt.Errorf("missing or invalid padding")
	}
	useBias, ok := layer.BoolParam("use_bias")
	if !ok {
		return nil, nil, 0, fmt.Errorf("missing use_bias")
	}

	outH := (inH+2*padding-kernel)/stride + 1
	outW := (inW+2*padding-kernel)/stride + 1
	if outH <= 0 || outW <= 0 {
		return nil, nil, 0, fmt.Errorf("kernel %d with padding %d does not fit input %dx%d", kernel, padding, inH, inW)
	}

	// Input channels become part of the compiled configuration so the
	// engine does not have to re-derive them.
	layer.Parameters["input_channels"] = inChannels

	paramShapes := [][]int{{outChannels, inChannels, kernel, kernel}}
	paramCount := int64(outChannels * inChannels * kernel * kernel)
	if useBias {
		paramShapes = append(paramShapes, []int{outChannels})
		paramCount += int64(outChannels)
	}

	return []int{batch, outChannels, outH, outW}, paramShapes, paramCount, nil
}

func computeActivationInfo(layer *LayerSpec, inputShape []int) ([]int, [][]int, int64, error) {
	outputShape := make([]int, len(inputShape))
	copy(outputShape, inputShape)
	return outputShape, nil, 0, nil
}

func computeUpsample2DInfo(layer *LayerSpec, inputShape []int) ([]int, [][]int, int64, error) {
	outH, ok := layer.IntParam("out_height")
	if !ok || outH <= 0 {
		return nil, nil, 0, fmt.Errorf("missing or invalid out_height")
	}
	outW, ok := layer.IntParam("out_width")
	if !ok || outW <= 0 {
		return nil, nil, 0, fmt.Errorf("missing or invalid out_width")
	}

	return []int{inputShape[0], inputShape[1], outH, outW}, nil, 0, nil
}
