package layers

import (
	"reflect"
	"testing"
)

func TestLayerTypeString(t *testing.T) {
	tests := []struct {
		lt       LayerType
		expected string
	}{
		{Conv2D, "Conv2D"},
		{ReLU, "ReLU"},
		{Upsample2D, "Upsample2D"},
		{LayerType(999), "Unknown"},
	}

	for _, test := range tests {
		if got := test.lt.String(); got != test.expected {
			t.Errorf("LayerType.String() = %s, expected %s", got, test.expected)
		}
	}
}

func TestConv2DShapeInference(t *testing.T) {
	tests := []struct {
		name        string
		outChannels int
		kernel      int
		padding     int
		inputShape  []int
		expected    []int
	}{
		{"size-preserving k9 p4", 64, 9, 4, []int{2, 1, 64, 64}, []int{2, 64, 64, 64}},
		{"size-preserving k5 p2", 32, 5, 2, []int{2, 64, 64, 64}, []int{2, 32, 64, 64}},
		{"unpadded k3", 8, 3, 0, []int{1, 4, 10, 10}, []int{1, 8, 8, 8}},
	}

	for _, test := range tests {
		builder := NewModelBuilder(test.inputShape)
		model, err := builder.AddConv2D(test.outChannels, test.kernel, 1, test.padding, true, "conv").Compile()
		if err != nil {
			t.Fatalf("%s: Compile failed: %v", test.name, err)
		}

		if !reflect.DeepEqual(model.OutputShape, test.expected) {
			t.Errorf("%s: output shape = %v, expected %v", test.name, model.OutputShape, test.expected)
		}
	}
}

func TestCompileParameterCounts(t *testing.T) {
	model, err := SuperResolutionSpec(4)
	if err != nil {
		t.Fatalf("SuperResolutionSpec failed: %v", err)
	}

	// conv1: 64*1*9*9 + 64, conv2: 32*64*5*5 + 32, conv3: 1*32*5*5 + 1
	expected := int64(64*81+64) + int64(32*64*25+32) + int64(32*25+1)
	if model.TotalParameters != expected {
		t.Errorf("TotalParameters = %d, expected %d", model.TotalParameters, expected)
	}

	expectedShapes := [][]int{
		{64, 1, 9, 9}, {64},
		{32, 64, 5, 5}, {32},
		{1, 32, 5, 5}, {1},
	}
	if !reflect.DeepEqual(model.ParameterShapes, expectedShapes) {
		t.Errorf("ParameterShapes = %v, expected %v", model.ParameterShapes, expectedShapes)
	}
}

func TestSuperResolutionSpecShapes(t *testing.T) {
	model, err := SuperResolutionSpec(2)
	if err != nil {
		t.Fatalf("SuperResolutionSpec failed: %v", err)
	}

	if !model.Compiled {
		t.Error("model should be compiled")
	}

	if !reflect.DeepEqual(model.InputShape, []int{2, 1, 64, 64}) {
		t.Errorf("InputShape = %v", model.InputShape)
	}
	if !reflect.DeepEqual(model.OutputShape, []int{2, 1, 128, 128}) {
		t.Errorf("OutputShape = %v", model.OutputShape)
	}

	// The conv stack keeps the 64x64 grid; only the final layer resamples.
	last := model.Layers[len(model.Layers)-1]
	if last.Type != Upsample2D {
		t.Fatalf("final layer type = %s, expected Upsample2D", last.Type)
	}
	if !reflect.DeepEqual(last.InputShape, []int{2, 1, 64, 64}) {
		t.Errorf("upsample input shape = %v", last.InputShape)
	}
}

func TestCompileErrors(t *testing.T) {
	if _, err := NewModelBuilder([]int{1, 1, 8, 8}).Compile(); err == nil {
		t.Error("compiling an empty model should fail")
	}

	if _, err := NewModelBuilder([]int{8, 8}).AddReLU("relu").Compile(); err == nil {
		t.Error("non-NCHW input shape should fail")
	}

	// Kernel larger than the padded input.
	if _, err := NewModelBuilder([]int{1, 1, 4, 4}).AddConv2D(8, 9, 1, 0, true, "conv").Compile(); err == nil {
		t.Error("oversized kernel should fail")
	}
}

func TestIntParamJSONRepresentation(t *testing.T) {
	// JSON round trips store numbers as float64; IntParam must accept both.
	spec := LayerSpec{
		Type: Conv2D,
		Parameters: map[string]interface{}{
			"kernel_size":     float64(9),
			"output_channels": 64,
		},
	}

	if k, ok := spec.IntParam("kernel_size"); !ok || k != 9 {
		t.Errorf("IntParam(kernel_size) = %d, %v", k, ok)
	}
	if c, ok := spec.IntParam("output_channels"); !ok || c != 64 {
		t.Errorf("IntParam(output_channels) = %d, %v", c, ok)
	}
	if _, ok := spec.IntParam("missing"); ok {
		t.Error("IntParam on a missing key should report false")
	}
}
