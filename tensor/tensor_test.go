package tensor

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestDTypeString(t *testing.T) {
	tests := []struct {
		dtype    DType
		expected string
	}{
		{Float32, "Float32"},
		{Int32, "Int32"},
		{DType(999), "Unknown"},
	}

	for _, test := range tests {
		result := test.dtype.String()
		if result != test.expected {
			t.Errorf("DType.String() = %s, expected %s", result, test.expected)
		}
	}
}

func TestCalculateStrides(t *testing.T) {
	tests := []struct {
		shape    []int
		expected []int
	}{
		{[]int{5}, []int{1}},
		{[]int{2, 3}, []int{3, 1}},
		{[]int{2, 3, 4}, []int{12, 4, 1}},
		{[]int{4, 1, 64, 64}, []int{4096, 4096, 64, 1}},
	}

	for _, test := range tests {
		result := calculateStrides(test.shape)
		if !reflect.DeepEqual(result, test.expected) {
			t.Errorf("calculateStrides(%v) = %v, expected %v", test.shape, result, test.expected)
		}
	}
}

func TestNewTensor(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6}
	tensor, err := NewTensor([]int{2, 3}, Float32, data)
	if err != nil {
		t.Fatalf("NewTensor failed: %v", err)
	}

	if tensor.NumElems != 6 {
		t.Errorf("Expected 6 elements, got %d", tensor.NumElems)
	}

	if !reflect.DeepEqual(tensor.Float32s(), data) {
		t.Errorf("Tensor data mismatch: got %v", tensor.Float32s())
	}
}

func TestNewTensorInvalid(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
		data  interface{}
	}{
		{"empty shape", []int{}, []float32{}},
		{"zero dim", []int{2, 0}, []float32{}},
		{"negative dim", []int{-1, 3}, []float32{}},
		{"length mismatch", []int{2, 3}, []float32{1, 2}},
		{"wrong element type", []int{2}, []int32{1, 2}},
	}

	for _, test := range tests {
		if _, err := NewTensor(test.shape, Float32, test.data); err == nil {
			t.Errorf("%s: expected error, got nil", test.name)
		}
	}
}

func TestZerosAndFull(t *testing.T) {
	z, err := Zeros([]int{3, 2}, Float32)
	if err != nil {
		t.Fatalf("Zeros failed: %v", err)
	}
	for i, v := range z.Float32s() {
		if v != 0 {
			t.Errorf("Zeros element %d = %f, expected 0", i, v)
		}
	}

	f, err := Full([]int{2, 2}, Float32, 0.5)
	if err != nil {
		t.Fatalf("Full failed: %v", err)
	}
	for i, v := range f.Float32s() {
		if v != 0.5 {
			t.Errorf("Full element %d = %f, expected 0.5", i, v)
		}
	}

	o, err := Ones([]int{4}, Int32)
	if err != nil {
		t.Fatalf("Ones failed: %v", err)
	}
	for i, v := range o.Int32s() {
		if v != 1 {
			t.Errorf("Ones element %d = %d, expected 1", i, v)
		}
	}
}

func TestFromScalar(t *testing.T) {
	s, err := FromScalar(2.5, Float32)
	if err != nil {
		t.Fatalf("FromScalar failed: %v", err)
	}
	if !reflect.DeepEqual(s.Shape, []int{1}) {
		t.Errorf("FromScalar shape = %v, expected [1]", s.Shape)
	}
	if got := s.Float32s()[0]; got != 2.5 {
		t.Errorf("FromScalar value = %f, expected 2.5", got)
	}

	i, err := FromScalar(3, Int32)
	if err != nil {
		t.Fatalf("FromScalar failed: %v", err)
	}
	if got := i.Int32s()[0]; got != 3 {
		t.Errorf("FromScalar value = %d, expected 3", got)
	}
}

func TestUniform(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	u, err := Uniform([]int{10, 10}, -0.25, 0.25, rng)
	if err != nil {
		t.Fatalf("Uniform failed: %v", err)
	}

	for i, v := range u.Float32s() {
		if v < -0.25 || v >= 0.25 {
			t.Errorf("Uniform element %d = %f, outside [-0.25, 0.25)", i, v)
		}
	}

	// Same seed must reproduce the same draw.
	rng2 := rand.New(rand.NewSource(7))
	u2, err := Uniform([]int{10, 10}, -0.25, 0.25, rng2)
	if err != nil {
		t.Fatalf("Uniform failed: %v", err)
	}
	if !reflect.DeepEqual(u.Float32s(), u2.Float32s()) {
		t.Error("Uniform with identical seeds produced different tensors")
	}
}

func TestClone(t *testing.T) {
	orig, _ := NewTensor([]int{2, 2}, Float32, []float32{1, 2, 3, 4})
	clone := orig.Clone()

	if !SameShape(orig, clone) {
		t.Fatalf("Clone shape mismatch: %v vs %v", orig.Shape, clone.Shape)
	}

	clone.Float32s()[0] = 99
	if orig.Float32s()[0] == 99 {
		t.Error("Clone shares storage with original")
	}
}

func TestElementwiseOps(t *testing.T) {
	a, _ := NewTensor([]int{2, 2}, Float32, []float32{1, 2, 3, 4})
	b, _ := NewTensor([]int{2, 2}, Float32, []float32{4, 3, 2, 1})

	sum, err := Add(a, b)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !reflect.DeepEqual(sum.Float32s(), []float32{5, 5, 5, 5}) {
		t.Errorf("Add result = %v", sum.Float32s())
	}

	diff, err := Sub(a, b)
	if err != nil {
		t.Fatalf("Sub failed: %v", err)
	}
	if !reflect.DeepEqual(diff.Float32s(), []float32{-3, -1, 1, 3}) {
		t.Errorf("Sub result = %v", diff.Float32s())
	}

	prod, err := Mul(a, b)
	if err != nil {
		t.Fatalf("Mul failed: %v", err)
	}
	if !reflect.DeepEqual(prod.Float32s(), []float32{4, 6, 6, 4}) {
		t.Errorf("Mul result = %v", prod.Float32s())
	}

	scaled, err := Scale(a, 2.0)
	if err != nil {
		t.Fatalf("Scale failed: %v", err)
	}
	if !reflect.DeepEqual(scaled.Float32s(), []float32{2, 4, 6, 8}) {
		t.Errorf("Scale result = %v", scaled.Float32s())
	}
}

func TestReLU(t *testing.T) {
	in, _ := NewTensor([]int{5}, Float32, []float32{-2, -0.5, 0, 0.5, 2})
	out, err := ReLU(in)
	if err != nil {
		t.Fatalf("ReLU failed: %v", err)
	}

	expected := []float32{0, 0, 0, 0.5, 2}
	if !reflect.DeepEqual(out.Float32s(), expected) {
		t.Errorf("ReLU result = %v, expected %v", out.Float32s(), expected)
	}
}

func TestOpShapeMismatch(t *testing.T) {
	a, _ := Zeros([]int{2, 2}, Float32)
	b, _ := Zeros([]int{2, 3}, Float32)

	if _, err := Add(a, b); err == nil {
		t.Error("Add with mismatched shapes should fail")
	}

	c, _ := Zeros([]int{2, 2}, Int32)
	if _, err := Sub(a, c); err == nil {
		t.Error("Sub with mismatched dtypes should fail")
	}
}
