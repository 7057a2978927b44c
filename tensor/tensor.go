package tensor

import (
	"fmt"
)

type DType int

const (
	Float32 DType = iota
	Int32
)

func (d DType) String() string {
	switch d {
	case Float32:
		return "Float32"
	case Int32:
		return "Int32"
	default:
		return "Unknown"
	}
}

// Tensor is a dense, row-major array of numeric data. All model inputs,
// parameters, and activations in this module are CPU-resident tensors.
type Tensor struct {
	Shape    []int
	Strides  []int
	DType    DType
	Data     interface{}
	NumElems int
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, dtype=%s, elements=%d)", t.Shape, t.DType, t.NumElems)
}

// Float32s returns the underlying float32 storage, or nil for other dtypes.
func (t *Tensor) Float32s() []float32 {
	data, _ := t.Data.([]float32)
	return data
}

// Int32s returns the underlying int32 storage, or nil for other dtypes.
func (t *Tensor) Int32s() []int32 {
	data, _ := t.Data.([]int32)
	return data
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	shape := make([]int, len(t.Shape))
	copy(shape, t.Shape)

	out := &Tensor{
		Shape:    shape,
		Strides:  calculateStrides(shape),
		DType:    t.DType,
		NumElems: t.NumElems,
	}

	switch t.DType {
	case Float32:
		data := make([]float32, t.NumElems)
		copy(data, t.Data.([]float32))
		out.Data = data
	case Int32:
		data := make([]int32, t.NumElems)
		copy(data, t.Data.([]int32))
		out.Data = data
	}

	return out
}

// SameShape reports whether the two tensors have identical shapes.
func SameShape(t1, t2 *Tensor) bool {
	if len(t1.Shape) != len(t2.Shape) {
		return false
	}
	for i := range t1.Shape {
		if t1.Shape[i] != t2.Shape[i] {
			return false
		}
	}
	return true
}

func calculateStrides(shape []int) []int {
	if len(shape) == 0 {
		return []int{}
	}

	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

func calculateNumElements(shape []int) int {
	if len(shape) == 0 {
		return 0
	}

	elements := 1
	for _, dim := range shape {
		elements *= dim
	}
	return elements
}

func validateShape(shape []int) error {
	if len(shape) == 0 {
		return fmt.Errorf("invalid shape: must have at least one dimension")
	}
	for i, dim := range shape {
		if dim <= 0 {
			return fmt.Errorf("invalid shape: dimension %d has size %d, must be positive", i, dim)
		}
	}
	return nil
}
