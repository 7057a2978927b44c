package tensor

import (
	"fmt"
	"math/rand"
)

func NewTensor(shape []int, dtype DType, data interface{}) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}

	numElems := calculateNumElements(shape)
	strides := calculateStrides(shape)

	t := &Tensor{
		Shape:    shape,
		Strides:  strides,
		DType:    dtype,
		NumElems: numElems,
	}

	if data != nil {
		if err := t.setData(data); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (t *Tensor) setData(data interface{}) error {
	switch t.DType {
	case Float32:
		d, ok := data.([]float32)
		if !ok {
			return fmt.Errorf("unsupported data type for Float32 tensor: %T", data)
		}
		if len(d) != t.NumElems {
			return fmt.Errorf("data length %d does not match tensor size %d", len(d), t.NumElems)
		}
		t.Data = d
	case Int32:
		d, ok := data.([]int32)
		if !ok {
			return fmt.Errorf("unsupported data type for Int32 tensor: %T", data)
		}
		if len(d) != t.NumElems {
			return fmt.Errorf("data length %d does not match tensor size %d", len(d), t.NumElems)
		}
		t.Data = d
	default:
		return fmt.Errorf("unsupported dtype: %s", t.DType)
	}
	return nil
}

func Zeros(shape []int, dtype DType) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}

	numElems := calculateNumElements(shape)

	t := &Tensor{
		Shape:    shape,
		Strides:  calculateStrides(shape),
		DType:    dtype,
		NumElems: numElems,
	}

	switch dtype {
	case Float32:
		t.Data = make([]float32, numElems)
	case Int32:
		t.Data = make([]int32, numElems)
	default:
		return nil, fmt.Errorf("unsupported dtype: %s", dtype)
	}

	return t, nil
}

func Ones(shape []int, dtype DType) (*Tensor, error) {
	return Full(shape, dtype, 1.0)
}

func Full(shape []int, dtype DType, value float64) (*Tensor, error) {
	t, err := Zeros(shape, dtype)
	if err != nil {
		return nil, err
	}

	switch dtype {
	case Float32:
		data := t.Data.([]float32)
		for i := range data {
			data[i] = float32(value)
		}
	case Int32:
		data := t.Data.([]int32)
		for i := range data {
			data[i] = int32(value)
		}
	}

	return t, nil
}

// FromScalar creates a one-element tensor holding the given value.
func FromScalar(value float64, dtype DType) (*Tensor, error) {
	return Full([]int{1}, dtype, value)
}

// Uniform creates a Float32 tensor with entries drawn from U(low, high).
// The caller supplies the source so initialization stays reproducible.
func Uniform(shape []int, low, high float64, rng *rand.Rand) (*Tensor, error) {
	if high < low {
		return nil, fmt.Errorf("invalid uniform range [%f, %f)", low, high)
	}

	t, err := Zeros(shape, Float32)
	if err != nil {
		return nil, err
	}

	data := t.Data.([]float32)
	for i := range data {
		data[i] = float32(low + rng.Float64()*(high-low))
	}

	return t, nil
}
