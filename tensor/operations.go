package tensor

import (
	"fmt"
)

func checkCompatibility(t1, t2 *Tensor) error {
	if t1.DType != t2.DType {
		return fmt.Errorf("tensors must have same dtype: %s vs %s", t1.DType, t2.DType)
	}
	if !SameShape(t1, t2) {
		return fmt.Errorf("tensor shapes must match: %v vs %v", t1.Shape, t2.Shape)
	}
	return nil
}

func Add(t1, t2 *Tensor) (*Tensor, error) {
	if err := checkCompatibility(t1, t2); err != nil {
		return nil, err
	}

	result, err := Zeros(t1.Shape, t1.DType)
	if err != nil {
		return nil, err
	}

	switch t1.DType {
	case Float32:
		data1 := t1.Data.([]float32)
		data2 := t2.Data.([]float32)
		resultData := result.Data.([]float32)

		for i := 0; i < t1.NumElems; i++ {
			resultData[i] = data1[i] + data2[i]
		}
	case Int32:
		data1 := t1.Data.([]int32)
		data2 := t2.Data.([]int32)
		resultData := result.Data.([]int32)

		for i := 0; i < t1.NumElems; i++ {
			resultData[i] = data1[i] + data2[i]
		}
	default:
		return nil, fmt.Errorf("unsupported dtype for Add: %s", t1.DType)
	}

	return result, nil
}

func Sub(t1, t2 *Tensor) (*Tensor, error) {
	if err := checkCompatibility(t1, t2); err != nil {
		return nil, err
	}

	result, err := Zeros(t1.Shape, t1.DType)
	if err != nil {
		return nil, err
	}

	switch t1.DType {
	case Float32:
		data1 := t1.Data.([]float32)
		data2 := t2.Data.([]float32)
		resultData := result.Data.([]float32)

		for i := 0; i < t1.NumElems; i++ {
			resultData[i] = data1[i] - data2[i]
		}
	case Int32:
		data1 := t1.Data.([]int32)
		data2 := t2.Data.([]int32)
		resultData := result.Data.([]int32)

		for i := 0; i < t1.NumElems; i++ {
			resultData[i] = data1[i] - data2[i]
		}
	default:
		return nil, fmt.Errorf("unsupported dtype for Sub: %s", t1.DType)
	}

	return result, nil
}

func Mul(t1, t2 *Tensor) (*Tensor, error) {
	if err := checkCompatibility(t1, t2); err != nil {
		return nil, err
	}

	result, err := Zeros(t1.Shape, t1.DType)
	if err != nil {
		return nil, err
	}

	switch t1.DType {
	case Float32:
		data1 := t1.Data.([]float32)
		data2 := t2.Data.([]float32)
		resultData := result.Data.([]float32)

		for i := 0; i < t1.NumElems; i++ {
			resultData[i] = data1[i] * data2[i]
		}
	case Int32:
		data1 := t1.Data.([]int32)
		data2 := t2.Data.([]int32)
		resultData := result.Data.([]int32)

		for i := 0; i < t1.NumElems; i++ {
			resultData[i] = data1[i] * data2[i]
		}
	default:
		return nil, fmt.Errorf("unsupported dtype for Mul: %s", t1.DType)
	}

	return result, nil
}

// Scale multiplies every element by a scalar.
func Scale(t *Tensor, s float64) (*Tensor, error) {
	result, err := Zeros(t.Shape, t.DType)
	if err != nil {
		return nil, err
	}

	switch t.DType {
	case Float32:
		data := t.Data.([]float32)
		resultData := result.Data.([]float32)

		for i := 0; i < t.NumElems; i++ {
			resultData[i] = data[i] * float32(s)
		}
	case Int32:
		data := t.Data.([]int32)
		resultData := result.Data.([]int32)

		for i := 0; i < t.NumElems; i++ {
			resultData[i] = data[i] * int32(s)
		}
	default:
		return nil, fmt.Errorf("unsupported dtype for Scale: %s", t.DType)
	}

	return result, nil
}

func ReLU(t *Tensor) (*Tensor, error) {
	result, err := Zeros(t.Shape, t.DType)
	if err != nil {
		return nil, err
	}

	switch t.DType {
	case Float32:
		data := t.Data.([]float32)
		resultData := result.Data.([]float32)

		for i := 0; i < t.NumElems; i++ {
			if data[i] > 0 {
				resultData[i] = data[i]
			}
		}
	case Int32:
		data := t.Data.([]int32)
		resultData := result.Data.([]int32)

		for i := 0; i < t.NumElems; i++ {
			if data[i] > 0 {
				resultData[i] = data[i]
			}
		}
	default:
		return nil, fmt.Errorf("unsupported dtype for ReLU: %s", t.DType)
	}

	return result, nil
}
