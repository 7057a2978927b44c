package training

import (
	"context"
	"fmt"

	"github.com/pranath-reddy/lens-sr/engine"
	"github.com/pranath-reddy/lens-sr/tensor"
)

// EvalSample holds one input/target/output triple kept for visualization
type EvalSample struct {
	Input  *tensor.Tensor
	Target *tensor.Tensor
	Output *tensor.Tensor
}

// Evaluator runs a model over a validation set and collects fidelity metrics
type Evaluator struct {
	engine *engine.Engine
	loader *DataLoader

	// CollectSamples caps how many input/target/output triples are
	// retained for rendering. Zero disables collection.
	CollectSamples int

	samples []EvalSample
}

// NewEvaluator creates an evaluator over an engine and validation loader
func NewEvaluator(eng *engine.Engine, loader *DataLoader) (*Evaluator, error) {
	if eng == nil || loader == nil {
		return nil, fmt.Errorf("evaluator requires engine and loader")
	}
	return &Evaluator{engine: eng, loader: loader}, nil
}

// Samples returns the triples retained during the last Run call
func (e *Evaluator) Samples() []EvalSample {
	return e.samples
}

// Run evaluates every batch in inference mode and returns per-sample
// metrics with their arithmetic means.
func (e *Evaluator) Run(ctx context.Context) (*EvaluationReport, error) {
	restore := e.engine.BeginInference()
	defer restore()

	e.samples = nil
	report := &EvaluationReport{}

	e.loader.Reset()
	for e.loader.HasNext() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		batch, err := e.loader.Next()
		if err != nil {
			return nil, fmt.Errorf("evaluation batch failed: %v", err)
		}
		if batch == nil {
			break
		}

		pred, err := e.engine.Forward(batch.Inputs)
		if err != nil {
			return nil, fmt.Errorf("inference failed: %v", err)
		}

		if err := e.accumulate(batch, pred, report); err != nil {
			return nil, err
		}
	}

	if err := report.Summarize(); err != nil {
		return nil, err
	}
	return report, nil
}

// accumulate splits batched tensors into per-sample views and records metrics
func (e *Evaluator) accumulate(batch *Batch, pred *tensor.Tensor, report *EvaluationReport) error {
	n := batch.Targets.Shape[0]
	for i := 0; i < n; i++ {
		p, err := sliceSample(pred, i)
		if err != nil {
			return err
		}
		t, err := sliceSample(batch.Targets, i)
		if err != nil {
			return err
		}

		m, err := ComputeSampleMetrics(p, t)
		if err != nil {
			return fmt.Errorf("sample metrics failed: %v", err)
		}
		report.Samples = append(report.Samples, m)

		if len(e.samples) < e.CollectSamples {
			in, err := sliceSample(batch.Inputs, i)
			if err != nil {
				return err
			}
			e.samples = append(e.samples, EvalSample{Input: in, Target: t, Output: p})
		}
	}
	return nil
}

// sliceSample copies sample idx out of a batched NCHW tensor
func sliceSample(t *tensor.Tensor, idx int) (*tensor.Tensor, error) {
	if len(t.Shape) < 2 {
		return nil, fmt.Errorf("expected batched tensor, got shape %v", t.Shape)
	}
	if idx < 0 || idx >= t.Shape[0] {
		return nil, fmt.Errorf("sample index %d out of range for batch %d", idx, t.Shape[0])
	}

	sampleShape := make([]int, len(t.Shape)-1)
	copy(sampleShape, t.Shape[1:])

	size := t.NumElems / t.Shape[0]
	data := make([]float32, size)
	copy(data, t.Float32s()[idx*size:(idx+1)*size])

	return tensor.NewTensor(sampleShape, tensor.Float32, data)
}
