// Package checkpoints serializes model state to JSON and ONNX.
package checkpoints

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pranath-reddy/lens-sr/layers"
	"github.com/pranath-reddy/lens-sr/tensor"
)

// CheckpointFormat defines the serialization format
type CheckpointFormat int

const (
	FormatJSON CheckpointFormat = iota
	FormatONNX
)

func (cf CheckpointFormat) String() string {
	switch cf {
	case FormatJSON:
		return "JSON"
	case FormatONNX:
		return "ONNX"
	default:
		return "Unknown"
	}
}

// Checkpoint represents a complete model state including weights and training metadata
type Checkpoint struct {
	ModelSpec *layers.ModelSpec `json:"model_spec"`
	Weights   []WeightTensor    `json:"weights"`

	TrainingState TrainingState `json:"training_state"`

	Metadata CheckpointMetadata `json:"metadata"`
}

// WeightTensor represents a model parameter tensor with its data
type WeightTensor struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
	Layer string    `json:"layer"`
	Type  string    `json:"type"` // "weight" or "bias"
}

// TrainingState captures the training progress at save time
type TrainingState struct {
	Epoch        int     `json:"epoch"`
	TotalSteps   int     `json:"total_steps"`
	LearningRate float32 `json:"learning_rate"`
	FinalLoss    float64 `json:"final_loss"`
}

// CheckpointMetadata contains checkpoint metadata
type CheckpointMetadata struct {
	Version     string    `json:"version"`
	Framework   string    `json:"framework"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description,omitempty"`
}

// CheckpointSaver handles saving model checkpoints in various formats
type CheckpointSaver struct {
	format CheckpointFormat
}

// NewCheckpointSaver creates a new checkpoint saver for the specified format
func NewCheckpointSaver(format CheckpointFormat) *CheckpointSaver {
	return &CheckpointSaver{format: format}
}

// SaveCheckpoint saves a complete model checkpoint
func (cs *CheckpointSaver) SaveCheckpoint(checkpoint *Checkpoint, path string) error {
	switch cs.format {
	case FormatJSON:
		return cs.saveJSON(checkpoint, path)
	case FormatONNX:
		return cs.saveONNX(checkpoint, path)
	default:
		return fmt.Errorf("unsupported checkpoint format: %s", cs.format.String())
	}
}

// LoadCheckpoint loads a model checkpoint
func (cs *CheckpointSaver) LoadCheckpoint(path string) (*Checkpoint, error) {
	switch cs.format {
	case FormatJSON:
		return cs.loadJSON(path)
	case FormatONNX:
		return cs.loadONNX(path)
	default:
		return nil, fmt.Errorf("unsupported checkpoint format: %s", cs.format.String())
	}
}

func (cs *CheckpointSaver) saveJSON(checkpoint *Checkpoint, path string) error {
	if checkpoint.Metadata.Framework == "" {
		checkpoint.Metadata.Framework = "lens-sr"
		checkpoint.Metadata.Version = "1.0.0"
		checkpoint.Metadata.CreatedAt = time.Now()
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file: %v", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(checkpoint); err != nil {
		return fmt.Errorf("failed to encode checkpoint: %v", err)
	}
	return nil
}

func (cs *CheckpointSaver) loadJSON(path string) (*Checkpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file: %v", err)
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := json.NewDecoder(file).Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %v", err)
	}
	return &checkpoint, nil
}

func (cs *CheckpointSaver) saveONNX(checkpoint *Checkpoint, path string) error {
	exporter := NewONNXExporter()
	return exporter.ExportToONNX(checkpoint, path)
}

func (cs *CheckpointSaver) loadONNX(path string) (*Checkpoint, error) {
	importer := NewONNXImporter()
	return importer.ImportFromONNX(path)
}

// ExtractWeights pairs an engine's parameter tensors with the layers
// that own them. Parameters are ordered weight-then-bias per Conv2D
// layer, matching compilation order.
func ExtractWeights(params []*tensor.Tensor, modelSpec *layers.ModelSpec) ([]WeightTensor, error) {
	var weights []WeightTensor

	paramIndex := 0
	for _, layerSpec := range modelSpec.Layers {
		switch layerSpec.Type {
		case layers.Conv2D:
			if paramIndex >= len(params) {
				return nil, fmt.Errorf("insufficient parameters for conv layer %s", layerSpec.Name)
			}

			weightTensor := params[paramIndex]
			weights = append(weights, WeightTensor{
				Name:  fmt.Sprintf("%s.weight", layerSpec.Name),
				Shape: append([]int(nil), weightTensor.Shape...),
				Data:  append([]float32(nil), weightTensor.Float32s()...),
				Layer: layerSpec.Name,
				Type:  "weight",
			})
			paramIndex++

			useBias, _ := layerSpec.BoolParam("use_bias")
			if useBias {
				if paramIndex >= len(params) {
					return nil, fmt.Errorf("insufficient parameters for conv layer bias %s", layerSpec.Name)
				}

				biasTensor := params[paramIndex]
				weights = append(weights, WeightTensor{
					Name:  fmt.Sprintf("%s.bias", layerSpec.Name),
					Shape: append([]int(nil), biasTensor.Shape...),
					Data:  append([]float32(nil), biasTensor.Float32s()...),
					Layer: layerSpec.Name,
					Type:  "bias",
				})
				paramIndex++
			}

		case layers.ReLU, layers.Upsample2D:
			// No parameters
			continue

		default:
			return nil, fmt.Errorf("unsupported layer type for weight extraction: %s", layerSpec.Type.String())
		}
	}

	if paramIndex != len(params) {
		return nil, fmt.Errorf("parameter count mismatch: consumed %d of %d", paramIndex, len(params))
	}
	return weights, nil
}

// LoadWeights copies checkpoint weights back into parameter tensors.
// Weights must appear in the same order they were extracted.
func LoadWeights(weights []WeightTensor, params []*tensor.Tensor) error {
	if len(weights) != len(params) {
		return fmt.Errorf("weight count mismatch: %d weights, %d parameters", len(weights), len(params))
	}

	for i, param := range params {
		weight := weights[i]

		if len(param.Shape) != len(weight.Shape) {
			return fmt.Errorf("shape mismatch for weight %s: parameter %v vs weight %v",
				weight.Name, param.Shape, weight.Shape)
		}
		for j, dim := range param.Shape {
			if dim != weight.Shape[j] {
				return fmt.Errorf("dimension mismatch for weight %s at index %d: parameter %d vs weight %d",
					weight.Name, j, dim, weight.Shape[j])
			}
		}
		if len(weight.Data) != param.NumElems {
			return fmt.Errorf("data length mismatch for weight %s: %d vs %d",
				weight.Name, len(weight.Data), param.NumElems)
		}

		copy(param.Float32s(), weight.Data)
	}
	return nil
}
