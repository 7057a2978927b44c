package training

import (
	"context"
	"fmt"
	"io"

	"github.com/pranath-reddy/lens-sr/engine"
	"github.com/pranath-reddy/lens-sr/optimizer"
)

// TrainerConfig holds configuration for a training run
type TrainerConfig struct {
	Epochs   int
	Progress io.Writer // nil disables progress output
}

// DefaultTrainerConfig returns the standard training configuration
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Epochs: 10,
	}
}

// Trainer drives the optimization loop over an engine
type Trainer struct {
	engine *engine.Engine
	loss   *MSELoss
	opt    optimizer.Optimizer
	loader *DataLoader
	config TrainerConfig
}

// NewTrainer creates a trainer binding an engine, loss, optimizer and data loader
func NewTrainer(eng *engine.Engine, loss *MSELoss, opt optimizer.Optimizer, loader *DataLoader, config TrainerConfig) (*Trainer, error) {
	if eng == nil || loss == nil || opt == nil || loader == nil {
		return nil, fmt.Errorf("trainer requires engine, loss, optimizer and loader")
	}
	if config.Epochs <= 0 {
		return nil, fmt.Errorf("epochs must be positive, got %d", config.Epochs)
	}
	if config.Progress == nil {
		config.Progress = io.Discard
	}
	return &Trainer{
		engine: eng,
		loss:   loss,
		opt:    opt,
		loader: loader,
		config: config,
	}, nil
}

// Fit runs the full training loop and returns the average loss per epoch.
// Cancelling the context stops training between batches.
func (t *Trainer) Fit(ctx context.Context) ([]float64, error) {
	t.engine.SetTraining(true)
	defer t.engine.SetTraining(false)

	epochLosses := make([]float64, 0, t.config.Epochs)

	for epoch := 1; epoch <= t.config.Epochs; epoch++ {
		avg, err := t.runEpoch(ctx, epoch)
		if err != nil {
			return epochLosses, err
		}
		epochLosses = append(epochLosses, avg)
	}

	return epochLosses, nil
}

func (t *Trainer) runEpoch(ctx context.Context, epoch int) (float64, error) {
	t.loader.Reset()

	bar := NewProgressBar(t.config.Progress,
		fmt.Sprintf("Epoch %d/%d", epoch, t.config.Epochs), t.loader.Len())

	var lossSum float64
	step := 0

	for t.loader.HasNext() {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		batch, err := t.loader.Next()
		if err != nil {
			return 0, fmt.Errorf("epoch %d: %v", epoch, err)
		}
		if batch == nil {
			break
		}

		batchLoss, err := t.trainStep(batch)
		if err != nil {
			return 0, fmt.Errorf("epoch %d step %d: %v", epoch, step, err)
		}

		lossSum += float64(batchLoss)
		step++
		bar.Update(step, map[string]float64{"loss": lossSum / float64(step)})
	}

	bar.Finish()

	if step == 0 {
		return 0, fmt.Errorf("epoch %d produced no batches", epoch)
	}
	return lossSum / float64(step), nil
}

// trainStep runs forward, loss, backward and an optimizer step for one batch
func (t *Trainer) trainStep(batch *Batch) (float32, error) {
	pred, err := t.engine.Forward(batch.Inputs)
	if err != nil {
		return 0, fmt.Errorf("forward pass failed: %v", err)
	}

	lossValue, err := t.loss.Forward(pred, batch.Targets)
	if err != nil {
		return 0, fmt.Errorf("loss computation failed: %v", err)
	}

	lossGrad, err := t.loss.Backward(pred, batch.Targets)
	if err != nil {
		return 0, fmt.Errorf("loss gradient failed: %v", err)
	}

	grads, err := t.engine.Backward(lossGrad)
	if err != nil {
		return 0, fmt.Errorf("backward pass failed: %v", err)
	}

	if err := t.opt.Step(t.engine.Parameters(), grads); err != nil {
		return 0, fmt.Errorf("optimizer step failed: %v", err)
	}

	return lossValue, nil
}
