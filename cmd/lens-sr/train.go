package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pranath-reddy/lens-sr/checkpoints"
	"github.com/pranath-reddy/lens-sr/dataset"
	"github.com/pranath-reddy/lens-sr/engine"
	"github.com/pranath-reddy/lens-sr/layers"
	"github.com/pranath-reddy/lens-sr/optimizer"
	"github.com/pranath-reddy/lens-sr/training"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the super-resolution model",
	RunE:  runTrain,
}

func init() {
	trainCmd.Flags().String("data-dir", "dataset", "dataset root directory")
	trainCmd.Flags().Int("epochs", 10, "number of training epochs")
	trainCmd.Flags().Int("batch-size", 100, "training batch size")
	trainCmd.Flags().Float32("lr", 1e-4, "learning rate")
	trainCmd.Flags().Float32("weight-decay", 1e-5, "L2 weight decay")
	trainCmd.Flags().Int64("seed", 42, "weight init and shuffle seed")
	trainCmd.Flags().String("checkpoint", "model.json", "checkpoint output path")
	trainCmd.Flags().String("onnx", "", "optional ONNX export path")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	epochs, _ := cmd.Flags().GetInt("epochs")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	lr, _ := cmd.Flags().GetFloat32("lr")
	weightDecay, _ := cmd.Flags().GetFloat32("weight-decay")
	seed, _ := cmd.Flags().GetInt64("seed")
	checkpointPath, _ := cmd.Flags().GetString("checkpoint")
	onnxPath, _ := cmd.Flags().GetString("onnx")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ds, err := dataset.NewPairedImageDataset(
		filepath.Join(dataDir, "train", "LR"),
		filepath.Join(dataDir, "train", "HR"),
	)
	if err != nil {
		return fmt.Errorf("failed to open training set: %v", err)
	}
	logger.Info("training set loaded", "samples", ds.Len())

	loader, err := training.NewDataLoader(ds, batchSize, true, seed)
	if err != nil {
		return err
	}

	spec, err := layers.SuperResolutionSpec(batchSize)
	if err != nil {
		return err
	}
	eng, err := engine.Compile(spec, seed)
	if err != nil {
		return err
	}
	logger.Info("model compiled", "parameters", spec.TotalParameters)

	adamCfg := optimizer.DefaultAdamConfig()
	adamCfg.LearningRate = lr
	adamCfg.WeightDecay = weightDecay
	opt := optimizer.NewAdam(adamCfg)

	trainCfg := training.DefaultTrainerConfig()
	trainCfg.Epochs = epochs
	trainCfg.Progress = os.Stdout

	trainer, err := training.NewTrainer(eng, training.NewMSELoss(), opt, loader, trainCfg)
	if err != nil {
		return err
	}

	losses, err := trainer.Fit(ctx)
	if err != nil {
		return fmt.Errorf("training failed: %v", err)
	}
	for i, l := range losses {
		fmt.Printf("epoch %d: loss %.6f\n", i+1, l)
	}

	weights, err := checkpoints.ExtractWeights(eng.Parameters(), eng.Spec())
	if err != nil {
		return err
	}
	checkpoint := &checkpoints.Checkpoint{
		ModelSpec: eng.Spec(),
		Weights:   weights,
		TrainingState: checkpoints.TrainingState{
			Epoch:        epochs,
			TotalSteps:   int(opt.Steps()),
			LearningRate: lr,
			FinalLoss:    losses[len(losses)-1],
		},
	}

	saver := checkpoints.NewCheckpointSaver(checkpoints.FormatJSON)
	if err := saver.SaveCheckpoint(checkpoint, checkpointPath); err != nil {
		return err
	}
	logger.Info("checkpoint saved", "path", checkpointPath)

	if onnxPath != "" {
		onnxSaver := checkpoints.NewCheckpointSaver(checkpoints.FormatONNX)
		if err := onnxSaver.SaveCheckpoint(checkpoint, onnxPath); err != nil {
			return err
		}
		logger.Info("ONNX model exported", "path", onnxPath)
	}
	return nil
}
