package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pranath-reddy/lens-sr/checkpoints"
	"github.com/pranath-reddy/lens-sr/dataset"
	"github.com/pranath-reddy/lens-sr/engine"
	"github.com/pranath-reddy/lens-sr/training"
	"github.com/pranath-reddy/lens-sr/vision/panel"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a trained model on the validation set",
	RunE:  runEval,
}

func init() {
	evalCmd.Flags().String("data-dir", "dataset", "dataset root directory")
	evalCmd.Flags().String("checkpoint", "model.json", "trained model checkpoint")
	evalCmd.Flags().Int("batch-size", 100, "evaluation batch size")
	evalCmd.Flags().String("panels", "", "optional comparison panel PNG path")
	evalCmd.Flags().Int("panel-count", 5, "number of samples in the panel image")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	checkpointPath, _ := cmd.Flags().GetString("checkpoint")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	panelPath, _ := cmd.Flags().GetString("panels")
	panelCount, _ := cmd.Flags().GetInt("panel-count")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	saver := checkpoints.NewCheckpointSaver(checkpoints.FormatJSON)
	checkpoint, err := saver.LoadCheckpoint(checkpointPath)
	if err != nil {
		return err
	}

	eng, err := engine.Compile(checkpoint.ModelSpec, 0)
	if err != nil {
		return err
	}
	if err := checkpoints.LoadWeights(checkpoint.Weights, eng.Parameters()); err != nil {
		return fmt.Errorf("failed to restore weights: %v", err)
	}
	logger.Info("model restored", "checkpoint", checkpointPath)

	ds, err := dataset.NewPairedImageDataset(
		filepath.Join(dataDir, "val", "LR"),
		filepath.Join(dataDir, "val", "HR"),
	)
	if err != nil {
		return fmt.Errorf("failed to open validation set: %v", err)
	}
	logger.Info("validation set loaded", "samples", ds.Len())

	loader, err := training.NewDataLoader(ds, batchSize, false, 0)
	if err != nil {
		return err
	}

	evaluator, err := training.NewEvaluator(eng, loader)
	if err != nil {
		return err
	}
	if panelPath != "" {
		evaluator.CollectSamples = panelCount
	}

	report, err := evaluator.Run(ctx)
	if err != nil {
		return fmt.Errorf("evaluation failed: %v", err)
	}
	fmt.Println(report.String())

	if panelPath != "" {
		triples := make([]panel.Triple, 0, len(evaluator.Samples()))
		for _, s := range evaluator.Samples() {
			triples = append(triples, panel.Triple{LR: s.Input, HR: s.Target, SR: s.Output})
		}
		if err := panel.WritePNG(panelPath, triples); err != nil {
			return fmt.Errorf("failed to render panels: %v", err)
		}
		logger.Info("comparison panels written", "path", panelPath, "samples", len(triples))
	}
	return nil
}
