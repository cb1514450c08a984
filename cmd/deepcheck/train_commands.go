package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"deepcheck/internal/classifier"
	"deepcheck/internal/config"
)

func newTrainCommand(ctx *commandContext) *cobra.Command {
	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Train the offline forensic classifiers",
	}
	trainCmd.AddCommand(newTrainFFTCommand(ctx))
	trainCmd.AddCommand(newTrainPCACommand(ctx))
	return trainCmd
}

func newTrainFFTCommand(ctx *commandContext) *cobra.Command {
	var dataDir, output string
	var seed uint64
	var testFraction, c float64

	cmd := &cobra.Command{
		Use:   "fft",
		Short: "Train the frequency-domain SVM from <data>/real and <data>/fake",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			out, err := resolveOutput(output, cfg.FrequencyModelPath())
			if err != nil {
				return err
			}

			run, err := classifier.TrainFrequency(commandCtx(cmd), classifier.TrainOptions{
				DataDir:      dataDir,
				OutputPath:   out,
				Seed:         seed,
				TestFraction: testFraction,
				C:            c,
				Logger:       logger,
			})
			if err != nil {
				return fmt.Errorf("train frequency classifier: %w", err)
			}

			w := cmd.OutOrStdout()
			printDataset(w, run.Stats)
			rep := run.Model.Report
			fmt.Fprintln(w, renderTable(
				[]string{"Class", "Precision", "Recall", "F1", "Support"},
				rep.Rows(),
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
				withTitle(fmt.Sprintf("Held-out evaluation (%d train / %d test)", run.Model.TrainSamples, run.Model.TestSamples)),
			))
			fmt.Fprintf(w, "Accuracy: %.2f%%\n", rep.Accuracy*100)
			fmt.Fprintf(w, "Support vectors: %d\n", len(run.Model.SVC.SupportVectors))
			fmt.Fprintf(w, "Saved model to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dataDir, "data", "d", "", "Dataset directory containing real/ and fake/")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Artifact path (default models.frequency_path)")
	cmd.Flags().Uint64Var(&seed, "seed", classifier.DefaultSeed, "Split and cross-validation seed")
	cmd.Flags().Float64Var(&testFraction, "test-fraction", classifier.DefaultTestFraction, "Held-out fraction per class")
	cmd.Flags().Float64Var(&c, "c", 1.0, "SVM regularization parameter")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newTrainPCACommand(ctx *commandContext) *cobra.Command {
	var dataDir, output string
	var nu, retain float64

	cmd := &cobra.Command{
		Use:   "pca",
		Short: "Fit the PCA + one-class SVM anomaly model on real exemplars",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			out, err := resolveOutput(output, cfg.AnomalyModelPath())
			if err != nil {
				return err
			}

			run, err := classifier.TrainAnomaly(commandCtx(cmd), classifier.TrainOptions{
				DataDir:    dataDir,
				OutputPath: out,
				Nu:         nu,
				Retain:     retain,
				Logger:     logger,
			})
			if err != nil {
				return fmt.Errorf("train anomaly model: %w", err)
			}

			w := cmd.OutOrStdout()
			printDataset(w, run.Stats)
			pca := run.Model.PCA
			var explained float64
			for _, r := range pca.ExplainedVarianceRatio {
				explained += r
			}
			fmt.Fprintln(w, renderTable(
				[]string{"Setting", "Value"},
				[][]string{
					{"Exemplars", strconv.Itoa(run.Model.Samples)},
					{"Image size", fmt.Sprintf("%dx%d", run.Model.ImageSize, run.Model.ImageSize)},
					{"Components", strconv.Itoa(pca.Dims())},
					{"Explained variance", fmt.Sprintf("%.2f%%", explained*100)},
					{"Nu", strconv.FormatFloat(run.Model.OCSVM.Nu, 'f', 3, 64)},
					{"Support vectors", strconv.Itoa(len(run.Model.OCSVM.SupportVectors))},
				},
				[]columnAlignment{alignLeft, alignRight},
			))
			fmt.Fprintf(w, "Saved model to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dataDir, "data", "d", "", "Directory of real exemplars (uses <data>/real when present)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Artifact path (default models.anomaly_path)")
	cmd.Flags().Float64Var(&nu, "nu", classifier.DefaultNu, "One-class SVM nu")
	cmd.Flags().Float64Var(&retain, "retain", classifier.DefaultRetainedVariance, "Explained variance PCA keeps")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func resolveOutput(flagValue, fallback string) (string, error) {
	if strings.TrimSpace(flagValue) == "" {
		return fallback, nil
	}
	path, err := config.ExpandPath(flagValue)
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}
	return path, nil
}

func printDataset(w io.Writer, stats classifier.DatasetStats) {
	labels := make([]string, 0, len(stats.Loaded))
	for label := range stats.Loaded {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	rows := make([][]string, 0, len(labels)+1)
	for _, label := range labels {
		rows = append(rows, []string{label, strconv.Itoa(stats.Loaded[label])})
	}
	rows = append(rows, []string{"skipped", strconv.Itoa(len(stats.Skipped))})
	fmt.Fprintln(w, renderTable([]string{"Dataset", "Images"}, rows, []columnAlignment{alignLeft, alignRight},
		withFooter("loaded", strconv.Itoa(stats.Total()))))
}
