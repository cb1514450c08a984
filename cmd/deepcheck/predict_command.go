package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"deepcheck/internal/classifier"
	"deepcheck/internal/config"
	"deepcheck/internal/media/frames"
)

type prediction struct {
	Image     string                      `json:"image"`
	Frequency *classifier.FrequencyResult `json:"frequency,omitempty"`
	Anomaly   *classifier.AnomalyResult   `json:"anomaly,omitempty"`
}

func newPredictCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "predict <image>",
		Short: "Score a local image with the trained classifiers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			img, err := frames.DecodeFile(path)
			if err != nil {
				return fmt.Errorf("load image: %w", err)
			}

			result := prediction{Image: path}
			var loadErrs []error
			if m, err := classifier.LoadFrequencyModel(cfg.FrequencyModelPath()); err == nil {
				res, err := m.ClassifyImage(img)
				if err != nil {
					return fmt.Errorf("frequency classifier: %w", err)
				}
				result.Frequency = &res
			} else {
				loadErrs = append(loadErrs, err)
			}
			if m, err := classifier.LoadAnomalyModel(cfg.AnomalyModelPath()); err == nil {
				res := m.Score(img)
				result.Anomaly = &res
			} else {
				loadErrs = append(loadErrs, err)
			}
			if result.Frequency == nil && result.Anomaly == nil {
				return fmt.Errorf("no trained model available (run `deepcheck train fft` or `deepcheck train pca`): %w", errors.Join(loadErrs...))
			}

			if asJSON {
				return writeJSON(cmd, result)
			}
			w := cmd.OutOrStdout()
			if result.Frequency != nil {
				fmt.Fprintf(w, "Frequency: %s (P(fake): %.3f)\n", result.Frequency.Decision, result.Frequency.ProbabilityFake)
			}
			if result.Anomaly != nil {
				fmt.Fprintln(w, classifier.FormatPrediction(*result.Anomaly))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}
