package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"deepcheck/internal/fingerprint"
	"deepcheck/internal/pipeline"
	"deepcheck/internal/verdict"
)

var errAnalysisFailed = errors.New("analysis failed")

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var asImage bool
	var asText bool
	var compact bool

	cmd := &cobra.Command{
		Use:   "analyze <url|text>",
		Short: "Analyze a video URL, an image URL (--image) or a claim (--text)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if asImage && asText {
				return errors.New("--image and --text are mutually exclusive")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			req := pipeline.Request{Kind: fingerprint.KindVideo, Input: strings.TrimSpace(args[0])}
			switch {
			case asImage:
				req.Kind = fingerprint.KindImage
			case asText:
				req.Kind = fingerprint.KindText
				req.Input = strings.Join(args, " ")
			}
			if req.Kind != fingerprint.KindText && len(args) > 1 {
				return errors.New("expected exactly one URL")
			}

			runCtx := commandCtx(cmd)
			rt, err := newRuntime(runCtx, cfg, logger, ctx.overrides)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.pipeline.Analyze(runCtx, req)
			if err != nil {
				return err
			}
			if err := writeRawJSON(cmd, res.Record, compact); err != nil {
				return err
			}
			if res.Verdict == verdict.Error {
				return errAnalysisFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asImage, "image", false, "Treat the argument as an image URL")
	cmd.Flags().BoolVar(&asText, "text", false, "Treat the arguments as text to fact-check")
	cmd.Flags().BoolVar(&compact, "compact", false, "Print the record on one line")
	return cmd
}
