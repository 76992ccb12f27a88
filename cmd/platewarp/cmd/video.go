package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/platewarp/internal/pipeline"
	"github.com/MeKo-Tech/platewarp/internal/video"
)

// videoCmd represents the video command.
var videoCmd = &cobra.Command{
	Use:   "video <file>",
	Short: "Sweep a video and majority-vote the plate text",
	Long: `Sample frames from a video, read the plate in each and report the
majority text.

Frames are spaced evenly across the requested time window. Frames whose
read is too short to be a plate are ignored; the most frequent remaining
read wins, with its vote share reported as confidence.

Examples:
  platewarp video clip.mp4
  platewarp video clip.mp4 --frames 20 --start 2 --end 8
  platewarp video clip.mp4 --format json --show-progress`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("cannot access video file: %w", err)
		}

		opts, err := plateOptionsFromFlags(cmd)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format != outputFormatText && format != outputFormatJSON {
			return fmt.Errorf("invalid output format: %s", format)
		}

		cfg := GetConfig()

		numFrames, _ := cmd.Flags().GetInt("frames")
		if !cmd.Flags().Changed("frames") && cfg.Video.NumFrames > 0 {
			numFrames = cfg.Video.NumFrames
		}
		startTime, _ := cmd.Flags().GetFloat64("start")
		endTime, _ := cmd.Flags().GetFloat64("end")

		// Video frames default to double width; small crops need the
		// extra resolution before recognition.
		if !cmd.Flags().Changed("width-scale") {
			opts.WidthScale = cfg.Video.WidthScale
		}

		pl, err := pipeline.NewBuilder().WithConfig(cfg.ToPipelineConfig()).Build()
		if err != nil {
			return fmt.Errorf("failed to build pipeline: %w", err)
		}
		defer func() { _ = pl.Close() }()

		src, err := video.OpenCapture(path)
		if err != nil {
			return err
		}
		defer func() { _ = src.Close() }()

		options := []video.AggregatorOption{video.WithPlateOptions(opts)}
		if show, _ := cmd.Flags().GetBool("show-progress"); show {
			options = append(options, video.WithProgress(func(p video.Progress) {
				fmt.Fprintf(cmd.ErrOrStderr(), "frame %d: %q (%d accepted)\n",
					p.FrameIndex, p.Text, p.Accepted)
			}))
		}

		agg := video.NewAggregator(pl.Detector(), pl, options...)
		result, err := agg.ProcessVideo(context.Background(), src, numFrames, startTime, endTime)
		if err != nil {
			return fmt.Errorf("video processing failed: %w", err)
		}

		return writeVideoResult(cmd, result, format)
	},
}

func writeVideoResult(cmd *cobra.Command, result *video.Result, format string) error {
	var output string
	if format == outputFormatJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		output = string(data) + "\n"
	} else {
		output = fmt.Sprintf("%s (%s, %d frames)\n",
			result.FinalText, result.Confidence, result.FramesProcessed)
	}

	if outFile, _ := cmd.Flags().GetString("output"); outFile != "" {
		return os.WriteFile(outFile, []byte(output), 0o600)
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), output)
	return err
}

func init() {
	rootCmd.AddCommand(videoCmd)

	videoCmd.Flags().IntP("frames", "n", 10, "number of frames to sample")
	videoCmd.Flags().Float64("start", 0, "start of the time window in seconds")
	videoCmd.Flags().Float64("end", -1, "end of the time window in seconds (-1 = end of video)")
	videoCmd.Flags().Bool("show-progress", false, "print per-frame progress to stderr")
	videoCmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json)")
	videoCmd.Flags().StringP("output", "o", "", "write output to file instead of stdout")
	addPlateOptionFlags(videoCmd)
}
