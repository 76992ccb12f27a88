package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/platewarp/internal/ocr"
	"github.com/MeKo-Tech/platewarp/internal/pipeline"
	"github.com/MeKo-Tech/platewarp/internal/utils"
)

const (
	outputFormatJSON = "json"
	outputFormatText = "text"
)

// imageCmd represents the image command.
var imageCmd = &cobra.Command{
	Use:   "image <file>",
	Short: "Rectify and read a license plate from an image",
	Long: `Rectify a license plate quad to a fronto-parallel view and recognize
its text.

Corner points are given as a JSON array of four [x,y] pairs via --points.
Without --points the plate detector locates the quad.

Supported formats: JPEG, PNG, BMP

Examples:
  platewarp image car.jpg
  platewarp image car.jpg --points '[[120,80],[460,95],[450,210],[110,190]]'
  platewarp image car.jpg --width-scale 2 --threshold 120 --format json
  platewarp image car.jpg --save-rectified plate.png --save-enhanced plate-bw.png`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if !utils.IsSupportedImage(path) {
			return fmt.Errorf("unsupported image file: %s", path)
		}

		img, err := utils.LoadImage(path)
		if err != nil {
			return fmt.Errorf("failed to load image: %w", err)
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
		pl, err := pipeline.NewBuilder().WithConfig(cfg.ToPipelineConfig()).Build()
		if err != nil {
			return fmt.Errorf("failed to build pipeline: %w", err)
		}
		defer func() { _ = pl.Close() }()

		pts, err := cornerPoints(cmd, pl, img)
		if err != nil {
			return err
		}
		if pts == nil {
			return errors.New("no plate detected; pass --points to process a known quad")
		}

		res, err := pl.ProcessPlate(context.Background(), img, pts, opts)
		if err != nil {
			return fmt.Errorf("plate processing failed: %w", err)
		}

		if out, _ := cmd.Flags().GetString("save-rectified"); out != "" {
			if err := imaging.Save(res.Rectified, out); err != nil {
				return fmt.Errorf("failed to save rectified view: %w", err)
			}
		}
		if out, _ := cmd.Flags().GetString("save-enhanced"); out != "" {
			if err := imaging.Save(res.Enhanced, out); err != nil {
				return fmt.Errorf("failed to save enhanced view: %w", err)
			}
		}

		return writeImageResult(cmd, res, format)
	},
}

// cornerPoints resolves the plate quad from --points or the detector. A nil
// result with nil error means the detector found no plate.
func cornerPoints(cmd *cobra.Command, pl *pipeline.Pipeline, img image.Image) ([]utils.Point, error) {
	raw, _ := cmd.Flags().GetString("points")
	if raw != "" {
		return parsePointsFlag(raw)
	}
	pts, err := pl.Detector().Detect(img)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}
	return pts, nil
}

// imageResultJSON is the JSON output shape of the image command.
type imageResultJSON struct {
	Text       string          `json:"text"`
	Candidates []ocr.Candidate `json:"candidates,omitempty"`
	Processing struct {
		RectifyMs   int64 `json:"rectify_ms"`
		RecognizeMs int64 `json:"recognize_ms"`
		EnhanceMs   int64 `json:"enhance_ms"`
		TotalMs     int64 `json:"total_ms"`
	} `json:"processing"`
}

func writeImageResult(cmd *cobra.Command, res *pipeline.PlateResult, format string) error {
	var output string
	switch format {
	case outputFormatJSON:
		payload := imageResultJSON{Text: res.Text, Candidates: res.Candidates}
		payload.Processing.RectifyMs = res.Processing.RectifyNs / 1e6
		payload.Processing.RecognizeMs = res.Processing.RecognizeNs / 1e6
		payload.Processing.EnhanceMs = res.Processing.EnhanceNs / 1e6
		payload.Processing.TotalMs = res.Processing.TotalNs / 1e6
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		output = string(data) + "\n"
	default:
		output = res.Text + "\n"
	}

	if outFile, _ := cmd.Flags().GetString("output"); outFile != "" {
		return os.WriteFile(outFile, []byte(output), 0o600)
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), output)
	return err
}

func init() {
	rootCmd.AddCommand(imageCmd)

	imageCmd.Flags().String("points", "", "plate corner points as JSON [[x,y],...] (default: run detector)")
	imageCmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json)")
	imageCmd.Flags().StringP("output", "o", "", "write output to file instead of stdout")
	imageCmd.Flags().String("save-rectified", "", "save the rectified plate view to this path")
	imageCmd.Flags().String("save-enhanced", "", "save the binarized plate view to this path")
	addPlateOptionFlags(imageCmd)
}

func addPlateOptionFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("width-scale", 1.0, "horizontal upscale factor for the rectified view")
	cmd.Flags().Float64("aspect-ratio", 0, "force width/height ratio (0 = derive from quad)")
	cmd.Flags().Float64("rotation", 0, "rotate the rectified view by this many degrees")
	cmd.Flags().Int("threshold", -1, "binarization threshold 0-255 (-1 = adaptive)")
	cmd.Flags().String("morph-op", "none", "morphological cleanup (none, dilation, erosion)")
	cmd.Flags().Int("kernel-size", 1, "morphological kernel size")
}

func plateOptionsFromFlags(cmd *cobra.Command) (pipeline.PlateOptions, error) {
	opts := pipeline.DefaultPlateOptions()
	opts.WidthScale, _ = cmd.Flags().GetFloat64("width-scale")
	opts.AspectRatio, _ = cmd.Flags().GetFloat64("aspect-ratio")
	opts.RotationDegrees, _ = cmd.Flags().GetFloat64("rotation")
	opts.Threshold, _ = cmd.Flags().GetInt("threshold")
	opts.MorphOp, _ = cmd.Flags().GetString("morph-op")
	opts.KernelSize, _ = cmd.Flags().GetInt("kernel-size")

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func parsePointsFlag(raw string) ([]utils.Point, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(raw), &coords); err != nil {
		return nil, fmt.Errorf("invalid --points value: %w", err)
	}
	pts, err := utils.PointsFromFloats(coords)
	if err != nil {
		return nil, fmt.Errorf("invalid --points value: %w", err)
	}
	return pts, nil
}
