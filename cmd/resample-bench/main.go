package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"media-resampler/codec"
	"media-resampler/reference"
	"media-resampler/resample"
)

type benchFlags struct {
	input          string
	width          int
	height         int
	scale          float64
	iterations     int
	workers        int
	methods        []string
	referenceCubic bool
	outDir         string
	verbose        bool
}

var flags benchFlags

var rootCmd = &cobra.Command{
	Use:   "resample-bench",
	Short: "compare the resampler against library resizers",
	Long: `Resize an image with every interpolation method, time the custom
resampler against nfnt/resize and x/image/draw, and report how many channel
samples agree within each tolerance.

Without --width and --height the image is scaled by --scale.`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(flags.verbose)
		defer func() { _ = logger.Sync() }()
		return runBench(logger, cmd, flags)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&flags.input, "input", "i", "", "source image file")
	rootCmd.Flags().IntVar(&flags.width, "width", 0, "target width, 0 keeps the aspect ratio")
	rootCmd.Flags().IntVar(&flags.height, "height", 0, "target height, 0 keeps the aspect ratio")
	rootCmd.Flags().Float64Var(&flags.scale, "scale", 0.5, "uniform scale factor when no width or height is given")
	rootCmd.Flags().IntVarP(&flags.iterations, "iterations", "n", 100, "resizes per engine and method")
	rootCmd.Flags().IntVar(&flags.workers, "workers", 0, "row bands resampled concurrently")
	rootCmd.Flags().StringSliceVarP(&flags.methods, "method", "m", []string{"nearest", "bilinear", "cubic"}, "interpolation methods to run")
	rootCmd.Flags().BoolVar(&flags.referenceCubic, "reference-cubic", false, "duplicate the third cubic tap like the reference resampler")
	rootCmd.Flags().StringVarP(&flags.outDir, "out-dir", "o", "", "write the custom outputs as PNG into this directory")
	rootCmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")
	_ = rootCmd.MarkFlagRequired("input")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func loadImage(path string) (*resample.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := codec.DecodeBytes(data, http.DetectContentType(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func targetSize(src resample.Size, f benchFlags) (resample.Size, error) {
	if f.width > 0 || f.height > 0 {
		return resample.FitSize(src, f.width, f.height), nil
	}
	if f.scale <= 0 {
		return resample.Size{}, fmt.Errorf("scale %v: %w", f.scale, resample.ErrInvalidArgument)
	}
	return resample.ScaledSize(src, f.scale), nil
}

func runBench(logger *zap.Logger, cmd *cobra.Command, f benchFlags) error {
	src, err := loadImage(f.input)
	if err != nil {
		return err
	}

	size, err := targetSize(src.Size(), f)
	if err != nil {
		return err
	}

	var opts []resample.Option
	if f.workers > 1 {
		opts = append(opts, resample.WithWorkers(f.workers))
	}
	if f.referenceCubic {
		opts = append(opts, resample.WithReferenceCubicTaps())
	}

	if f.outDir != "" {
		if err := os.MkdirAll(f.outDir, 0o755); err != nil {
			return err
		}
	}

	logger.Info("benchmark starting",
		zap.String("input", f.input),
		zap.Int("src_width", src.W), zap.Int("src_height", src.H),
		zap.Int("dst_width", size.Width), zap.Int("dst_height", size.Height),
		zap.Int("iterations", f.iterations))

	out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(out, "method\tengine\tper resize\tconsistency")

	for _, name := range f.methods {
		method, err := resample.ParseMethod(name)
		if err != nil {
			return err
		}

		report, err := reference.Compare(src, size, method, nil, f.iterations, reference.Oracles(), opts...)
		if err != nil {
			return fmt.Errorf("%s: %w", method, err)
		}

		fmt.Fprintf(out, "%s\tcustom\t%s\t\n", report.Method, perIteration(report.CustomDuration, report.Iterations))
		for _, oracle := range report.Oracles {
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", report.Method, oracle.Name, perIteration(oracle.Duration, report.Iterations), formatScores(oracle.Consistency))
		}

		if f.outDir != "" {
			if err := writeOutput(f, src, size, method, opts); err != nil {
				return err
			}
		}

		logger.Debug("method finished", zap.String("method", report.Method), zap.Duration("custom", report.CustomDuration))
	}

	return out.Flush()
}

func perIteration(total time.Duration, iterations int) time.Duration {
	if iterations < 1 {
		return total
	}
	return total / time.Duration(iterations)
}

func formatScores(scores []reference.ToleranceScore) string {
	parts := make([]string, 0, len(scores))
	for _, s := range scores {
		parts = append(parts, fmt.Sprintf("±%d: %.2f%%", s.Tolerance, s.Percent))
	}
	return strings.Join(parts, "  ")
}

func writeOutput(f benchFlags, src *resample.Image, size resample.Size, method resample.Method, opts []resample.Option) error {
	dst, err := resample.Resize(src, size, method, opts...)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(f.input), filepath.Ext(f.input))
	path := filepath.Join(f.outDir, fmt.Sprintf("%s_%s_%dx%d.png", base, method, size.Width, size.Height))

	file, err := os.Create(path)
	if err != nil {
		return err
	}

	return writePNG(file, dst)
}

// writePNG encodes img to w and closes it. A failed close is reported since
// buffered bytes may not have reached disk.
func writePNG(w io.WriteCloser, img *resample.Image) error {
	if err := codec.Encode(w, img, "image/png", 100); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
