package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/lgggrade/internal/chart"
	"github.com/MeKo-Tech/lgggrade/internal/imagebuf"
	"github.com/MeKo-Tech/lgggrade/internal/lgg"
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render a test chart for previewing a look",
	Long: `Render a deterministic test chart: a gray ramp, a hue/saturation sweep and a
Perlin noise patch. With --graded, the chart is also written with the configured
look applied.`,
	RunE: runChart,
}

func init() {
	rootCmd.AddCommand(chartCmd)

	chartCmd.Flags().StringP("out", "o", "chart.png", "Output file")
	chartCmd.Flags().Int("size", 512, "Chart size in pixels (square)")
	chartCmd.Flags().Int64("seed", 1337, "Deterministic seed for the noise patch")
	chartCmd.Flags().Float32("blur", 1.5, "Gaussian blur sigma of the noise patch")
	chartCmd.Flags().Bool("graded", false, "Also write the chart with the look applied")
	chartCmd.Flags().Bool("compare", false, "With --graded, also write a before/after comparison")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"chart.out", "out"},
		{"chart.size", "size"},
		{"chart.seed", "seed"},
		{"chart.blur", "blur"},
		{"chart.graded", "graded"},
		{"chart.compare", "compare"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, chartCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runChart(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	out := viper.GetString("chart.out")
	size := viper.GetInt("chart.size")
	seed := viper.GetInt64("chart.seed")
	blur := float32(viper.GetFloat64("chart.blur"))
	graded := viper.GetBool("chart.graded")
	compare := viper.GetBool("chart.compare")

	img, err := chart.Render(chart.Options{Size: size, Seed: seed, Blur: blur})
	if err != nil {
		return err
	}
	if err := imagebuf.SaveImage(out, img, imagebuf.EncodeOptions{}); err != nil {
		return err
	}
	logger.Info("Chart written", "path", out, "size", size, "seed", seed)

	if !graded {
		return nil
	}

	look, err := lookFromConfig()
	if err != nil {
		return err
	}
	gradedImg := lgg.GradeImage(img, look)
	gradedPath := suffixPath(out, "_graded")
	if err := imagebuf.SaveImage(gradedPath, gradedImg, imagebuf.EncodeOptions{}); err != nil {
		return err
	}
	logger.Info("Graded chart written", "path", gradedPath)

	if compare {
		comparePath := suffixPath(out, "_compare")
		if err := imagebuf.SaveImage(comparePath, chart.Compare(img, gradedImg, max(size/64, 2)), imagebuf.EncodeOptions{}); err != nil {
			return err
		}
		logger.Info("Comparison written", "path", comparePath)
	}
	return nil
}

// suffixPath inserts suffix before the extension.
func suffixPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}
