package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/lgggrade/internal/grade"
	"github.com/MeKo-Tech/lgggrade/internal/imagebuf"
	"github.com/MeKo-Tech/lgggrade/internal/mbtiles"
	"github.com/MeKo-Tech/lgggrade/internal/worker"
)

var tilesCmd = &cobra.Command{
	Use:   "tiles",
	Short: "Grade every tile of an MBTiles tileset",
	Long: `Read a raster MBTiles tileset, grade every tile with the configured look and
write the result to a new tileset. Source metadata is copied and the applied look
is stored as JSON under the "lgg" metadata key.`,
	RunE: runTiles,
}

func init() {
	rootCmd.AddCommand(tilesCmd)

	tilesCmd.Flags().StringP("input", "i", "", "Source MBTiles file (required)")
	tilesCmd.Flags().StringP("output", "o", "", "Destination MBTiles file (required)")
	tilesCmd.Flags().String("format", "", "Tile format to write (png, jpg); default keeps the source format, webp becomes png")
	tilesCmd.Flags().String("name", "", "Tileset name (default: source name)")
	tilesCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	tilesCmd.Flags().Bool("progress", true, "Show progress bar")
	tilesCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some tiles fail")
	tilesCmd.Flags().Bool("force", false, "Overwrite an existing output file")
	tilesCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")
	tilesCmd.Flags().Int("jpeg-quality", 90, "JPEG quality (1-100)")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"tiles.input", "input"},
		{"tiles.output", "output"},
		{"tiles.format", "format"},
		{"tiles.name", "name"},
		{"tiles.workers", "workers"},
		{"tiles.progress", "progress"},
		{"tiles.allow_failures", "allow-failures"},
		{"tiles.force", "force"},
		{"tiles.png_compression", "png-compression"},
		{"tiles.jpeg_quality", "jpeg-quality"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, tilesCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runTiles(cmd *cobra.Command, args []string) error {
	input := viper.GetString("tiles.input")
	output := viper.GetString("tiles.output")
	format := viper.GetString("tiles.format")
	name := viper.GetString("tiles.name")
	workers := viper.GetInt("tiles.workers")
	showProgress := viper.GetBool("tiles.progress")
	allowFailures := viper.GetBool("tiles.allow_failures")
	force := viper.GetBool("tiles.force")
	enc := imagebuf.EncodeOptions{
		PNGCompression: viper.GetString("tiles.png_compression"),
		JPEGQuality:    viper.GetInt("tiles.jpeg_quality"),
	}

	if logger == nil {
		initLogging()
	}

	if input == "" || output == "" {
		return errors.New("--input and --output are required")
	}
	if same, err := samePath(input, output); err != nil {
		return err
	} else if same {
		return errors.New("--output must differ from --input")
	}
	if _, err := os.Stat(output); err == nil {
		if !force {
			return fmt.Errorf("output %s already exists (use --force to overwrite)", output)
		}
		if err := os.Remove(output); err != nil {
			return fmt.Errorf("failed to remove existing output: %w", err)
		}
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	look, err := lookFromConfig()
	if err != nil {
		return err
	}

	src, err := mbtiles.OpenReader(input)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", input, err)
	}
	defer src.Close()

	srcMeta, err := src.Metadata()
	if err != nil {
		return err
	}

	outFormat := tileOutputFormat(format, srcMeta.Format)
	if _, err := imagebuf.FormatForPath("x." + outFormat); err != nil {
		return fmt.Errorf("invalid --format: %w", err)
	}

	meta, err := grade.TilesetMetadata(srcMeta, look, outFormat)
	if err != nil {
		return err
	}
	if name != "" {
		meta.Name = name
	}

	tasks, err := grade.TileTasks(src)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return fmt.Errorf("no tiles found in %s", input)
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	dst, err := mbtiles.Create(output, meta, mbtiles.WriterOptions{})
	if err != nil {
		return fmt.Errorf("failed to create MBTiles writer: %w", err)
	}
	defer dst.Close()

	logger.Info("Grading tileset",
		"input", input,
		"output", output,
		"tiles", len(tasks),
		"format", outFormat,
		"workers", workers,
	)

	ctx, stop := signalContext()
	defer stop()

	progress := worker.NewProgress(len(tasks), "tiles", showProgress)
	pool := worker.New(worker.Config{
		Workers:    workers,
		Processor:  grade.NewTileProcessor(src, dst, look, outFormat, enc, logger),
		OnProgress: progress.Callback(),
	})

	results := pool.Run(ctx, tasks)
	progress.Done()

	failed := worker.Failed(results)
	for _, r := range failed {
		logger.Error("Tile grading failed", "tile", r.Task.Key, "error", r.Err)
	}
	logger.Info(progress.Summary())

	if err := dst.Flush(); err != nil {
		return fmt.Errorf("failed to flush tiles: %w", err)
	}

	if len(failed) > 0 {
		if !allowFailures {
			return fmt.Errorf("%d of %d tiles failed to grade", len(failed), len(tasks))
		}
		logger.Warn("Some tiles failed to grade, continuing due to --allow-failures", "failed_count", len(failed))
	}

	logger.Info("Tileset graded", "output", output)
	return nil
}

// tileOutputFormat picks the encoder for graded tiles: the --format flag, or
// the source tileset's format when it can be encoded, or png.
func tileOutputFormat(flag, sourceMeta string) string {
	if flag != "" {
		return grade.EncoderFormat(flag)
	}
	return grade.TileFormat(grade.EncoderFormat(sourceMeta))
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}
