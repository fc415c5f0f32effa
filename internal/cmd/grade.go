package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/lgggrade/internal/grade"
	"github.com/MeKo-Tech/lgggrade/internal/imagebuf"
	"github.com/MeKo-Tech/lgggrade/internal/worker"
)

var gradeCmd = &cobra.Command{
	Use:   "grade [files or directories...]",
	Short: "Grade image files",
	Long: `Grade image files with the configured look.

Directories are searched recursively for png, jpeg, tiff, bmp and webp files.
Graded images are written to --out-dir together with a snapshot.json record of
the look that was applied.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGrade,
}

func init() {
	rootCmd.AddCommand(gradeCmd)

	gradeCmd.Flags().StringP("out-dir", "o", "./graded", "Output directory")
	gradeCmd.Flags().String("ext", "", "Output extension (png, jpg, tiff, bmp); default keeps the input's")
	gradeCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	gradeCmd.Flags().Bool("progress", true, "Show progress bar")
	gradeCmd.Flags().Bool("batch", false, "Grade all inputs as one batch (inputs must share dimensions)")
	gradeCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some files fail")
	gradeCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")
	gradeCmd.Flags().Int("jpeg-quality", 90, "JPEG quality (1-100)")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"files.out_dir", "out-dir"},
		{"files.ext", "ext"},
		{"files.workers", "workers"},
		{"files.progress", "progress"},
		{"files.batch", "batch"},
		{"files.allow_failures", "allow-failures"},
		{"files.png_compression", "png-compression"},
		{"files.jpeg_quality", "jpeg-quality"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, gradeCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runGrade(cmd *cobra.Command, args []string) error {
	outDir := viper.GetString("files.out_dir")
	ext := viper.GetString("files.ext")
	workers := viper.GetInt("files.workers")
	showProgress := viper.GetBool("files.progress")
	batch := viper.GetBool("files.batch")
	allowFailures := viper.GetBool("files.allow_failures")
	enc := imagebuf.EncodeOptions{
		PNGCompression: viper.GetString("files.png_compression"),
		JPEGQuality:    viper.GetInt("files.jpeg_quality"),
	}

	if logger == nil {
		initLogging()
	}

	if ext != "" {
		if _, err := imagebuf.FormatForPath("x." + strings.TrimPrefix(ext, ".")); err != nil {
			return fmt.Errorf("invalid --ext: %w", err)
		}
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	look, err := lookFromConfig()
	if err != nil {
		return err
	}

	inputs, err := collectInputs(args)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no image files found in %s", strings.Join(args, ", "))
	}

	tasks := grade.FileTasks(inputs, outDir, ext)
	if err := checkOverwrites(tasks); err != nil {
		return err
	}

	logger.Info("Grading files",
		"files", len(tasks),
		"out_dir", outDir,
		"workers", workers,
		"batch", batch,
		"lift", look.Lift,
		"gamma", look.Gamma,
		"gain", look.Gain,
	)

	ctx, stop := signalContext()
	defer stop()

	if batch {
		written, err := grade.Batch(ctx, tasks, look, enc, logger)
		if err != nil {
			return fmt.Errorf("batch grading failed after %d files: %w", len(written), err)
		}
		logger.Info("Batch graded", "files", len(written))
	} else {
		progress := worker.NewProgress(len(tasks), "files", showProgress)
		pool := worker.New(worker.Config{
			Workers:    workers,
			Processor:  grade.NewFileProcessor(look, enc, logger),
			OnProgress: progress.Callback(),
		})

		results := pool.Run(ctx, tasks)
		progress.Done()

		failed := worker.Failed(results)
		for _, r := range failed {
			logger.Error("Grading failed", "file", r.Task.Src, "error", r.Err)
		}
		logger.Info(progress.Summary())

		if len(failed) > 0 {
			if !allowFailures {
				return fmt.Errorf("%d of %d files failed to grade", len(failed), len(tasks))
			}
			logger.Warn("Some files failed to grade, continuing due to --allow-failures", "failed_count", len(failed))
		}
	}

	path, err := grade.WriteSnapshot(outDir, look)
	if err != nil {
		return err
	}
	logger.Info("Snapshot written", "path", path)
	return nil
}

var inputExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true,
	".tif": true, ".tiff": true, ".bmp": true, ".webp": true,
}

// collectInputs expands directories into the image files they contain.
// Explicit file arguments are kept regardless of extension.
func collectInputs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && inputExts[strings.ToLower(filepath.Ext(path))] {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", arg, err)
		}
	}
	return files, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// checkOverwrites refuses tasks that would write over their own input or
// share an output path with another task.
func checkOverwrites(tasks []worker.Task) error {
	seen := make(map[string]string, len(tasks))
	for _, t := range tasks {
		src, err := filepath.Abs(t.Src)
		if err != nil {
			return err
		}
		dst, err := filepath.Abs(t.Dst)
		if err != nil {
			return err
		}
		if src == dst {
			return fmt.Errorf("output %s would overwrite its input; choose another --out-dir or --ext", t.Dst)
		}
		if prev, ok := seen[dst]; ok {
			return fmt.Errorf("inputs %s and %s would both be written to %s", prev, t.Src, t.Dst)
		}
		seen[dst] = t.Src
	}
	return nil
}
