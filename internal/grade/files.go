// Package grade applies a lift/gamma/gain look to image files and MBTiles
// tilesets. Its processors plug into worker.Pool.
package grade

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/lgggrade/internal/imagebuf"
	"github.com/MeKo-Tech/lgggrade/internal/lgg"
	"github.com/MeKo-Tech/lgggrade/internal/node"
	"github.com/MeKo-Tech/lgggrade/internal/worker"
)

// SnapshotFile is the name of the audit record written next to graded files.
const SnapshotFile = "snapshot.json"

// FileProcessor grades one image file per task: Src is decoded, graded
// through the node and written to Dst. Alpha is carried over from the source.
type FileProcessor struct {
	node     *node.Node
	inputs   node.Inputs
	encoding imagebuf.EncodeOptions
	logger   *slog.Logger
}

// NewFileProcessor creates a processor applying s.
func NewFileProcessor(s lgg.Snapshot, enc imagebuf.EncodeOptions, logger *slog.Logger) *FileProcessor {
	return &FileProcessor{
		node:     node.New(logger),
		inputs:   node.InputsFromSnapshot(s),
		encoding: enc,
		logger:   logger,
	}
}

var _ worker.Processor = (*FileProcessor)(nil)

// Process implements worker.Processor.
func (p *FileProcessor) Process(ctx context.Context, task worker.Task) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, _, err := imagebuf.Decode(task.Src)
	if err != nil {
		return "", err
	}

	buf, err := imagebuf.FromImages(src)
	if err != nil {
		return "", fmt.Errorf("failed to convert %s: %w", task.Src, err)
	}

	in := p.inputs
	in.NodeID = task.Key
	out := p.node.Execute(buf, in)
	if out.Err != nil {
		return "", fmt.Errorf("failed to grade %s: %w", task.Src, out.Err)
	}

	frame, err := out.Image.FrameWithAlpha(0, src)
	if err != nil {
		return "", err
	}
	if err := imagebuf.SaveImage(task.Dst, frame, p.encoding); err != nil {
		return "", err
	}

	p.log().Debug("graded file", "src", task.Src, "dst", task.Dst)
	return task.Dst, nil
}

func (p *FileProcessor) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}

// FileTasks builds one task per input. Outputs go to outDir under the input's
// base name, with the extension replaced by ext when ext is non-empty.
// Inputs whose extension cannot be encoded fall back to png.
func FileTasks(paths []string, outDir, ext string) []worker.Task {
	tasks := make([]worker.Task, 0, len(paths))
	for _, p := range paths {
		tasks = append(tasks, worker.Task{
			Key: p,
			Src: p,
			Dst: OutputPath(p, outDir, ext),
		})
	}
	return tasks
}

// OutputPath returns the destination of src inside outDir.
func OutputPath(src, outDir, ext string) string {
	base := filepath.Base(src)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if ext == "" {
		ext = filepath.Ext(base)
		if _, err := imagebuf.FormatForPath(base); err != nil {
			ext = ".png"
		}
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(outDir, stem+ext)
}

// Batch grades all inputs as a single buffer and a single transform call.
// Every input must have the same dimensions.
func Batch(ctx context.Context, tasks []worker.Task, s lgg.Snapshot, enc imagebuf.EncodeOptions, logger *slog.Logger) ([]string, error) {
	paths := make([]string, len(tasks))
	for i, t := range tasks {
		paths[i] = t.Src
	}

	imgs, err := imagebuf.LoadFiles(ctx, paths, 0)
	if err != nil {
		return nil, err
	}
	buf, err := imagebuf.FromImages(imgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to build batch: %w", err)
	}

	out := node.New(logger).Execute(buf, node.InputsFromSnapshot(s))
	if out.Err != nil {
		return nil, fmt.Errorf("failed to grade batch: %w", out.Err)
	}

	written := make([]string, 0, len(tasks))
	for i, t := range tasks {
		frame, err := out.Image.FrameWithAlpha(i, imgs[i])
		if err != nil {
			return written, err
		}
		if err := imagebuf.SaveImage(t.Dst, frame, enc); err != nil {
			return written, err
		}
		written = append(written, t.Dst)
	}
	return written, nil
}

// WriteSnapshot records s in dir as the node's display payload.
func WriteSnapshot(dir string, s lgg.Snapshot) (string, error) {
	data, err := json.MarshalIndent(node.Output{UI: node.UI{LGGValues: []lgg.Snapshot{s}}}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(dir, SnapshotFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	return path, nil
}

// ReadSnapshot loads a look from a snapshot file. Both the bare snapshot and
// the {"ui":{"lgg_values":[...]}} record are accepted; the last value wins.
func ReadSnapshot(path string) (lgg.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return lgg.Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var record struct {
		UI struct {
			LGGValues []json.RawMessage `json:"lgg_values"`
		} `json:"ui"`
	}
	if err := json.Unmarshal(data, &record); err == nil && len(record.UI.LGGValues) > 0 {
		data = record.UI.LGGValues[len(record.UI.LGGValues)-1]
	}

	// Fields missing from the file keep their defaults.
	s := lgg.DefaultSnapshot()
	if err := json.Unmarshal(data, &s); err != nil {
		return lgg.Snapshot{}, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	return s, nil
}
