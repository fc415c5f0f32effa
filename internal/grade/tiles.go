package grade

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"

	"github.com/MeKo-Tech/lgggrade/internal/imagebuf"
	"github.com/MeKo-Tech/lgggrade/internal/lgg"
	"github.com/MeKo-Tech/lgggrade/internal/mbtiles"
	"github.com/MeKo-Tech/lgggrade/internal/worker"
)

// TileProcessor grades tiles read from an MBTiles source and writes them to
// a destination tileset. Task.Key is the tile id ("z/x/y"). Each tile is
// stored gzip-compressed exactly when its source blob was.
type TileProcessor struct {
	src      *mbtiles.Reader
	dst      *mbtiles.Writer
	look     lgg.Snapshot
	format   string
	encoding imagebuf.EncodeOptions
	logger   *slog.Logger
}

// NewTileProcessor creates a processor writing tiles in format. An empty
// format keeps each tile's own format where it can be encoded and uses png
// otherwise.
func NewTileProcessor(src *mbtiles.Reader, dst *mbtiles.Writer, s lgg.Snapshot, format string, enc imagebuf.EncodeOptions, logger *slog.Logger) *TileProcessor {
	return &TileProcessor{
		src:      src,
		dst:      dst,
		look:     s,
		format:   format,
		encoding: enc,
		logger:   logger,
	}
}

var _ worker.Processor = (*TileProcessor)(nil)

// Process implements worker.Processor.
func (p *TileProcessor) Process(ctx context.Context, task worker.Task) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id, err := mbtiles.ParseTileID(task.Key)
	if err != nil {
		return "", err
	}

	tile, err := p.src.ReadTile(id)
	if err != nil {
		return "", err
	}

	img, format, err := imagebuf.DecodeBytes(tile.Data)
	if err != nil {
		return "", fmt.Errorf("tile %s: %w", id, err)
	}

	graded := lgg.GradeImage(img, p.look)

	var buf bytes.Buffer
	if err := imagebuf.Encode(&buf, graded, p.outputFormat(format), p.encoding); err != nil {
		return "", fmt.Errorf("failed to encode tile %s: %w", id, err)
	}
	if err := p.dst.WriteTileAs(id, buf.Bytes(), tile.Gzipped); err != nil {
		return "", err
	}

	p.log().Debug("graded tile", "tile", id.String(), "format", format, "gzip", tile.Gzipped, "bytes", buf.Len())
	return id.String(), nil
}

func (p *TileProcessor) outputFormat(src string) string {
	if p.format != "" {
		return p.format
	}
	return TileFormat(src)
}

func (p *TileProcessor) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}

// TileFormat maps a decoded tile format to the format graded tiles are
// written in.
func TileFormat(src string) string {
	switch src {
	case "png", "jpeg", "tiff", "bmp":
		return src
	}
	return "png"
}

// MetadataFormat is the MBTiles "format" value for an encoder format name.
func MetadataFormat(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}

// EncoderFormat is the inverse of MetadataFormat.
func EncoderFormat(meta string) string {
	if meta == "jpg" {
		return "jpeg"
	}
	return meta
}

// TileTasks lists every tile of src as a task.
func TileTasks(src *mbtiles.Reader) ([]worker.Task, error) {
	ids, err := src.Tiles()
	if err != nil {
		return nil, err
	}
	tasks := make([]worker.Task, len(ids))
	for i, id := range ids {
		tasks[i] = worker.Task{Key: id.String()}
	}
	return tasks, nil
}

// TilesetMetadata derives the destination metadata from the source: the
// grade is recorded under mbtiles.KeyGrade and the format follows the
// encoder actually used.
func TilesetMetadata(src mbtiles.Metadata, s lgg.Snapshot, format string) (mbtiles.Metadata, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return mbtiles.Metadata{}, fmt.Errorf("failed to encode grade: %w", err)
	}

	dst := src
	dst.Extra = maps.Clone(src.Extra)
	if dst.Extra == nil {
		dst.Extra = map[string]string{}
	}
	dst.Extra[mbtiles.KeyGrade] = string(data)
	if format != "" {
		dst.Format = MetadataFormat(format)
	}
	return dst, nil
}
