package grade

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/lgggrade/internal/imagebuf"
	"github.com/MeKo-Tech/lgggrade/internal/lgg"
	"github.com/MeKo-Tech/lgggrade/internal/mbtiles"
	"github.com/MeKo-Tech/lgggrade/internal/worker"
)

func gray(w, h int, v, a uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: a})
		}
	}
	return img
}

func redGain() lgg.Snapshot {
	s := lgg.DefaultSnapshot()
	s.Gain = lgg.ColorWheelParams{Hue: 0, Sat: 1, Strength: 0.5}
	return s
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	require.NoError(t, imagebuf.SaveImage(path, img, imagebuf.EncodeOptions{}))
}

func assertRedGained(t *testing.T, img image.Image, alpha uint8) {
	t.Helper()
	c := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
	// 128/255 scaled by gain (1.5, 0.75, 0.75)
	assert.InDelta(t, 192, int(c.R), 1)
	assert.InDelta(t, 96, int(c.G), 1)
	assert.InDelta(t, 96, int(c.B), 1)
	assert.Equal(t, alpha, c.A)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "a.png"), OutputPath("in/a.png", "out", ""))
	assert.Equal(t, filepath.Join("out", "a.tiff"), OutputPath("in/a.png", "out", "tiff"))
	assert.Equal(t, filepath.Join("out", "a.jpg"), OutputPath("in/a.png", "out", ".jpg"))
	assert.Equal(t, filepath.Join("out", "b.png"), OutputPath("b.webp", "out", ""))
}

func TestFileProcessor(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in", "frame.png")
	writePNG(t, src, gray(3, 2, 128, 200))

	tasks := FileTasks([]string{src}, filepath.Join(dir, "out"), "")
	require.Len(t, tasks, 1)

	dst, err := NewFileProcessor(redGain(), imagebuf.EncodeOptions{}, nil).Process(context.Background(), tasks[0])
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "frame.png"), dst)

	got, _, err := imagebuf.Decode(dst)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), got.Bounds())
	assertRedGained(t, got, 200)
}

func TestFileProcessorMissingInput(t *testing.T) {
	dir := t.TempDir()
	tasks := FileTasks([]string{filepath.Join(dir, "nope.png")}, dir, "")
	_, err := NewFileProcessor(lgg.DefaultSnapshot(), imagebuf.EncodeOptions{}, nil).Process(context.Background(), tasks[0])
	assert.Error(t, err)
}

func TestFileProcessorInPool(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		p := filepath.Join(dir, name)
		writePNG(t, p, gray(2, 2, 128, 255))
		paths = append(paths, p)
	}

	pool := worker.New(worker.Config{
		Workers:   2,
		Processor: NewFileProcessor(redGain(), imagebuf.EncodeOptions{}, nil),
	})
	results := pool.Run(context.Background(), FileTasks(paths, filepath.Join(dir, "out"), "bmp"))
	require.Empty(t, worker.Failed(results))

	for _, r := range results {
		img, format, err := imagebuf.Decode(r.Dst)
		require.NoError(t, err)
		assert.Equal(t, "bmp", format)
		assertRedGained(t, img, 255)
	}
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writePNG(t, a, gray(2, 2, 128, 255))
	writePNG(t, b, gray(2, 2, 128, 100))

	written, err := Batch(context.Background(), FileTasks([]string{a, b}, filepath.Join(dir, "out"), ""), redGain(), imagebuf.EncodeOptions{}, nil)
	require.NoError(t, err)
	require.Len(t, written, 2)

	img, _, err := imagebuf.Decode(written[1])
	require.NoError(t, err)
	assertRedGained(t, img, 100)
}

func TestBatchRejectsMixedSizes(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writePNG(t, a, gray(2, 2, 128, 255))
	writePNG(t, b, gray(3, 2, 128, 255))

	_, err := Batch(context.Background(), FileTasks([]string{a, b}, dir, ""), redGain(), imagebuf.EncodeOptions{}, nil)
	assert.ErrorIs(t, err, imagebuf.ErrShape)
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := redGain()
	s.Lift.Luma = -0.25

	path, err := WriteSnapshot(dir, s)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, SnapshotFile), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var record map[string]map[string][]lgg.Snapshot
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, s, record["ui"]["lgg_values"][0])

	got, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestReadSnapshotBareAndPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "look.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"gamma": {"hue": 0.3, "sat": 0.5}}`), 0o644))

	got, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, 0.3, got.Gamma.Hue)
	assert.Equal(t, 1.0, got.Gamma.Strength)
	assert.Equal(t, lgg.DefaultParams(), got.Lift)

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))
	_, err = ReadSnapshot(path)
	assert.Error(t, err)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestTileProcessor(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src.mbtiles")
	dstPath := filepath.Join(dir, "dst.mbtiles")

	ids := []mbtiles.TileID{{Z: 1, X: 0, Y: 0}, {Z: 1, X: 1, Y: 0}, {Z: 1, X: 1, Y: 1}}
	// The first tile is stored plain, the rest gzip-compressed.
	gzipped := map[mbtiles.TileID]bool{ids[1]: true, ids[2]: true}
	w, err := mbtiles.Create(srcPath, mbtiles.Metadata{Name: "src", Format: "png", MaxZoom: 1}, mbtiles.WriterOptions{})
	require.NoError(t, err)
	for _, id := range ids {
		require.NoError(t, w.WriteTileAs(id, encodePNG(t, gray(4, 4, 128, 255)), gzipped[id]))
	}
	require.NoError(t, w.Close())

	src, err := mbtiles.OpenReader(srcPath)
	require.NoError(t, err)
	defer src.Close()

	srcMeta, err := src.Metadata()
	require.NoError(t, err)
	meta, err := TilesetMetadata(srcMeta, redGain(), "")
	require.NoError(t, err)

	dst, err := mbtiles.Create(dstPath, meta, mbtiles.WriterOptions{})
	require.NoError(t, err)

	tasks, err := TileTasks(src)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	pool := worker.New(worker.Config{
		Workers:   2,
		Processor: NewTileProcessor(src, dst, redGain(), "", imagebuf.EncodeOptions{PNGCompression: "speed"}, nil),
	})
	results := pool.Run(context.Background(), tasks)
	require.Empty(t, worker.Failed(results))
	require.NoError(t, dst.Close())

	out, err := mbtiles.OpenReader(dstPath)
	require.NoError(t, err)
	defer out.Close()

	outMeta, err := out.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "src", outMeta.Name)
	assert.Equal(t, "png", outMeta.Format)

	var recorded lgg.Snapshot
	require.NoError(t, json.Unmarshal([]byte(outMeta.Extra[mbtiles.KeyGrade]), &recorded))
	assert.Equal(t, redGain(), recorded)

	for _, id := range ids {
		tile, err := out.ReadTile(id)
		require.NoError(t, err)
		assert.Equal(t, gzipped[id], tile.Gzipped, id.String())
		img, format, err := imagebuf.DecodeBytes(tile.Data)
		require.NoError(t, err)
		assert.Equal(t, "png", format)
		assertRedGained(t, img, 255)
	}
}

func TestTileProcessorBadKey(t *testing.T) {
	p := NewTileProcessor(nil, nil, lgg.DefaultSnapshot(), "", imagebuf.EncodeOptions{}, nil)
	_, err := p.Process(context.Background(), worker.Task{Key: "not-a-tile"})
	assert.Error(t, err)
}

func TestFormats(t *testing.T) {
	assert.Equal(t, "png", TileFormat("webp"))
	assert.Equal(t, "jpeg", TileFormat("jpeg"))
	assert.Equal(t, "jpg", MetadataFormat("jpeg"))
	assert.Equal(t, "jpeg", EncoderFormat("jpg"))
	assert.Equal(t, "png", EncoderFormat("png"))
}
