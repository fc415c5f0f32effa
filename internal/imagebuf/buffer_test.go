package imagebuf

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndOffsets(t *testing.T) {
	b, err := New[float32](Shape{Batch: 2, Height: 3, Width: 4, Channels: 3})
	require.NoError(t, err)
	assert.Len(t, b.Pix, 72)
	assert.Equal(t, "(2, 3, 4, 3)", b.Shape.String())

	b.Set(1, 2, 3, 2, 0.5)
	assert.Equal(t, 71, b.Offset(1, 2, 3, 2))
	assert.Equal(t, float32(0.5), b.At(1, 2, 3, 2))
	assert.Equal(t, float32(0.5), b.FramePix(1)[35])
}

func TestNewRejectsEmpty(t *testing.T) {
	_, err := New[float64](Shape{Batch: 0, Height: 1, Width: 1, Channels: 3})
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestFromSliceChecksLength(t *testing.T) {
	_, err := FromSlice(Shape{Batch: 1, Height: 1, Width: 2, Channels: 3}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrShape)

	b, err := FromSlice(Shape{Batch: 1, Height: 1, Width: 1, Channels: 3}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, b.Pix)
}

func TestCloneIsDeep(t *testing.T) {
	b, err := FromSlice(Shape{Batch: 1, Height: 1, Width: 1, Channels: 3}, []float32{0.1, 0.2, 0.3})
	require.NoError(t, err)

	c := b.Clone()
	c.Pix[0] = 0.9
	assert.Equal(t, float32(0.1), b.Pix[0])
	assert.Equal(t, b.Shape, c.Shape)
}

func testImage(w, h int, seed uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x*30) + seed, G: uint8(y*50) + seed, B: seed, A: 255})
		}
	}
	return img
}

func TestFromImagesRoundTrip(t *testing.T) {
	a := testImage(3, 2, 10)
	b := testImage(3, 2, 90)

	buf, err := FromImages(a, b)
	require.NoError(t, err)
	assert.Equal(t, Shape{Batch: 2, Height: 2, Width: 3, Channels: 3}, buf.Shape)
	assert.InDelta(t, 10.0/255, buf.At(0, 0, 0, 2), 1e-6)
	assert.InDelta(t, 90.0/255, buf.At(1, 0, 0, 2), 1e-6)

	frame, err := buf.Frame(1)
	require.NoError(t, err)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			got := color.NRGBAModel.Convert(frame.At(x, y)).(color.NRGBA)
			assert.Equal(t, b.NRGBAAt(x, y), got)
		}
	}
}

func TestFromImagesRejectsMixedSizes(t *testing.T) {
	_, err := FromImages(testImage(2, 2, 0), testImage(3, 2, 0))
	assert.ErrorIs(t, err, ErrShape)

	_, err = FromImages()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestFrameWithAlpha(t *testing.T) {
	src := testImage(2, 1, 0)
	src.SetNRGBA(1, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 128})

	buf, err := FromImages(src)
	require.NoError(t, err)

	frame, err := buf.FrameWithAlpha(0, src)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xffff), frame.NRGBA64At(0, 0).A)
	assert.Equal(t, uint16(128*0x101), frame.NRGBA64At(1, 0).A)

	_, err = buf.FrameWithAlpha(0, testImage(5, 5, 0))
	assert.ErrorIs(t, err, ErrShape)

	_, err = buf.Frame(3)
	assert.Error(t, err)
}

func TestToU16(t *testing.T) {
	assert.Equal(t, uint16(0), toU16(-1))
	assert.Equal(t, uint16(0xffff), toU16(2))
	assert.Equal(t, uint16(0x8000), toU16(0.5))
}

func TestSaveAndLoadFiles(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "nested", "b.tiff"),
		filepath.Join(dir, "c.bmp"),
	}
	for i, p := range paths {
		require.NoError(t, SaveImage(p, testImage(4, 3, uint8(i*20)), EncodeOptions{PNGCompression: "speed"}))
	}

	imgs, err := LoadFiles(context.Background(), paths, 2)
	require.NoError(t, err)
	require.Len(t, imgs, 3)
	for i, img := range imgs {
		want := testImage(4, 3, uint8(i*20))
		got := color.NRGBAModel.Convert(img.At(2, 1)).(color.NRGBA)
		assert.Equal(t, want.NRGBAAt(2, 1), got, "file %s", paths[i])
	}

	_, err = LoadFiles(context.Background(), []string{filepath.Join(dir, "missing.png")}, 0)
	assert.Error(t, err)
}

func TestDecodeBytes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(2, 2, 5)))

	img, format, err := DecodeBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())

	_, _, err = DecodeBytes([]byte("not an image"))
	assert.Error(t, err)
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"a.PNG", "png", false},
		{"a.jpg", "jpeg", false},
		{"a.jpeg", "jpeg", false},
		{"a.tif", "tiff", false},
		{"a.bmp", "bmp", false},
		{"a.webp", "", true},
		{"a.gif", "", true},
	}
	for _, tt := range tests {
		got, err := FormatForPath(tt.path)
		if tt.wantErr {
			assert.Error(t, err, tt.path)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestSaveImageRejectsBadCompression(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.png")
	err := SaveImage(path, testImage(1, 1, 0), EncodeOptions{PNGCompression: "ultra"})
	assert.Error(t, err)
}
