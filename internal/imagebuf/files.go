package imagebuf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/sync/errgroup"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

// EncodeOptions controls output encoding.
type EncodeOptions struct {
	PNGCompression string // default, speed, best, none
	JPEGQuality    int    // 1..100, 0 uses jpeg.DefaultQuality
}

// Decode reads and decodes an image file. The format is sniffed from the content.
func Decode(path string) (image.Image, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, format, nil
}

// DecodeBytes decodes an in-memory image.
func DecodeBytes(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// LoadFiles decodes paths concurrently, at most limit at a time (<=0 means no limit).
// The returned slice is in the order of paths.
func LoadFiles(ctx context.Context, paths []string, limit int) ([]image.Image, error) {
	imgs := make([]image.Image, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, _, err := Decode(path)
			if err != nil {
				return err
			}
			imgs[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return imgs, nil
}

// FormatForPath maps a file extension to an output format name.
func FormatForPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png", nil
	case ".jpg", ".jpeg":
		return "jpeg", nil
	case ".tif", ".tiff":
		return "tiff", nil
	case ".bmp":
		return "bmp", nil
	case ".webp":
		return "", fmt.Errorf("webp output is not supported: %s", path)
	}
	return "", fmt.Errorf("unsupported output extension %q", filepath.Ext(path))
}

// Encode writes img to w in format.
func Encode(w io.Writer, img image.Image, format string, opts EncodeOptions) error {
	switch format {
	case "png":
		level, err := pngCompressionLevel(opts.PNGCompression)
		if err != nil {
			return err
		}
		enc := png.Encoder{CompressionLevel: level}
		return enc.Encode(w, img)
	case "jpeg":
		q := opts.JPEGQuality
		if q <= 0 {
			q = jpeg.DefaultQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: q})
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case "bmp":
		return bmp.Encode(w, img)
	}
	return fmt.Errorf("unsupported output format %q", format)
}

// SaveImage encodes img to path, choosing the codec by extension.
func SaveImage(path string, img image.Image, opts EncodeOptions) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Encode(out, img, format, opts); err != nil {
		out.Close() // nolint:errcheck
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return out.Close()
}

func pngCompressionLevel(name string) (png.CompressionLevel, error) {
	switch strings.ToLower(name) {
	case "", "default":
		return png.DefaultCompression, nil
	case "speed":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	case "none":
		return png.NoCompression, nil
	}
	return 0, fmt.Errorf("invalid png compression %q: must be default, speed, best or none", name)
}
