package imagebuf

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// FromImages packs frames into a float32 RGB buffer with values in [0,1].
// All frames must share the same dimensions. Alpha is dropped.
func FromImages(imgs ...image.Image) (*Buffer[float32], error) {
	if len(imgs) == 0 {
		return nil, fmt.Errorf("%w: no frames", ErrEmpty)
	}

	first := imgs[0].Bounds()
	b, err := New[float32](Shape{Batch: len(imgs), Height: first.Dy(), Width: first.Dx(), Channels: 3})
	if err != nil {
		return nil, err
	}

	for n, img := range imgs {
		bounds := img.Bounds()
		if bounds.Dx() != first.Dx() || bounds.Dy() != first.Dy() {
			return nil, fmt.Errorf("%w: frame %d is %dx%d, frame 0 is %dx%d",
				ErrShape, n, bounds.Dx(), bounds.Dy(), first.Dx(), first.Dy())
		}

		pix := b.FramePix(n)
		i := 0
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
				pix[i+0] = float32(c.R) / 0xffff
				pix[i+1] = float32(c.G) / 0xffff
				pix[i+2] = float32(c.B) / 0xffff
				i += 3
			}
		}
	}

	return b, nil
}

// Frame converts frame n back to an opaque 16-bit image.
func (b *Buffer[T]) Frame(n int) (*image.NRGBA64, error) {
	return b.FrameWithAlpha(n, nil)
}

// FrameWithAlpha converts frame n back to a 16-bit image, taking the alpha
// channel from alpha when it is non-nil. alpha must have the frame's size.
func (b *Buffer[T]) FrameWithAlpha(n int, alpha image.Image) (*image.NRGBA64, error) {
	if err := b.Check(); err != nil {
		return nil, err
	}
	if b.Shape.Channels != 3 {
		return nil, fmt.Errorf("%w: need 3 channels, got %s", ErrShape, b.Shape)
	}
	if n < 0 || n >= b.Shape.Batch {
		return nil, fmt.Errorf("frame %d out of range for batch of %d", n, b.Shape.Batch)
	}

	var ab image.Rectangle
	if alpha != nil {
		ab = alpha.Bounds()
		if ab.Dx() != b.Shape.Width || ab.Dy() != b.Shape.Height {
			return nil, fmt.Errorf("%w: alpha source is %dx%d, frame is %dx%d",
				ErrShape, ab.Dx(), ab.Dy(), b.Shape.Width, b.Shape.Height)
		}
	}

	dst := image.NewNRGBA64(image.Rect(0, 0, b.Shape.Width, b.Shape.Height))
	pix := b.FramePix(n)
	i := 0
	for y := 0; y < b.Shape.Height; y++ {
		for x := 0; x < b.Shape.Width; x++ {
			a := uint16(0xffff)
			if alpha != nil {
				a = color.NRGBA64Model.Convert(alpha.At(ab.Min.X+x, ab.Min.Y+y)).(color.NRGBA64).A
			}
			dst.SetNRGBA64(x, y, color.NRGBA64{
				R: toU16(float64(pix[i+0])),
				G: toU16(float64(pix[i+1])),
				B: toU16(float64(pix[i+2])),
				A: a,
			})
			i += 3
		}
	}

	return dst, nil
}

// toU16 maps [0,1] to [0,65535]; NaN maps to 0.
func toU16(v float64) uint16 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 0xffff
	}
	return uint16(math.Round(v * 0xffff))
}
