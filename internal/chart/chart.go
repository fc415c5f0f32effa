// Package chart renders a deterministic test chart for previewing a grade:
// a gray ramp for the tone curve, a hue/saturation sweep for the wheels and a
// soft Perlin noise patch that shows how a look treats organic texture.
package chart

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/disintegration/gift"
)

// Options configures Render.
type Options struct {
	Size int   // width and height in pixels, at least MinSize
	Seed int64 // noise seed
	// NoiseScale is the feature size of the noise patch in pixels. Zero uses Size/8.
	NoiseScale float64
	// Blur is the Gaussian sigma applied to the noise patch. Zero uses 1.5.
	Blur float32
}

// MinSize is the smallest chart Render accepts.
const MinSize = 16

// Band boundaries as fractions of the chart height.
const (
	rampEnd  = 0.25
	sweepEnd = 0.75
)

// Render draws the chart.
func Render(opts Options) (*image.NRGBA, error) {
	if opts.Size < MinSize {
		return nil, errors.New("chart size must be at least 16 pixels")
	}
	if opts.NoiseScale <= 0 {
		opts.NoiseScale = float64(opts.Size) / 8
	}
	if opts.Blur <= 0 {
		opts.Blur = 1.5
	}

	img := image.NewNRGBA(image.Rect(0, 0, opts.Size, opts.Size))
	ramp, sweep, noise := Bands(opts.Size)

	drawRamp(img, ramp)
	drawSweep(img, sweep)
	patch := noisePatch(noise.Dx(), noise.Dy(), opts)
	draw.Draw(img, noise, patch, image.Point{}, draw.Src)

	return img, nil
}

// drawRamp fills r with a linear black-to-white ramp, left to right.
func drawRamp(img *image.NRGBA, r image.Rectangle) {
	w := r.Dx()
	for x := 0; x < w; x++ {
		v := uint8(math.Round(float64(x) / float64(max(w-1, 1)) * 255))
		c := color.NRGBA{R: v, G: v, B: v, A: 255}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			img.SetNRGBA(r.Min.X+x, y, c)
		}
	}
}

// drawSweep fills r with hue running left to right and saturation falling
// from 1 at the top to 0 at the bottom, at lightness 0.5.
func drawSweep(img *image.NRGBA, r image.Rectangle) {
	w, h := r.Dx(), r.Dy()
	for y := 0; y < h; y++ {
		sat := 1 - float64(y)/float64(max(h-1, 1))
		for x := 0; x < w; x++ {
			hue := float64(x) / float64(w)
			img.SetNRGBA(r.Min.X+x, r.Min.Y+y, hsl(hue, sat, 0.5))
		}
	}
}

// noisePatch renders blurred Perlin noise tinted between a shadow and a
// highlight color.
func noisePatch(w, h int, opts Options) *image.NRGBA {
	p := perlin.NewPerlin(2.0, 2.0, 3, opts.Seed)

	shadow := [3]float64{0.18, 0.12, 0.10}
	highlight := [3]float64{0.92, 0.78, 0.66}

	raw := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t := (p.Noise2D(float64(x)/opts.NoiseScale, float64(y)/opts.NoiseScale) + 1) / 2
			t = math.Max(0, math.Min(1, t))
			var c [3]uint8
			for i := range c {
				c[i] = uint8(math.Round((shadow[i] + (highlight[i]-shadow[i])*t) * 255))
			}
			raw.SetNRGBA(x, y, color.NRGBA{R: c[0], G: c[1], B: c[2], A: 255})
		}
	}

	g := gift.New(gift.GaussianBlur(opts.Blur))
	dst := image.NewNRGBA(g.Bounds(raw.Bounds()))
	g.Draw(dst, raw)
	return dst
}

// hsl converts hue, saturation and lightness in [0,1] to an opaque color.
func hsl(h, s, l float64) color.NRGBA {
	c := (1 - math.Abs(2*l-1)) * s
	hp := math.Mod(h*6, 6)
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))

	var r, g, b float64
	switch {
	case hp < 1:
		r, g = c, x
	case hp < 2:
		r, g = x, c
	case hp < 3:
		g, b = c, x
	case hp < 4:
		g, b = x, c
	case hp < 5:
		r, b = x, c
	default:
		r, b = c, x
	}

	m := l - c/2
	to8 := func(v float64) uint8 { return uint8(math.Round((v + m) * 255)) }
	return color.NRGBA{R: to8(r), G: to8(g), B: to8(b), A: 255}
}

// Bands returns the rectangles of the ramp, sweep and noise bands for a chart
// of the given size.
func Bands(size int) (ramp, sweep, noise image.Rectangle) {
	rampH := int(float64(size) * rampEnd)
	sweepY := int(float64(size) * sweepEnd)
	return image.Rect(0, 0, size, rampH),
		image.Rect(0, rampH, size, sweepY),
		image.Rect(0, sweepY, size, size)
}

// Compare places before and after side by side, separated by a divider of
// the given width. Both images are drawn at their own size, top-aligned.
func Compare(before, after image.Image, divider int) *image.NRGBA {
	b, a := before.Bounds(), after.Bounds()
	w := b.Dx() + divider + a.Dx()
	h := max(b.Dy(), a.Dy())

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.NRGBA{A: 255}), image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(0, 0, b.Dx(), b.Dy()), before, b.Min, draw.Src)
	draw.Draw(dst, image.Rect(b.Dx()+divider, 0, w, a.Dy()), after, a.Min, draw.Src)
	return dst
}
