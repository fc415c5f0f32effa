package lgg

import (
	"image"

	"github.com/disintegration/gift"
)

// Filter returns a gift filter that applies the grade of s to every pixel.
// Alpha is passed through unchanged.
func Filter(s Snapshot) gift.Filter {
	k := newKernel32(s)
	return gift.ColorFunc(func(r0, g0, b0, a0 float32) (r, g, b, a float32) {
		return k.channel(0, r0), k.channel(1, g0), k.channel(2, b0), a0
	})
}

// GradeImage grades src into a new 16-bit image.
func GradeImage(src image.Image, s Snapshot) *image.NRGBA64 {
	g := gift.New(Filter(s))
	dst := image.NewNRGBA64(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst
}
