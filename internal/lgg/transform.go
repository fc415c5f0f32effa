package lgg

import (
	"fmt"
	"math"

	"github.com/chewxy/math32"

	"github.com/MeKo-Tech/lgggrade/internal/imagebuf"
)

// gammaFloor keeps the gamma base positive and bounds the exponent. It is
// applied to the pixel before exponentiation and to the gamma factor, which
// DeriveGamma already floors at 0.1.
const gammaFloor = 0.001

// Apply grades img and returns a new buffer of the same shape and element type.
// img is never modified. The stages run in this order per channel:
//
//	v = v + lift + liftLuma
//	v = max(v, 0.001) ^ (1 / max(gamma, 0.001))
//	v = v + gammaLuma
//	v = v * gain
//	v = v + gainLuma
//	v = clamp(v, 0, 1)
//
// img must have exactly three channels. Non-finite params propagate as NaN/Inf.
func Apply[T imagebuf.Float](img *imagebuf.Buffer[T], lift, gamma, gain ColorWheelParams) (*imagebuf.Buffer[T], error) {
	if err := img.Check(); err != nil {
		return nil, err
	}
	if img.Shape.Channels != 3 {
		return nil, fmt.Errorf("%w: lift/gamma/gain needs 3 channels, got shape %s", imagebuf.ErrShape, img.Shape)
	}

	s := Snapshot{Lift: lift, Gamma: gamma, Gain: gain}
	out := img.Clone()
	switch pix := any(out.Pix).(type) {
	case []float32:
		newKernel32(s).apply(pix)
	case []float64:
		newKernel(s).apply(pix)
	}
	return out, nil
}

// ApplySnapshot is Apply with the wheels taken from s.
func ApplySnapshot[T imagebuf.Float](img *imagebuf.Buffer[T], s Snapshot) (*imagebuf.Buffer[T], error) {
	return Apply(img, s.Lift, s.Gamma, s.Gain)
}

// kernel holds the per-channel constants of a grade in double precision.
type kernel struct {
	lift      [3]float64
	invGamma  [3]float64
	gain      [3]float64
	liftLuma  float64
	gammaLuma float64
	gainLuma  float64
}

func newKernel(s Snapshot) kernel {
	d := s.Derive()
	k := kernel{
		lift:      d.Lift,
		gain:      d.Gain,
		liftLuma:  s.Lift.Luma,
		gammaLuma: s.Gamma.Luma,
		gainLuma:  s.Gain.Luma,
	}
	for c := 0; c < 3; c++ {
		k.invGamma[c] = 1.0 / floor(d.Gamma[c], gammaFloor)
	}
	return k
}

func (k kernel) channel(c int, v float64) float64 {
	v = v + k.lift[c] + k.liftLuma
	v = math.Pow(floor(v, gammaFloor), k.invGamma[c])
	v = v + k.gammaLuma
	v = v * k.gain[c]
	v = v + k.gainLuma
	return clamp01(v)
}

func (k kernel) apply(pix []float64) {
	for i := 0; i+2 < len(pix); i += 3 {
		pix[i+0] = k.channel(0, pix[i+0])
		pix[i+1] = k.channel(1, pix[i+1])
		pix[i+2] = k.channel(2, pix[i+2])
	}
}

// floor raises v to lo; NaN passes through.
func floor[T imagebuf.Float](v, lo T) T {
	if v < lo {
		return lo
	}
	return v
}

// clamp01 clamps to [0,1]; NaN passes through.
func clamp01[T imagebuf.Float](v T) T {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// kernel32 is the single precision form of kernel. Constants are rounded to
// float32 first and the exponent is taken in float32, so float32 buffers are
// graded without a round trip through float64.
type kernel32 struct {
	lift      [3]float32
	invGamma  [3]float32
	gain      [3]float32
	liftLuma  float32
	gammaLuma float32
	gainLuma  float32
}

func (k kernel) single() kernel32 {
	k32 := kernel32{
		liftLuma:  float32(k.liftLuma),
		gammaLuma: float32(k.gammaLuma),
		gainLuma:  float32(k.gainLuma),
	}
	for c := 0; c < 3; c++ {
		k32.lift[c] = float32(k.lift[c])
		k32.gain[c] = float32(k.gain[c])
	}
	return k32
}

func newKernel32(s Snapshot) kernel32 {
	d := s.Derive()
	k32 := newKernel(s).single()
	for c := 0; c < 3; c++ {
		k32.invGamma[c] = 1.0 / floor(float32(d.Gamma[c]), gammaFloor)
	}
	return k32
}

func (k kernel32) channel(c int, v float32) float32 {
	v = v + k.lift[c] + k.liftLuma
	v = math32.Pow(floor(v, gammaFloor), k.invGamma[c])
	v = v + k.gammaLuma
	v = v * k.gain[c]
	v = v + k.gainLuma
	return clamp01(v)
}

func (k kernel32) apply(pix []float32) {
	for i := 0; i+2 < len(pix); i += 3 {
		pix[i+0] = k.channel(0, pix[i+0])
		pix[i+1] = k.channel(1, pix[i+1])
		pix[i+2] = k.channel(2, pix[i+2])
	}
}
