package lgg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

func assertTriple(t *testing.T, want, got RGBTriple, delta float64) {
	t.Helper()
	for c := 0; c < 3; c++ {
		assert.InDelta(t, want[c], got[c], delta, "channel %d: want %v, got %v", c, want, got)
	}
}

func TestDeriveGammaNeutralStrength(t *testing.T) {
	for _, hue := range []float64{0, 0.1, 0.25, 0.5, 0.77, 1} {
		for _, sat := range []float64{0, 0.3, 1} {
			got := DeriveGamma(hue, sat, 1.0)
			require.Equal(t, RGBTriple{1, 1, 1}, got, "hue=%v sat=%v", hue, sat)
		}
	}
}

func TestDeriveZeroSaturation(t *testing.T) {
	for _, hue := range []float64{0, 0.33, 0.9} {
		for _, strength := range []float64{0, 0.5, 1, 2} {
			assert.Equal(t, RGBTriple{0, 0, 0}, DeriveLift(hue, 0, strength))
			assert.Equal(t, RGBTriple{1, 1, 1}, DeriveGain(hue, 0, strength))
			assert.Equal(t, RGBTriple{1, 1, 1}, DeriveGamma(hue, 0, strength))
		}
	}
}

func TestDeriveKnownValues(t *testing.T) {
	// hue 0: red at full phase, green and blue at cos(±120°) = -0.5.
	assertTriple(t, RGBTriple{0.5, -0.25, -0.25}, DeriveLift(0, 1, 1), tol)
	assertTriple(t, RGBTriple{1.5, 0.75, 0.75}, DeriveGain(0, 1, 0.5), tol)
	assertTriple(t, RGBTriple{3, 0.1, 0.1}, DeriveGamma(0, 1, 2), tol)
	assertTriple(t, RGBTriple{1.5, 0.75, 0.75}, DeriveGamma(0, 0.5, 1.5), tol)

	// hue 1/3 puts the green phase at 0.
	assertTriple(t, RGBTriple{-0.25, 0.5, -0.25}, DeriveLift(1.0/3, 1, 1), tol)
	// hue 2/3 puts the blue phase at 0.
	assertTriple(t, RGBTriple{-0.25, -0.25, 0.5}, DeriveLift(2.0/3, 1, 1), tol)
}

func TestDeriveGammaFloor(t *testing.T) {
	got := DeriveGamma(0.5, 1, 2)
	// red channel: 1 + (-1)(1)(2) = -1, floored.
	assert.Equal(t, 0.1, got[0])
	for c := 0; c < 3; c++ {
		assert.GreaterOrEqual(t, got[c], 0.1)
	}
}

func TestDeriveGainCanGoNegative(t *testing.T) {
	got := DeriveGain(0.5, 1, 2)
	assert.InDelta(t, -1.0, got[0], tol)
}

func TestDeriveWheelSumsToZero(t *testing.T) {
	for i := 0; i <= 100; i++ {
		hue := float64(i) / 100
		l := DeriveLift(hue, 0.8, 1.7)
		assert.InDelta(t, 0, l[0]+l[1]+l[2], 1e-12, "hue=%v", hue)
	}
}

func TestDeriveHueWraps(t *testing.T) {
	for i := 0; i < 20; i++ {
		hue := float64(i) / 20
		assertTriple(t, DeriveLift(hue, 0.7, 1.3), DeriveLift(hue+1, 0.7, 1.3), 1e-12)
		assertTriple(t, DeriveGain(hue, 0.7, 1.3), DeriveGain(hue+1, 0.7, 1.3), 1e-12)
		assertTriple(t, DeriveGamma(hue, 0.7, 1.3), DeriveGamma(hue+1, 0.7, 1.3), 1e-12)
	}
}

func TestDeriveNaNPropagates(t *testing.T) {
	got := DeriveLift(math.NaN(), 1, 1)
	for c := 0; c < 3; c++ {
		assert.True(t, math.IsNaN(got[c]))
	}
	got = DeriveGamma(0, math.NaN(), 2)
	for c := 0; c < 3; c++ {
		assert.True(t, math.IsNaN(got[c]))
	}
}

func TestDeriveRole(t *testing.T) {
	p := ColorWheelParams{Hue: 0.2, Sat: 0.6, Strength: 1.4}
	for _, tc := range []struct {
		role Role
		want RGBTriple
	}{
		{RoleLift, DeriveLift(0.2, 0.6, 1.4)},
		{RoleGamma, DeriveGamma(0.2, 0.6, 1.4)},
		{RoleGain, DeriveGain(0.2, 0.6, 1.4)},
	} {
		got, ok := DeriveRole(tc.role, p)
		require.True(t, ok)
		assert.Equal(t, tc.want, got)
	}

	_, ok := DeriveRole("contrast", p)
	assert.False(t, ok)
}

func TestWheelRoundTrip(t *testing.T) {
	tests := []struct {
		hue, sat float64
	}{
		{0, 1},
		{0.25, 0.5},
		{0.5, 0.75},
		{0.9, 0.2},
	}
	for _, tc := range tests {
		x, y := WheelPoint(tc.hue, tc.sat)
		hue, sat := FromWheel(x, y)
		assert.InDelta(t, tc.hue, hue, 1e-9)
		assert.InDelta(t, tc.sat, sat, 1e-9)
	}
}

func TestWheelOrientation(t *testing.T) {
	// hue 0 sits at the top of the wheel.
	x, y := WheelPoint(0, 1)
	assert.InDelta(t, 0, x, 1e-12)
	assert.InDelta(t, -1, y, 1e-12)

	hue, sat := FromWheel(3, 4)
	assert.Equal(t, 1.0, sat)
	assert.GreaterOrEqual(t, hue, 0.0)
	assert.Less(t, hue, 1.0)
}
