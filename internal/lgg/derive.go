package lgg

import "math"

// RGBTriple is a per-channel value in R, G, B order.
type RGBTriple [3]float64

// wheelRGB projects a hue/sat pair onto three cosines: red at phase 0,
// green at -120°, blue at +120°. For fixed sat the triple sums to ~0.
func wheelRGB(hue, sat float64) (r, g, b float64) {
	angle := hue * 2 * math.Pi
	r = math.Cos(angle) * sat
	g = math.Cos(angle-(2*math.Pi/3)) * sat
	b = math.Cos(angle+(2*math.Pi/3)) * sat
	return r, g, b
}

// DeriveLift returns the additive per-channel offset of the lift wheel.
func DeriveLift(hue, sat, strength float64) RGBTriple {
	r, g, b := wheelRGB(hue, sat)
	return RGBTriple{
		r * strength * 0.5,
		g * strength * 0.5,
		b * strength * 0.5,
	}
}

// DeriveGamma returns the per-channel gamma factor, floored at 0.1.
// strength == 1 yields [1, 1, 1] for any hue and sat.
func DeriveGamma(hue, sat, strength float64) RGBTriple {
	r, g, b := wheelRGB(hue, sat)
	return RGBTriple{
		math.Max(0.1, 1.0+r*(strength-1.0)*2),
		math.Max(0.1, 1.0+g*(strength-1.0)*2),
		math.Max(0.1, 1.0+b*(strength-1.0)*2),
	}
}

// DeriveGain returns the per-channel multiplier of the gain wheel.
// No floor is applied, large sat*strength can drive a channel negative.
func DeriveGain(hue, sat, strength float64) RGBTriple {
	r, g, b := wheelRGB(hue, sat)
	return RGBTriple{
		1.0 + r*strength,
		1.0 + g*strength,
		1.0 + b*strength,
	}
}

// DeriveRole dispatches to the derivation of role.
func DeriveRole(role Role, p ColorWheelParams) (RGBTriple, bool) {
	switch role {
	case RoleLift:
		return DeriveLift(p.Hue, p.Sat, p.Strength), true
	case RoleGamma:
		return DeriveGamma(p.Hue, p.Sat, p.Strength), true
	case RoleGain:
		return DeriveGain(p.Hue, p.Sat, p.Strength), true
	}
	return RGBTriple{}, false
}

// wheelRotation puts hue 0 at the top of the wheel.
const wheelRotation = -math.Pi / 2

// WheelPoint returns the puck position of (hue, sat) on a unit wheel.
func WheelPoint(hue, sat float64) (x, y float64) {
	angle := hue*2*math.Pi + wheelRotation
	return sat * math.Cos(angle), sat * math.Sin(angle)
}

// FromWheel is the inverse of WheelPoint. Points outside the unit circle
// are clamped to sat = 1.
func FromWheel(x, y float64) (hue, sat float64) {
	sat = math.Min(math.Hypot(x, y), 1)
	angle := math.Atan2(y, x) - wheelRotation
	if angle < 0 {
		angle += 2 * math.Pi
	}
	hue = angle / (2 * math.Pi)
	if hue >= 1 {
		hue -= 1
	}
	return hue, sat
}
