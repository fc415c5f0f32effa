// Package lgg implements the Lift/Gamma/Gain color grading model.
//
// Each of the three roles is driven by a color wheel (hue, sat), a strength and
// an achromatic luma offset. The wheel is projected onto RGB with three cosines
// 120° apart, folded with the strength per role, and the resulting triples are
// applied to an image in a fixed lift → gamma → gain order.
package lgg

import (
	"errors"
	"fmt"
	"math"
)

// Role identifies which stage of the grade a set of wheel params drives.
type Role string

const (
	RoleLift  Role = "lift"
	RoleGamma Role = "gamma"
	RoleGain  Role = "gain"
)

// Roles lists the roles in pipeline order.
var Roles = []Role{RoleLift, RoleGamma, RoleGain}

// ColorWheelParams are the controls of a single color wheel.
type ColorWheelParams struct {
	Hue      float64 `json:"hue" mapstructure:"hue"`
	Sat      float64 `json:"sat" mapstructure:"sat"`
	Strength float64 `json:"strength" mapstructure:"strength"`
	Luma     float64 `json:"luma" mapstructure:"luma"`
}

// DefaultParams returns the neutral wheel: no hue shift, unit strength, no luma offset.
func DefaultParams() ColorWheelParams {
	return ColorWheelParams{Hue: 0, Sat: 0, Strength: 1, Luma: 0}
}

// Range describes the accepted interval of a control and its UI step.
type Range struct {
	Default float64 `json:"default"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
}

// Contains reports whether v is a finite value within [Min, Max].
func (r Range) Contains(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= r.Min && v <= r.Max
}

// FieldSchema holds the ranges of the four controls of one wheel.
type FieldSchema struct {
	Hue      Range `json:"hue"`
	Sat      Range `json:"sat"`
	Strength Range `json:"strength"`
	Luma     Range `json:"luma"`
}

// Schema returns the accepted ranges for a role. Gamma strength starts at 0.1
// so the derived exponent never degenerates.
func Schema(role Role) FieldSchema {
	s := FieldSchema{
		Hue:      Range{Default: 0, Min: 0, Max: 1, Step: 0.001},
		Sat:      Range{Default: 0, Min: 0, Max: 1, Step: 0.001},
		Strength: Range{Default: 1, Min: 0, Max: 2, Step: 0.01},
		Luma:     Range{Default: 0, Min: -1, Max: 1, Step: 0.01},
	}
	if role == RoleGamma {
		s.Strength.Min = 0.1
	}
	return s
}

// Validate checks p against the schema of role. The transform itself accepts
// any value; this is for callers that want to enforce the documented bounds.
func (p ColorWheelParams) Validate(role Role) error {
	s := Schema(role)
	fields := []struct {
		name string
		v    float64
		r    Range
	}{
		{"hue", p.Hue, s.Hue},
		{"sat", p.Sat, s.Sat},
		{"strength", p.Strength, s.Strength},
		{"luma", p.Luma, s.Luma},
	}

	var errs []error
	for _, f := range fields {
		if !f.r.Contains(f.v) {
			errs = append(errs, fmt.Errorf("%s %s=%v outside [%v, %v]", role, f.name, f.v, f.r.Min, f.r.Max))
		}
	}
	return errors.Join(errs...)
}

// Snapshot records the three wheels used for a grade. It is produced next to
// the output image for display and audit.
type Snapshot struct {
	Lift  ColorWheelParams `json:"lift" mapstructure:"lift"`
	Gamma ColorWheelParams `json:"gamma" mapstructure:"gamma"`
	Gain  ColorWheelParams `json:"gain" mapstructure:"gain"`
}

// DefaultSnapshot returns the identity grade.
func DefaultSnapshot() Snapshot {
	return Snapshot{Lift: DefaultParams(), Gamma: DefaultParams(), Gain: DefaultParams()}
}

// Params returns the wheel for role.
func (s Snapshot) Params(role Role) (ColorWheelParams, bool) {
	switch role {
	case RoleLift:
		return s.Lift, true
	case RoleGamma:
		return s.Gamma, true
	case RoleGain:
		return s.Gain, true
	}
	return ColorWheelParams{}, false
}

// Validate checks all three wheels.
func (s Snapshot) Validate() error {
	return errors.Join(
		s.Lift.Validate(RoleLift),
		s.Gamma.Validate(RoleGamma),
		s.Gain.Validate(RoleGain),
	)
}

// Derived holds the RGB triples of all three roles.
type Derived struct {
	Lift  RGBTriple `json:"lift"`
	Gamma RGBTriple `json:"gamma"`
	Gain  RGBTriple `json:"gain"`
}

// Derive computes the RGB triples of every wheel in s.
func (s Snapshot) Derive() Derived {
	return Derived{
		Lift:  DeriveLift(s.Lift.Hue, s.Lift.Sat, s.Lift.Strength),
		Gamma: DeriveGamma(s.Gamma.Hue, s.Gamma.Sat, s.Gamma.Strength),
		Gain:  DeriveGain(s.Gain.Hue, s.Gain.Sat, s.Gain.Strength),
	}
}
