package cmd

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/MeKo-Tech/lgggrade/internal/grade"
	"github.com/MeKo-Tech/lgggrade/internal/lgg"
	"github.com/MeKo-Tech/lgggrade/internal/node"
)

// lookFromConfig resolves the grade to apply. It starts from --look (or the
// identity grade), then applies every wheel value that was set by flag,
// config file or environment, then the cartesian wheel offsets.
// Non-finite values are rejected: the look must be recordable as JSON.
func lookFromConfig() (lgg.Snapshot, error) {
	s := lgg.DefaultSnapshot()
	if path := viper.GetString("look"); path != "" {
		var err error
		if s, err = grade.ReadSnapshot(path); err != nil {
			return lgg.Snapshot{}, err
		}
	}

	for _, in := range node.InputTypes() {
		key := configKey(in)
		if !viper.IsSet(key) {
			continue
		}
		setField(&s, in.Role, in.Field, viper.GetFloat64(key))
	}

	for _, role := range lgg.Roles {
		key := "grade." + string(role) + ".wheel"
		raw := viper.GetString(key)
		if raw == "" {
			continue
		}
		x, y, err := parsePair(raw)
		if err != nil {
			return lgg.Snapshot{}, fmt.Errorf("invalid %s wheel: %w", role, err)
		}
		hue, sat := lgg.FromWheel(x, y)
		setField(&s, role, "hue", hue)
		setField(&s, role, "sat", sat)
	}

	if err := checkFinite(s); err != nil {
		return lgg.Snapshot{}, err
	}
	if err := s.Validate(); err != nil && logger != nil {
		logger.Warn("Grade values outside the node's input ranges", "error", err)
	}
	return s, nil
}

func checkFinite(s lgg.Snapshot) error {
	for _, role := range lgg.Roles {
		p, _ := s.Params(role)
		fields := []struct {
			name string
			v    float64
		}{{"hue", p.Hue}, {"sat", p.Sat}, {"strength", p.Strength}, {"luma", p.Luma}}
		for _, f := range fields {
			if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
				return fmt.Errorf("%s %s must be finite, got %v", role, f.name, f.v)
			}
		}
	}
	return nil
}

func setField(s *lgg.Snapshot, role lgg.Role, field string, v float64) {
	var p *lgg.ColorWheelParams
	switch role {
	case lgg.RoleLift:
		p = &s.Lift
	case lgg.RoleGamma:
		p = &s.Gamma
	case lgg.RoleGain:
		p = &s.Gain
	default:
		return
	}

	switch field {
	case "hue":
		p.Hue = v
	case "sat":
		p.Sat = v
	case "strength":
		p.Strength = v
	case "luma":
		p.Luma = v
	}
}

// parsePair parses "x,y".
func parsePair(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected 2 comma-separated values, got %d", len(parts))
	}

	var v [2]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid number at position %d: %w", i, err)
		}
		v[i] = f
	}
	return v[0], v[1], nil
}
