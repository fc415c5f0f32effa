// Package node adapts the lift/gamma/gain transform to a node-graph host:
// twelve scalar inputs in, a graded image plus a display record out.
package node

import (
	"log/slog"

	"github.com/MeKo-Tech/lgggrade/internal/imagebuf"
	"github.com/MeKo-Tech/lgggrade/internal/lgg"
)

const (
	// DisplayName is the node title shown by hosts.
	DisplayName = "Lift Gamma Gain (LGG)"
	// Category groups the node in host menus.
	Category = "image/color"
)

// Input describes one scalar input of the node.
type Input struct {
	Name  string    `json:"name"`
	Role  lgg.Role  `json:"role"`
	Field string    `json:"field"`
	Range lgg.Range `json:"range"`
}

// InputTypes lists the twelve scalar inputs in declaration order.
func InputTypes() []Input {
	inputs := make([]Input, 0, 12)
	for _, role := range lgg.Roles {
		s := lgg.Schema(role)
		for _, f := range []struct {
			field string
			r     lgg.Range
		}{
			{"hue", s.Hue},
			{"sat", s.Sat},
			{"strength", s.Strength},
			{"luma", s.Luma},
		} {
			inputs = append(inputs, Input{
				Name:  string(role) + "_" + f.field,
				Role:  role,
				Field: f.field,
				Range: f.r,
			})
		}
	}
	return inputs
}

// Inputs carries the scalar parameters of one execution.
type Inputs struct {
	LiftHue, LiftSat, LiftStrength, LiftLuma     float64
	GammaHue, GammaSat, GammaStrength, GammaLuma float64
	GainHue, GainSat, GainStrength, GainLuma     float64

	// NodeID is the host's identifier for the node instance, used in logs only.
	NodeID string
}

// InputsFromSnapshot flattens s into node inputs.
func InputsFromSnapshot(s lgg.Snapshot) Inputs {
	return Inputs{
		LiftHue: s.Lift.Hue, LiftSat: s.Lift.Sat, LiftStrength: s.Lift.Strength, LiftLuma: s.Lift.Luma,
		GammaHue: s.Gamma.Hue, GammaSat: s.Gamma.Sat, GammaStrength: s.Gamma.Strength, GammaLuma: s.Gamma.Luma,
		GainHue: s.Gain.Hue, GainSat: s.Gain.Sat, GainStrength: s.Gain.Strength, GainLuma: s.Gain.Luma,
	}
}

// Snapshot groups the inputs by role.
func (in Inputs) Snapshot() lgg.Snapshot {
	return lgg.Snapshot{
		Lift:  lgg.ColorWheelParams{Hue: in.LiftHue, Sat: in.LiftSat, Strength: in.LiftStrength, Luma: in.LiftLuma},
		Gamma: lgg.ColorWheelParams{Hue: in.GammaHue, Sat: in.GammaSat, Strength: in.GammaStrength, Luma: in.GammaLuma},
		Gain:  lgg.ColorWheelParams{Hue: in.GainHue, Sat: in.GainSat, Strength: in.GainStrength, Luma: in.GainLuma},
	}
}

// UI is the display payload returned to the host.
type UI struct {
	LGGValues []lgg.Snapshot `json:"lgg_values"`
}

// Output is the result of one execution.
type Output struct {
	UI    UI                        `json:"ui"`
	Image *imagebuf.Buffer[float32] `json:"-"`
	// Err is the transform error that caused Image to fall back to the input.
	Err error `json:"-"`
}

// Node is the host-facing adapter. It holds no per-call state and is safe
// for concurrent use.
type Node struct {
	logger *slog.Logger
}

// New creates a node that logs to logger. Diagnostics are emitted at debug
// level, so the logger's level decides whether they show up.
func New(logger *slog.Logger) *Node {
	return &Node{logger: logger}
}

// Execute grades img. If the transform fails, the original buffer is returned
// untouched and the error is recorded in Output.Err.
func (n *Node) Execute(img *imagebuf.Buffer[float32], in Inputs) Output {
	s := in.Snapshot()
	log := n.log().With("node_id", in.NodeID)

	log.Debug("lgg node executed", "lift", s.Lift, "gamma", s.Gamma, "gain", s.Gain)
	if img != nil {
		log.Debug("input image", "shape", img.Shape.String(), "dtype", "float32")
	}
	d := s.Derive()
	log.Debug("derived rgb", "lift_rgb", d.Lift, "gamma_rgb", d.Gamma, "gain_rgb", d.Gain)

	out := Output{UI: UI{LGGValues: []lgg.Snapshot{s}}}

	graded, err := lgg.ApplySnapshot(img, s)
	if err != nil {
		log.Debug("color adjustment failed, returning input image", "error", err)
		out.Image = img
		out.Err = err
		return out
	}

	log.Debug("color adjustment applied")
	out.Image = graded
	return out
}

func (n *Node) log() *slog.Logger {
	if n.logger != nil {
		return n.logger
	}
	return slog.Default()
}
