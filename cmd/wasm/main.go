//go:build js && wasm

package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/MeKo-Tech/lgggrade/internal/lgg"
	"github.com/MeKo-Tech/lgggrade/internal/node"
)

func triple(t lgg.RGBTriple) []any {
	return []any{t[0], t[1], t[2]}
}

// derive takes a snapshot JSON string and returns the three RGB triples.
// Fields missing from the snapshot keep their defaults.
func derive(this js.Value, args []js.Value) any {
	s := lgg.DefaultSnapshot()
	if len(args) > 0 && args[0].Type() == js.TypeString {
		if err := json.Unmarshal([]byte(args[0].String()), &s); err != nil {
			return map[string]any{"error": fmt.Sprintf("failed to parse snapshot: %v", err)}
		}
	}

	d := s.Derive()
	return map[string]any{
		"lift":  triple(d.Lift),
		"gamma": triple(d.Gamma),
		"gain":  triple(d.Gain),
	}
}

// fromWheel maps a puck offset (x, y) on the unit wheel to hue and sat.
func fromWheel(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return map[string]any{"error": "expected x and y"}
	}
	hue, sat := lgg.FromWheel(args[0].Float(), args[1].Float())
	return map[string]any{"hue": hue, "sat": sat}
}

// wheelPoint is the inverse of fromWheel.
func wheelPoint(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return map[string]any{"error": "expected hue and sat"}
	}
	x, y := lgg.WheelPoint(args[0].Float(), args[1].Float())
	return map[string]any{"x": x, "y": y}
}

// schema returns the node's inputs as a JSON string.
func schema(this js.Value, args []js.Value) any {
	data, err := json.Marshal(node.InputTypes())
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return string(data)
}

func main() {
	js.Global().Set("lggDerive", js.FuncOf(derive))
	js.Global().Set("lggFromWheel", js.FuncOf(fromWheel))
	js.Global().Set("lggWheelPoint", js.FuncOf(wheelPoint))
	js.Global().Set("lggSchema", js.FuncOf(schema))

	fmt.Println("lgg wasm module loaded")
	select {}
}
