// Package mbtiles reads and writes MBTiles raster tilesets so they can be
// graded tile by tile.
package mbtiles

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// KeyGrade is the metadata entry holding the JSON grade applied to a tileset.
const KeyGrade = "lgg"

// Metadata holds the well-known MBTiles metadata fields. Entries that have no
// field of their own are kept in Extra.
type Metadata struct {
	Name        string
	Format      string // png, jpg, webp
	Attribution string
	Description string
	Type        string // baselayer or overlay
	Version     string
	Bounds      [4]float64
	Center      [3]float64
	MinZoom     int
	MaxZoom     int
	Extra       map[string]string
}

// ToMap flattens m into metadata rows. Zero fields are omitted.
func (m Metadata) ToMap() map[string]string {
	out := make(map[string]string, len(m.Extra)+10)
	maps.Copy(out, m.Extra)

	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("name", m.Name)
	set("format", m.Format)
	set("attribution", m.Attribution)
	set("description", m.Description)
	set("type", m.Type)
	set("version", m.Version)

	if m.MinZoom > 0 {
		out["minzoom"] = strconv.Itoa(m.MinZoom)
	}
	if m.MaxZoom > 0 {
		out["maxzoom"] = strconv.Itoa(m.MaxZoom)
	}
	if m.Bounds != [4]float64{} {
		out["bounds"] = fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", m.Bounds[0], m.Bounds[1], m.Bounds[2], m.Bounds[3])
	}
	if m.Center != [3]float64{} {
		out["center"] = fmt.Sprintf("%.6f,%.6f,%d", m.Center[0], m.Center[1], int(m.Center[2]))
	}
	return out
}

// metadataFromMap is the inverse of ToMap. Unparseable numeric entries are
// left at zero.
func metadataFromMap(rows map[string]string) Metadata {
	m := Metadata{Extra: map[string]string{}}
	for k, v := range rows {
		switch k {
		case "name":
			m.Name = v
		case "format":
			m.Format = v
		case "attribution":
			m.Attribution = v
		case "description":
			m.Description = v
		case "type":
			m.Type = v
		case "version":
			m.Version = v
		case "minzoom":
			m.MinZoom, _ = strconv.Atoi(v)
		case "maxzoom":
			m.MaxZoom, _ = strconv.Atoi(v)
		case "bounds":
			parseFloats(v, m.Bounds[:])
		case "center":
			parseFloats(v, m.Center[:])
		default:
			m.Extra[k] = v
		}
	}
	return m
}

func parseFloats(s string, dst []float64) {
	parts := strings.Split(s, ",")
	if len(parts) != len(dst) {
		return
	}
	for i, p := range parts {
		if f, err := strconv.ParseFloat(strings.TrimSpace(p), 64); err == nil {
			dst[i] = f
		}
	}
}

// TileID addresses a tile in XYZ (slippy map) order.
type TileID struct {
	Z, X, Y int
}

func (t TileID) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// tmsRow converts the XYZ row to the TMS row stored in the tiles table.
// The conversion is its own inverse.
func (t TileID) tmsRow() int {
	return (1 << t.Z) - 1 - t.Y
}

// ParseTileID parses "z/x/y".
func ParseTileID(s string) (TileID, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return TileID{}, fmt.Errorf("invalid tile id %q: expected z/x/y", s)
	}

	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return TileID{}, fmt.Errorf("invalid tile id %q: %w", s, err)
		}
		v[i] = n
	}

	id := TileID{Z: v[0], X: v[1], Y: v[2]}
	if id.Z < 0 || id.Z > 30 {
		return TileID{}, fmt.Errorf("invalid tile id %q: zoom out of range", s)
	}
	if n := 1 << id.Z; id.X < 0 || id.X >= n || id.Y < 0 || id.Y >= n {
		return TileID{}, fmt.Errorf("invalid tile id %q: column or row out of range", s)
	}
	return id, nil
}
