package schemas

import (
	"fmt"
	"strings"
)

// -- Browser Persona Schemas --

// Persona encapsulates the properties used for a consistent browser fingerprint.
type Persona struct {
	UserAgent string   `json:"userAgent" mapstructure:"user_agent" yaml:"user_agent"`
	Platform  string   `json:"platform" mapstructure:"platform" yaml:"platform"`
	Languages []string `json:"languages" mapstructure:"languages" yaml:"languages"`
	Width     int64    `json:"width" mapstructure:"width" yaml:"width"`
	Height    int64    `json:"height" mapstructure:"height" yaml:"height"`
	Timezone  string   `json:"timezoneId" mapstructure:"timezone" yaml:"timezone"`
	Locale    string   `json:"locale" mapstructure:"locale" yaml:"locale"`
}

// DefaultPersona provides a fallback persona if none is configured.
var DefaultPersona = Persona{
	UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	Platform:  "Win32",
	Languages: []string{"en-US", "en"},
	Width:     1920,
	Height:    1080,
	Timezone:  "America/Los_Angeles",
	Locale:    "en-US",
}

// AcceptLanguage renders Languages as an Accept-Language header value with
// descending quality weights.
func (p Persona) AcceptLanguage() string {
	if len(p.Languages) == 0 {
		return ""
	}
	parts := []string{p.Languages[0]}
	q := 9
	for _, lang := range p.Languages[1:] {
		parts = append(parts, fmt.Sprintf("%s;q=0.%d", lang, q))
		if q > 1 {
			q--
		}
	}
	return strings.Join(parts, ",")
}

// -- Element Geometry Schemas --

// BoundingBox is an element's border box in CSS pixels relative to the
// main frame viewport.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// BoundingBoxFromQuad computes the axis-aligned box enclosing a CDP quad
// (four x,y vertex pairs). It returns nil for malformed quads.
func BoundingBoxFromQuad(quad []float64) *BoundingBox {
	if len(quad) < 8 {
		return nil
	}
	minX, maxX := quad[0], quad[0]
	minY, maxY := quad[1], quad[1]
	for i := 2; i+1 < 8; i += 2 {
		x, y := quad[i], quad[i+1]
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	return &BoundingBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
