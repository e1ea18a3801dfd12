// pkg/core/visual.go
package core

import "fmt"

// LightingType selects the scene lighting preset.
type LightingType string

const (
	LightingDay    LightingType = "day"
	LightingNight  LightingType = "night"
	LightingSunset LightingType = "sunset"
)

// ParseLightingType validates a lighting preset.
func ParseLightingType(s string) (LightingType, error) {
	switch LightingType(s) {
	case LightingDay, LightingNight, LightingSunset:
		return LightingType(s), nil
	default:
		return "", fmt.Errorf("unknown lighting type %q", s)
	}
}

// VisualSettings are the post-processing knobs of the scene.
type VisualSettings struct {
	Blueness   float64 `json:"blueness" yaml:"blueness"`
	Contrast   float64 `json:"contrast" yaml:"contrast"`
	Saturation float64 `json:"saturation" yaml:"saturation"`
	Brightness float64 `json:"brightness" yaml:"brightness"`
}

// DefaultVisualSettings is the neutral grade.
func DefaultVisualSettings() VisualSettings {
	return VisualSettings{Blueness: 0, Contrast: 1, Saturation: 1, Brightness: 1}
}

// Clamp forces every knob into its valid range: blueness -100..100, the rest 0.5..2.0.
func (v VisualSettings) Clamp() VisualSettings {
	return VisualSettings{
		Blueness:   clamp(v.Blueness, -100, 100),
		Contrast:   clamp(v.Contrast, 0.5, 2.0),
		Saturation: clamp(v.Saturation, 0.5, 2.0),
		Brightness: clamp(v.Brightness, 0.5, 2.0),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
