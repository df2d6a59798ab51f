package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActionKind is the closed classification of a user request
type ActionKind string

const (
	ActionAnswer     ActionKind = "answer"
	ActionInfo       ActionKind = "info"
	ActionGlobalEdit ActionKind = "global_edit"
	ActionLocalEdit  ActionKind = "local_edit"
	ActionClarify    ActionKind = "clarify"
	ActionQuit       ActionKind = "quit"
)

// AllActionKinds returns every action kind in declaration order
func AllActionKinds() []ActionKind {
	return []ActionKind{ActionAnswer, ActionInfo, ActionGlobalEdit, ActionLocalEdit, ActionClarify, ActionQuit}
}

// ParseActionKind maps classifier output onto the closed vocabulary.
// Anything outside it becomes ActionClarify and ok is false.
func ParseActionKind(s string) (kind ActionKind, ok bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.Trim(norm, `"'.`)
	norm = strings.ReplaceAll(norm, "-", "_")
	norm = strings.ReplaceAll(norm, " ", "_")
	for _, k := range AllActionKinds() {
		if norm == string(k) {
			return k, true
		}
	}
	return ActionClarify, false
}

// MutatesImage reports whether the action writes a new image
func (k ActionKind) MutatesImage() bool {
	return k == ActionGlobalEdit || k == ActionLocalEdit
}

// NeedsImage reports whether the action cannot run without a loaded image
func (k ActionKind) NeedsImage() bool {
	return k == ActionInfo || k.MutatesImage()
}

// PercentBox is a relative bounding box on a 0-100 scale with a top-left origin
type PercentBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Region is a validated pixel-space rectangle identifying an editable area.
// Regions are only built through geometry.NewRegion, so they never have
// negative origins, zero area, or extend beyond the image.
type Region struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	// Action is the per-region edit instruction, e.g. "remove the person"
	Action string `json:"action,omitempty"`
}

// Center returns the center point of the region
func (r Region) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// String formats the region as label@x,y wxh
func (r Region) String() string {
	return fmt.Sprintf("%s@%d,%d %dx%d", r.Label, r.X, r.Y, r.Width, r.Height)
}

// Temperature is the color temperature shift of a global edit
type Temperature string

const (
	TemperatureCold    Temperature = "cold"
	TemperatureNeutral Temperature = "neutral"
	TemperatureWarm    Temperature = "warm"
)

// ParseTemperature normalises free-form temperature words, defaulting to neutral
func ParseTemperature(s string) Temperature {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cold", "cool", "cooler", "colder":
		return TemperatureCold
	case "warm", "warmer":
		return TemperatureWarm
	default:
		return TemperatureNeutral
	}
}

// Parameter bounds for EditParameters
const (
	MinAdjustment = -100
	MaxAdjustment = 100
)

// EditParameters describes a global adjustment. The zero value is not valid:
// use IdentityParameters for the no-op transform.
type EditParameters struct {
	Brightness  int         `json:"brightness"`
	Contrast    int         `json:"contrast"`
	Saturation  int         `json:"saturation"`
	Temperature Temperature `json:"temperature"`
}

// IdentityParameters returns the no-op parameters
func IdentityParameters() EditParameters {
	return EditParameters{Temperature: TemperatureNeutral}
}

// Clamped returns a copy with every numeric field limited to [-100,100]
// and an unknown temperature replaced by neutral.
func (p EditParameters) Clamped() EditParameters {
	return EditParameters{
		Brightness:  clampInt(p.Brightness, MinAdjustment, MaxAdjustment),
		Contrast:    clampInt(p.Contrast, MinAdjustment, MaxAdjustment),
		Saturation:  clampInt(p.Saturation, MinAdjustment, MaxAdjustment),
		Temperature: ParseTemperature(string(p.Temperature)),
	}
}

// IsIdentity reports whether applying p leaves an image unchanged
func (p EditParameters) IsIdentity() bool {
	return p.Brightness == 0 && p.Contrast == 0 && p.Saturation == 0 &&
		ParseTemperature(string(p.Temperature)) == TemperatureNeutral
}

// DetectionQuery is an {object class, action} pair derived from the prompt
type DetectionQuery struct {
	ObjectClass string `json:"object"`
	Action      string `json:"action"`
}

// Verb returns the lowercased first word of the action
func (q DetectionQuery) Verb() string {
	fields := strings.Fields(strings.ToLower(q.Action))
	if len(fields) == 0 {
		return "edit"
	}
	return strings.Trim(fields[0], ".,;:!?")
}

// Tag returns a filename-safe verb_object tag such as remove_person
func (q DetectionQuery) Tag() string {
	return SanitizeTag(q.Verb() + "_" + q.ObjectClass)
}

// SanitizeTag lowercases s and keeps only [a-z0-9_], collapsing separators
func SanitizeTag(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// marshalIndent is shared by the String methods of the payloads
func marshalIndent(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}
