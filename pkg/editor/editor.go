// Package editor holds the RegionEditor strategies used for local edits.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/menta2k/image-assistant/pkg/geometry"
	"github.com/menta2k/image-assistant/pkg/types"
)

// RegionEditor applies action to region r of img and returns the full
// working image. img is never modified.
type RegionEditor interface {
	Edit(ctx context.Context, img image.Image, r types.Region, action string) (image.Image, error)
}

// Func adapts a function to RegionEditor
type Func func(ctx context.Context, img image.Image, r types.Region, action string) (image.Image, error)

// Edit calls f(ctx, img, r, action)
func (f Func) Edit(ctx context.Context, img image.Image, r types.Region, action string) (image.Image, error) {
	return f(ctx, img, r, action)
}

// ErrNoChange is returned when an editor decided the action needs no pixels changed
var ErrNoChange = errors.New("edit produced no change")

// Verb groups understood by the Router
var (
	RemovalVerbs   = []string{"remove", "delete", "erase", "clear", "get rid", "take out", "eliminate"}
	ObscuringVerbs = []string{"blur", "pixelate", "hide", "obscure", "censor", "anonymize", "anonymise"}
)

// Router picks an editor from the leading verb of the action
type Router struct {
	Remove     RegionEditor
	Obscure    RegionEditor
	Generative RegionEditor
}

// Edit dispatches to the matching strategy. Removal and obscuring verbs fall
// back to Generative when their editor is not configured.
func (rt *Router) Edit(ctx context.Context, img image.Image, r types.Region, action string) (image.Image, error) {
	ed := rt.Select(action)
	if ed == nil {
		return nil, fmt.Errorf("no editor configured for %q", action)
	}
	return ed.Edit(ctx, img, r, action)
}

// Select returns the editor that would handle action
func (rt *Router) Select(action string) RegionEditor {
	a := strings.ToLower(strings.TrimSpace(action))
	switch {
	case hasVerb(a, RemovalVerbs) && rt.Remove != nil:
		return rt.Remove
	case hasVerb(a, ObscuringVerbs) && rt.Obscure != nil:
		return rt.Obscure
	default:
		return rt.Generative
	}
}

func hasVerb(action string, verbs []string) bool {
	for _, v := range verbs {
		if action == v || strings.HasPrefix(action, v+" ") {
			return true
		}
	}
	return false
}

// regionRect returns r in img coordinates, rejecting regions outside img
func regionRect(img image.Image, r types.Region) (image.Rectangle, error) {
	b := img.Bounds()
	if !geometry.Contains(r, b.Dx(), b.Dy()) {
		return image.Rectangle{}, fmt.Errorf("region %s outside %dx%d image", r, b.Dx(), b.Dy())
	}
	return geometry.Rect(r, b.Min), nil
}
