// Package video starts long-running video generations, waits for them to
// finish and turns the resulting asset into a URL a player can load.
package video

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/jwebster45206/story-reel/internal/apperr"
	"github.com/jwebster45206/story-reel/internal/services"
	"github.com/jwebster45206/story-reel/pkg/prompts"
	"github.com/jwebster45206/story-reel/pkg/state"
)

// MaxReferenceImages is how many images are sent with a video request.
const MaxReferenceImages = 4

const defaultReferenceMIME = "image/png"

// Params describes one video generation.
type Params struct {
	Preferences state.VideoPreferences
	// Genre is the story genre; Preferences.GenreOverride wins over it.
	Genre string
	// ReferenceImages are data URIs or bare base64 strings.
	ReferenceImages []string
}

// NormalizeParams validates p and fills its defaults. Only the first
// MaxReferenceImages images are kept.
func NormalizeParams(p Params) (Params, error) {
	prefs, err := p.Preferences.Normalize()
	if err != nil {
		return p, apperr.Wrap(apperr.CodeValidation, err.Error(), err)
	}
	p.Preferences = prefs

	if len(p.ReferenceImages) == 0 {
		return p, apperr.Validation("referenceImages array is required with at least 1 image")
	}
	if len(p.ReferenceImages) > MaxReferenceImages {
		p.ReferenceImages = p.ReferenceImages[:MaxReferenceImages]
	}

	switch {
	case prefs.GenreOverride != "":
		p.Genre = prefs.GenreOverride
	case strings.TrimSpace(p.Genre) != "":
		p.Genre = strings.TrimSpace(p.Genre)
	default:
		p.Genre = prompts.DefaultVideoGenre
	}
	return p, nil
}

// Request builds the video API request for normalized params.
func (p Params) Request() (services.VideoRequest, error) {
	images := make([]services.ReferenceImage, 0, len(p.ReferenceImages))
	for i, raw := range p.ReferenceImages {
		img, err := DecodeReferenceImage(raw)
		if err != nil {
			return services.VideoRequest{}, apperr.Wrap(apperr.CodeValidation,
				fmt.Sprintf("reference image %d: %v", i+1, err), err)
		}
		images = append(images, img)
	}

	prefs := p.Preferences
	return services.VideoRequest{
		Prompt:          prompts.Video(prefs.Style, prefs.DurationSeconds, p.Genre, prefs.NegativePrompt),
		NegativePrompt:  prefs.NegativePrompt,
		AspectRatio:     prefs.AspectRatio,
		Resolution:      prefs.Resolution,
		DurationSeconds: prefs.DurationSeconds,
		ReferenceImages: images,
	}, nil
}

// DecodeReferenceImage accepts "data:image/png;base64,..." or bare base64.
func DecodeReferenceImage(raw string) (services.ReferenceImage, error) {
	raw = strings.TrimSpace(raw)
	mime := defaultReferenceMIME
	payload := raw

	if rest, ok := strings.CutPrefix(raw, "data:"); ok {
		header, data, found := strings.Cut(rest, ",")
		if !found {
			return services.ReferenceImage{}, errors.New("malformed data URI")
		}
		if m, _, _ := strings.Cut(header, ";"); m != "" {
			mime = m
		}
		payload = data
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return services.ReferenceImage{}, fmt.Errorf("invalid base64 image data: %w", err)
	}
	if len(data) == 0 {
		return services.ReferenceImage{}, errors.New("empty image data")
	}
	return services.ReferenceImage{Data: data, MIMEType: mime}, nil
}
