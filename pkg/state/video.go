package state

import (
	"fmt"
	"slices"
	"strings"
)

// VideoStyle selects the visual treatment of the generated video.
type VideoStyle string

const (
	StyleLiveAction VideoStyle = "live-action"
	StyleAnimation  VideoStyle = "animation"
	StyleStopMotion VideoStyle = "stop-motion"
	StyleAnime      VideoStyle = "anime"
	StyleWatercolor VideoStyle = "watercolor"
	StyleNoir       VideoStyle = "noir"
)

// VideoStyles lists every supported style.
var VideoStyles = []VideoStyle{
	StyleLiveAction, StyleAnimation, StyleStopMotion, StyleAnime, StyleWatercolor, StyleNoir,
}

const (
	AspectLandscape = "16:9"
	AspectPortrait  = "9:16"

	Resolution720p  = "720p"
	Resolution1080p = "1080p"

	DefaultDurationSeconds = 8
)

var (
	validDurations   = []int{4, 6, 8}
	validAspects     = []string{AspectLandscape, AspectPortrait}
	validResolutions = []string{Resolution720p, Resolution1080p}
)

// VideoPreferences are the user's choices for the final video.
type VideoPreferences struct {
	Style           VideoStyle `json:"style"`
	DurationSeconds int        `json:"duration_seconds"`
	AspectRatio     string     `json:"aspect_ratio,omitempty"`
	Resolution      string     `json:"resolution,omitempty"`
	NegativePrompt  string     `json:"negative_prompt,omitempty"`
	GenreOverride   string     `json:"genre_override,omitempty"`
}

// PreferencesError describes an invalid preference field.
type PreferencesError struct {
	Field  string
	Reason string
}

func (e *PreferencesError) Error() string {
	return fmt.Sprintf("invalid video preference %s: %s", e.Field, e.Reason)
}

// Normalize fills defaults for unset fields and validates the rest. A 1080p
// request is only honoured for 8 second videos; shorter videos are quietly
// downgraded to 720p.
func (p VideoPreferences) Normalize() (VideoPreferences, error) {
	p.Style = VideoStyle(strings.TrimSpace(string(p.Style)))
	if p.Style == "" {
		return p, &PreferencesError{Field: "style", Reason: "is required"}
	}
	if !slices.Contains(VideoStyles, p.Style) {
		return p, &PreferencesError{Field: "style", Reason: fmt.Sprintf("unsupported style %q", p.Style)}
	}

	if p.DurationSeconds == 0 {
		p.DurationSeconds = DefaultDurationSeconds
	}
	if !slices.Contains(validDurations, p.DurationSeconds) {
		return p, &PreferencesError{Field: "duration_seconds", Reason: fmt.Sprintf("must be 4, 6 or 8, got %d", p.DurationSeconds)}
	}

	if p.AspectRatio == "" {
		p.AspectRatio = AspectLandscape
	}
	if !slices.Contains(validAspects, p.AspectRatio) {
		return p, &PreferencesError{Field: "aspect_ratio", Reason: fmt.Sprintf("must be 16:9 or 9:16, got %q", p.AspectRatio)}
	}

	if p.Resolution == "" {
		p.Resolution = Resolution720p
	}
	if !slices.Contains(validResolutions, p.Resolution) {
		return p, &PreferencesError{Field: "resolution", Reason: fmt.Sprintf("must be 720p or 1080p, got %q", p.Resolution)}
	}
	if p.Resolution == Resolution1080p && p.DurationSeconds != 8 {
		p.Resolution = Resolution720p
	}

	p.NegativePrompt = strings.TrimSpace(p.NegativePrompt)
	p.GenreOverride = strings.TrimSpace(p.GenreOverride)
	return p, nil
}
