package prompts

import (
	"fmt"

	"github.com/jwebster45206/story-reel/pkg/state"
)

// DefaultVideoGenre is used when neither the preferences nor the story name a genre.
const DefaultVideoGenre = "cinematic"

// StyleDescriptions maps each video style to its prompt fragment.
var StyleDescriptions = map[state.VideoStyle]string{
	state.StyleLiveAction: "Photorealistic cinematic footage with natural lighting, real-world textures, film grain, and Hollywood-quality cinematography. Shallow depth of field, practical lighting sources.",
	state.StyleAnimation:  "High-quality 3D animated style with vibrant colors, expressive characters, smooth motion, and Pixar-quality rendering. Clean lines and polished visuals.",
	state.StyleStopMotion: "Whimsical stop-motion animation style with handcrafted textures, visible fingerprints on clay, charming imperfections, and frame-by-frame movement.",
	state.StyleAnime:      "Japanese anime style with dynamic camera angles, expressive faces, speed lines, dramatic lighting, cel-shading, and vibrant color palettes.",
	state.StyleWatercolor: "Artistic watercolor animation with flowing paint textures, soft edges, dreamy color bleeds, and ethereal transitions between scenes.",
	state.StyleNoir:       "Classic film noir style in high-contrast black and white with dramatic shadows, venetian blind lighting, rain-slicked streets, and moody atmosphere.",
}

// Video builds the video prompt. The reference images carry the narrative,
// so the story text itself is not included.
func Video(style state.VideoStyle, durationSeconds int, genre, negativePrompt string) string {
	if genre == "" {
		genre = DefaultVideoGenre
	}
	prompt := fmt.Sprintf("Create a %d-second %s video in %s style. Use the reference images as visual guidance.",
		durationSeconds, StyleDescriptions[style], genre)
	if negativePrompt != "" {
		prompt += " Avoid: " + negativePrompt
	}
	return prompt
}
