package prompts

import (
	"fmt"
	"strings"
)

// Beat is one panel of the four-panel storyboard.
type Beat struct {
	Label       string
	Instruction string
}

// Beats are the storyboard beats in narrative order. Every beat receives the
// whole story so the panels stay consistent with each other.
var Beats = []Beat{
	{Label: "Scene 1", Instruction: "Opening establishing keyframe for a %s. Use the full story context: %s"},
	{Label: "Scene 2", Instruction: "Rising action and development drawn from the full story: %s"},
	{Label: "Scene 3", Instruction: "Climactic moment from the full story: %s"},
	{Label: "Scene 4", Instruction: "Resolution / aftermath that honors the full story: %s"},
}

// PanelStory returns the story context for the beat at index i.
func PanelStory(i int, genre, story string) string {
	beat := Beats[i]
	if i == 0 {
		return fmt.Sprintf(beat.Instruction, genre, story)
	}
	return fmt.Sprintf(beat.Instruction, story)
}

const panelDirectives = `COMPOSITION: Dynamic cinematic framing with a wide-angle lens (24-35mm equivalent) and dramatic perspective. Use the rule of thirds with the focal element off-center. Include foreground interest and deep field depth.

LIGHTING: Atmospheric cinematic lighting with high contrast. Use practical light sources such as bioluminescence, holographic displays or starlight. Add volumetric light rays and atmospheric scattering.

STYLE: Prestige sci-fi aesthetic blending Moebius-inspired linework with photorealistic detail. Rich palette of desaturated cool tones with saturated accents.

TECHNICAL: Photorealistic rendering, 85mm lens at f/2.8 for shallow depth of field, high dynamic range, subtle film grain.

ATMOSPHERE: Capture the wonder, mystery and emotional depth of the scene, conveying its scale and tension.

The illustration should look like a key frame from a prestige sci-fi film.`

// Panel builds the image prompt for one panel. label may be empty.
func Panel(storyContext, label string) string {
	scene := "a keyframe from the story"
	if label = strings.TrimSpace(label); label != "" {
		scene = label + " keyframe from the story"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a masterpiece cinematic illustration for %s.\n\n", scene)
	b.WriteString("FULL STORY CONTEXT (use this for fidelity and consistency):\n")
	b.WriteString(storyContext)
	b.WriteString("\n\n")
	b.WriteString(panelDirectives)
	return b.String()
}
