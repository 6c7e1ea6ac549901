package state

import (
	"errors"
	"fmt"
	"strings"
)

// StoryText joins every turn into one passage.
func (gs GameState) StoryText() string {
	parts := make([]string, 0, len(gs.Turns))
	for _, t := range gs.Turns {
		parts = append(parts, t.Content)
	}
	return strings.Join(parts, " ")
}

// StorySoFar is the story text framed with the genre, as sent to the text model.
func (gs GameState) StorySoFar() string {
	story := gs.StoryText()
	if gs.Genre == "" {
		return story
	}
	return strings.TrimSpace(fmt.Sprintf("In this %s story, %s", gs.Genre, story))
}

// GenreLabel names the story for prompts, falling back to the topic.
func (gs GameState) GenreLabel() string {
	switch {
	case gs.Genre != "":
		return gs.Genre
	case gs.Topic != "":
		return gs.Topic
	default:
		return "story"
	}
}

// Validate checks the aggregate's invariants.
func (gs GameState) Validate() error {
	var errs []error

	if _, ok := phaseOrder[gs.Phase]; !ok {
		errs = append(errs, fmt.Errorf("unknown phase %q", gs.Phase))
	}
	if gs.CurrentTurnNumber != len(gs.Turns) {
		errs = append(errs, fmt.Errorf("current turn %d does not match %d turns", gs.CurrentTurnNumber, len(gs.Turns)))
	}
	if len(gs.Turns) > MaxTurns {
		errs = append(errs, fmt.Errorf("too many turns: %d", len(gs.Turns)))
	}
	for i, t := range gs.Turns {
		if t.TurnNumber != i+1 {
			errs = append(errs, fmt.Errorf("turn %d has number %d", i+1, t.TurnNumber))
		}
		want := AuthorUser
		if i%2 == 1 {
			want = AuthorAI
		}
		if t.Author != want {
			errs = append(errs, fmt.Errorf("turn %d written by %s, expected %s", i+1, t.Author, want))
		}
		if strings.TrimSpace(t.Content) == "" {
			errs = append(errs, fmt.Errorf("turn %d is empty", i+1))
		}
	}
	switch n := len(gs.Turns); {
	case n == MaxTurns:
		if gs.IsUserTurn {
			errs = append(errs, errors.New("no turn is due after the last turn"))
		}
	case n > 0:
		if gs.IsUserTurn != (gs.Turns[n-1].Author == AuthorAI) {
			errs = append(errs, errors.New("active player does not follow the last turn"))
		}
	}
	if gs.PanelGenerationProgress < 0 || gs.PanelGenerationProgress > PanelCount {
		errs = append(errs, fmt.Errorf("panel progress %d out of range", gs.PanelGenerationProgress))
	}
	if len(gs.PanelImages) > PanelCount {
		errs = append(errs, fmt.Errorf("too many panels: %d", len(gs.PanelImages)))
	}
	if p := gs.VideoPreferences; p != nil && p.Resolution == Resolution1080p && p.DurationSeconds != 8 {
		errs = append(errs, errors.New("1080p requires an 8 second video"))
	}
	if phaseOrder[gs.Phase] >= phaseOrder[PhaseGeneratingImage] && len(gs.Turns) != MaxTurns {
		errs = append(errs, fmt.Errorf("phase %s requires %d turns", gs.Phase, MaxTurns))
	}
	if gs.Phase == PhaseComplete && gs.PlayableVideoURL == "" {
		errs = append(errs, errors.New("complete game has no playable video"))
	}

	return errors.Join(errs...)
}
