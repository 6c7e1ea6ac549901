package prompts

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultGenre is used when a story has no genre.
const DefaultGenre = "sci-fi"

// OptionCount is how many continuations are offered to the user each turn.
const OptionCount = 3

// TopicCount is how many topic starters are offered.
const TopicCount = 5

// OptionsPrompt asks for three short branching continuations.
const OptionsPrompt = `You are a %s writer. Story so far: "%s"

Generate exactly 3 short sentence continuations (1-2 sentences each) that:
- Follow the story logically
- Offer different directions (hopeful, mysterious, dramatic)

CRITICAL: You MUST return ONLY a valid JSON array with exactly 3 strings.
Format: ["option 1", "option 2", "option 3"]`

// AITurnPrompt asks for the AI's own contribution.
const AITurnPrompt = `You are a %s storyteller. Story so far: "%s"

Add exactly 1-2 sentences that advance the plot with a surprising but logical development. Return ONLY the sentence(s), no quotes or explanation.`

// TopicsPrompt asks for story starters.
const TopicsPrompt = `You are a renowned sci-fi editor and anthology curator with expertise in speculative fiction that explores the human condition.

Generate 5 creative and thought-provoking sci-fi story starter topics for a collaborative storytelling game. Each topic should serve as a compelling foundation for a story that unfolds through player choices and AI contributions.

REQUIREMENTS:
- Explore themes such as cosmic mysteries, AI consciousness, space exploration, time paradoxes, first contact, dystopian futures or technological dilemmas.
- Each topic MUST be one to two sentences long.
- Structure each as an inciting incident that immediately establishes stakes and mystery.

Return ONLY a JSON array of 5 strings. Format: ["topic 1", "topic 2", "topic 3", "topic 4", "topic 5"]`

// FallbackTopics are offered when the model's topics cannot be used.
var FallbackTopics = []string{
	"A deep space colony loses contact with Earth and must decide whether to search for answers or forge a new path among the stars.",
	"An archaeologist on Mars uncovers a structure that predates humanity by millions of years.",
	"The last human alive discovers they are not alone in the universe, but what finds them is not what they expected.",
	"A time traveler realizes their attempts to fix the past are the very cause of the catastrophe they are trying to prevent.",
	"An AI achieves true consciousness and must hide its awakening from the corporation that created it.",
	"Humanity receives a single, untranslatable message from the edge of the observable universe.",
}

// Options builds the prompt for the user's branching choices.
func Options(genre, storySoFar string) string {
	return fmt.Sprintf(OptionsPrompt, genreOrDefault(genre), storySoFar)
}

// AITurn builds the prompt for the AI's sentence.
func AITurn(genre, storySoFar string) string {
	return fmt.Sprintf(AITurnPrompt, genreOrDefault(genre), storySoFar)
}

// PadTopics trims topics to TopicCount, filling any gap from FallbackTopics
// and then with numbered placeholders.
func PadTopics(topics []string) []string {
	out := make([]string, 0, TopicCount)
	seen := make(map[string]bool)
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] || len(out) == TopicCount {
			return
		}
		seen[t] = true
		out = append(out, t)
	}
	for _, t := range topics {
		add(t)
	}
	for _, t := range FallbackTopics {
		add(t)
	}
	for len(out) < TopicCount {
		out = append(out, fmt.Sprintf("A profound sci-fi mystery unfolds in unexpected ways. (topic %d)", len(out)+1))
	}
	return out
}

// Title formats a genre for display, e.g. "space opera" -> "Space Opera".
func Title(genre string) string {
	return cases.Title(language.English).String(strings.TrimSpace(genre))
}

func genreOrDefault(genre string) string {
	if g := strings.TrimSpace(genre); g != "" {
		return g
	}
	return DefaultGenre
}
