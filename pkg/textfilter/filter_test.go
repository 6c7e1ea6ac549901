package textfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRating(t *testing.T) {
	tests := map[string]Rating{
		"g":     RatingG,
		"PG":    RatingPG,
		"pg-13": RatingPG13,
		"PG13":  RatingPG13,
		"R":     RatingR,
		"":      RatingPG13,
		"weird": RatingPG13,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseRating(in), "input %q", in)
	}
}

func TestFilterClean(t *testing.T) {
	f := New(RatingPG13)
	require.NotNil(t, f)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercase", in: "what the hell is that", want: "what the heck is that"},
		{name: "uppercase", in: "DAMN IT", want: "DANG IT"},
		{name: "title case", in: "Damn, the hatch is sealed.", want: "Dang, the hatch is sealed."},
		{name: "compound wins", in: "that was bullshit", want: "that was baloney"},
		{name: "word boundaries", in: "the class assembled in the shell", want: "the class assembled in the shell"},
		{name: "several", in: "Shit, the crap reactor", want: "Shoot, the crud reactor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Clean(tt.in))
		})
	}
}

func TestFilterNilPassesThrough(t *testing.T) {
	f := New(RatingR)
	assert.Nil(t, f)
	assert.Equal(t, "what the hell", f.Clean("what the hell"))
	assert.False(t, f.Contains("hell"))
	assert.Equal(t, []string{"damn"}, f.CleanAll([]string{"damn"}))
}

func TestFilterContains(t *testing.T) {
	f := New(RatingG)
	assert.True(t, f.Contains("Oh hell no"))
	assert.False(t, f.Contains("Hello there"))
}
