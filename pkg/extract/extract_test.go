package extract

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArray(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected int
		want     []string
	}{
		{
			name:     "plain json array",
			raw:      `["The ship drifts toward the dark moon.", "A signal answers from below.", "The captain orders silence."]`,
			expected: 3,
			want:     []string{"The ship drifts toward the dark moon.", "A signal answers from below.", "The captain orders silence."},
		},
		{
			name: "fenced json with surrounding prose",
			raw: "Here you go:\n```json\n[\n  \"She opens the sealed door.\",\n  \"The lights flicker twice.\",\n  \"Nobody answers the call.\"\n]\n```",
			expected: 3,
			want:     []string{"She opens the sealed door.", "The lights flicker twice.", "Nobody answers the call."},
		},
		{
			name:     "object with array property",
			raw:      `{"count": 2, "options": ["A storm rolls in from the east.", "The bridge collapses behind them."]}`,
			expected: 3,
			want:     []string{"A storm rolls in from the east.", "The bridge collapses behind them."},
		},
		{
			name:     "object without array keeps value order",
			raw:      `{"b": "Second value comes first.", "a": "First value comes second."}`,
			expected: 3,
			want:     []string{"Second value comes first.", "First value comes second."},
		},
		{
			name:     "items with brackets inside",
			raw:      `["The sign reads [CLOSED] in red.", "The door is ajar tonight."]`,
			expected: 3,
			want:     []string{"The sign reads [CLOSED] in red.", "The door is ajar tonight."},
		},
		{
			name:     "short items discarded",
			raw:      `["ok", "", null, "The tower hums with energy."]`,
			expected: 3,
			want:     []string{"The tower hums with energy."},
		},
		{
			name:     "bullets and numbers stripped",
			raw:      `["1. The rover wakes at dawn.", "- A crater glows faintly.", "* Dust swirls over the ridge."]`,
			expected: 3,
			want:     []string{"The rover wakes at dawn.", "A crater glows faintly.", "Dust swirls over the ridge."},
		},
		{
			name:     "line fallback truncated to expected",
			raw:      "1. The reactor begins to overheat.\n2. The crew votes to abandon ship.\n3. A stranger boards the station.\n4. The lights go out for good.",
			expected: 3,
			want:     []string{"The reactor begins to overheat.", "The crew votes to abandon ship.", "A stranger boards the station."},
		},
		{
			name:     "inline numbered fallback",
			raw:      "1) The map was a forgery all along 2) The guide knew the truth",
			expected: 3,
			want:     []string{"The map was a forgery all along", "The guide knew the truth"},
		},
		{
			name:     "semicolon fallback with default count",
			raw:      "The wind carries a warning; Someone is following them; The river turns red at dusk; The moon never rises",
			expected: 0,
			want:     []string{"The wind carries a warning", "Someone is following them", "The river turns red at dusk"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Array(tt.raw, tt.expected)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArray_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{name: "empty", raw: "   ", want: ErrEmptyInput},
		{name: "nothing usable", raw: "no idea", want: ErrNoArray},
		{name: "array of tiny items and short lines", raw: `["a", "b"]`, want: ErrNoArray},
		{name: "short lines only", raw: "yes\nno\nmaybe", want: ErrNoArray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Array(tt.raw, 3)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want))
			assert.Nil(t, got)
		})
	}
}

func TestArray_WellFormedKeepsCountAndOrder(t *testing.T) {
	for n := 1; n <= 6; n++ {
		items := make([]string, n)
		quoted := make([]string, n)
		for i := range items {
			items[i] = "Option number " + strings.Repeat("x", i+1) + " continues the tale."
			quoted[i] = `"` + items[i] + `"`
		}
		got, err := Array("["+strings.Join(quoted, ", ")+"]", n)
		require.NoError(t, err)
		assert.Equal(t, items, got)
		for _, item := range got {
			assert.NotEmpty(t, item)
			assert.LessOrEqual(t, utf8.RuneCountInString(item), MaxItemLength)
		}
	}
}

func TestSingle(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		minLength int
		want      string
		wantErr   error
	}{
		{name: "quoted multi-line", raw: "\"The door creaks open.\nA cold wind follows.\"", minLength: 10, want: "The door creaks open. A cold wind follows."},
		{name: "exactly minimum", raw: "0123456789", minLength: 10, want: "0123456789"},
		{name: "one short", raw: "012345678", minLength: 10, wantErr: ErrTooShort},
		{name: "quotes do not count", raw: "'short'", minLength: 10, wantErr: ErrTooShort},
		{name: "blank", raw: "\n\n", minLength: 10, wantErr: ErrEmptyInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Single(tt.raw, tt.minLength)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSingle_TooShortMessage(t *testing.T) {
	_, err := Single("tiny", 10)
	require.Error(t, err)
	assert.Equal(t, "extracted text is too short (4 chars, minimum 10)", err.Error())
}
