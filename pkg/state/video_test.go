package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoPreferencesNormalize(t *testing.T) {
	tests := []struct {
		name      string
		in        VideoPreferences
		want      VideoPreferences
		wantField string
	}{
		{
			name: "defaults",
			in:   VideoPreferences{Style: StyleLiveAction},
			want: VideoPreferences{Style: StyleLiveAction, DurationSeconds: 8, AspectRatio: "16:9", Resolution: "720p"},
		},
		{
			name: "1080p kept at 8 seconds",
			in:   VideoPreferences{Style: StyleNoir, DurationSeconds: 8, AspectRatio: "9:16", Resolution: "1080p"},
			want: VideoPreferences{Style: StyleNoir, DurationSeconds: 8, AspectRatio: "9:16", Resolution: "1080p"},
		},
		{
			name: "1080p downgraded at 4 seconds",
			in:   VideoPreferences{Style: StyleAnime, DurationSeconds: 4, Resolution: "1080p"},
			want: VideoPreferences{Style: StyleAnime, DurationSeconds: 4, AspectRatio: "16:9", Resolution: "720p"},
		},
		{
			name: "1080p downgraded at 6 seconds",
			in:   VideoPreferences{Style: StyleAnime, DurationSeconds: 6, Resolution: "1080p"},
			want: VideoPreferences{Style: StyleAnime, DurationSeconds: 6, AspectRatio: "16:9", Resolution: "720p"},
		},
		{name: "missing style", in: VideoPreferences{DurationSeconds: 8}, wantField: "style"},
		{name: "unknown style", in: VideoPreferences{Style: "claymation"}, wantField: "style"},
		{name: "bad duration", in: VideoPreferences{Style: StyleNoir, DurationSeconds: 5}, wantField: "duration_seconds"},
		{name: "bad aspect", in: VideoPreferences{Style: StyleNoir, AspectRatio: "4:3"}, wantField: "aspect_ratio"},
		{name: "bad resolution", in: VideoPreferences{Style: StyleNoir, Resolution: "4k"}, wantField: "resolution"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if tt.wantField != "" {
				var prefErr *PreferencesError
				require.True(t, errors.As(err, &prefErr))
				assert.Equal(t, tt.wantField, prefErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
