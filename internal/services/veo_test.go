package services

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/jwebster45206/story-reel/internal/apperr"
)

func newTestVeo(t *testing.T, handler http.HandlerFunc) (*VeoService, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewVeoService(srv.URL+"/", "secret", "veo-test", slog.New(slog.NewTextHandler(io.Discard, nil))), srv
}

func TestVeoService_StartVideo(t *testing.T) {
	var body string
	svc, _ := newTestVeo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/veo-test:predictLongRunning", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		_, _ = w.Write([]byte(`{"name":"models/veo-test/operations/op1"}`))
	})

	op, err := svc.StartVideo(context.Background(), VideoRequest{
		Prompt:          "Create a video",
		NegativePrompt:  "blur",
		AspectRatio:     "16:9",
		Resolution:      "720p",
		DurationSeconds: 8,
		ReferenceImages: []ReferenceImage{{Data: []byte("hello"), MIMEType: "image/png"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "models/veo-test/operations/op1", op.Name)
	assert.False(t, op.Done)

	assert.Equal(t, "Create a video", gjson.Get(body, "instances.0.prompt").String())
	assert.Equal(t, "aGVsbG8=", gjson.Get(body, "instances.0.referenceImages.0.image.bytesBase64Encoded").String())
	assert.Equal(t, "asset", gjson.Get(body, "instances.0.referenceImages.0.referenceType").String())
	assert.Equal(t, int64(8), gjson.Get(body, "parameters.durationSeconds").Int())
	assert.Equal(t, "blur", gjson.Get(body, "parameters.negativePrompt").String())
}

func TestVeoService_PollVideo(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     VideoOperation
	}{
		{
			name:     "pending",
			response: `{"name":"op","done":false}`,
			want:     VideoOperation{Name: "op"},
		},
		{
			name:     "done with uri",
			response: `{"done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"https://files/v.mp4"}}]}}}`,
			want:     VideoOperation{Name: "models/veo/operations/x", Done: true, URI: "https://files/v.mp4"},
		},
		{
			name:     "done with error",
			response: `{"name":"op","done":true,"error":{"code":3,"message":"prompt blocked"}}`,
			want:     VideoOperation{Name: "op", Done: true, Error: "prompt blocked"},
		},
		{
			name:     "error without message",
			response: `{"name":"op","done":true,"error":{}}`,
			want:     VideoOperation{Name: "op", Done: true, Error: "Unknown error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestVeo(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1beta/models/veo/operations/x", r.URL.Path)
				_, _ = w.Write([]byte(tt.response))
			})
			op, err := svc.PollVideo(context.Background(), "models/veo/operations/x")
			require.NoError(t, err)
			assert.Equal(t, tt.want, *op)
		})
	}
}

func TestVeoService_NonSuccessIsHTTPError(t *testing.T) {
	svc, _ := newTestVeo(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("overloaded"))
	})

	_, err := svc.PollVideo(context.Background(), "op")
	require.Error(t, err)
	var httpErr *apperr.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.Equal(t, apperr.CategoryTransient, apperr.Classify(err))
}

func TestVeoService_ProbeAndDownload(t *testing.T) {
	svc, srv := newTestVeo(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/public.mp4":
			w.WriteHeader(http.StatusOK)
		case "/private.mp4":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
			_, _ = w.Write([]byte("video-bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	assert.NoError(t, svc.Probe(ctx, srv.URL+"/public.mp4"))
	assert.Error(t, svc.Probe(ctx, srv.URL+"/private.mp4"))

	dl, err := svc.Download(ctx, srv.URL+"/private.mp4")
	require.NoError(t, err)
	assert.Equal(t, []byte("video-bytes"), dl.Data)
	assert.NotEmpty(t, dl.ContentType)
}

func TestVeoService_DownloadRejectsOtherHosts(t *testing.T) {
	svc, srv := newTestVeo(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL)
	})

	for _, uri := range []string{
		"http://attacker.example/steal",
		"ftp://" + srv.Listener.Addr().String() + "/v.mp4",
		"/v1beta/files/v.mp4",
		"::not a url",
	} {
		_, err := svc.Download(context.Background(), uri)
		require.Error(t, err, uri)
		assert.ErrorIs(t, err, apperr.ErrValidation, uri)
	}
}
