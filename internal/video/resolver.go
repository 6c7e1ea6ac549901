package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jwebster45206/story-reel/internal/apperr"
	"github.com/jwebster45206/story-reel/internal/services"
	"github.com/jwebster45206/story-reel/pkg/storage"
)

// DefaultBlobPrefix is the path under which proxied videos are served.
const DefaultBlobPrefix = "/v1/blobs/"

// Playable is a URL a player can load.
type Playable struct {
	URL string
	// Proxied is true when URL points at a locally stored copy.
	Proxied bool
	BlobID  string
}

// Resolver turns remote video URIs into playable URLs. It remembers the
// proxied blob each session holds and deletes it whenever it is replaced.
type Resolver struct {
	api        services.VideoAPI
	blobs      storage.BlobStore
	logger     *slog.Logger
	blobPrefix string

	mu   sync.Mutex
	held map[string]string
}

func NewResolver(api services.VideoAPI, blobs storage.BlobStore, logger *slog.Logger) *Resolver {
	return &Resolver{
		api:        api,
		blobs:      blobs,
		logger:     logger,
		blobPrefix: DefaultBlobPrefix,
		held:       make(map[string]string),
	}
}

// Resolve probes rawURL and returns it unchanged when it is directly
// fetchable. Otherwise the video is downloaded with credentials, stored as a
// blob and the blob URL is returned.
func (r *Resolver) Resolve(ctx context.Context, sessionID, rawURL string) (*Playable, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, apperr.Validation("videoUrl is required")
	}

	probeErr := r.api.Probe(ctx, rawURL)
	if probeErr == nil {
		if err := r.Release(ctx, sessionID); err != nil {
			r.logger.Warn("Failed to release previous video blob", "session_id", sessionID, "error", err)
		}
		r.logger.Debug("Video is directly playable", "session_id", sessionID)
		return &Playable{URL: rawURL}, nil
	}
	r.logger.Debug("Video probe failed, proxying", "session_id", sessionID, "error", probeErr)

	dl, err := r.api.Download(ctx, rawURL)
	if err != nil {
		return nil, downloadError(err)
	}

	id, err := r.blobs.Put(ctx, storage.Blob{Data: dl.Data, ContentType: dl.ContentType})
	if err != nil {
		return nil, fmt.Errorf("failed to store video: %w", err)
	}

	r.mu.Lock()
	previous := r.held[sessionID]
	r.held[sessionID] = id
	r.mu.Unlock()

	if previous != "" && previous != id {
		if err := r.blobs.Delete(ctx, previous); err != nil {
			r.logger.Warn("Failed to release previous video blob", "session_id", sessionID, "blob_id", previous, "error", err)
		}
	}

	r.logger.Info("Video proxied", "session_id", sessionID, "blob_id", id, "bytes", len(dl.Data))
	return &Playable{URL: r.blobPrefix + id, Proxied: true, BlobID: id}, nil
}

// Discard deletes the blob behind p when its result will not be used, such
// as a fetch that finished after the game was reset.
func (r *Resolver) Discard(ctx context.Context, sessionID string, p *Playable) error {
	if p == nil || !p.Proxied || p.BlobID == "" {
		return nil
	}
	r.mu.Lock()
	if r.held[sessionID] == p.BlobID {
		delete(r.held, sessionID)
	}
	r.mu.Unlock()
	return r.blobs.Delete(ctx, p.BlobID)
}

// Release deletes the blob held for sessionID, if any.
func (r *Resolver) Release(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	id, ok := r.held[sessionID]
	delete(r.held, sessionID)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return r.blobs.Delete(ctx, id)
}

// Held returns the blob ID held for sessionID.
func (r *Resolver) Held(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.held[sessionID]
	return id, ok
}

func downloadError(err error) error {
	var httpErr *apperr.HTTPError
	if errors.As(err, &httpErr) {
		msg := fmt.Sprintf("Failed to download video (%d)", httpErr.StatusCode)
		if httpErr.Body != "" {
			msg += ": " + httpErr.Body
		}
		return apperr.Wrap(apperr.CodeFor(err, apperr.CodeGeneration), msg, err)
	}
	return apperr.Wrap(apperr.CodeGeneration, fmt.Sprintf("Failed to download video: %v", err), err)
}
