package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/story-reel/internal/apperr"
	"github.com/jwebster45206/story-reel/pkg/storage"
)

// BlobsHandler serves proxied videos stored by the resolver.
type BlobsHandler struct {
	blobs  storage.BlobStore
	logger *slog.Logger
}

func NewBlobsHandler(blobs storage.BlobStore, logger *slog.Logger) *BlobsHandler {
	return &BlobsHandler{blobs: blobs, logger: logger}
}

// ServeHTTP handles GET /v1/blobs/{id}. Range requests are honoured so
// players can seek.
func (h *BlobsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, r, h.logger, http.MethodGet, http.MethodHead)
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/blobs"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, h.logger, apperr.Validation("Invalid path. Expected /v1/blobs/{id}"))
		return
	}

	blob, err := h.blobs.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if blob == nil {
		writeError(w, r, h.logger, apperr.Newf(apperr.CodeNotFound, "blob %s not found", id))
		return
	}

	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(blob.Data))
}
