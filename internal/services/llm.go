package services

import (
	"context"

	"google.golang.org/genai"
)

// Interaction is one text exchange with the model. Handle identifies the
// conversation including this exchange and can be passed back to continue it.
type Interaction struct {
	Text   string
	Handle string
}

// TextModel generates free-form text, optionally continuing an earlier conversation.
type TextModel interface {
	Interact(ctx context.Context, prompt, previousHandle string) (*Interaction, error)
}

// ImageModel generates images. The raw response is returned so callers can
// decide what counts as a usable image.
type ImageModel interface {
	GenerateImageContent(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error)
}

// ReferenceImage is an inline image that guides video generation.
type ReferenceImage struct {
	Data     []byte
	MIMEType string
}

// VideoRequest starts a long-running video generation.
type VideoRequest struct {
	Prompt          string
	NegativePrompt  string
	AspectRatio     string
	Resolution      string
	DurationSeconds int
	ReferenceImages []ReferenceImage
}

// VideoOperation is the observed state of a long-running video generation.
type VideoOperation struct {
	Name  string
	Done  bool
	URI   string
	Error string
}

// VideoDownload is the body of a fetched video.
type VideoDownload struct {
	Data        []byte
	ContentType string
}

// VideoAPI is the remote long-running video capability.
type VideoAPI interface {
	StartVideo(ctx context.Context, req VideoRequest) (*VideoOperation, error)
	PollVideo(ctx context.Context, operationName string) (*VideoOperation, error)
	// Probe reports whether uri can be fetched without credentials.
	Probe(ctx context.Context, uri string) error
	// Download fetches uri with the API credential.
	Download(ctx context.Context, uri string) (*VideoDownload, error)
}
