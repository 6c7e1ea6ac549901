package services

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

// MockTextModel is a mock implementation of TextModel for testing
type MockTextModel struct {
	InteractFunc func(ctx context.Context, prompt, previousHandle string) (*Interaction, error)

	// Track calls for testing
	InteractCalls []InteractCall

	mu sync.Mutex
}

type InteractCall struct {
	Prompt         string
	PreviousHandle string
}

func NewMockTextModel() *MockTextModel {
	return &MockTextModel{InteractCalls: make([]InteractCall, 0)}
}

// Interact records the call and defers to InteractFunc, or echoes a fixed sentence.
func (m *MockTextModel) Interact(ctx context.Context, prompt, previousHandle string) (*Interaction, error) {
	m.mu.Lock()
	m.InteractCalls = append(m.InteractCalls, InteractCall{Prompt: prompt, PreviousHandle: previousHandle})
	n := len(m.InteractCalls)
	fn := m.InteractFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt, previousHandle)
	}
	return &Interaction{
		Text:   "The lighthouse keeper found a second shadow on the stairs.",
		Handle: fmt.Sprintf("mock-handle-%d", n),
	}, nil
}

// CallCount returns the number of Interact calls so far.
func (m *MockTextModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.InteractCalls)
}

// MockImageModel is a mock implementation of ImageModel for testing
type MockImageModel struct {
	GenerateImageContentFunc func(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error)

	GenerateImageContentCalls []string

	mu sync.Mutex
}

func NewMockImageModel() *MockImageModel {
	return &MockImageModel{GenerateImageContentCalls: make([]string, 0)}
}

func (m *MockImageModel) GenerateImageContent(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error) {
	m.mu.Lock()
	m.GenerateImageContentCalls = append(m.GenerateImageContentCalls, prompt)
	fn := m.GenerateImageContentFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	return ImageResponse([]byte("png-bytes"), "image/png"), nil
}

func (m *MockImageModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.GenerateImageContentCalls)
}

// ImageResponse builds a response carrying one inline image.
func ImageResponse(data []byte, mimeType string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}}},
			},
		}},
	}
}

// MockVideoAPI is a mock implementation of VideoAPI for testing
type MockVideoAPI struct {
	StartVideoFunc func(ctx context.Context, req VideoRequest) (*VideoOperation, error)
	PollVideoFunc  func(ctx context.Context, operationName string) (*VideoOperation, error)
	ProbeFunc      func(ctx context.Context, uri string) error
	DownloadFunc   func(ctx context.Context, uri string) (*VideoDownload, error)

	StartVideoCalls []VideoRequest
	PollVideoCalls  []string
	ProbeCalls      []string
	DownloadCalls   []string

	mu sync.Mutex
}

func NewMockVideoAPI() *MockVideoAPI {
	return &MockVideoAPI{}
}

func (m *MockVideoAPI) StartVideo(ctx context.Context, req VideoRequest) (*VideoOperation, error) {
	m.mu.Lock()
	m.StartVideoCalls = append(m.StartVideoCalls, req)
	fn := m.StartVideoFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &VideoOperation{Name: "models/veo/operations/mock"}, nil
}

func (m *MockVideoAPI) PollVideo(ctx context.Context, operationName string) (*VideoOperation, error) {
	m.mu.Lock()
	m.PollVideoCalls = append(m.PollVideoCalls, operationName)
	fn := m.PollVideoFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, operationName)
	}
	return &VideoOperation{Name: operationName, Done: true, URI: "https://example.com/video.mp4"}, nil
}

func (m *MockVideoAPI) Probe(ctx context.Context, uri string) error {
	m.mu.Lock()
	m.ProbeCalls = append(m.ProbeCalls, uri)
	fn := m.ProbeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, uri)
	}
	return nil
}

func (m *MockVideoAPI) Download(ctx context.Context, uri string) (*VideoDownload, error) {
	m.mu.Lock()
	m.DownloadCalls = append(m.DownloadCalls, uri)
	fn := m.DownloadFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, uri)
	}
	return &VideoDownload{Data: []byte("mp4"), ContentType: defaultContentType}, nil
}

// PollCount returns the number of PollVideo calls so far.
func (m *MockVideoAPI) PollCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.PollVideoCalls)
}
