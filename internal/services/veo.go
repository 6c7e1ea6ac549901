package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jwebster45206/story-reel/internal/apperr"
)

const (
	apiKeyHeader       = "x-goog-api-key"
	defaultContentType = "video/mp4"
	videoURIPath       = "response.generateVideoResponse.generatedSamples.0.video.uri"
)

// VeoService is a REST client for long-running video generation. The REST
// surface is used directly because operation handles must survive being
// passed through HTTP clients as plain strings.
type VeoService struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ VideoAPI = (*VeoService)(nil)

// NewVeoService creates a video client against baseURL (no trailing /v1beta).
func NewVeoService(baseURL, apiKey, model string, logger *slog.Logger) *VeoService {
	return &VeoService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
	}
}

type veoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MIMEType           string `json:"mimeType"`
}

type veoReferenceImage struct {
	Image         veoImage `json:"image"`
	ReferenceType string   `json:"referenceType"`
}

type veoInstance struct {
	Prompt          string              `json:"prompt"`
	ReferenceImages []veoReferenceImage `json:"referenceImages,omitempty"`
}

type veoParameters struct {
	AspectRatio     string `json:"aspectRatio,omitempty"`
	Resolution      string `json:"resolution,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	NegativePrompt  string `json:"negativePrompt,omitempty"`
}

type veoRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParameters `json:"parameters"`
}

// StartVideo submits a predictLongRunning request.
func (v *VeoService) StartVideo(ctx context.Context, req VideoRequest) (*VideoOperation, error) {
	instance := veoInstance{Prompt: req.Prompt}
	for _, img := range req.ReferenceImages {
		instance.ReferenceImages = append(instance.ReferenceImages, veoReferenceImage{
			Image: veoImage{
				BytesBase64Encoded: base64.StdEncoding.EncodeToString(img.Data),
				MIMEType:           img.MIMEType,
			},
			ReferenceType: "asset",
		})
	}
	body := veoRequest{
		Instances: []veoInstance{instance},
		Parameters: veoParameters{
			AspectRatio:     req.AspectRatio,
			Resolution:      req.Resolution,
			DurationSeconds: req.DurationSeconds,
			NegativePrompt:  req.NegativePrompt,
		},
	}
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:predictLongRunning", v.baseURL, v.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	respBody, _, err := v.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to start video generation: %w", err)
	}

	op := parseOperation(respBody, "")
	if op.Name == "" && !op.Done {
		return nil, fmt.Errorf("video generation response has no operation name")
	}
	v.logger.Info("Video generation started",
		"operation", op.Name,
		"reference_images", len(req.ReferenceImages),
		"duration_seconds", req.DurationSeconds)
	return op, nil
}

// PollVideo fetches the current state of operationName.
func (v *VeoService) PollVideo(ctx context.Context, operationName string) (*VideoOperation, error) {
	url := fmt.Sprintf("%s/v1beta/%s", v.baseURL, strings.TrimLeft(operationName, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	respBody, _, err := v.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to poll video operation: %w", err)
	}
	return parseOperation(respBody, operationName), nil
}

// Probe issues an unauthenticated HEAD against uri.
func (v *VeoService) Probe(ctx context.Context, uri string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodHead, uri, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := v.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to probe video: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apperr.HTTPError{StatusCode: resp.StatusCode}
	}
	return nil
}

// Download fetches uri with the API key attached. Only URIs on the API host
// are accepted, so the key never leaves for a host the caller picked.
func (v *VeoService) Download(ctx context.Context, uri string) (*VideoDownload, error) {
	if err := v.checkDownloadURI(uri); err != nil {
		v.logger.Warn("Rejected video download", "error", err)
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	data, header, err := v.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to download video: %w", err)
	}
	contentType := header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}
	return &VideoDownload{Data: data, ContentType: contentType}, nil
}

func (v *VeoService) checkDownloadURI(uri string) error {
	target, err := url.Parse(uri)
	if err != nil || target.Host == "" {
		return apperr.Validation("video_url must be an absolute URL")
	}
	base, err := url.Parse(v.baseURL)
	if err != nil {
		return fmt.Errorf("failed to parse base URL: %w", err)
	}
	if !strings.EqualFold(target.Scheme, base.Scheme) || !strings.EqualFold(target.Host, base.Host) {
		return apperr.Newf(apperr.CodeValidation, "video_url must point at %s", base.Host)
	}
	return nil
}

func (v *VeoService) do(req *http.Request) ([]byte, http.Header, error) {
	req.Header.Set(apiKeyHeader, v.apiKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, &apperr.HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, resp.Header, nil
}

func parseOperation(body []byte, fallbackName string) *VideoOperation {
	result := gjson.ParseBytes(body)
	op := &VideoOperation{
		Name: result.Get("name").String(),
		Done: result.Get("done").Bool(),
		URI:  result.Get(videoURIPath).String(),
	}
	if op.Name == "" {
		op.Name = fallbackName
	}
	if errResult := result.Get("error"); errResult.Exists() {
		op.Error = errResult.Get("message").String()
		if op.Error == "" {
			op.Error = "Unknown error"
		}
	}
	return op
}
