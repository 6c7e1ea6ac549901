package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// GeminiService talks to the Gemini API for text and image generation.
type GeminiService struct {
	client        *genai.Client
	conversations ConversationStore
	textModel     string
	imageModel    string
	logger        *slog.Logger
}

var (
	_ TextModel  = (*GeminiService)(nil)
	_ ImageModel = (*GeminiService)(nil)
)

// GeminiConfig configures a GeminiService.
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
}

// NewGeminiService creates a Gemini API client.
func NewGeminiService(ctx context.Context, cfg GeminiConfig, conversations ConversationStore, logger *slog.Logger) (*GeminiService, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiService{
		client:        client,
		conversations: conversations,
		textModel:     cfg.TextModel,
		imageModel:    cfg.ImageModel,
		logger:        logger,
	}, nil
}

// Interact sends prompt as the next user message of the conversation named by
// previousHandle (or a new conversation when it is empty). Each successful
// exchange is saved under a fresh handle, so older handles stay valid and
// continuing from one never alters another.
func (g *GeminiService) Interact(ctx context.Context, prompt, previousHandle string) (*Interaction, error) {
	var history []ConversationMessage
	if previousHandle != "" {
		loaded, err := g.conversations.Load(ctx, previousHandle)
		switch {
		case errors.Is(err, ErrConversationNotFound):
			g.logger.Warn("Conversation handle not found, starting fresh", "handle", previousHandle)
		case err != nil:
			return nil, err
		default:
			history = loaded
		}
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		var role genai.Role = genai.RoleUser
		if msg.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	resp, err := g.client.Models.GenerateContent(ctx, g.textModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		// An empty reply does not advance the conversation.
		return &Interaction{}, nil
	}

	handle := uuid.NewString()
	history = append(history,
		ConversationMessage{Role: RoleUser, Text: prompt},
		ConversationMessage{Role: RoleModel, Text: text},
	)
	if err := g.conversations.Save(ctx, handle, history); err != nil {
		return nil, err
	}

	g.logger.Debug("Gemini interaction complete",
		"model", g.textModel,
		"history_length", len(history),
		"response_length", len(text))

	return &Interaction{Text: text, Handle: handle}, nil
}

// GenerateImageContent requests a single 16:9 image for prompt.
func (g *GeminiService) GenerateImageContent(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error) {
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
		ImageConfig:        &genai.ImageConfig{AspectRatio: "16:9"},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.imageModel, genai.Text(prompt), config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}
	return resp, nil
}
