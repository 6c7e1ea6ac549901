package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/story-reel/pkg/state"
)

// Game matches the games API response.
type Game struct {
	state.GameState
	VideoPrepared  bool `json:"video_prepared"`
	TurnsRemaining int  `json:"turns_remaining"`
}

type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type Topic struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// doJSON sends body (if any) and decodes a successful response into out.
func doJSON(client *http.Client, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func createGame(client *http.Client, baseURL string) (*Game, error) {
	var game Game
	if err := doJSON(client, http.MethodPost, baseURL+"/v1/games", nil, &game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return &game, nil
}

func getGame(client *http.Client, baseURL string, gameID uuid.UUID) (*Game, error) {
	var game Game
	if err := doJSON(client, http.MethodGet, fmt.Sprintf("%s/v1/games/%s", baseURL, gameID), nil, &game); err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return &game, nil
}

// gameAction posts to /v1/games/{id}/{action} and returns the updated game.
func gameAction(client *http.Client, baseURL string, gameID uuid.UUID, action string, body any) (*Game, error) {
	var game Game
	url := fmt.Sprintf("%s/v1/games/%s/%s", baseURL, gameID, action)
	if err := doJSON(client, http.MethodPost, url, body, &game); err != nil {
		return nil, fmt.Errorf("%s failed: %w", action, err)
	}
	return &game, nil
}

func getOptions(client *http.Client, baseURL string, gameID uuid.UUID) ([]Option, error) {
	var resp struct {
		Options []Option `json:"options"`
	}
	url := fmt.Sprintf("%s/v1/games/%s/options", baseURL, gameID)
	if err := doJSON(client, http.MethodPost, url, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get options: %w", err)
	}
	return resp.Options, nil
}

func listTopics(client *http.Client, baseURL string) ([]Topic, error) {
	var resp struct {
		Topics []Topic `json:"topics"`
	}
	if err := doJSON(client, http.MethodGet, baseURL+"/v1/topics", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	return resp.Topics, nil
}

// SSEEvent represents an event from the SSE stream
type SSEEvent struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// listenToSSE connects to the SSE endpoint and streams events to a channel
func listenToSSE(ctx context.Context, client *http.Client, baseURL string, gameID uuid.UUID, eventChan chan<- SSEEvent) error {
	url := fmt.Sprintf("%s/v1/events/games/%s", baseURL, gameID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SSE connection failed with status %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	var currentEvent SSEEvent

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			// Empty line signals end of event
			if currentEvent.Type != "" {
				select {
				case eventChan <- currentEvent:
				case <-ctx.Done():
					return ctx.Err()
				}
				currentEvent = SSEEvent{}
			}
			continue
		}

		if strings.HasPrefix(line, "event: ") {
			currentEvent.Type = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			var data map[string]interface{}
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &data); err == nil {
				currentEvent.Data = data
			}
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return nil
}
