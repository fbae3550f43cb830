// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package skills

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/framingbot/pkg/types"
)

// openAIAPIURL is the OpenAI Chat Completions endpoint. Package-level var
// for test substitution.
var openAIAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIBackend calls the OpenAI Chat Completions API.
type OpenAIBackend struct {
	APIKey string
	Model  string
	Client *http.Client

	// Temperature and MaxTokens apply to free-form chat completions.
	// Structured skill calls always use temperature 0.
	Temperature float64
	MaxTokens   int
}

// openAIRequest is the request body for the Chat Completions API.
type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

// openAIMessage is a single message in the conversation.
type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openAIResponseFormat requests structured output.
type openAIResponseFormat struct {
	Type string `json:"type"`
}

// openAIResponse is the response body from the Chat Completions API.
type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the conversation history and returns the assistant reply.
func (b *OpenAIBackend) Complete(ctx context.Context, systemPrompt string, messages []types.ChatMessage) (string, error) {
	reqMessages := []openAIMessage{{Role: "system", Content: systemPrompt}}
	for _, m := range messages {
		reqMessages = append(reqMessages, openAIMessage{Role: m.Role, Content: m.Content})
	}

	maxTokens := b.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 800
	}

	return b.send(ctx, openAIRequest{
		Model:       b.Model,
		Messages:    reqMessages,
		Temperature: b.Temperature,
		MaxTokens:   maxTokens,
	})
}

// CompleteJSON sends one structured request with JSON response format.
func (b *OpenAIBackend) CompleteJSON(ctx context.Context, systemPrompt, userJSON string) (string, error) {
	return b.send(ctx, openAIRequest{
		Model: b.Model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userJSON},
		},
		Temperature:    0,
		MaxTokens:      1024,
		ResponseFormat: &openAIResponseFormat{Type: "json_object"},
	})
}

func (b *OpenAIBackend) send(ctx context.Context, reqBody openAIRequest) (string, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.APIKey)

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode, string(body))
	}

	var oResp openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return "", fmt.Errorf("decoding OpenAI response: %w", err)
	}

	if len(oResp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API returned no choices")
	}
	return oResp.Choices[0].Message.Content, nil
}
