package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/af-corp/aireader-gateway/internal/config"
	"github.com/af-corp/aireader-gateway/internal/types"
)

// OpenAIAdapter handles OpenAI-compatible chat completion and image APIs.
type OpenAIAdapter struct {
	cfg config.ProviderConfig
}

func NewOpenAIAdapter(cfg config.ProviderConfig) *OpenAIAdapter {
	return &OpenAIAdapter{cfg: cfg}
}

func (a *OpenAIAdapter) Name() string { return "openai" }

func (a *OpenAIAdapter) url(path string) string {
	return strings.TrimRight(a.cfg.BaseURL, "/") + path
}

func (a *OpenAIAdapter) newRequest(ctx context.Context, credential, path string, body any) (*http.Request, error) {
	httpReq, err := newJSONRequest(ctx, a.url(path), body, a.cfg.Headers)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+credential)
	return httpReq, nil
}

func (a *OpenAIAdapter) TextRequest(ctx context.Context, credential, model string, req *types.TextRequest) (*http.Request, error) {
	temperature := defaultTemperature
	body := openAIChatRequest{
		Model:       model,
		Temperature: &temperature,
	}
	if req.SystemInstruction != "" {
		body.Messages = append(body.Messages, openAIMessage{Role: "system", Content: req.SystemInstruction})
	}
	body.Messages = append(body.Messages, openAIMessage{Role: "user", Content: req.Prompt})
	if req.ExpectJSON {
		body.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}
	return a.newRequest(ctx, credential, "/chat/completions", body)
}

func (a *OpenAIAdapter) ImageRequest(ctx context.Context, credential, model string, req *types.ImageRequest) (*http.Request, error) {
	body := openAIImageRequest{
		Model:          model,
		Prompt:         req.Prompt,
		N:              1,
		ResponseFormat: "b64_json",
	}
	return a.newRequest(ctx, credential, "/images/generations", body)
}

func (a *OpenAIAdapter) ParseText(body []byte) (string, error) {
	var resp openAIChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrMalformedResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (a *OpenAIAdapter) ParseImage(body []byte) (*types.ImageResult, error) {
	var resp openAIImageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(resp.Data) == 0 {
		return nil, ErrMalformedResponse
	}
	d := resp.Data[0]
	switch {
	case d.B64JSON != "":
		return &types.ImageResult{MimeType: "image/png", Data: d.B64JSON}, nil
	case d.RevisedPrompt != "":
		return &types.ImageResult{Text: d.RevisedPrompt}, nil
	}
	return nil, ErrMalformedResponse
}

func (a *OpenAIAdapter) ErrorMessage(body []byte) string {
	return errorMessage(body)
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIChatRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    *float64              `json:"temperature,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int           `json:"index"`
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
}

type openAIImageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format"`
}

type openAIImageResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}
