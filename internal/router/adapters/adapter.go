package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/af-corp/aireader-gateway/internal/config"
	"github.com/af-corp/aireader-gateway/internal/types"
)

// ErrMalformedResponse is returned when a 2xx body matches none of the
// response shapes an adapter understands.
var ErrMalformedResponse = errors.New("unexpected provider response structure")

// ProviderAdapter builds provider-specific HTTP requests for one credential
// and model, and extracts results from successful response bodies. Adapters
// never send requests themselves.
type ProviderAdapter interface {
	Name() string
	TextRequest(ctx context.Context, credential, model string, req *types.TextRequest) (*http.Request, error)
	ImageRequest(ctx context.Context, credential, model string, req *types.ImageRequest) (*http.Request, error)
	ParseText(body []byte) (string, error)
	ParseImage(body []byte) (*types.ImageResult, error)
	// ErrorMessage extracts a human-readable message from a non-2xx body,
	// or "" when there is none.
	ErrorMessage(body []byte) string
}

// New builds the adapter for cfg.Type.
func New(cfg config.ProviderConfig) ProviderAdapter {
	switch cfg.Type {
	case "", "gemini":
		return NewGeminiAdapter(cfg)
	case "openai":
		return NewOpenAIAdapter(cfg)
	default:
		// Fall back to OpenAI-compatible for unknown types
		return NewOpenAIAdapter(cfg)
	}
}

func newJSONRequest(ctx context.Context, url string, body any, headers map[string]string) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		if v != "" {
			httpReq.Header.Set(k, v)
		}
	}
	return httpReq, nil
}

// providerError is the error body shape both Gemini and OpenAI-compatible
// APIs return.
type providerError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func errorMessage(body []byte) string {
	var pe providerError
	if err := json.Unmarshal(body, &pe); err != nil {
		return ""
	}
	return pe.Error.Message
}
