package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/af-corp/aireader-gateway/internal/config"
	"github.com/af-corp/aireader-gateway/internal/types"
)

const (
	defaultTemperature = 0.3
	imagenPrefix       = "imagen-"
)

// GeminiAdapter talks to the Generative Language API. The credential goes in
// the key query parameter.
type GeminiAdapter struct {
	cfg config.ProviderConfig
}

func NewGeminiAdapter(cfg config.ProviderConfig) *GeminiAdapter {
	return &GeminiAdapter{cfg: cfg}
}

func (a *GeminiAdapter) Name() string { return "gemini" }

func (a *GeminiAdapter) endpoint(model, method, credential string) string {
	base := strings.TrimRight(a.cfg.BaseURL, "/")
	return fmt.Sprintf("%s/models/%s:%s?key=%s", base, url.PathEscape(model), method, url.QueryEscape(credential))
}

func (a *GeminiAdapter) TextRequest(ctx context.Context, credential, model string, req *types.TextRequest) (*http.Request, error) {
	body := geminiGenerateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature: defaultTemperature,
		},
	}
	if req.SystemInstruction != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemInstruction}}}
	}
	if req.ExpectJSON {
		body.GenerationConfig.ResponseMimeType = "application/json"
	}
	return newJSONRequest(ctx, a.endpoint(model, "generateContent", credential), body, a.cfg.Headers)
}

// ImageRequest uses :predict for Imagen models and :generateContent with an
// image response modality for Gemini image models.
func (a *GeminiAdapter) ImageRequest(ctx context.Context, credential, model string, req *types.ImageRequest) (*http.Request, error) {
	if strings.HasPrefix(model, imagenPrefix) {
		body := imagenPredictRequest{
			Instances:  []imagenInstance{{Prompt: req.Prompt}},
			Parameters: imagenParameters{SampleCount: 1},
		}
		return newJSONRequest(ctx, a.endpoint(model, "predict", credential), body, a.cfg.Headers)
	}

	body := geminiGenerateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}
	return newJSONRequest(ctx, a.endpoint(model, "generateContent", credential), body, a.cfg.Headers)
}

func (a *GeminiAdapter) ParseText(body []byte) (string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if text, ok := resp.firstText(); ok {
		return text, nil
	}
	return "", ErrMalformedResponse
}

// imageShapes are tried in order; the first that matches wins.
var imageShapes = []func(*geminiResponse) (*types.ImageResult, bool){
	predictionImage,
	inlineImage,
	candidateText,
}

func (a *GeminiAdapter) ParseImage(body []byte) (*types.ImageResult, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	for _, shape := range imageShapes {
		if res, ok := shape(&resp); ok {
			return res, nil
		}
	}
	return nil, ErrMalformedResponse
}

func (a *GeminiAdapter) ErrorMessage(body []byte) string {
	return errorMessage(body)
}

func predictionImage(r *geminiResponse) (*types.ImageResult, bool) {
	if len(r.Predictions) == 0 || r.Predictions[0].BytesBase64Encoded == "" {
		return nil, false
	}
	p := r.Predictions[0]
	return &types.ImageResult{MimeType: p.MimeType, Data: p.BytesBase64Encoded}, true
}

func inlineImage(r *geminiResponse) (*types.ImageResult, bool) {
	if len(r.Candidates) == 0 {
		return nil, false
	}
	for _, part := range r.Candidates[0].Content.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			return &types.ImageResult{MimeType: part.InlineData.MimeType, Data: part.InlineData.Data}, true
		}
	}
	return nil, false
}

func candidateText(r *geminiResponse) (*types.ImageResult, bool) {
	text, ok := r.firstText()
	if !ok {
		return nil, false
	}
	return &types.ImageResult{Text: text}, true
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature        float64  `json:"temperature,omitempty"`
	ResponseMimeType   string   `json:"response_mime_type,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"system_instruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type imagenInstance struct {
	Prompt string `json:"prompt"`
}

type imagenParameters struct {
	SampleCount int `json:"sampleCount"`
}

type imagenPredictRequest struct {
	Instances  []imagenInstance `json:"instances"`
	Parameters imagenParameters `json:"parameters"`
}

// geminiResponse covers both generateContent and predict response bodies.
type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

func (r *geminiResponse) firstText() (string, bool) {
	if len(r.Candidates) == 0 {
		return "", false
	}
	for _, part := range r.Candidates[0].Content.Parts {
		if part.Text != "" {
			return part.Text, true
		}
	}
	return "", false
}
