package config

import "github.com/af-corp/aireader-gateway/internal/types"

// ModelsConfig holds the canonical best-first model orders and the user's
// preferred model per request kind.
type ModelsConfig struct {
	Preferred PreferredModels `yaml:"preferred"`
	Orders    ModelOrders     `yaml:"orders"`
}

type PreferredModels struct {
	Text  string `yaml:"text"`
	Image string `yaml:"image"`
}

type ModelOrders struct {
	Text  []string `yaml:"text"`
	Image []string `yaml:"image"`
}

// PreferredFor returns the preferred model for kind.
func (m *ModelsConfig) PreferredFor(kind types.Kind) string {
	if kind == types.KindImage {
		return m.Preferred.Image
	}
	return m.Preferred.Text
}

// OrderFor returns the configured canonical order for kind.
func (m *ModelsConfig) OrderFor(kind types.Kind) []string {
	if kind == types.KindImage {
		return m.Orders.Image
	}
	return m.Orders.Text
}

func DefaultModelsConfig() *ModelsConfig {
	return &ModelsConfig{
		Preferred: PreferredModels{
			Text:  "gemini-3.1-pro-preview",
			Image: "imagen-3.0-generate-002",
		},
		Orders: ModelOrders{
			Text: []string{
				"gemini-3.1-pro-preview",
				"gemini-3-flash-preview",
				"gemini-2.5-pro",
				"gemini-2.5-flash",
				"gemini-2.5-flash-lite",
				"gemini-2.0-flash",
				"gemini-flash-latest",
			},
			Image: []string{
				"imagen-3.0-generate-002",
				"gemini-3-pro-image-preview",
				"gemini-2.0-flash-preview-image-generation",
			},
		},
	}
}
