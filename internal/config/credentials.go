package config

import "time"

type CredentialsConfig struct {
	Provider    ProviderConfig `yaml:"provider"`
	Credentials CredentialList `yaml:"credentials"`
}

type ProviderConfig struct {
	Type             string            `yaml:"type"`
	BaseURL          string            `yaml:"base_url"`
	Headers          map[string]string `yaml:"headers,omitempty"`
	MaxIdleConns     int               `yaml:"max_idle_conns"`
	IdleConnTimeout  time.Duration     `yaml:"idle_conn_timeout"`
	MaxResponseBytes int64             `yaml:"max_response_bytes"`
}

// CredentialList is the user-declared, ordered list of provider API keys.
// LegacyKey is the single-key setting older configurations used; it is only
// consulted when Keys yields nothing.
type CredentialList struct {
	Keys      []string `yaml:"keys"`
	LegacyKey string   `yaml:"legacy_key,omitempty"`
}

func DefaultCredentialsConfig() *CredentialsConfig {
	return &CredentialsConfig{
		Provider: ProviderConfig{
			Type:             "gemini",
			BaseURL:          "https://generativelanguage.googleapis.com/v1beta",
			MaxIdleConns:     4,
			IdleConnTimeout:  90 * time.Second,
			MaxResponseBytes: 32 << 20,
		},
	}
}
