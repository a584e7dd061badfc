// Package credential resolves the ordered provider credential list and the
// persisted pointer to the credential tried first.
package credential

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/af-corp/aireader-gateway/internal/config"
	"github.com/af-corp/aireader-gateway/internal/state"
)

const fingerprintLen = 16

// Credential is one provider API key and its position in the resolved list.
// Index is only meaningful until the next configuration edit.
type Credential struct {
	Index int
	Value string
}

// Fingerprint identifies the credential by value, not position, so stored
// cursors follow a key when the list is reordered.
func (c Credential) Fingerprint() string {
	return Fingerprint(c.Value)
}

// Redacted returns a log-safe form of the credential.
func (c Credential) Redacted() string {
	return Redact(c.Value)
}

// Fingerprint returns a short SHA-256 hex digest of a credential value.
func Fingerprint(value string) string {
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:])[:fingerprintLen]
}

// Redact keeps the first few characters of a key; short keys are fully masked.
func Redact(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:6] + "..."
}

// Resolve trims, drops empties and duplicates (first occurrence wins) and
// preserves declared order. An empty result falls back to the legacy key.
func Resolve(list config.CredentialList) []Credential {
	seen := make(map[string]bool, len(list.Keys))
	var out []Credential
	for _, raw := range list.Keys {
		v := strings.TrimSpace(raw)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, Credential{Index: len(out), Value: v})
	}
	if len(out) == 0 {
		if legacy := strings.TrimSpace(list.LegacyKey); legacy != "" {
			out = append(out, Credential{Index: 0, Value: legacy})
		}
	}
	return out
}

// Store exposes the live credential list and the persisted active pointer.
type Store struct {
	source func() config.CredentialList
	state  state.Store
	logger *slog.Logger
}

func NewStore(source func() config.CredentialList, st state.Store, logger *slog.Logger) *Store {
	return &Store{source: source, state: st, logger: logger}
}

// List resolves the credential list from the current configuration. It
// never fails; an empty slice means nothing is configured.
func (s *Store) List() []Credential {
	return Resolve(s.source())
}

// ActiveIndex returns the persisted pointer modulo n. Read failures and
// out-of-range values are treated as 0. n must be positive.
func (s *Store) ActiveIndex(ctx context.Context, n int) int {
	if n <= 0 {
		return 0
	}
	idx, err := s.state.Active(ctx)
	if err != nil {
		s.logger.Warn("failed to read active credential", "error", err)
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

// SetActive persists the pointer immediately.
func (s *Store) SetActive(ctx context.Context, index int) error {
	return s.state.SetActive(ctx, index)
}
