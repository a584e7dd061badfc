// Package catalog holds the canonical, best-first model orders per request
// kind and resolves the model stack a request walks through.
package catalog

import (
	"github.com/af-corp/aireader-gateway/internal/config"
	"github.com/af-corp/aireader-gateway/internal/types"
)

// Catalog is immutable after construction; a config reload builds a new one.
type Catalog struct {
	orders map[types.Kind][]string
}

func New(cfg *config.ModelsConfig) *Catalog {
	c := &Catalog{orders: make(map[types.Kind][]string, len(types.Kinds))}
	for _, kind := range types.Kinds {
		c.orders[kind] = dedupe(cfg.OrderFor(kind))
	}
	return c
}

// Order returns a copy of the canonical order for kind.
func (c *Catalog) Order(kind types.Kind) []string {
	return append([]string(nil), c.orders[kind]...)
}

// Stack returns the models to attempt, in order.
//
// With fallback disabled it is exactly [preferred], whether or not the
// catalog knows that model. With fallback enabled the canonical order is
// sliced from preferred onwards so models ranked above the user's choice are
// never attempted; an unknown preferred model yields the full order.
func (c *Catalog) Stack(kind types.Kind, preferred string, fallbackEnabled bool) []string {
	if !fallbackEnabled {
		return []string{preferred}
	}
	order := c.orders[kind]
	for i, m := range order {
		if m == preferred {
			return append([]string(nil), order[i:]...)
		}
	}
	return append([]string(nil), order...)
}

func dedupe(models []string) []string {
	seen := make(map[string]bool, len(models))
	out := make([]string, 0, len(models))
	for _, m := range models {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
