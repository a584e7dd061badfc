// Package router walks a request through credentials and models until one
// attempt succeeds, remembering sticky failures across calls.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/af-corp/aireader-gateway/internal/catalog"
	"github.com/af-corp/aireader-gateway/internal/config"
	"github.com/af-corp/aireader-gateway/internal/credential"
	"github.com/af-corp/aireader-gateway/internal/router/adapters"
	"github.com/af-corp/aireader-gateway/internal/secrets"
	"github.com/af-corp/aireader-gateway/internal/state"
	"github.com/af-corp/aireader-gateway/internal/telemetry"
	"github.com/af-corp/aireader-gateway/internal/transport"
	"github.com/af-corp/aireader-gateway/internal/types"
)

const previewLen = 200

// Doer sends one attempt. *transport.Client implements it.
type Doer interface {
	Do(ctx context.Context, req *http.Request, timeout time.Duration) (*transport.Response, error)
}

// Payload carries the request for one kind; only the matching field is used.
type Payload struct {
	Text  *types.TextRequest
	Image *types.ImageRequest
}

// Result is a successful generation. Image is set for image requests.
type Result struct {
	Text  string
	Image *types.ImageResult
	types.Served
}

// Options wires a Router. The function fields are read on every call so
// configuration reloads apply to the next request.
type Options struct {
	Credentials *credential.Store
	Routes      *state.RouteState
	Adapter     func() adapters.ProviderAdapter
	Models      func() *config.ModelsConfig
	Settings    func() config.RoutingConfig
	Doer        Doer
	Metrics     *telemetry.Metrics
	Logger      *slog.Logger
}

// Router is safe for concurrent use. Concurrent calls share persisted
// routing state and race on writes to it.
type Router struct {
	credentials *credential.Store
	routes      *state.RouteState
	adapter     func() adapters.ProviderAdapter
	models      func() *config.ModelsConfig
	settings    func() config.RoutingConfig
	doer        Doer
	metrics     *telemetry.Metrics
	logger      *slog.Logger
	secrets     *secrets.Scanner
}

func New(opts Options) *Router {
	return &Router{
		credentials: opts.Credentials,
		routes:      opts.Routes,
		adapter:     opts.Adapter,
		models:      opts.Models,
		settings:    opts.Settings,
		doer:        opts.Doer,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		secrets:     secrets.NewScanner(),
	}
}

// Stack returns the model stack a request of kind would walk right now.
func (r *Router) Stack(kind types.Kind) []string {
	models := r.models()
	return catalog.New(models).Stack(kind, models.PreferredFor(kind), r.settings().FallbackEnabled)
}

// Generate runs one top-level request. It returns ErrNoCredentialsConfigured
// or ErrNoModelsConfigured without attempting anything, an *ExhaustedError
// when every attempt failed, or ctx.Err() if the caller gave up.
func (r *Router) Generate(ctx context.Context, kind types.Kind, payload Payload) (*Result, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown request kind %q", kind)
	}
	if (kind == types.KindText && payload.Text == nil) || (kind == types.KindImage && payload.Image == nil) {
		return nil, fmt.Errorf("missing %s payload", kind)
	}

	start := time.Now()
	res, err := r.generate(ctx, kind, payload)

	status := "success"
	if err != nil {
		status = errorStatus(err)
	}
	r.metrics.RecordRequest(telemetry.RequestLabels{
		Kind:       string(kind),
		Status:     status,
		DurationMs: float64(time.Since(start).Milliseconds()),
	})
	return res, err
}

func (r *Router) generate(ctx context.Context, kind types.Kind, payload Payload) (*Result, error) {
	creds := r.credentials.List()
	if len(creds) == 0 {
		return nil, ErrNoCredentialsConfigured
	}

	settings := r.settings()
	stack := r.Stack(kind)
	if len(stack) == 0 || stack[0] == "" {
		return nil, ErrNoModelsConfigured
	}

	m := &machine{
		router:   r,
		kind:     kind,
		payload:  payload,
		settings: settings,
		adapter:  r.adapter(),
		creds:    creds,
		stack:    stack,
		start:    r.credentials.ActiveIndex(ctx, len(creds)),
	}
	return m.run(ctx)
}

// Text generates text.
func (r *Router) Text(ctx context.Context, req *types.TextRequest) (*types.TextResult, error) {
	res, err := r.Generate(ctx, types.KindText, Payload{Text: req})
	if err != nil {
		return nil, err
	}
	return &types.TextResult{Text: res.Text, Served: res.Served}, nil
}

// Image generates an image, or returns the provider's text answer when it
// produced no image.
func (r *Router) Image(ctx context.Context, req *types.ImageRequest) (*types.ImageResult, error) {
	res, err := r.Generate(ctx, types.KindImage, Payload{Image: req})
	if err != nil {
		return nil, err
	}
	img := *res.Image
	img.Served = res.Served
	return &img, nil
}

func errorStatus(err error) string {
	switch {
	case errors.Is(err, ErrNoCredentialsConfigured):
		return "no_credentials"
	case errors.Is(err, ErrNoModelsConfigured):
		return "no_models"
	case errors.Is(err, ErrAllAttemptsExhausted):
		return "exhausted"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// preview truncates s to at most previewLen bytes without splitting a rune.
func preview(s string) string {
	if len(s) <= previewLen {
		return s
	}
	cut := previewLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func (r *Router) setActive(ctx context.Context, index int) {
	if err := r.credentials.SetActive(ctx, index); err != nil {
		r.stateError(ctx, "set_active", err)
	}
}

// stateError logs a failed state write. Routing continues regardless.
func (r *Router) stateError(ctx context.Context, op string, err error) {
	r.metrics.RecordStateError(op)
	r.logger.WarnContext(ctx, "failed to persist routing state", "op", op, "error", err)
}
