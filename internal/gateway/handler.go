package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/af-corp/aireader-gateway/internal/catalog"
	"github.com/af-corp/aireader-gateway/internal/config"
	"github.com/af-corp/aireader-gateway/internal/credential"
	"github.com/af-corp/aireader-gateway/internal/httputil"
	"github.com/af-corp/aireader-gateway/internal/router"
	"github.com/af-corp/aireader-gateway/internal/state"
	"github.com/af-corp/aireader-gateway/internal/types"
)

const maxRequestBytes = 1 << 20

// statusClientClosedRequest is reported when the caller went away mid-call.
const statusClientClosedRequest = 499

// Generator runs generation requests. *router.Router implements it.
type Generator interface {
	Text(ctx context.Context, req *types.TextRequest) (*types.TextResult, error)
	Image(ctx context.Context, req *types.ImageRequest) (*types.ImageResult, error)
	Stack(kind types.Kind) []string
}

// Handler holds dependencies for the gateway HTTP handlers.
type Handler struct {
	generator   Generator
	credentials *credential.Store
	store       state.Store
	modelsCfg   func() *config.ModelsConfig
	routingCfg  func() config.RoutingConfig
	logger      *slog.Logger
}

func NewHandler(generator Generator, credentials *credential.Store, store state.Store, modelsCfg func() *config.ModelsConfig, routingCfg func() config.RoutingConfig, logger *slog.Logger) *Handler {
	return &Handler{
		generator:   generator,
		credentials: credentials,
		store:       store,
		modelsCfg:   modelsCfg,
		routingCfg:  routingCfg,
		logger:      logger,
	}
}

// GenerateText handles POST /v1/generate/text
func (h *Handler) GenerateText(w http.ResponseWriter, r *http.Request) {
	reqID := httputil.RequestIDFromContext(r.Context())
	receivedAt := time.Now()

	var req types.TextRequest
	if !decodeBody(w, r, reqID, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		httputil.WriteBadRequestError(w, reqID, "prompt is required")
		return
	}

	res, err := h.generator.Text(r.Context(), &req)
	if err != nil {
		h.writeGenerateError(w, r, reqID, types.KindText, err)
		return
	}

	h.logger.Info("request completed",
		"request_id", reqID,
		"kind", types.KindText,
		"model_served", res.Model,
		"credential_index", res.CredentialIndex,
		"attempts", res.Attempts,
		"expect_json", req.ExpectJSON,
		"duration_ms", time.Since(receivedAt).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, res)
}

// GenerateImage handles POST /v1/generate/image
func (h *Handler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	reqID := httputil.RequestIDFromContext(r.Context())
	receivedAt := time.Now()

	var req types.ImageRequest
	if !decodeBody(w, r, reqID, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		httputil.WriteBadRequestError(w, reqID, "prompt is required")
		return
	}

	res, err := h.generator.Image(r.Context(), &req)
	if err != nil {
		h.writeGenerateError(w, r, reqID, types.KindImage, err)
		return
	}

	h.logger.Info("request completed",
		"request_id", reqID,
		"kind", types.KindImage,
		"model_served", res.Model,
		"credential_index", res.CredentialIndex,
		"attempts", res.Attempts,
		"has_image", res.HasImage(),
		"duration_ms", time.Since(receivedAt).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, imageResponse{
		DataURL:  res.DataURL(),
		MimeType: res.MimeType,
		Text:     res.Text,
		Served:   res.Served,
	})
}

// ListModels handles GET /v1/models
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	modelsCfg := h.modelsCfg()
	cat := catalog.New(modelsCfg)

	resp := modelListResponse{
		Object:          "list",
		FallbackEnabled: h.routingCfg().FallbackEnabled,
		Kinds:           make(map[types.Kind]kindModels, len(types.Kinds)),
	}
	for _, kind := range types.Kinds {
		order := cat.Order(kind)
		for _, name := range order {
			resp.Data = append(resp.Data, modelObject{
				ID:      name,
				Object:  "model",
				Kind:    kind,
				OwnedBy: "aireader",
			})
		}
		resp.Kinds[kind] = kindModels{
			Preferred: modelsCfg.PreferredFor(kind),
			Order:     order,
			Stack:     h.generator.Stack(kind),
		}
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Routing handles GET /v1/routing. Credentials are reported by fingerprint
// only.
func (h *Handler) Routing(w http.ResponseWriter, r *http.Request) {
	reqID := httputil.RequestIDFromContext(r.Context())

	snap, err := h.store.Load(r.Context())
	if err != nil {
		h.logger.Error("failed to load routing state", "request_id", reqID, "error", err)
		httputil.WriteInternalError(w, reqID, "Failed to load routing state")
		return
	}

	creds := h.credentials.List()
	resp := routingResponse{
		Active:  snap.Active,
		Cursors: snap.Cursors,
	}
	if len(creds) > 0 {
		resp.ActiveIndex = h.credentials.ActiveIndex(r.Context(), len(creds))
	}
	for _, c := range creds {
		resp.Credentials = append(resp.Credentials, credentialInfo{Index: c.Index, Fingerprint: c.Fingerprint()})
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeGenerateError(w http.ResponseWriter, r *http.Request, reqID string, kind types.Kind, err error) {
	switch {
	case errors.Is(err, router.ErrNoCredentialsConfigured):
		httputil.WriteNoCredentialsError(w, reqID, "No API key configured. Add at least one key to credentials.yaml.")
	case errors.Is(err, router.ErrNoModelsConfigured):
		httputil.WriteNoModelsError(w, reqID, "No "+string(kind)+" models configured.")
	case errors.Is(err, router.ErrAllAttemptsExhausted):
		h.logger.Warn("all attempts exhausted", "request_id", reqID, "kind", kind, "error", err)
		httputil.WriteExhaustedError(w, reqID, err.Error())
	case errors.Is(err, context.Canceled):
		h.logger.Info("request canceled by client", "request_id", reqID, "kind", kind)
		httputil.WriteError(w, reqID, statusClientClosedRequest, "request_error", "client_closed_request", "Request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		httputil.WriteError(w, reqID, http.StatusGatewayTimeout, "server_error", "deadline_exceeded", "Request deadline exceeded")
	default:
		h.logger.Error("generation failed", "request_id", reqID, "kind", kind, "path", r.URL.Path, "error", err)
		httputil.WriteInternalError(w, reqID, "Generation failed")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, reqID string, dest any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteError(w, reqID, http.StatusRequestEntityTooLarge, "invalid_request_error", "request_too_large", "Request body too large")
			return false
		}
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

type imageResponse struct {
	DataURL  string `json:"data_url,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Text     string `json:"text,omitempty"`
	types.Served
}

type modelObject struct {
	ID      string     `json:"id"`
	Object  string     `json:"object"`
	Kind    types.Kind `json:"kind"`
	OwnedBy string     `json:"owned_by"`
}

type kindModels struct {
	Preferred string   `json:"preferred"`
	Order     []string `json:"order"`
	Stack     []string `json:"stack"`
}

type modelListResponse struct {
	Object          string                    `json:"object"`
	Data            []modelObject             `json:"data"`
	FallbackEnabled bool                      `json:"fallback_enabled"`
	Kinds           map[types.Kind]kindModels `json:"kinds"`
}

type credentialInfo struct {
	Index       int    `json:"index"`
	Fingerprint string `json:"fingerprint"`
}

type routingResponse struct {
	Active      int                           `json:"active"`
	ActiveIndex int                           `json:"active_index"`
	Credentials []credentialInfo              `json:"credentials"`
	Cursors     map[types.Kind]map[string]int `json:"cursors"`
}
