package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/af-corp/aireader-gateway/internal/config"
	"github.com/af-corp/aireader-gateway/internal/credential"
	"github.com/af-corp/aireader-gateway/internal/router/adapters"
	"github.com/af-corp/aireader-gateway/internal/types"
)

type phase int

const (
	phaseTryingCredential phase = iota
	phaseTryingModel
	phaseCredentialExhausted
	phaseSuccess
	phaseAllExhausted
	phaseCanceled
)

// machine holds the iteration state of one Generate call. It is never
// shared between calls.
type machine struct {
	router   *Router
	kind     types.Kind
	payload  Payload
	settings config.RoutingConfig
	adapter  adapters.ProviderAdapter
	creds    []credential.Credential
	stack    []string
	start    int

	visited  int // credentials entered so far
	cred     credential.Credential
	model    int
	attempts int
	last     *AttemptError
	result   *Result
	err      error
}

func (m *machine) run(ctx context.Context) (*Result, error) {
	p := phaseTryingCredential
	for {
		switch p {
		case phaseTryingCredential:
			p = m.tryCredential(ctx)
		case phaseTryingModel:
			p = m.tryModel(ctx)
		case phaseCredentialExhausted:
			p = m.credentialExhausted(ctx)
		case phaseSuccess:
			return m.result, nil
		case phaseAllExhausted:
			return nil, &ExhaustedError{Kind: m.kind, Attempts: m.attempts, Last: m.last}
		case phaseCanceled:
			return nil, m.err
		}
	}
}

func (m *machine) tryCredential(ctx context.Context) phase {
	if m.visited >= len(m.creds) {
		return phaseAllExhausted
	}
	m.cred = m.creds[(m.start+m.visited)%len(m.creds)]
	m.visited++

	m.model = m.router.routes.CursorFor(ctx, m.kind, m.cred.Fingerprint())
	if m.model >= len(m.stack) {
		// Exhausted on an earlier call, or the stack shrank since.
		m.model = 0
		m.writeCursor(ctx, 0)
	}
	return phaseTryingModel
}

func (m *machine) tryModel(ctx context.Context) phase {
	if m.model >= len(m.stack) {
		return phaseCredentialExhausted
	}
	if err := ctx.Err(); err != nil {
		m.err = err
		return phaseCanceled
	}

	model := m.stack[m.model]
	outcome, res, attemptErr := m.attempt(ctx, model)

	switch {
	case outcome == OutcomeCanceled:
		m.err = ctx.Err()
		return phaseCanceled
	case outcome == OutcomeSuccess:
		m.router.setActive(ctx, m.cred.Index)
		res.Served = types.Served{Model: model, CredentialIndex: m.cred.Index, Attempts: m.attempts}
		m.result = res
		return phaseSuccess
	}

	m.last = attemptErr
	if Sticky(m.kind, outcome) {
		m.writeCursor(ctx, m.model+1)
		m.router.metrics.RecordCursorAdvance(string(m.kind))
	}

	if !m.settings.FallbackEnabled {
		return phaseAllExhausted
	}
	m.model++
	return phaseTryingModel
}

func (m *machine) credentialExhausted(ctx context.Context) phase {
	n := len(m.creds)
	if !m.settings.FallbackEnabled || n < 2 {
		return phaseAllExhausted
	}

	next := m.creds[(m.cred.Index+1)%n]
	m.router.setActive(ctx, next.Index)
	if err := m.router.routes.Reset(ctx, m.kind, next.Fingerprint()); err != nil {
		m.router.stateError(ctx, "reset_cursor", err)
	}
	m.router.metrics.RecordRotation(string(m.kind))
	m.router.logger.InfoContext(ctx, "rotating credential",
		"kind", m.kind,
		"from", m.cred.Redacted(),
		"to", next.Redacted(),
	)
	return phaseTryingCredential
}

func (m *machine) writeCursor(ctx context.Context, index int) {
	if err := m.router.routes.Advance(ctx, m.kind, m.cred.Fingerprint(), index); err != nil {
		m.router.stateError(ctx, "set_cursor", err)
	}
}

// attempt issues one provider call and classifies it. On failure it returns
// the AttemptError describing it.
func (m *machine) attempt(ctx context.Context, model string) (OutcomeKind, *Result, *AttemptError) {
	m.attempts++
	r := m.router
	level := slog.LevelDebug
	if m.settings.Debug {
		level = slog.LevelInfo
	}

	fail := func(outcome OutcomeKind, status int, msg string, d time.Duration) (OutcomeKind, *Result, *AttemptError) {
		// Transport errors quote the request URL, which may carry the key.
		msg = r.secrets.Redact(msg, m.cred.Value)
		r.metrics.RecordAttempt(string(m.kind), model, outcome.String(), float64(d.Milliseconds()))
		if outcome != OutcomeCanceled {
			r.logger.Log(ctx, level, "attempt failed",
				"kind", m.kind,
				"model", model,
				"credential", m.cred.Redacted(),
				"outcome", outcome.String(),
				"status", status,
				"sticky", Sticky(m.kind, outcome),
				"error", msg,
			)
		}
		return outcome, nil, &AttemptError{
			Outcome:    outcome,
			Model:      model,
			Credential: m.cred.Index,
			Status:     status,
			Message:    msg,
		}
	}

	req, err := m.buildRequest(ctx, model)
	if err != nil {
		return fail(OutcomeClientError, 0, err.Error(), 0)
	}

	if m.settings.Debug {
		r.logger.Log(ctx, level, "attempt request",
			"kind", m.kind,
			"model", model,
			"credential", m.cred.Redacted(),
			"prompt", preview(r.secrets.Redact(m.prompt())),
		)
	}

	resp, err := r.doer.Do(ctx, req, m.settings.AttemptTimeout())
	if err != nil {
		return fail(ClassifyError(ctx, err), 0, err.Error(), 0)
	}

	if outcome := ClassifyStatus(resp.StatusCode); outcome != OutcomeSuccess {
		msg := m.adapter.ErrorMessage(resp.Body)
		return fail(outcome, resp.StatusCode, msg, resp.Duration)
	}

	res, err := m.parse(resp.Body)
	if err != nil {
		return fail(OutcomeMalformedResponse, resp.StatusCode, err.Error(), resp.Duration)
	}

	r.metrics.RecordAttempt(string(m.kind), model, OutcomeSuccess.String(), float64(resp.Duration.Milliseconds()))
	attrs := []any{
		"kind", m.kind,
		"model", model,
		"credential", m.cred.Redacted(),
		"attempts", m.attempts,
		"duration_ms", resp.Duration.Milliseconds(),
	}
	if m.settings.Debug && res.Text != "" {
		attrs = append(attrs, "response", preview(r.secrets.Redact(res.Text)))
	}
	r.logger.Log(ctx, level, "attempt succeeded", attrs...)
	return OutcomeSuccess, res, nil
}

func (m *machine) buildRequest(ctx context.Context, model string) (*http.Request, error) {
	key := m.cred.Value
	if m.kind == types.KindImage {
		return m.adapter.ImageRequest(ctx, key, model, m.payload.Image)
	}
	return m.adapter.TextRequest(ctx, key, model, m.payload.Text)
}

func (m *machine) parse(body []byte) (*Result, error) {
	if m.kind == types.KindImage {
		img, err := m.adapter.ParseImage(body)
		if err != nil {
			return nil, err
		}
		return &Result{Image: img, Text: img.Text}, nil
	}
	text, err := m.adapter.ParseText(body)
	if err != nil {
		return nil, err
	}
	return &Result{Text: text}, nil
}

func (m *machine) prompt() string {
	if m.kind == types.KindImage {
		return m.payload.Image.Prompt
	}
	return m.payload.Text.Prompt
}
