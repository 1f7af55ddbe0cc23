package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Bahjat/arrestorgear/internal/failure"
	"github.com/Bahjat/arrestorgear/internal/model"
	"github.com/Bahjat/arrestorgear/internal/platform/errs"
)

const (
	probeTimeout  = 60 * time.Second
	maxTargets    = 100
	maxRequestLen = 1 << 20 // 1 MB
)

var (
	errURLsRequired = errors.New("the \"urls\" field must list at least one URL")
	errTooManyURLs  = fmt.Errorf("the \"urls\" field accepts at most %d URLs", maxTargets)
)

// Transport exposes a Service over HTTP.
type Transport struct {
	service *Service
	logger  *slog.Logger
}

// NewTransport creates an HTTP transport backed by the given service.
func NewTransport(service *Service, logger *slog.Logger) *Transport {
	return &Transport{service: service, logger: logger}
}

// RegisterRoutes attaches the transport's handlers to the given mux.
func (t *Transport) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /probe", t.handleProbe)
}

type probeRequest struct {
	URLs   []string        `json:"urls"`
	Method string          `json:"method"`
	Data   json.RawMessage `json:"data"`
	// Expect takes codes, masks or a mix, e.g. [404, "5XX"].
	Expect any `json:"expect"`
}

func (r probeRequest) validate() error {
	if len(r.URLs) == 0 {
		return errURLsRequired
	}
	if len(r.URLs) > maxTargets {
		return errTooManyURLs
	}
	return nil
}

func (r probeRequest) options() ([]Option, error) {
	var opts []Option

	if r.Method != "" || len(r.Data) > 0 {
		var body any
		if len(r.Data) > 0 {
			body = r.Data
		}
		opts = append(opts, WithRequest(r.Method, body))
	}

	if r.Expect != nil {
		expect, err := failure.ParseStatusPatterns(r.Expect)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithExpected(expect))
	}

	return opts, nil
}

func (t *Transport) handleProbe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestLen)

	var req probeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.renderError(w, http.StatusBadRequest, "Invalid request body. Please send a JSON object with a \"urls\" field.")
		return
	}

	if err := req.validate(); err != nil {
		t.renderError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts, err := req.options()
	if err != nil {
		t.handleServiceError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	reports, err := t.service.With(opts...).ProbeAll(ctx, req.URLs)
	if err != nil {
		t.handleServiceError(w, err)
		return
	}

	t.renderJSON(w, http.StatusOK, model.ProbeResult{
		Reports: reports,
		Summary: model.Summarize(reports),
	})
}

func (t *Transport) handleServiceError(w http.ResponseWriter, err error) {
	var appErr *errs.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch appErr.Kind {
		case errs.InvalidInput:
			status = http.StatusBadRequest
		case errs.Unreachable:
			status = http.StatusBadGateway
		case errs.Timeout:
			status = http.StatusGatewayTimeout
		case errs.Unknown, errs.ParsingFailed, errs.HookFault, errs.EmptyBag:
			// 500 Internal Server Error
		}
		t.renderError(w, status, appErr.Message)
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		t.renderError(w, http.StatusGatewayTimeout, "Probing timed out.")
		return
	}

	t.logger.Error("probe request failed", "error", err)
	t.renderError(w, http.StatusInternalServerError, "An unexpected error occurred.")
}

func (t *Transport) renderJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		t.logger.Error("failed to encode response", "error", err)
		http.Error(w, `{"error":"Internal Server Error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (t *Transport) renderError(w http.ResponseWriter, status int, message string) {
	t.renderJSON(w, status, model.ErrorResponse{
		Error:      http.StatusText(status),
		StatusCode: status,
		Message:    message,
	})
}
