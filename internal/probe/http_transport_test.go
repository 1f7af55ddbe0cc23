package probe

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Bahjat/arrestorgear/internal/httpcall"
	"github.com/Bahjat/arrestorgear/internal/model"
)

func newTestMux(sender Sender) *http.ServeMux {
	logger := discardLogger()
	transport := NewTransport(NewService(sender, logger), logger)
	mux := http.NewServeMux()
	transport.RegisterRoutes(mux)
	return mux
}

func postProbe(mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/probe", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleProbe_Success(t *testing.T) {
	sender := &mockSender{err: httpFailure(http.StatusNotFound, nil)}
	mux := newTestMux(sender)

	rec := postProbe(mux, `{"urls": ["https://example.com/a", "https://example.com/b"], "expect": [404, "5XX"]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var result model.ProbeResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result.Reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(result.Reports))
	}
	for _, r := range result.Reports {
		if r.Outcome != model.OutcomeExpected {
			t.Errorf("Outcome = %q, want %q", r.Outcome, model.OutcomeExpected)
		}
	}
	if result.Summary.Unexpected != 0 {
		t.Errorf("Unexpected = %d, want 0", result.Summary.Unexpected)
	}
}

func TestHandleProbe_UnexpectedFailureStillOK(t *testing.T) {
	mux := newTestMux(&mockSender{err: httpFailure(http.StatusBadGateway, "bad gateway")})

	rec := postProbe(mux, `{"urls": ["https://example.com"]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var result model.ProbeResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Reports[0].Outcome != model.OutcomeUpstream {
		t.Errorf("Outcome = %q, want %q", result.Reports[0].Outcome, model.OutcomeUpstream)
	}
}

func TestHandleProbe_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "malformed json", body: `{invalid json`},
		{name: "no urls", body: `{"urls": []}`},
		{name: "too many urls", body: `{"urls": [` + strings.Repeat(`"https://example.com",`, maxTargets) + `"https://example.com"]}`},
		{name: "bad expect", body: `{"urls": ["https://example.com"], "expect": [true]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postProbe(newTestMux(&mockSender{result: &httpcall.Result{Status: http.StatusOK}}), tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}

			var resp model.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if resp.StatusCode != http.StatusBadRequest || resp.Message == "" {
				t.Errorf("error response = %+v", resp)
			}
		})
	}
}

func TestHandleProbe_NilFuture(t *testing.T) {
	rec := postProbe(newTestMux(nilSender{}), `{"urls": ["https://example.com"]}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleProbe_WrongMethod(t *testing.T) {
	mux := newTestMux(&mockSender{})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	// ServeMux returns 405 for method mismatch.
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestService_With(t *testing.T) {
	base := NewService(&mockSender{}, discardLogger(), WithConcurrency(3))
	derived := base.With(WithRequest(http.MethodPost, "x"))

	if base.method != "" {
		t.Errorf("base method changed to %q", base.method)
	}
	if derived.method != http.MethodPost || derived.concurrency != 3 {
		t.Errorf("derived = method %q concurrency %d", derived.method, derived.concurrency)
	}
}
