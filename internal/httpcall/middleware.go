package httpcall

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Bahjat/arrestorgear/internal/platform/requestid"
)

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip calls f.
func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// RequestID sets the X-Request-ID header from the request context, creating
// a new UUID v4 when the context carries none. A header already present on
// the request is left alone.
func RequestID(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get(requestid.Header) != "" {
			return next.RoundTrip(r)
		}

		ctx, id := requestid.Ensure(r.Context())
		r = r.Clone(ctx)
		r.Header.Set(requestid.Header, id)
		return next.RoundTrip(r)
	})
}

// Logging logs the method, URL, status code, duration and request ID of
// every outbound request.
func Logging(logger *slog.Logger) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)

			attrs := []any{
				"method", r.Method,
				"url", r.URL.Redacted(),
				"duration", time.Since(start).String(),
				"request_id", r.Header.Get(requestid.Header),
			}
			if err != nil {
				logger.Warn("http request failed", append(attrs, "error", err)...)
				return nil, err
			}

			logger.Debug("http request", append(attrs, "status", resp.StatusCode)...)
			return resp, nil
		})
	}
}
