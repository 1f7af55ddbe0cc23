package middleware

import (
	"net/http"

	"github.com/Bahjat/arrestorgear/internal/platform/requestid"
)

// RequestID stores the caller's X-Request-ID in the request context, or a new
// UUID v4 when the header is absent, and echoes it on the response so
// callers can correlate probe logs with their own.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := r.Header.Get(requestid.Header); id != "" {
			ctx = requestid.NewContext(ctx, id)
		}
		ctx, id := requestid.Ensure(ctx)

		w.Header().Set(requestid.Header, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
