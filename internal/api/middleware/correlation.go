package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey struct{}

// CorrelationHeader carries the id a mobile client attaches to a request so
// a queued submission can be traced from the phone to the synced case.
const CorrelationHeader = "X-Correlation-ID"

// CorrelationID takes the caller's correlation id, or mints one, stores it
// on the request context and echoes it in the response.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(CorrelationHeader, id)
		next.ServeHTTP(w, r.WithContext(WithCorrelationID(r.Context(), id)))
	})
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// GetCorrelationID returns "" outside the middleware.
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
