package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey string

const ctxClientID contextKey = "client_id"

const clientIDHeader = "X-Client-Id"

// ClientIDFromContext returns the caller identity set by ClientIdentity.
func ClientIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxClientID).(string); ok {
		return v
	}
	return ""
}

// WithClientID injects the caller identity into the context.
func WithClientID(ctx context.Context, clientID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxClientID, clientID)
}

// ClientIdentity names the caller for rate limiting and idempotency scopes:
// the X-Client-Id header when a desk terminal sends one, the remote IP otherwise.
func ClientIdentity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(clientIDHeader))
			if id == "" {
				id = clientIP(r)
			}
			next.ServeHTTP(w, r.WithContext(WithClientID(r.Context(), id)))
		})
	}
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
