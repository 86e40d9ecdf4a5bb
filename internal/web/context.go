package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/CleanCSV/internal/core"
	"github.com/JonMunkholm/CleanCSV/internal/web/middleware"
)

// requestContext returns the request context tagged with the client IP.
func requestContext(r *http.Request) context.Context {
	return core.WithClientIP(r.Context(), middleware.ClientIP(r))
}
