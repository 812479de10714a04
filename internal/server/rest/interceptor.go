package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dmitrijs2005/bodypace/internal/common"
	"github.com/dmitrijs2005/bodypace/internal/server/auth"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// accessTokenMiddleware rejects requests without a valid bearer token and
// stores the verified claims in the request context.
func (s *HTTPServer) accessTokenMiddleware(ctx huma.Context, next func(huma.Context)) {
	header := ctx.Header(common.AuthorizationHeaderName)

	token, ok := strings.CutPrefix(header, common.BearerPrefix)
	if !ok || strings.TrimSpace(token) == "" {
		_ = huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "missing bearer token")
		return
	}

	claims, err := s.issuer.Verify(strings.TrimSpace(token))
	if err != nil {
		s.logger.Debug(ctx.Context(), "token rejected", "error", err)
		_ = huma.WriteErr(s.api, ctx, http.StatusUnauthorized, err.Error())
		return
	}

	next(huma.WithContext(ctx, context.WithValue(ctx.Context(), claimsKey, claims)))
}

// loggingMiddleware logs one line per request once it has been handled.
func (s *HTTPServer) loggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()

	next(ctx)

	s.logger.Info(ctx.Context(), "HTTP request",
		"method", ctx.Method(),
		"path", ctx.URL().Path,
		"status", ctx.Status(),
		"duration", time.Since(start),
		"remote_addr", ctx.RemoteAddr(),
	)
}

func claimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

// ownerFromContext returns the account id of the authenticated caller.
func ownerFromContext(ctx context.Context) (int64, error) {
	c, ok := claimsFromContext(ctx)
	if !ok {
		return 0, common.ErrorUnauthorized
	}
	return c.AccountID()
}
