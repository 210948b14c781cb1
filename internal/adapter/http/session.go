package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// SessionVerifier resolves a session token to the operator it was issued to.
type SessionVerifier interface {
	Verify(token string) (string, error)
}

type sessionKey struct{}

// requireSession rejects requests without a valid bearer session and makes
// the session subject available to handlers.
func requireSession(api huma.API, sessions SessionVerifier) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		token, ok := strings.CutPrefix(ctx.Header("Authorization"), "Bearer ")
		if !ok || token == "" {
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "missing session token")
			return
		}

		subject, err := sessions.Verify(token)
		if err != nil {
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "invalid session")
			return
		}

		next(huma.WithValue(ctx, sessionKey{}, subject))
	}
}

func sessionSubject(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(sessionKey{}).(string)
	return subject, ok && subject != ""
}
