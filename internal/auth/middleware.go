package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lumen-cms/lumen-cms/internal/platform/httpx"
	"github.com/lumen-cms/lumen-cms/internal/shared"
)

// LivenessStore re-validates the token subject against the live user store.
type LivenessStore interface {
	UserExistsInCompany(ctx context.Context, userID, companyID int64) (bool, error)
}

// Middleware authenticates requests from a bearer token and runs the identity
// liveness check before any guard or handler sees the request.
type Middleware struct {
	Tokens *Issuer
	Store  LivenessStore
	Logger *slog.Logger
}

// RequireAuth decodes the bearer token, re-resolves the subject against the
// user store and stores the claims in the request context. A correctly
// signed, unexpired token whose subject was deleted or moved out of the
// claimed company is rejected: signature validity alone is insufficient.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		claims, err := m.Tokens.Parse(raw)
		if err != nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}

		alive, err := m.Store.UserExistsInCompany(r.Context(), claims.UserID(), claims.CompanyID)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("identity liveness check", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		if !alive {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}

		ctx := shared.ContextWithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
