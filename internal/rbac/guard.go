package rbac

import (
	"net/http"
	"strings"

	"github.com/lumen-cms/lumen-cms/internal/platform/httpx"
	"github.com/lumen-cms/lumen-cms/internal/shared"
)

// RequireRole passes when the token holds at least one of the given role
// names. An empty requirement means no restriction. The predicate is a pure
// set intersection over claims already decoded into the request context; it
// performs no I/O.
func RequireRole(names ...string) func(http.Handler) http.Handler {
	required := normalize(names)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			claims := shared.ClaimsFromContext(r.Context())
			if claims == nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if intersects(claims.Roles, required) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.RespondError(w, httpx.ErrForbidden)
		})
	}
}

// RequirePermission passes when the token holds at least one of the given
// "action:subject" keys. Matching is literal string membership: manage:X is
// never expanded into the granular actions on X.
func RequirePermission(keys ...string) func(http.Handler) http.Handler {
	required := normalize(keys)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			claims := shared.ClaimsFromContext(r.Context())
			if claims == nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if intersects(claims.Permissions, required) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.RespondError(w, httpx.ErrForbidden)
		})
	}
}

// normalize trims and deduplicates. Role names and permission keys are
// case-sensitive; no folding happens here.
func normalize(values []string) []string {
	unique := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		unique[v] = struct{}{}
	}
	out := make([]string, 0, len(unique))
	for v := range unique {
		out = append(out, v)
	}
	return out
}

func intersects(held []string, required []string) bool {
	set := make(map[string]struct{}, len(held))
	for _, v := range held {
		set[v] = struct{}{}
	}
	for _, v := range required {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
