package daemon

import (
	"context"
	"net/http"
	"strings"

	"splice/internal/registry"
)

type principalKey struct{}

// principal is the authenticated caller of a request: either a worker
// session from the registry, or the holder of the static management token.
type principal struct {
	admin  bool
	worker registry.WorkerIdentity
	token  string
}

// authMiddleware validates bearer tokens. The static management token from
// the config authenticates operators; every other token must resolve to a
// worker session. An empty configured token disables the operator path.
func (s *apiServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")

		var p principal
		if static := s.daemon.cfg.Paths.APIToken; static != "" && token == static {
			p = principal{admin: true, token: token}
		} else {
			identity, err := s.daemon.workers.Resolve(token)
			if err != nil {
				s.writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			p = principal{worker: identity, token: token}
		}

		ctx := context.WithValue(r.Context(), principalKey{}, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireWorker rejects callers that are not worker sessions. Task grants
// and reports are tied to a worker identity, so the management token is not
// enough here.
func (s *apiServer) requireWorker(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := requestPrincipal(r)
		if !ok || p.admin {
			s.writeError(w, http.StatusForbidden, "worker session required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestPrincipal(r *http.Request) (principal, bool) {
	p, ok := r.Context().Value(principalKey{}).(principal)
	return p, ok
}
