package middleware

import (
	"net/http"
	"strings"

	"github.com/clipstream/auth"
)

// Guard returns middleware that authenticates every request through engine.
// On success the resolved account is attached to the request context and can
// be read with [auth.AccountFromContext]. Every rejection — missing header,
// bad token, revoked session — is a uniform 401.
func Guard(engine *auth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "not authorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "not authorized", http.StatusUnauthorized)
				return
			}

			account, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				http.Error(w, "not authorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithAccount(r.Context(), account)))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
