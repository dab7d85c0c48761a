package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"slices"
)

var (
	ErrMissingCredentials = errors.New("missing basic auth credentials")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// BasicAuth guards the local agent API with a static set of accounts.
// With no accounts configured every request passes.
type BasicAuth struct {
	users map[string]string
}

func NewBasicAuth(users map[string]string) *BasicAuth {
	copied := make(map[string]string, len(users))
	for u, p := range users {
		copied[u] = p
	}
	return &BasicAuth{users: copied}
}

func (ba *BasicAuth) Enabled() bool {
	return len(ba.users) > 0
}

// Authenticate returns the username carried by r.
func (ba *BasicAuth) Authenticate(r *http.Request) (string, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return "", ErrMissingCredentials
	}

	stored, exists := ba.users[username]
	if !exists || subtle.ConstantTimeCompare([]byte(password), []byte(stored)) != 1 {
		return "", ErrInvalidCredentials
	}

	return username, nil
}

// Middleware rejects unauthenticated requests except on the public paths.
func (ba *BasicAuth) Middleware(next http.Handler, public ...string) http.Handler {
	if !ba.Enabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slices.Contains(public, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		username, err := ba.Authenticate(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="eeudesk"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), username)))
	})
}
