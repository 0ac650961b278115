package middleware

import "net/http"

// SessionChecker lo implementa session.Guard.
type SessionChecker interface {
	Authenticated() bool
}

// RequireSession corta con 401 si no hay sesión activa, antes de llegar al handler.
// El guard vuelve a validar en cada operación; esto solo evita decodificar bodies de más.
func RequireSession(s SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s == nil || !s.Authenticated() {
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
