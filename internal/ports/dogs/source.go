package dogs

import (
	"context"
	"errors"
)

var (
	ErrUnauthorized   = errors.New("dogs service unauthorized")
	ErrNetworkFailure = errors.New("dogs service network failure")
	ErrUpstream       = errors.New("dogs service upstream error")
	ErrInvalidQuery   = errors.New("invalid search query")
)

// Source es el contrato del servicio remoto de perros.
// Las credenciales de sesión viajan implícitas (cookie) en cada llamada.
type Source interface {
	Login(ctx context.Context, c Credentials) error
	Logout(ctx context.Context) error

	Breeds(ctx context.Context) ([]string, error)
	Search(ctx context.Context, q SearchQuery) (SearchResult, error)
	// SearchCursor pide la página apuntada por un cursor emitido por el propio servicio.
	SearchCursor(ctx context.Context, cursor string) (SearchResult, error)

	Fetch(ctx context.Context, ids []string) ([]Dog, error)
	Match(ctx context.Context, ids []string) (string, error)
}
