package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"dog-match/internal/domain/favorites"
	"dog-match/internal/domain/hydration"
	"dog-match/internal/domain/match"
	"dog-match/internal/domain/search"
	"dog-match/internal/platform/logger"
	"dog-match/internal/platform/metrics"
	"dog-match/internal/ports/dogs"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnknownDog      = errors.New("dog not hydrated in this session")
)

const (
	reasonLogout  = "logout"
	reasonExpired = "expired"
	reasonRelogin = "relogin"
)

// sessionResetter lo implementan los Source que guardan credenciales (cookies).
type sessionResetter interface {
	ResetSession()
}

// Info resume la sesión activa.
type Info struct {
	ID        string
	Name      string
	StartedAt time.Time
}

// state es todo lo que vive mientras dura una sesión autenticada.
// Se construye en Login y se descarta entero en logout/expiración.
type state struct {
	info Info
	log  logger.Logger

	search    *search.Controller
	favorites *favorites.Store
	match     *match.Engine

	breedsGroup singleflight.Group
	breedsMu    sync.Mutex
	breeds      []string
}

func (s *state) reset() {
	s.search.Reset()
	s.favorites.Clear()
	s.match.Reset()

	s.breedsMu.Lock()
	s.breeds = nil
	s.breedsMu.Unlock()
}

// Guard controla el acceso a la sesión: sin sesión, toda operación falla con
// ErrUnauthenticated sin llamar al servicio remoto. Un 401 de cualquier
// llamada se interpreta como expiración y descarta el estado.
type Guard struct {
	src     dogs.Source
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu  sync.RWMutex
	cur *state
}

type Options struct {
	Logger  logger.Logger
	Metrics *metrics.Metrics
}

func NewGuard(src dogs.Source, opts Options) *Guard {
	l := opts.Logger
	if l == nil {
		l = logger.Nop()
	}
	return &Guard{
		src:     src,
		log:     l.With(map[string]any{"component": "session"}),
		metrics: opts.Metrics,
		now:     time.Now,
	}
}

// Login autentica contra el servicio y arranca una sesión nueva.
// Si ya había una, se descarta.
func (g *Guard) Login(ctx context.Context, cr dogs.Credentials) (Info, error) {
	cr.Name = strings.TrimSpace(cr.Name)
	cr.Email = strings.TrimSpace(cr.Email)
	if cr.Name == "" || cr.Email == "" {
		return Info{}, fmt.Errorf("%w: name and email required", dogs.ErrInvalidQuery)
	}

	if err := g.src.Login(ctx, cr); err != nil {
		if errors.Is(err, dogs.ErrUnauthorized) {
			// un 401 en el re-login también invalida la sesión vigente
			g.mu.RLock()
			prev := g.cur
			g.mu.RUnlock()
			if prev != nil {
				g.teardown(prev, reasonExpired)
			}
			return Info{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		return Info{}, err
	}

	s := g.newState(cr.Name)

	g.mu.Lock()
	prev := g.cur
	g.cur = s
	g.mu.Unlock()

	if prev != nil {
		prev.reset()
		g.metrics.ObserveTeardown(reasonRelogin)
	}

	s.log.Info("session started", nil)
	return s.info, nil
}

// Logout revoca la sesión remota y resetea todo el estado local.
// El estado local se descarta aunque el logout remoto falle; ese error se devuelve igual.
func (g *Guard) Logout(ctx context.Context) error {
	s, err := g.session()
	if err != nil {
		return err
	}

	rerr := g.src.Logout(ctx)
	g.teardown(s, reasonLogout)

	if rerr != nil && !errors.Is(rerr, dogs.ErrUnauthorized) {
		return rerr
	}
	return nil
}

func (g *Guard) Authenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cur != nil
}

func (g *Guard) Info() (Info, error) {
	s, err := g.session()
	if err != nil {
		return Info{}, err
	}
	return s.info, nil
}

// Breeds devuelve la lista de razas, cacheada por sesión.
// Llamadas concurrentes comparten un único request remoto.
func (g *Guard) Breeds(ctx context.Context) ([]string, error) {
	s, err := g.session()
	if err != nil {
		return nil, err
	}

	s.breedsMu.Lock()
	cached := s.breeds
	s.breedsMu.Unlock()
	if cached != nil {
		return append([]string(nil), cached...), nil
	}

	// El request compartido no depende de la cancelación del primer caller;
	// cada caller deja de esperar con su propio ctx.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.breedsGroup.DoChan("breeds", func() (any, error) {
		out, err := g.src.Breeds(flightCtx)
		if err != nil {
			return nil, err
		}
		s.breedsMu.Lock()
		s.breeds = out
		s.breedsMu.Unlock()
		return out, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, g.check(s, res.Err)
		}
		return append([]string(nil), res.Val.([]string)...), nil
	}
}

func (g *Guard) Search(ctx context.Context, q dogs.SearchQuery) (search.Page, error) {
	s, err := g.session()
	if err != nil {
		return search.Page{}, err
	}
	p, err := s.search.Search(ctx, q)
	return p, g.check(s, err)
}

func (g *Guard) Page(ctx context.Context, cursor string) (search.Page, error) {
	s, err := g.session()
	if err != nil {
		return search.Page{}, err
	}
	p, err := s.search.Page(ctx, cursor)
	return p, g.check(s, err)
}

func (g *Guard) CurrentPage() (search.Page, error) {
	s, err := g.session()
	if err != nil {
		return search.Page{}, err
	}
	return s.search.Current(), nil
}

func (g *Guard) Favorites() ([]dogs.Dog, error) {
	s, err := g.session()
	if err != nil {
		return nil, err
	}
	return s.favorites.List(), nil
}

// AddFavorite agrega un perro ya hidratado en la sesión.
func (g *Guard) AddFavorite(id string) error {
	s, err := g.session()
	if err != nil {
		return err
	}
	d, ok := s.search.Lookup(strings.TrimSpace(id))
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDog, id)
	}
	s.favorites.Add(d)
	return nil
}

func (g *Guard) RemoveFavorite(id string) error {
	s, err := g.session()
	if err != nil {
		return err
	}
	s.favorites.Remove(id)
	return nil
}

// ToggleFavorite devuelve true si el perro quedó en favoritos.
func (g *Guard) ToggleFavorite(id string) (bool, error) {
	s, err := g.session()
	if err != nil {
		return false, err
	}
	id = strings.TrimSpace(id)
	if s.favorites.Contains(id) {
		s.favorites.Remove(id)
		return false, nil
	}
	d, ok := s.search.Lookup(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownDog, id)
	}
	return s.favorites.Toggle(d), nil
}

func (g *Guard) ClearFavorites() error {
	s, err := g.session()
	if err != nil {
		return err
	}
	s.favorites.Clear()
	return nil
}

// RequestMatch pide un match sobre el snapshot actual de favoritos.
func (g *Guard) RequestMatch(ctx context.Context) (dogs.Dog, error) {
	s, err := g.session()
	if err != nil {
		return dogs.Dog{}, err
	}
	d, err := s.match.RequestMatch(ctx, s.favorites.IDs())
	if err != nil {
		return dogs.Dog{}, g.check(s, err)
	}
	s.search.Remember(d)
	return d, nil
}

func (g *Guard) LastMatch() (dogs.Dog, bool, error) {
	s, err := g.session()
	if err != nil {
		return dogs.Dog{}, false, err
	}
	d, ok := s.match.Last()
	return d, ok, nil
}

func (g *Guard) newState(name string) *state {
	info := Info{
		ID:        uuid.NewString(),
		Name:      name,
		StartedAt: g.now(),
	}
	l := g.log.With(map[string]any{"session_id": info.ID})

	hyd := hydration.NewHydrator(g.src)
	store := favorites.NewStore()

	return &state{
		info:      info,
		log:       l,
		search:    search.NewController(g.src, hyd, search.Options{Logger: l, Metrics: g.metrics}),
		favorites: store,
		match:     match.NewEngine(g.src, hyd, store, match.Options{Logger: l, Metrics: g.metrics}),
	}
}

func (g *Guard) session() (*state, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.cur == nil {
		return nil, ErrUnauthenticated
	}
	return g.cur, nil
}

// check traduce un 401 remoto en ErrUnauthenticated y tira la sesión.
func (g *Guard) check(s *state, err error) error {
	if err == nil || !errors.Is(err, dogs.ErrUnauthorized) {
		return err
	}
	g.teardown(s, reasonExpired)
	return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
}

func (g *Guard) teardown(s *state, reason string) {
	g.mu.Lock()
	owned := g.cur == s
	if owned {
		g.cur = nil
	}
	g.mu.Unlock()

	s.reset()
	if owned {
		// logout ya limpia las credenciales del lado del cliente
		if r, ok := g.src.(sessionResetter); ok && reason != reasonLogout {
			r.ResetSession()
		}
		g.metrics.ObserveTeardown(reason)
		s.log.Info("session ended", map[string]any{"reason": reason})
	}
}
