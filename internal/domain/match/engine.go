package match

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"dog-match/internal/platform/logger"
	"dog-match/internal/platform/metrics"
	"dog-match/internal/ports/dogs"
)

var (
	ErrEmptyFavorites = errors.New("no favorites to match")
)

type Matcher interface {
	Match(ctx context.Context, ids []string) (string, error)
}

type Hydrator interface {
	Hydrate(ctx context.Context, ids []string) ([]dogs.Dog, error)
}

// Clearer es lo único que el engine necesita del store de favoritos.
type Clearer interface {
	Clear()
}

type Engine struct {
	matcher   Matcher
	hydrator  Hydrator
	favorites Clearer
	log       logger.Logger
	metrics   *metrics.Metrics

	mu   sync.Mutex
	last *dogs.Dog
}

type Options struct {
	Logger  logger.Logger
	Metrics *metrics.Metrics
}

func NewEngine(m Matcher, h Hydrator, favs Clearer, opts Options) *Engine {
	l := opts.Logger
	if l == nil {
		l = logger.Nop()
	}
	return &Engine{
		matcher:   m,
		hydrator:  h,
		favorites: favs,
		log:       l.With(map[string]any{"component": "match"}),
		metrics:   opts.Metrics,
	}
}

// RequestMatch envía el snapshot de candidatos, hidrata el id elegido y,
// solo si todo salió bien, vacía los favoritos. Nunca devuelve un id sin hidratar.
// Lotes de más de dogs.MaxBatch candidatos se recortan a los primeros MaxBatch.
func (e *Engine) RequestMatch(ctx context.Context, candidates []string) (dogs.Dog, error) {
	if len(candidates) == 0 {
		e.metrics.ObserveMatch("empty")
		return dogs.Dog{}, ErrEmptyFavorites
	}
	if len(candidates) > dogs.MaxBatch {
		candidates = candidates[:dogs.MaxBatch]
	}

	id, err := e.matcher.Match(ctx, candidates)
	if err != nil {
		e.fail(err)
		return dogs.Dog{}, err
	}
	if id == "" {
		err := fmt.Errorf("%w: empty match id", dogs.ErrUpstream)
		e.fail(err)
		return dogs.Dog{}, err
	}

	// El hydrator devuelve ErrPartialFetch si el id no se resuelve: lo propagamos tal cual.
	got, err := e.hydrator.Hydrate(ctx, []string{id})
	if err != nil {
		e.fail(err)
		return dogs.Dog{}, err
	}
	if len(got) != 1 {
		err := fmt.Errorf("%w: match %s not hydrated", dogs.ErrUpstream, id)
		e.fail(err)
		return dogs.Dog{}, err
	}
	d := got[0]

	e.mu.Lock()
	e.last = &d
	e.mu.Unlock()
	e.favorites.Clear()

	e.metrics.ObserveMatch(metrics.OutcomeOK)
	e.log.Info("match found", map[string]any{"dog_id": d.ID, "candidates": len(candidates)})
	return d, nil
}

// Last devuelve el último match de la sesión.
func (e *Engine) Last() (dogs.Dog, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return dogs.Dog{}, false
	}
	return *e.last, true
}

func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.last = nil
}

func (e *Engine) fail(err error) {
	e.metrics.ObserveMatch(metrics.OutcomeError)
	e.log.Warn("match failed", map[string]any{"err": err})
}
