package search

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"dog-match/internal/domain/hydration"
	"dog-match/internal/platform/logger"
	"dog-match/internal/platform/metrics"
	"dog-match/internal/ports/dogs"
)

var (
	ErrInvalidCursor = errors.New("invalid cursor")
	ErrSuperseded    = errors.New("search superseded by a newer request")
)

// Source es la parte de dogs.Source que usa el controller.
type Source interface {
	Search(ctx context.Context, q dogs.SearchQuery) (dogs.SearchResult, error)
	SearchCursor(ctx context.Context, cursor string) (dogs.SearchResult, error)
}

type Hydrator interface {
	Hydrate(ctx context.Context, ids []string) ([]dogs.Dog, error)
}

// Page es el estado "página actual" del controller.
type Page struct {
	Seq    uint64
	Query  dogs.SearchQuery
	Cursor string // cursor que produjo la página; vacío si vino de Search

	ResultIDs []string
	Total     int
	Next      string
	Prev      string

	Dogs    []dogs.Dog
	Loading bool
}

// Controller mantiene la página actual con semántica last-request-wins:
// cada llamada toma un número de secuencia y solo la más reciente aplica estado.
// El mutex nunca se retiene durante una llamada remota.
type Controller struct {
	src     Source
	hyd     Hydrator
	log     logger.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	issued  uint64
	current Page
	cursors map[string]dogs.SearchQuery
	seen    map[string]dogs.Dog
}

type Options struct {
	Logger  logger.Logger
	Metrics *metrics.Metrics
}

func NewController(src Source, hyd Hydrator, opts Options) *Controller {
	l := opts.Logger
	if l == nil {
		l = logger.Nop()
	}
	return &Controller{
		src:     src,
		hyd:     hyd,
		log:     l.With(map[string]any{"component": "search"}),
		metrics: opts.Metrics,
		cursors: map[string]dogs.SearchQuery{},
		seen:    map[string]dogs.Dog{},
	}
}

// Search lanza una búsqueda nueva. Si tiene éxito reemplaza la página actual.
// Con hidratación parcial la página se aplica igual y se devuelve el error parcial.
func (c *Controller) Search(ctx context.Context, q dogs.SearchQuery) (Page, error) {
	q, err := q.Normalize()
	if err != nil {
		return Page{}, err
	}
	return c.run(ctx, q, "", func(ctx context.Context) (dogs.SearchResult, error) {
		return c.src.Search(ctx, q)
	})
}

// Page navega con un cursor next/prev emitido antes por este controller.
// Un cursor desconocido falla con ErrInvalidCursor sin tocar estado ni llamar al servicio.
func (c *Controller) Page(ctx context.Context, cursor string) (Page, error) {
	c.mu.Lock()
	q, ok := c.cursors[cursor]
	c.mu.Unlock()
	if !ok || strings.TrimSpace(cursor) == "" {
		return Page{}, ErrInvalidCursor
	}

	return c.run(ctx, q, cursor, func(ctx context.Context) (dogs.SearchResult, error) {
		return c.src.SearchCursor(ctx, cursor)
	})
}

// Current devuelve una copia de la página actual.
func (c *Controller) Current() Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clonePage(c.current)
}

// Lookup devuelve un perro hidratado en esta sesión.
func (c *Controller) Lookup(id string) (dogs.Dog, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.seen[id]
	return d, ok
}

// Remember registra perros hidratados fuera del controller (p.ej. el match).
func (c *Controller) Remember(dd ...dogs.Dog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range dd {
		c.seen[d.ID] = d
	}
}

// Reset vuelve al estado inicial. Las respuestas en vuelo quedan obsoletas.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	c.current = Page{}
	c.cursors = map[string]dogs.SearchQuery{}
	c.seen = map[string]dogs.Dog{}
}

func (c *Controller) run(
	ctx context.Context,
	q dogs.SearchQuery,
	cursor string,
	fetch func(context.Context) (dogs.SearchResult, error),
) (Page, error) {
	seq := c.begin()
	log := c.log.With(map[string]any{"seq": seq})

	res, err := fetch(ctx)
	if err != nil {
		c.abort(seq)
		log.Warn("search failed", map[string]any{"err": err})
		return Page{}, err
	}
	if c.stale(seq) {
		return Page{}, c.discard(log)
	}

	// upstream puede repetir ids; no es motivo para perder la página
	res.ResultIDs = uniqueIDs(res.ResultIDs)
	if len(res.ResultIDs) > dogs.MaxBatch {
		res.ResultIDs = res.ResultIDs[:dogs.MaxBatch]
	}

	dd, herr := c.hyd.Hydrate(ctx, res.ResultIDs)
	if herr != nil && !errors.Is(herr, hydration.ErrPartialFetch) {
		c.abort(seq)
		log.Warn("hydration failed", map[string]any{"err": herr})
		return Page{}, herr
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.issued {
		return Page{}, c.discard(log)
	}

	page := Page{
		Seq:       seq,
		Query:     q,
		Cursor:    cursor,
		ResultIDs: slices.Clone(res.ResultIDs),
		Total:     res.Total,
		Next:      res.Next,
		Prev:      res.Prev,
		Dogs:      dd,
	}
	c.current = page
	if page.Next != "" {
		c.cursors[page.Next] = q
	}
	if page.Prev != "" {
		c.cursors[page.Prev] = q
	}
	for _, d := range dd {
		c.seen[d.ID] = d
	}

	if herr != nil {
		log.Warn("page applied with partial hydration", map[string]any{"err": herr})
	} else {
		log.Debug("page applied", map[string]any{"total": page.Total, "results": len(page.ResultIDs)})
	}
	return clonePage(page), herr
}

func (c *Controller) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	c.current.Loading = true
	return c.issued
}

// abort limpia Loading solo si este request sigue siendo el último emitido.
func (c *Controller) abort(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq == c.issued {
		c.current.Loading = false
	}
}

func (c *Controller) stale(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return seq != c.issued
}

func (c *Controller) discard(log logger.Logger) error {
	c.metrics.ObserveStale()
	log.Debug("stale search response discarded", nil)
	return ErrSuperseded
}

func clonePage(p Page) Page {
	p.ResultIDs = slices.Clone(p.ResultIDs)
	p.Dogs = slices.Clone(p.Dogs)
	return p
}

// uniqueIDs quita repetidos conservando el orden de primera aparición.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
