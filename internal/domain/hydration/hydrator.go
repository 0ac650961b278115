package hydration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dog-match/internal/ports/dogs"
)

var (
	ErrPartialFetch = errors.New("partial fetch")
	ErrDuplicateID  = errors.New("duplicate dog id")
)

// PartialFetchError lista los ids que el servicio no devolvió.
// errors.Is(err, ErrPartialFetch) == true.
type PartialFetchError struct {
	Missing []string
}

func (e *PartialFetchError) Error() string {
	return fmt.Sprintf("partial fetch: %d id(s) not resolved: %s", len(e.Missing), strings.Join(e.Missing, ","))
}

func (e *PartialFetchError) Is(target error) bool {
	return target == ErrPartialFetch
}

// Fetcher es la parte de dogs.Source que necesita el hydrator.
type Fetcher interface {
	Fetch(ctx context.Context, ids []string) ([]dogs.Dog, error)
}

type Hydrator struct {
	src Fetcher
}

func NewHydrator(src Fetcher) *Hydrator {
	return &Hydrator{src: src}
}

// Hydrate resuelve ids a perros, en el mismo orden de entrada.
//   - ids vacío: devuelve vacío sin llamar al servicio.
//   - más de dogs.MaxBatch: solo se resuelven los primeros MaxBatch (recorte silencioso).
//   - si faltan perros: devuelve los resueltos junto con *PartialFetchError.
func (h *Hydrator) Hydrate(ctx context.Context, ids []string) ([]dogs.Dog, error) {
	if len(ids) == 0 {
		return []dogs.Dog{}, nil
	}
	if len(ids) > dogs.MaxBatch {
		ids = ids[:dogs.MaxBatch]
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
	}

	got, err := h.src.Fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Reordenamos por id: no dependemos de que upstream respete el orden.
	byID := make(map[string]dogs.Dog, len(got))
	for _, d := range got {
		if _, wanted := seen[d.ID]; wanted {
			byID[d.ID] = d
		}
	}

	out := make([]dogs.Dog, 0, len(ids))
	var missing []string
	for _, id := range ids {
		d, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, d)
	}

	if len(missing) > 0 {
		return out, &PartialFetchError{Missing: missing}
	}
	return out, nil
}
