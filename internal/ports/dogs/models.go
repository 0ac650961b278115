package dogs

import (
	"fmt"
	"strings"
)

// MaxBatch es el tope de ids por página y por lote de hidratación/match.
const MaxBatch = 25

// Dog representa un perro adoptable ya hidratado. Inmutable una vez leído.
type Dog struct {
	ID      string `json:"id"`
	Img     string `json:"img"`
	Name    string `json:"name"`
	Age     int    `json:"age"`
	ZipCode string `json:"zip_code"`
	Breed   string `json:"breed"`
}

type SortField string

const (
	SortByBreed SortField = "breed"
	SortByName  SortField = "name"
	SortByAge   SortField = "age"
)

type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// Sort define campo + dirección. El valor cero equivale a breed:asc.
type Sort struct {
	Field     SortField
	Direction SortDirection
}

// Normalize aplica defaults y valida. Devuelve ErrInvalidQuery si algo no es soportado.
func (s Sort) Normalize() (Sort, error) {
	f := SortField(strings.ToLower(strings.TrimSpace(string(s.Field))))
	d := SortDirection(strings.ToLower(strings.TrimSpace(string(s.Direction))))
	if f == "" {
		f = SortByBreed
	}
	if d == "" {
		d = Asc
	}
	switch f {
	case SortByBreed, SortByName, SortByAge:
	default:
		return Sort{}, fmt.Errorf("%w: sort field %q", ErrInvalidQuery, f)
	}
	if d != Asc && d != Desc {
		return Sort{}, fmt.Errorf("%w: sort direction %q", ErrInvalidQuery, d)
	}
	return Sort{Field: f, Direction: d}, nil
}

// String devuelve el formato que espera el servicio: field:dir.
func (s Sort) String() string {
	return string(s.Field) + ":" + string(s.Direction)
}

// SearchQuery: Breed vacío = sin filtro. Size 0 = default del servicio.
type SearchQuery struct {
	Breed string
	Sort  Sort
	Size  int
}

// Normalize limpia el breed, valida el sort y recorta Size a MaxBatch.
func (q SearchQuery) Normalize() (SearchQuery, error) {
	s, err := q.Sort.Normalize()
	if err != nil {
		return SearchQuery{}, err
	}
	if q.Size < 0 {
		return SearchQuery{}, fmt.Errorf("%w: negative size", ErrInvalidQuery)
	}
	size := q.Size
	if size > MaxBatch {
		size = MaxBatch
	}
	return SearchQuery{
		Breed: strings.TrimSpace(q.Breed),
		Sort:  s,
		Size:  size,
	}, nil
}

// SearchResult es la respuesta cruda de /dogs/search.
// Next y Prev son cursores opacos: se devuelven al servicio tal cual.
type SearchResult struct {
	ResultIDs []string `json:"resultIds"`
	Total     int      `json:"total"`
	Next      string   `json:"next,omitempty"`
	Prev      string   `json:"prev,omitempty"`
}

// Credentials para POST /auth/login.
type Credentials struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
