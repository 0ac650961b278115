// Package fetchapitest levanta un servicio de perros falso (in-memory) para tests.
// Implementa el mismo contrato HTTP que el servicio real: auth por cookie,
// búsqueda paginada con cursores relativos, hidratación y match.
package fetchapitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"dog-match/internal/ports/dogs"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const CookieName = "fetch-access-token"

// Server es el fake. Los campos exportados se pueden ajustar antes de usarlo.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	dogs   map[string]dogs.Dog
	order  []string
	tokens map[string]struct{}
	calls  map[string]int
	reject bool

	// MatchFunc elige el match; por defecto el primer id recibido.
	MatchFunc func(ids []string) string
	// Drop hace que POST /dogs omita estos ids (simula hidratación parcial).
	Drop map[string]bool
}

func NewServer(seed []dogs.Dog) *Server {
	s := &Server{
		dogs:   make(map[string]dogs.Dog, len(seed)),
		tokens: map[string]struct{}{},
		calls:  map[string]int{},
		Drop:   map[string]bool{},
	}
	for _, d := range seed {
		s.dogs[d.ID] = d
		s.order = append(s.order, d.ID)
	}

	r := chi.NewRouter()
	r.Post("/auth/login", s.login)
	r.Group(func(pr chi.Router) {
		pr.Use(s.requireCookie)
		pr.Post("/auth/logout", s.logout)
		pr.Get("/dogs/breeds", s.breeds)
		pr.Get("/dogs/search", s.search)
		pr.Post("/dogs", s.fetch)
		pr.Post("/dogs/match", s.match)
	})

	s.Server = httptest.NewServer(r)
	return s
}

// Calls devuelve cuántas veces se llamó a "METHOD /path".
func (s *Server) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

// Expire invalida todas las sesiones (el próximo request responde 401).
func (s *Server) Expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]struct{}{}
}

// RejectLogins hace que POST /auth/login responda 401 mientras esté activo.
func (s *Server) RejectLogins(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = on
}

func (s *Server) count(r *http.Request) {
	s.mu.Lock()
	s.calls[r.Method+" "+r.URL.Path]++
	s.mu.Unlock()
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	s.count(r)
	var c dogs.Credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Name == "" || c.Email == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	tok := uuid.NewString()
	s.mu.Lock()
	if s.reject {
		s.mu.Unlock()
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	s.tokens[tok] = struct{}{}
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: tok, Path: "/", HttpOnly: true})
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) requireCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.count(r)
		c, err := r.Cookie(CookieName)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		s.mu.Lock()
		_, ok := s.tokens[c.Value]
		s.mu.Unlock()
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil {
		s.mu.Lock()
		delete(s.tokens, c.Value)
		s.mu.Unlock()
	}
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) breeds(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, d := range s.dogs {
		if _, ok := seen[d.Breed]; ok {
			continue
		}
		seen[d.Breed] = struct{}{}
		out = append(out, d.Breed)
	}
	s.mu.Unlock()
	sort.Strings(out)
	writeJSON(w, out)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	breed := q.Get("breeds")

	field, dir := "breed", "asc"
	if raw := q.Get("sort"); raw != "" {
		parts := strings.SplitN(raw, ":", 2)
		field = parts[0]
		if len(parts) == 2 {
			dir = parts[1]
		}
	}

	size := atoiDefault(q.Get("size"), dogs.MaxBatch)
	from := atoiDefault(q.Get("from"), 0)

	s.mu.Lock()
	matches := make([]dogs.Dog, 0)
	for _, id := range s.order {
		d := s.dogs[id]
		if breed != "" && d.Breed != breed {
			continue
		}
		matches = append(matches, d)
	}
	s.mu.Unlock()

	sort.SliceStable(matches, func(i, j int) bool {
		if dir == "desc" {
			return lessBy(field, matches[j], matches[i])
		}
		return lessBy(field, matches[i], matches[j])
	})

	res := dogs.SearchResult{Total: len(matches), ResultIDs: []string{}}
	for i := from; i < len(matches) && i < from+size; i++ {
		res.ResultIDs = append(res.ResultIDs, matches[i].ID)
	}

	link := func(offset int) string {
		v := url.Values{}
		if breed != "" {
			v.Set("breeds", breed)
		}
		v.Set("sort", field+":"+dir)
		v.Set("size", strconv.Itoa(size))
		v.Set("from", strconv.Itoa(offset))
		return "/dogs/search?" + v.Encode()
	}
	if from+size < len(matches) {
		res.Next = link(from + size)
	}
	if from > 0 {
		prev := from - size
		if prev < 0 {
			prev = 0
		}
		res.Prev = link(prev)
	}

	writeJSON(w, res)
}

func (s *Server) fetch(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	out := make([]dogs.Dog, 0, len(ids))
	for _, id := range ids {
		d, ok := s.dogs[id]
		if !ok || s.Drop[id] {
			continue
		}
		out = append(out, d)
	}
	s.mu.Unlock()
	writeJSON(w, out)
}

func (s *Server) match(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil || len(ids) == 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	pick := ids[0]
	if s.MatchFunc != nil {
		pick = s.MatchFunc(ids)
	}
	writeJSON(w, map[string]string{"match": pick})
}

func lessBy(field string, a, b dogs.Dog) bool {
	switch field {
	case "name":
		return a.Name < b.Name
	case "age":
		return a.Age < b.Age
	default:
		return a.Breed < b.Breed
	}
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Dogs genera n perros deterministas: ids dog-000.., breeds rotando entre las dadas.
func Dogs(n int, breeds ...string) []dogs.Dog {
	if len(breeds) == 0 {
		breeds = []string{"Beagle", "Labrador", "Poodle"}
	}
	out := make([]dogs.Dog, 0, n)
	for i := 0; i < n; i++ {
		id := "dog-" + leftPad(strconv.Itoa(i), 3)
		out = append(out, dogs.Dog{
			ID:      id,
			Name:    "Dog " + strconv.Itoa(i),
			Age:     i % 15,
			Breed:   breeds[i%len(breeds)],
			ZipCode: "1000" + strconv.Itoa(i%10),
			Img:     "https://img.example/" + id + ".jpg",
		})
	}
	return out
}

func leftPad(s string, n int) string {
	for len(s) < n {
		s = "0" + s
	}
	return s
}
