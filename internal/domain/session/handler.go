package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"dog-match/internal/domain/hydration"
	"dog-match/internal/domain/match"
	"dog-match/internal/domain/search"
	"dog-match/internal/middleware"
	"dog-match/internal/ports/dogs"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes monta la BFF. Todo salvo /session exige sesión activa.
func RegisterRoutes(r chi.Router, g *Guard) {
	r.Route("/session", func(sr chi.Router) {
		sr.Post("/login", loginHandler(g))
		sr.Post("/logout", logoutHandler(g))
		sr.Get("/", sessionInfoHandler(g))
	})

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireSession(g))

		pr.Get("/breeds", breedsHandler(g))

		pr.Route("/search", func(sr chi.Router) {
			sr.Post("/", searchHandler(g))
			sr.Post("/page", pageHandler(g))
			sr.Get("/", currentPageHandler(g))
		})

		pr.Route("/favorites", func(fr chi.Router) {
			fr.Get("/", listFavoritesHandler(g))
			fr.Delete("/", clearFavoritesHandler(g))
			fr.Put("/{dogID}", addFavoriteHandler(g))
			fr.Delete("/{dogID}", removeFavoriteHandler(g))
			fr.Post("/{dogID}/toggle", toggleFavoriteHandler(g))
		})

		pr.Route("/match", func(mr chi.Router) {
			mr.Post("/", requestMatchHandler(g))
			mr.Get("/", lastMatchHandler(g))
		})
	})
}

type loginRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartedAt time.Time `json:"started_at"`
}

type searchRequest struct {
	Breed     string `json:"breed"`
	SortField string `json:"sort_field"`
	SortDir   string `json:"sort_dir"`
	Size      int    `json:"size"`
}

type pageRequest struct {
	Cursor string `json:"cursor"`
}

type pageResponse struct {
	Seq       uint64     `json:"seq"`
	Breed     string     `json:"breed,omitempty"`
	Sort      string     `json:"sort"`
	ResultIDs []string   `json:"result_ids"`
	Total     int        `json:"total"`
	Next      string     `json:"next,omitempty"`
	Prev      string     `json:"prev,omitempty"`
	Dogs      []dogs.Dog `json:"dogs"`
	Loading   bool       `json:"loading"`
	Missing   []string   `json:"missing,omitempty"`
}

type toggleResponse struct {
	DogID    string `json:"dog_id"`
	Favorite bool   `json:"favorite"`
}

func loginHandler(g *Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		info, err := g.Login(r.Context(), dogs.Credentials{Name: req.Name, Email: req.Email})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSessionResponse(info))
	}
}

func logoutHandler(g *Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := g.Logout(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func sessionInfoHandler(g *Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		info, err := g.Info()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSessionResponse(info))
	}
}

func breedsHandler(g *Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		breeds, err := g.Breeds(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, breeds)
	}
}

func searchHandler(g *Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		p, err := g.Search(r.Context(), dogs.SearchQuery{
			Breed: req.Breed,
			Sort: dogs.Sort{
				Field:     dogs.SortField(req.SortField),
				Direction: dogs.SortDirection(req.SortDir),
			},
			Size: req.Size,
		})
		writePage(w, p, err)
	}
}

func pageHandler(g *Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		p, err := g.Page(r.Context(), req.Cursor)
		writePage(w, p, err)
	}
}

func currentPageHandler(g *Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		p, err := g.CurrentPage()
		writePage(w, p, err)
	}
}

func listFavoritesHandler(g *Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		favs, err := g.Favorites()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, favs)
	}
}

func clearFavoritesHandler(g *Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if err := g.ClearFavorites(); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func addFavoriteHandler(g *Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dogID := chi.URLParam(r, "dogID")
		if err := g.AddFavorite(dogID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toggleResponse{DogID: dogID, Favorite: true})
	}
}

func removeFavoriteHandler(g *Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dogID := chi.URLParam(r, "dogID")
		if err := g.RemoveFavorite(dogID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toggleResponse{DogID: dogID, Favorite: false})
	}
}

func toggleFavoriteHandler(g *Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dogID := chi.URLParam(r, "dogID")
		on, err := g.ToggleFavorite(dogID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toggleResponse{DogID: dogID, Favorite: on})
	}
}

func requestMatchHandler(g *Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := g.RequestMatch(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func lastMatchHandler(g *Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		d, ok, err := g.LastMatch()
		if err != nil {
			writeError(w, err)
			return
		}
		if !ok {
			http.Error(w, "no match yet", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

// writePage escribe la página; con hidratación parcial responde 206 con la página degradada.
func writePage(w http.ResponseWriter, p search.Page, err error) {
	var pf *hydration.PartialFetchError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, toPageResponse(p, nil))
	case errors.As(err, &pf):
		writeJSON(w, http.StatusPartialContent, toPageResponse(p, pf.Missing))
	default:
		writeError(w, err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
	case errors.Is(err, search.ErrInvalidCursor),
		errors.Is(err, ErrUnknownDog),
		errors.Is(err, match.ErrEmptyFavorites),
		errors.Is(err, dogs.ErrInvalidQuery):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, search.ErrSuperseded):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, hydration.ErrPartialFetch),
		errors.Is(err, hydration.ErrDuplicateID),
		errors.Is(err, dogs.ErrNetworkFailure),
		errors.Is(err, dogs.ErrUpstream):
		http.Error(w, "upstream error", http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toSessionResponse(info Info) sessionResponse {
	return sessionResponse{
		ID:        info.ID,
		Name:      info.Name,
		StartedAt: info.StartedAt,
	}
}

func toPageResponse(p search.Page, missing []string) pageResponse {
	ids := p.ResultIDs
	if ids == nil {
		ids = []string{}
	}
	dd := p.Dogs
	if dd == nil {
		dd = []dogs.Dog{}
	}
	sort := ""
	if p.Query.Sort.Field != "" {
		sort = p.Query.Sort.String()
	}
	return pageResponse{
		Seq:       p.Seq,
		Breed:     p.Query.Breed,
		Sort:      sort,
		ResultIDs: ids,
		Total:     p.Total,
		Next:      p.Next,
		Prev:      p.Prev,
		Dogs:      dd,
		Loading:   p.Loading,
		Missing:   missing,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
