package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dog-match/internal/adapters/fetchapi"
	"dog-match/internal/adapters/fetchapi/fetchapitest"
	"dog-match/internal/domain/session"
	"dog-match/internal/platform/metrics"
	"dog-match/internal/router"
)

type pageBody struct {
	Seq       uint64   `json:"seq"`
	ResultIDs []string `json:"result_ids"`
	Total     int      `json:"total"`
	Next      string   `json:"next"`
	Prev      string   `json:"prev"`
	Dogs      []struct {
		ID    string `json:"id"`
		Breed string `json:"breed"`
	} `json:"dogs"`
}

func newServer(t *testing.T, n int) (*httptest.Server, *fetchapitest.Server) {
	t.Helper()
	upstream := fetchapitest.NewServer(fetchapitest.Dogs(n))
	t.Cleanup(upstream.Close)

	m := metrics.New()
	c, err := fetchapi.NewClient(fetchapi.Config{BaseURL: upstream.URL, Timeout: 2 * time.Second, Metrics: m})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	g := session.NewGuard(c, session.Options{Metrics: m})

	ts := httptest.NewServer(router.NewRouter(router.Options{Guard: g, Metrics: m}))
	t.Cleanup(ts.Close)
	return ts, upstream
}

func TestHTTP_EndToEnd_SearchFavoritesMatch(t *testing.T) {
	ts, upstream := newServer(t, 40)

	// 1) Sin sesión todo lo protegido es 401
	{
		st, _ := doReq(t, ts.URL, "GET", "/breeds", nil)
		if st != http.StatusUnauthorized {
			t.Fatalf("expected 401 before login, got %d", st)
		}
		if n := upstream.Calls("GET /dogs/breeds"); n != 0 {
			t.Fatalf("expected no upstream calls, got %d", n)
		}
	}

	// 2) Login
	{
		st, body := doReq(t, ts.URL, "POST", "/session/login", map[string]any{"name": "Ana", "email": "ana@example.com"})
		if st != http.StatusOK {
			t.Fatalf("expected 200 login, got %d body=%s", st, string(body))
		}
	}

	// 3) Razas
	{
		st, body := doReq(t, ts.URL, "GET", "/breeds", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 breeds, got %d body=%s", st, string(body))
		}
		var breeds []string
		mustJSON(t, body, &breeds)
		if len(breeds) != 3 {
			t.Fatalf("expected 3 breeds, got %v", breeds)
		}
	}

	// 4) Búsqueda filtrada
	var first pageBody
	{
		st, body := doReq(t, ts.URL, "POST", "/search", map[string]any{"breed": "Beagle", "sort_field": "name", "sort_dir": "asc", "size": 5})
		if st != http.StatusOK {
			t.Fatalf("expected 200 search, got %d body=%s", st, string(body))
		}
		mustJSON(t, body, &first)
		if len(first.Dogs) != 5 || first.Next == "" {
			t.Fatalf("unexpected first page: %+v", first)
		}
		for _, d := range first.Dogs {
			if d.Breed != "Beagle" {
				t.Fatalf("expected only Beagle, got %s", d.Breed)
			}
		}
	}

	// 5) Siguiente página por cursor
	{
		st, body := doReq(t, ts.URL, "POST", "/search/page", map[string]any{"cursor": first.Next})
		if st != http.StatusOK {
			t.Fatalf("expected 200 page, got %d body=%s", st, string(body))
		}
		var next pageBody
		mustJSON(t, body, &next)
		if next.Seq <= first.Seq || next.Prev == "" {
			t.Fatalf("unexpected next page: %+v", next)
		}
	}

	// 6) Cursor desconocido
	{
		st, _ := doReq(t, ts.URL, "POST", "/search/page", map[string]any{"cursor": "/dogs/search?from=999"})
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 unknown cursor, got %d", st)
		}
	}

	// 7) Match sin favoritos
	{
		st, _ := doReq(t, ts.URL, "POST", "/match", nil)
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 empty favorites, got %d", st)
		}
	}

	// 8) Favoritos
	a, b := first.Dogs[0].ID, first.Dogs[1].ID
	{
		if st, body := doReq(t, ts.URL, "PUT", "/favorites/"+a, nil); st != http.StatusOK {
			t.Fatalf("expected 200 add favorite, got %d body=%s", st, string(body))
		}
		if st, body := doReq(t, ts.URL, "POST", "/favorites/"+b+"/toggle", nil); st != http.StatusOK {
			t.Fatalf("expected 200 toggle favorite, got %d body=%s", st, string(body))
		}
		if st, _ := doReq(t, ts.URL, "PUT", "/favorites/dog-unknown", nil); st != http.StatusBadRequest {
			t.Fatalf("expected 400 unknown dog, got %d", st)
		}

		st, body := doReq(t, ts.URL, "GET", "/favorites", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 list favorites, got %d", st)
		}
		var favs []struct {
			ID string `json:"id"`
		}
		mustJSON(t, body, &favs)
		if len(favs) != 2 || favs[0].ID != a || favs[1].ID != b {
			t.Fatalf("unexpected favorites: %+v", favs)
		}
	}

	// 9) Match: el fake elige el primero y los favoritos quedan vacíos
	{
		st, body := doReq(t, ts.URL, "POST", "/match", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 match, got %d body=%s", st, string(body))
		}
		var d struct {
			ID string `json:"id"`
		}
		mustJSON(t, body, &d)
		if d.ID != a {
			t.Fatalf("expected match %s, got %s", a, d.ID)
		}

		_, body = doReq(t, ts.URL, "GET", "/favorites", nil)
		if strings.TrimSpace(string(body)) != "[]" {
			t.Fatalf("expected favorites cleared, got %s", string(body))
		}

		if st, _ := doReq(t, ts.URL, "GET", "/match", nil); st != http.StatusOK {
			t.Fatalf("expected 200 last match, got %d", st)
		}
	}

	// 10) Logout y vuelta a 401
	{
		if st, _ := doReq(t, ts.URL, "POST", "/session/logout", nil); st != http.StatusNoContent {
			t.Fatalf("expected 204 logout, got %d", st)
		}
		if st, _ := doReq(t, ts.URL, "GET", "/favorites", nil); st != http.StatusUnauthorized {
			t.Fatalf("expected 401 after logout, got %d", st)
		}
		if st, _ := doReq(t, ts.URL, "GET", "/session", nil); st != http.StatusUnauthorized {
			t.Fatalf("expected 401 session info after logout, got %d", st)
		}
	}
}

func TestHTTP_ExpiredUpstreamSession_Returns401(t *testing.T) {
	ts, upstream := newServer(t, 10)

	if st, _ := doReq(t, ts.URL, "POST", "/session/login", map[string]any{"name": "Ana", "email": "ana@example.com"}); st != http.StatusOK {
		t.Fatalf("expected 200 login, got %d", st)
	}

	upstream.Expire()

	if st, _ := doReq(t, ts.URL, "POST", "/search", map[string]any{}); st != http.StatusUnauthorized {
		t.Fatalf("expected 401 on expired session, got %d", st)
	}
	if st, _ := doReq(t, ts.URL, "GET", "/search", nil); st != http.StatusUnauthorized {
		t.Fatalf("expected local state dropped, got %d", st)
	}
}

func TestHTTP_HealthAndMetrics(t *testing.T) {
	ts, _ := newServer(t, 1)

	if st, body := doReq(t, ts.URL, "GET", "/health", nil); st != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected health: %d %s", st, string(body))
	}

	// genera al menos una muestra
	doReq(t, ts.URL, "POST", "/session/login", map[string]any{"name": "Ana", "email": "ana@example.com"})

	st, body := doReq(t, ts.URL, "GET", "/metrics", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 metrics, got %d", st)
	}
	if !strings.Contains(string(body), "dogmatch_remote_requests_total") {
		t.Fatalf("expected remote requests metric, got %s", string(body))
	}
}

func mustJSON(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("json unmarshal: %v body=%s", err, string(body))
	}
}

func doReq(t *testing.T, baseURL, method, path string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
