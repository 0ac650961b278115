package fetchapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dog-match/internal/platform/httpclient"
	"dog-match/internal/platform/metrics"
	"dog-match/internal/ports/dogs"
)

var (
	ErrNotConfigured = errors.New("dogs api client not configured")
)

// Config del cliente del servicio de perros.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// Opcional: transport inyectable (tests).
	Transport http.RoundTripper
	// Opcional: contadores de requests remotos.
	Metrics *metrics.Metrics
}

// Client implementa dogs.Source sobre HTTP. La sesión vive en el cookie jar del http.Client.
type Client struct {
	http    *httpclient.Client
	metrics *metrics.Metrics
}

var _ dogs.Source = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, ErrNotConfigured
	}

	hc := httpclient.NewWithTransport(cfg.Timeout, cfg.Transport)
	if err := hc.SetBaseURL(base); err != nil {
		return nil, err
	}

	return &Client{http: hc, metrics: cfg.Metrics}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.http != nil && c.http.BaseURL != ""
}

func (c *Client) Login(ctx context.Context, cr dogs.Credentials) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	cr.Name = strings.TrimSpace(cr.Name)
	cr.Email = strings.TrimSpace(cr.Email)
	if cr.Name == "" || cr.Email == "" {
		return fmt.Errorf("%w: name and email required", dogs.ErrInvalidQuery)
	}
	err := c.http.DoJSON(ctx, http.MethodPost, "/auth/login", nil, cr, nil)
	return c.done("login", err)
}

func (c *Client) Logout(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	err := c.http.DoJSON(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
	// La cookie local se descarta siempre: la sesión termina aunque upstream falle.
	c.http.ResetCookies()
	return c.done("logout", err)
}

// ResetSession descarta las cookies sin llamar al servicio (sesión expirada).
func (c *Client) ResetSession() {
	if c == nil || c.http == nil {
		return
	}
	c.http.ResetCookies()
}

func (c *Client) Breeds(ctx context.Context) ([]string, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	var out []string
	err := c.http.DoJSON(ctx, http.MethodGet, "/dogs/breeds", nil, nil, &out)
	if err := c.done("breeds", err); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (c *Client) Search(ctx context.Context, q dogs.SearchQuery) (dogs.SearchResult, error) {
	if !c.IsConfigured() {
		return dogs.SearchResult{}, ErrNotConfigured
	}
	q, err := q.Normalize()
	if err != nil {
		return dogs.SearchResult{}, err
	}

	v := url.Values{}
	if q.Breed != "" {
		v.Set("breeds", q.Breed)
	}
	v.Set("sort", q.Sort.String())
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}

	var out dogs.SearchResult
	err = c.http.DoJSON(ctx, http.MethodGet, "/dogs/search?"+v.Encode(), nil, nil, &out)
	if err := c.done("search", err); err != nil {
		return dogs.SearchResult{}, err
	}
	return out, nil
}

// SearchCursor pide el cursor tal cual lo devolvió el servicio (es un path relativo).
func (c *Client) SearchCursor(ctx context.Context, cursor string) (dogs.SearchResult, error) {
	if !c.IsConfigured() {
		return dogs.SearchResult{}, ErrNotConfigured
	}
	if strings.TrimSpace(cursor) == "" {
		return dogs.SearchResult{}, fmt.Errorf("%w: empty cursor", dogs.ErrInvalidQuery)
	}

	var out dogs.SearchResult
	err := c.http.DoJSON(ctx, http.MethodGet, cursor, nil, nil, &out)
	if err := c.done("search", err); err != nil {
		return dogs.SearchResult{}, err
	}
	return out, nil
}

func (c *Client) Fetch(ctx context.Context, ids []string) ([]dogs.Dog, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	var out []dogs.Dog
	err := c.http.DoJSON(ctx, http.MethodPost, "/dogs", nil, ids, &out)
	if err := c.done("fetch", err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Match(ctx context.Context, ids []string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}
	var out struct {
		Match string `json:"match"`
	}
	err := c.http.DoJSON(ctx, http.MethodPost, "/dogs/match", nil, ids, &out)
	if err := c.done("match", err); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Match), nil
}

// done traduce el error del httpclient a los errores del port y cuenta el request.
func (c *Client) done(endpoint string, err error) error {
	if err == nil {
		c.metrics.ObserveRemote(endpoint, metrics.OutcomeOK)
		return nil
	}

	switch st := httpclient.StatusCode(err); {
	case st == http.StatusUnauthorized || st == http.StatusForbidden:
		c.metrics.ObserveRemote(endpoint, metrics.OutcomeUnauthorized)
		return fmt.Errorf("%w: %s: %v", dogs.ErrUnauthorized, endpoint, err)
	case st != 0:
		c.metrics.ObserveRemote(endpoint, metrics.OutcomeError)
		return fmt.Errorf("%w: %s: %v", dogs.ErrUpstream, endpoint, err)
	}

	if errors.Is(err, httpclient.ErrTransport) || errors.Is(err, context.DeadlineExceeded) {
		c.metrics.ObserveRemote(endpoint, metrics.OutcomeNetwork)
		return fmt.Errorf("%w: %s: %v", dogs.ErrNetworkFailure, endpoint, err)
	}

	c.metrics.ObserveRemote(endpoint, metrics.OutcomeError)
	return fmt.Errorf("%w: %s: %v", dogs.ErrUpstream, endpoint, err)
}
