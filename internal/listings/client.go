// Package listings resolves rooms and experiences owned by the listings service.
package listings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"nestbook/pkg/model"
)

var ErrNotFound = errors.New("listing not found")

// Directory answers whether a listing exists.
type Directory interface {
	Get(ctx context.Context, kind model.BookingKind, id string) (*model.Listing, error)
}

type HTTPDirectory struct {
	BaseURL    string
	HTTPClient *http.Client
	headers    func(ctx context.Context) map[string]string
}

type Option func(*HTTPDirectory)

// WithHeaders adds per-request headers, e.g. the inbound request id.
func WithHeaders(fn func(ctx context.Context) map[string]string) Option {
	return func(d *HTTPDirectory) { d.headers = fn }
}

func WithTransport(rt http.RoundTripper) Option {
	return func(d *HTTPDirectory) { d.HTTPClient.Transport = rt }
}

func NewHTTPDirectory(baseURL string, timeout time.Duration, opts ...Option) *HTTPDirectory {
	d := &HTTPDirectory{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type listingEnvelope struct {
	Data model.Listing `json:"data"`
}

func (d *HTTPDirectory) Get(ctx context.Context, kind model.BookingKind, id string) (*model.Listing, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown listing kind %q", kind)
	}
	path := fmt.Sprintf("%s/api/v1/%s/%s", d.BaseURL, kind, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if d.headers != nil {
		for key, value := range d.headers(ctx) {
			req.Header.Set(key, value)
		}
	}

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listings request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("listings service returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var env listingEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}
	if env.Data.ID == "" {
		env.Data.ID = id
	}
	env.Data.Kind = kind
	return &env.Data, nil
}

// Static is an in-process Directory. Safe for concurrent use.
type Static struct {
	mu       sync.RWMutex
	listings map[string]model.Listing
}

func NewStatic(listings ...model.Listing) *Static {
	s := &Static{listings: make(map[string]model.Listing)}
	for _, l := range listings {
		s.Put(l)
	}
	return s
}

func (s *Static) Put(l model.Listing) {
	s.mu.Lock()
	s.listings[staticKey(l.Kind, l.ID)] = l
	s.mu.Unlock()
}

func (s *Static) Remove(kind model.BookingKind, id string) {
	s.mu.Lock()
	delete(s.listings, staticKey(kind, id))
	s.mu.Unlock()
}

func (s *Static) Get(ctx context.Context, kind model.BookingKind, id string) (*model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[staticKey(kind, id)]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func staticKey(kind model.BookingKind, id string) string {
	return string(kind) + "/" + id
}
