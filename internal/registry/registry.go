// Package registry fetches and memoizes package metadata documents from an
// npm-compatible registry.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pacm-sh/pacm/internal/errs"
)

// DefaultURL is the registry used when no configuration overrides it.
const DefaultURL = "https://registry.npmjs.org"

// Client fetches registry documents. Results are memoized by package name
// for the lifetime of the process; a document is treated as immutable for
// the run.
type Client struct {
	baseURL string
	http    *http.Client

	mu   sync.Mutex
	memo map[string]*memoEntry
}

type memoEntry struct {
	once sync.Once
	meta *Metadata
	err  error
}

// New creates a client against baseURL. An empty baseURL selects DefaultURL.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			Timeout:   60 * time.Second,
			Transport: SharedTransport(),
		},
		memo: make(map[string]*memoEntry),
	}
}

// BaseURL returns the registry base URL the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchMetadata returns the registry document for name, fetching it at most
// once per process. Concurrent callers for the same name share one request.
func (c *Client) FetchMetadata(ctx context.Context, name string) (*Metadata, error) {
	c.mu.Lock()
	entry, ok := c.memo[name]
	if !ok {
		entry = &memoEntry{}
		c.memo[name] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.meta, entry.err = c.fetch(ctx, name)
	})
	return entry.meta, entry.err
}

func (c *Client) fetch(ctx context.Context, name string) (*Metadata, error) {
	docURL := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(name))

	var meta Metadata
	if err := getJSON(ctx, c.http, docURL, &meta); err != nil {
		return nil, classify(name, err)
	}
	if meta.Name == "" {
		meta.Name = name
	}
	return &meta, nil
}

// Search queries the registry full-text search endpoint.
func (c *Client) Search(ctx context.Context, text string, size int) ([]SearchResult, error) {
	if size <= 0 {
		size = 20
	}
	searchURL := fmt.Sprintf("%s/-/v1/search?text=%s&size=%d", c.baseURL, url.QueryEscape(text), size)

	var resp searchResponse
	if err := getJSON(ctx, c.http, searchURL, &resp); err != nil {
		return nil, classify(text, err)
	}

	results := make([]SearchResult, 0, len(resp.Objects))
	for _, obj := range resp.Objects {
		results = append(results, SearchResult{
			Name:        obj.Package.Name,
			Version:     obj.Package.Version,
			Description: obj.Package.Description,
		})
	}
	return results, nil
}

// classify maps a raw fetch failure onto the registry error taxonomy.
func classify(name string, err error) error {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.IsNotFound() {
			return &errs.RegistryError{Kind: errs.RegistryNotFound, Name: name, Err: err}
		}
		return &errs.RegistryError{Kind: errs.RegistryTransport, Name: name, Err: err}
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &errs.RegistryError{Kind: errs.RegistryParse, Name: name, Err: err}
	}
	return &errs.RegistryError{Kind: errs.RegistryTransport, Name: name, Err: err}
}
