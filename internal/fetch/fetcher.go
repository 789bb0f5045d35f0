// Package fetch downloads package tarballs into the content-addressed cache
// and materializes them on disk.
//
// Downloads go to a uniquely-named temp file, are verified against their
// integrity digest, and only then atomically published into the cache.
// Fetch-and-publish is single-flight per (name, version); the whole
// extraction-or-download workload runs under one bounded concurrency budget.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/pacm-sh/pacm/internal/registry"
)

const userAgent = "pacm/0.1.0"

// Downloader streams tarballs over HTTP with reset-retry and a per-host
// circuit breaker.
type Downloader struct {
	client     *http.Client
	attempts   int
	breakersMu sync.Mutex
	breakers   map[string]*circuit.Breaker
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DownloaderOption {
	return func(d *Downloader) { d.client = c }
}

// WithAttempts sets the total tries for reset-class failures.
func WithAttempts(n int) DownloaderOption {
	return func(d *Downloader) {
		if n > 0 {
			d.attempts = n
		}
	}
}

// NewDownloader creates a Downloader. By default it retries TCP resets up
// to 3 attempts total with no delay, matching the registry client policy.
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		client: &http.Client{
			Timeout:   5 * time.Minute, // tarballs can be large
			Transport: registry.SharedTransport(),
		},
		attempts: 3,
		breakers: make(map[string]*circuit.Breaker),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// breaker returns or creates the circuit breaker for a registry host.
func (d *Downloader) breaker(host string) *circuit.Breaker {
	d.breakersMu.Lock()
	defer d.breakersMu.Unlock()
	if b, ok := d.breakers[host]; ok {
		return b
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Reset()

	b := circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	})
	d.breakers[host] = b
	return b
}

// Download fetches rawURL into a uniquely-named temp file and returns its
// path. The caller removes the file when done.
func (d *Downloader) Download(ctx context.Context, rawURL string) (string, error) {
	host := rawURL
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
		host = parsed.Host
	}
	b := d.breaker(host)
	if !b.Ready() {
		return "", fmt.Errorf("circuit breaker open for %s", host)
	}

	var path string
	err := b.Call(func() error {
		var downloadErr error
		path, downloadErr = d.download(ctx, rawURL)
		return downloadErr
	}, 0)
	return path, err
}

func (d *Downloader) download(ctx context.Context, rawURL string) (string, error) {
	tmp, err := os.CreateTemp("", "pacm-dl-*.tgz")
	if err != nil {
		return "", err
	}
	path := tmp.Name()
	_ = tmp.Close()

	op := func() error {
		return d.downloadTo(ctx, rawURL, path)
	}
	wrapped := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		err := op()
		if err == nil || registry.IsConnReset(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(0), uint64(d.attempts-1))
	if err := backoff.Retry(wrapped, backoff.WithContext(policy, ctx)); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func (d *Downloader) downloadTo(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, rawURL)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
