package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cenk/backoff"
	"github.com/rs/dnscache"
)

const userAgent = "pacm/0.1.0"

// resetAttempts is the total number of tries for requests that fail with a
// TCP reset class error. No delay between attempts.
const resetAttempts = 3

var (
	transportOnce sync.Once
	transport     *http.Transport
)

// SharedTransport returns the process-wide HTTP transport with a DNS-caching
// dialer, built once and reused by the registry client and tarball fetcher.
func SharedTransport() *http.Transport {
	transportOnce.Do(func() {
		resolver := &dnscache.Resolver{}
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				resolver.Refresh(true)
			}
		}()

		dialer := &net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}

		transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, err
				}
				ips, err := resolver.LookupHost(ctx, host)
				if err != nil {
					return nil, err
				}
				for _, ip := range ips {
					conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
					if err == nil {
						return conn, nil
					}
				}
				return nil, fmt.Errorf("failed to dial any resolved IP for %s", host)
			},
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
	})
	return transport
}

// HTTPError is a non-2xx registry response.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// IsNotFound reports whether the response was a 404.
func (e *HTTPError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

// IsConnReset reports whether err stems from a TCP reset condition, the
// only transport failure the client retries.
func IsConnReset(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return strings.Contains(err.Error(), "connection reset by peer")
}

// retryReset runs op up to attempts times, retrying only on TCP reset
// errors with no delay in between.
func retryReset(ctx context.Context, attempts int, op func() error) error {
	wrapped := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		err := op()
		if err == nil || IsConnReset(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(0), uint64(attempts-1))
	return backoff.Retry(wrapped, backoff.WithContext(b, ctx))
}

// getJSON GETs url and decodes the response body into out, retrying TCP
// resets per the registry retry policy.
func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	return retryReset(ctx, resetAttempts, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
			return &HTTPError{StatusCode: resp.StatusCode, URL: url}
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}
