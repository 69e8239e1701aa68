package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// KeySource yields the signing keys of the identity provider.
type KeySource interface {
	KeySet(ctx context.Context) (*KeySet, error)
}

// Fetcher retrieves a raw JWKS document.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// RemoteSource downloads the JWKS document on every call.
type RemoteSource struct {
	url     string
	timeout time.Duration
	client  *fasthttp.Client
}

// NewRemoteSource builds a source for url. Each fetch is bounded by timeout
// or the context deadline, whichever comes first.
func NewRemoteSource(url string, timeout time.Duration, client *fasthttp.Client) *RemoteSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if client == nil {
		client = &fasthttp.Client{
			Name:                "volunteers-jwks",
			MaxIdleConnDuration: time.Minute,
		}
	}
	return &RemoteSource{url: url, timeout: timeout, client: client}
}

// Fetch downloads the raw key set document.
func (s *RemoteSource) Fetch(ctx context.Context) ([]byte, error) {
	deadline := time.Now().Add(s.timeout)
	if ctx != nil {
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := s.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("auth: fetching %s: %w", s.url, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("auth: fetching %s: unexpected status %d", s.url, resp.StatusCode())
	}

	body := append([]byte(nil), resp.Body()...)
	return body, nil
}

// KeySet fetches and decodes the key set.
func (s *RemoteSource) KeySet(ctx context.Context) (*KeySet, error) {
	raw, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return ParseKeySet(raw)
}

// StaticSource serves a fixed key set.
type StaticSource struct {
	Set *KeySet
}

func (s StaticSource) KeySet(context.Context) (*KeySet, error) {
	if s.Set == nil {
		return nil, fmt.Errorf("auth: static source has no key set")
	}
	return s.Set, nil
}
