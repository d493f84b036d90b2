package page

import (
	"context"
	"io"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/pkg/errors"
)

// Fetcher resolves a script URL to its source.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// HTTPFetcher loads scripts over HTTP. Timeouts are left to the caller's context.
type HTTPFetcher struct {
	Client *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: cleanhttp.DefaultPooledClient()}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return body, nil
}
