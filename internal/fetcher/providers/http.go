package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"fedhost/internal/fetcher"
)

type httpEntrySource struct{}

func (h *httpEntrySource) Schemes() []string {
	return []string{"http", "https"}
}

func (h *httpEntrySource) Fetch(ctx context.Context, u *url.URL, f *fetcher.Fetcher) ([]byte, error) {
	if err := f.Budget().Acquire(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build entry request: %w", err)
	}
	req.Header.Set("Accept", "application/javascript, text/javascript, */*;q=0.1")

	resp, err := f.HTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	f.Budget().UpdateFromResponse(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &fetcher.StatusError{StatusCode: resp.StatusCode}
	}
	return fetcher.ReadEntry(resp.Body)
}

func init() {
	fetcher.RegisterEntrySource(&httpEntrySource{})
}
