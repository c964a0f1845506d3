package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"fedhost/internal/fetcher"
	gh "fedhost/internal/github"
)

// githubEntrySource reads entries committed to a repository:
// github://owner/repo/path/to/remoteEntry.js?ref=main
type githubEntrySource struct{}

func (s *githubEntrySource) Schemes() []string {
	return []string{"github"}
}

func (s *githubEntrySource) Fetch(ctx context.Context, u *url.URL, f *fetcher.Fetcher) ([]byte, error) {
	client := f.GitHub()
	if client == nil {
		return nil, errors.New("github entries are disabled (no GitHub client configured)")
	}

	req, err := parseGitHubEntry(u)
	if err != nil {
		return nil, err
	}

	if err := f.Budget().Acquire(ctx); err != nil {
		return nil, err
	}
	body, err := client.ReadFile(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(body) > fetcher.MaxEntrySize {
		return nil, fmt.Errorf("entry exceeds maximum size of %d bytes", fetcher.MaxEntrySize)
	}
	return body, nil
}

func parseGitHubEntry(u *url.URL) (gh.FileRequest, error) {
	owner := u.Host
	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	if owner == "" || len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return gh.FileRequest{}, fmt.Errorf("github entry %q: want github://owner/repo/path", u.String())
	}
	return gh.FileRequest{
		Owner: owner,
		Repo:  parts[0],
		Path:  parts[1],
		Ref:   u.Query().Get("ref"),
	}, nil
}

func init() {
	fetcher.RegisterEntrySource(&githubEntrySource{})
}
