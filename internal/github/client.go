// Package github reads remote entry manifests published as files in GitHub
// repositories.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"fedhost/internal/httpclient"

	"github.com/google/go-github/v81/github"
)

type Client struct {
	Client *github.Client
	HTTP   *http.Client
}

// NewClient returns a GitHub API client. An empty token yields an
// unauthenticated client, which is enough for public repositories.
// A non-empty baseURL targets GitHub Enterprise or a test server.
func NewClient(ctx context.Context, token, baseURL string, opts ...httpclient.Option) (*Client, error) {
	if ctx == nil {
		return nil, errors.New("github client: ctx is nil")
	}

	httpOpts := append([]httpclient.Option{}, opts...)
	if token != "" {
		httpOpts = append(httpOpts, httpclient.WithToken(token))
	}
	hc := httpclient.New(httpOpts...)

	gc := github.NewClient(hc)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("github client: invalid base url %q: %w", baseURL, err)
		}
		gc.BaseURL = u
		gc.UploadURL = u
	}

	return &Client{Client: gc, HTTP: hc}, nil
}

// FileRequest locates one file in a repository.
type FileRequest struct {
	Owner string
	Repo  string
	Path  string
	// Ref is a branch, tag or commit. Empty means the default branch.
	Ref string
}

// StatusError carries the HTTP status of a failed contents request.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("github contents request failed: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("github contents request failed: %d %s", e.StatusCode, e.Message)
}

func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// ReadFile returns the decoded contents of a repository file.
func (c *Client) ReadFile(ctx context.Context, req FileRequest) ([]byte, error) {
	if c == nil || c.Client == nil {
		return nil, errors.New("github client is nil")
	}
	if req.Owner == "" || req.Repo == "" || req.Path == "" {
		return nil, fmt.Errorf("github file request requires owner, repo and path (got %q/%q/%q)", req.Owner, req.Repo, req.Path)
	}

	var opts *github.RepositoryContentGetOptions
	if req.Ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: req.Ref}
	}

	file, dir, _, err := c.Client.Repositories.GetContents(ctx, req.Owner, req.Repo, req.Path, opts)
	if err != nil {
		// Prefer the structured error so request URLs are not echoed.
		var er *github.ErrorResponse
		if errors.As(err, &er) && er.Response != nil {
			return nil, &StatusError{StatusCode: er.Response.StatusCode, Message: strings.TrimSpace(er.Message)}
		}
		return nil, err
	}
	if file == nil {
		if dir != nil {
			return nil, fmt.Errorf("github path %q is a directory", req.Path)
		}
		return nil, fmt.Errorf("github path %q returned no content", req.Path)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode github content for %q: %w", req.Path, err)
	}
	return []byte(content), nil
}
