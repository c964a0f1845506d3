package providers

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"fedhost/internal/fetcher"
)

// fileEntrySource reads entries from the local filesystem. Both
// file:///abs/path and file:rel/path forms are accepted.
type fileEntrySource struct{}

func (s *fileEntrySource) Schemes() []string {
	return []string{"file"}
}

func (s *fileEntrySource) Fetch(ctx context.Context, u *url.URL, _ *fetcher.Fetcher) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := u.Path
	switch {
	case u.Opaque != "":
		path = u.Opaque
	case u.Host != "" && u.Host != "localhost":
		return nil, fmt.Errorf("file entry %q: remote hosts are not supported", u.String())
	}
	if path == "" {
		return nil, fmt.Errorf("file entry %q: empty path", u.String())
	}

	fh, err := os.Open(filepath.FromSlash(path))
	if err != nil {
		return nil, err
	}
	defer func() { _ = fh.Close() }()

	return fetcher.ReadEntry(fh)
}

func init() {
	fetcher.RegisterEntrySource(&fileEntrySource{})
}
