package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// EntrySource retrieves the raw bytes of a remote entry for one or more URL schemes.
type EntrySource interface {
	Schemes() []string
	Fetch(ctx context.Context, u *url.URL, f *Fetcher) ([]byte, error)
}

var (
	entrySourceRegistry = make(map[string]EntrySource)
	entrySourceMu       sync.RWMutex
)

func RegisterEntrySource(src EntrySource) {
	if src == nil {
		panic("entry source is nil")
	}
	schemes := src.Schemes()
	if len(schemes) == 0 {
		panic("entry source declares no schemes")
	}

	entrySourceMu.Lock()
	defer entrySourceMu.Unlock()
	for _, s := range schemes {
		s = strings.ToLower(s)
		if _, exists := entrySourceRegistry[s]; exists {
			panic(fmt.Sprintf("entry source for scheme %s already registered", s))
		}
		entrySourceRegistry[s] = src
	}
}

func ResolveEntrySource(scheme string) (EntrySource, bool) {
	entrySourceMu.RLock()
	defer entrySourceMu.RUnlock()
	src, ok := entrySourceRegistry[strings.ToLower(scheme)]
	return src, ok
}

// Schemes lists registered schemes in sorted order.
func Schemes() []string {
	entrySourceMu.RLock()
	defer entrySourceMu.RUnlock()

	out := make([]string, 0, len(entrySourceRegistry))
	for s := range entrySourceRegistry {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
