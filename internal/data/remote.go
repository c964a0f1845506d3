package data

import (
	"fmt"
	"strings"
)

// RemoteEntry is a configured remote application: a name unique within the
// host and the location of its entry manifest. Entries are built once from
// configuration and never mutated.
type RemoteEntry struct {
	Name     string `json:"name"`
	EntryURL string `json:"entry_url"`
}

// ComponentRef identifies one exposed component within a remote.
// It is comparable and used directly as a cache key.
type ComponentRef struct {
	Remote string `json:"remote"`
	Export string `json:"export"`
}

func (r ComponentRef) String() string {
	return r.Remote + "/" + r.Export
}

// ParseComponentRef parses "remote/Export".
func ParseComponentRef(raw string) (ComponentRef, error) {
	remote, export, ok := strings.Cut(strings.TrimSpace(raw), "/")
	if !ok || strings.TrimSpace(remote) == "" || strings.TrimSpace(export) == "" {
		return ComponentRef{}, fmt.Errorf("invalid component reference %q: expected remote/Export", raw)
	}
	return ComponentRef{Remote: strings.TrimSpace(remote), Export: strings.TrimSpace(export)}, nil
}

// Props are caller-supplied values handed to a resolved component unchanged.
// Function values (func()) act as activation handlers.
type Props map[string]any
