package fetcher

import (
	"golang.org/x/sync/singleflight"
)

// Group coalesces concurrent calls sharing a key into one execution. The
// fetcher keys it by entry URL; the loader keys its own Group by remote name.
type Group struct {
	g singleflight.Group
}

// Do runs fn once per key at a time; callers arriving while it runs receive
// the same result. shared reports whether the result was given to more than
// one caller.
func (g *Group) Do(key string, fn func() (interface{}, error)) (v interface{}, err error, shared bool) {
	return g.g.Do(key, fn)
}
