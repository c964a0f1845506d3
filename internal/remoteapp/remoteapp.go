// Package remoteapp embeds the demo remote application "remote_app", which
// exposes a Header and a Button component.
package remoteapp

import (
	"embed"
	"io/fs"
)

const (
	Name      = "remote_app"
	EntryPath = "assets/remoteEntry.js"
)

//go:embed assets
var assets embed.FS

// FS returns the remote's static files rooted so that EntryPath resolves.
func FS() fs.FS {
	return assets
}

// Entry returns the entry script source.
func Entry() string {
	b, err := assets.ReadFile(EntryPath)
	if err != nil {
		panic(err)
	}
	return string(b)
}
