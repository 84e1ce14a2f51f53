// Package assets embeds default word lists and their manifest so the server
// runs without an external word-list host. Production deployments point
// WORDLISTS_BASE_URL at the build pipeline's output instead.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed wordlists
var content embed.FS

// Wordlists returns the embedded word-list file tree, rooted so that
// "manifest.json" and the *_solutions/*_guesses files resolve directly.
func Wordlists() fs.FS {
	sub, err := fs.Sub(content, "wordlists")
	if err != nil {
		// embed paths are fixed at compile time
		panic(err)
	}
	return sub
}
