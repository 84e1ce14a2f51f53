// internal/words/source.go
//
// Word-list sources. A Source fetches raw manifest/list files by name;
// the loaders in words.go layer the fallback rules on top. Two
// implementations:
//   - HTTPSource: fetches from the static-file host generated by the
//     word-list build pipeline.
//   - FSSource: reads from any fs.FS, used with the embedded default lists
//     and with fstest.MapFS in tests.

package words

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"
)

// ErrNotFound is returned by a Source when the named file does not exist.
// Loaders use it to distinguish "try the fallback" from a hard failure.
var ErrNotFound = errors.New("words: file not found")

// Source provides raw word-list files by relative name, e.g.
// "manifest.json" or "en_5_solutions.txt".
type Source interface {
	// Fetch returns the raw contents of the named file.
	// Missing files yield ErrNotFound (possibly wrapped).
	Fetch(ctx context.Context, name string) ([]byte, error)

	// URLFor returns a reference to the named file that can be handed to the
	// presentation layer (the "view word list" link).
	URLFor(name string) string
}

// HTTPSource fetches word lists over HTTP from a static base URL.
type HTTPSource struct {
	BaseURL string       // e.g. "https://example.org/wordlists"
	Client  *http.Client // optional; defaults to a 10s-timeout client
}

// NewHTTPSource constructs an HTTPSource with a sane default client.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSource) URLFor(name string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/" + name
}

func (s *HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URLFor(name), nil)
	if err != nil {
		return nil, err
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", name, res.StatusCode)
	}
	return io.ReadAll(res.Body)
}

// FSSource reads word lists from a file system, typically the embedded
// assets.
type FSSource struct {
	FS     fs.FS
	Prefix string // optional path prefix inside FS, e.g. "wordlists"
}

func (s *FSSource) path(name string) string {
	if s.Prefix == "" {
		return name
	}
	return strings.TrimRight(s.Prefix, "/") + "/" + name
}

func (s *FSSource) URLFor(name string) string { return "/" + s.path(name) }

func (s *FSSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	b, err := fs.ReadFile(s.FS, s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return b, err
}
