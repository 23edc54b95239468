// Package testsupport holds helpers shared by the engine tests: documents,
// template reading, HTML snapshots and an in-memory resource loader.
package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-wolf/pkg/dom"
	"github.com/goliatone/go-wolf/pkg/resource"
	"github.com/goliatone/go-wolf/pkg/template"
)

// NewDocument returns a document and its <body>, the usual mount point.
func NewDocument() (*dom.Node, *dom.Node) {
	doc := dom.NewDocument()
	return doc, doc.Body()
}

// MustParse parses markup into detached nodes, failing the test on error.
func MustParse(t *testing.T, markup string) []*dom.Node {
	t.Helper()

	nodes, err := dom.Parse(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("parse markup: %v", err)
	}
	return nodes
}

// MustRead reads markup with r and returns the single template it holds.
func MustRead(t *testing.T, r *template.Reader, markup string) *template.Template {
	t.Helper()

	list, err := r.ReadString(markup)
	if err != nil {
		t.Fatalf("read template: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one template, got %d", len(list))
	}
	return list[0]
}

// HTML renders the children of node, which is how tests compare mounts.
func HTML(node *dom.Node) string {
	return dom.InnerHTML(node)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its content.
func MustReadGolden(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return string(data)
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// MapLoader serves resources from memory and counts fetches per url. Urls
// missing from the map fail at the net stage.
type MapLoader struct {
	mu      sync.Mutex
	files   map[string]string
	fetches map[string]int
	// Gate, when set, is received from before every fetch so tests can hold
	// loads in flight.
	Gate chan struct{}
}

var _ resource.Loader = (*MapLoader)(nil)

// NewMapLoader builds a loader over files.
func NewMapLoader(files map[string]string) *MapLoader {
	copied := make(map[string]string, len(files))
	for k, v := range files {
		copied[k] = v
	}
	return &MapLoader{files: copied, fetches: make(map[string]int)}
}

// Set adds or replaces a resource.
func (l *MapLoader) Set(url, body string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.files[url] = body
}

// FetchText implements resource.Loader.
func (l *MapLoader) FetchText(ctx context.Context, url string) (string, error) {
	if l.Gate != nil {
		select {
		case <-l.Gate:
		case <-ctx.Done():
			return "", resource.NewError(url, resource.StageNet, ctx.Err())
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fetches[url]++
	body, ok := l.files[url]
	if !ok {
		return "", &resource.Error{URL: url, Stage: resource.StageNet, Err: fmt.Errorf("no such resource")}
	}
	return body, nil
}

// FetchJSON implements resource.Loader.
func (l *MapLoader) FetchJSON(ctx context.Context, url string) (any, error) {
	text, err := l.FetchText(ctx, url)
	if err != nil {
		return nil, err
	}
	return resource.DecodeJSON(url, text)
}

// Fetches reports how often url was fetched.
func (l *MapLoader) Fetches(url string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fetches[url]
}

// URLs lists the served urls in sorted order.
func (l *MapLoader) URLs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	urls := make([]string, 0, len(l.files))
	for url := range l.files {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}
