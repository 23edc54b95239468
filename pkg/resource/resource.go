package resource

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// Loader fetches markup fragments and JSON documents. Implementations must
// be safe for concurrent use; the engine calls them off the UI loop.
type Loader interface {
	FetchText(ctx context.Context, url string) (string, error)
	FetchJSON(ctx context.Context, url string) (any, error)
}

// LoaderFunc adapts a text fetcher into a Loader. JSON is decoded from the
// fetched text.
type LoaderFunc func(ctx context.Context, url string) (string, error)

// FetchText calls the wrapped function.
func (fn LoaderFunc) FetchText(ctx context.Context, url string) (string, error) {
	return fn(ctx, url)
}

// FetchJSON fetches text and decodes it.
func (fn LoaderFunc) FetchJSON(ctx context.Context, url string) (any, error) {
	text, err := fn(ctx, url)
	if err != nil {
		return nil, err
	}
	return DecodeJSON(url, text)
}

// Options configure the default loader.
type Options struct {
	// BaseURL resolves relative URLs before dispatching to a strategy.
	BaseURL string
	// BaseDir resolves relative file paths when no FileSystem is set.
	BaseDir string
	// FileSystem serves relative paths when set.
	FileSystem fs.FS
	// HTTPClient overrides the client used for http(s) URLs.
	HTTPClient *http.Client
	// AllowHTTP enables http(s) URLs with a default client.
	AllowHTTP bool
	// RequestTimeout bounds each HTTP request.
	RequestTimeout time.Duration
}

// Stage identifies where a fetch failed.
type Stage string

const (
	StageInit    Stage = "init"
	StageNet     Stage = "net"
	StageHTTP    Stage = "http"
	StageProcess Stage = "process"
)

// Error is the failure delivered to fetch callbacks. Status is set for
// StageHTTP failures.
type Error struct {
	URL    string
	Stage  Stage
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Stage == StageHTTP && e.Status != 0 {
		return fmt.Sprintf("resource: %s %q: status %d: %v", e.Stage, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("resource: %s %q: %v", e.Stage, e.URL, e.Err)
}

// Unwrap exposes the cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError wraps err for url at the given stage. Existing resource errors are
// returned untouched.
func NewError(url string, stage Stage, err error) error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*Error); ok {
		return re
	}
	return &Error{URL: url, Stage: stage, Err: err}
}

// DecodeJSON parses a JSON document into generic values.
func DecodeJSON(url, text string) (any, error) {
	var out any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, &Error{URL: url, Stage: StageProcess, Err: err}
	}
	return out, nil
}
