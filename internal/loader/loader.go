package loader

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-wolf/pkg/resource"
)

type sourceKind int

const (
	kindFile sourceKind = iota
	kindFS
	kindURL
)

// Loader implements resource.Loader by delegating to file, fs.FS, or HTTP
// strategies.
type Loader struct {
	base      *url.URL
	baseDir   string
	fs        fs.FS
	http      *http.Client
	allowHTTP bool
	timeout   time.Duration
}

// Ensure the implementation satisfies the public interface.
var _ resource.Loader = (*Loader)(nil)

// New constructs a Loader from pre-resolved options.
func New(options resource.Options) (*Loader, error) {
	timeout := options.RequestTimeout

	var httpClient *http.Client
	switch {
	case options.HTTPClient != nil:
		clone := *options.HTTPClient
		if timeout > 0 && clone.Timeout == 0 {
			clone.Timeout = timeout
		}
		httpClient = &clone
	case options.AllowHTTP:
		httpClient = &http.Client{Timeout: timeout}
	}

	l := &Loader{
		baseDir:   options.BaseDir,
		fs:        options.FileSystem,
		http:      httpClient,
		allowHTTP: httpClient != nil,
		timeout:   timeout,
	}
	if options.BaseURL != "" {
		base, err := url.Parse(options.BaseURL)
		if err != nil {
			return nil, &resource.Error{URL: options.BaseURL, Stage: resource.StageInit, Err: err}
		}
		l.base = base
	}
	return l, nil
}

// FetchText loads the resource at rawURL as text.
func (l *Loader) FetchText(ctx context.Context, rawURL string) (string, error) {
	data, err := l.fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FetchJSON loads the resource at rawURL and decodes it as JSON.
func (l *Loader) FetchJSON(ctx context.Context, rawURL string) (any, error) {
	text, err := l.FetchText(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return resource.DecodeJSON(rawURL, text)
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	kind, location, err := l.resolve(rawURL)
	if err != nil {
		return nil, &resource.Error{URL: rawURL, Stage: resource.StageInit, Err: err}
	}

	var data []byte
	switch kind {
	case kindFile:
		data, err = loadFile(ctx, location)
	case kindFS:
		data, err = loadFromFS(ctx, l.fs, location)
	case kindURL:
		if !l.allowHTTP {
			return nil, &resource.Error{URL: rawURL, Stage: resource.StageInit, Err: errors.New("loader: http support disabled")}
		}
		data, err = loadHTTP(ctx, l.http, location, l.timeout)
	default:
		err = &resource.Error{URL: rawURL, Stage: resource.StageInit, Err: errors.New("loader: unsupported source kind")}
	}
	if err != nil {
		return nil, resource.NewError(rawURL, resource.StageNet, err)
	}
	return data, nil
}

func (l *Loader) resolve(raw string) (sourceKind, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, "", errors.New("loader: url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return 0, "", err
	}
	if l.base != nil && !u.IsAbs() {
		u = l.base.ResolveReference(u)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return kindURL, u.String(), nil
	case "file":
		return kindFile, u.Path, nil
	case "":
	default:
		return 0, "", errors.New("loader: unsupported scheme " + u.Scheme)
	}

	if l.fs != nil {
		return kindFS, strings.TrimPrefix(u.Path, "/"), nil
	}
	path := filepath.FromSlash(u.Path)
	if !filepath.IsAbs(path) && l.baseDir != "" {
		path = filepath.Join(l.baseDir, path)
	}
	return kindFile, path, nil
}
