package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-wolf/pkg/resource"
)

func TestLoaderFromFS(t *testing.T) {
	files := fstest.MapFS{
		"fragments/home.html": {Data: []byte("<p>{title}</p>")},
		"data/model.json":     {Data: []byte(`{"title":"Home","items":[1,2]}`)},
	}
	l, err := New(resource.Options{FileSystem: files})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	text, err := l.FetchText(context.Background(), "/fragments/home.html")
	if err != nil {
		t.Fatalf("fetch text: %v", err)
	}
	if text != "<p>{title}</p>" {
		t.Fatalf("unexpected text %q", text)
	}

	doc, err := l.FetchJSON(context.Background(), "data/model.json")
	if err != nil {
		t.Fatalf("fetch json: %v", err)
	}
	want := map[string]any{"title": "Home", "items": []any{float64(1), float64(2)}}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Fatalf("json mismatch (-want +got):\n%s", diff)
	}
}

func TestLoaderFromBaseDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "frag.html"), []byte("hello"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	l, err := New(resource.Options{BaseDir: dir})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	text, err := l.FetchText(context.Background(), "frag.html")
	if err != nil || text != "hello" {
		t.Fatalf("expected file contents, got %q (err=%v)", text, err)
	}

	_, err = l.FetchText(context.Background(), "missing.html")
	var re *resource.Error
	if !errors.As(err, &re) || re.Stage != resource.StageNet {
		t.Fatalf("expected net stage resource error, got %v", err)
	}
}

func TestLoaderHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.json":
			_, _ = w.Write([]byte(`{"ok":true}`))
		case "/bad.json":
			_, _ = w.Write([]byte(`{"ok":`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l, err := New(resource.Options{BaseURL: srv.URL + "/", AllowHTTP: true})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	doc, err := l.FetchJSON(context.Background(), "ok.json")
	if err != nil {
		t.Fatalf("fetch json: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"ok": true}, doc); diff != "" {
		t.Fatalf("json mismatch (-want +got):\n%s", diff)
	}

	cases := []struct {
		url    string
		stage  resource.Stage
		status int
	}{
		{url: "missing.json", stage: resource.StageHTTP, status: http.StatusNotFound},
		{url: "bad.json", stage: resource.StageProcess},
	}
	for _, tc := range cases {
		_, err := l.FetchJSON(context.Background(), tc.url)
		var re *resource.Error
		if !errors.As(err, &re) {
			t.Fatalf("%s: expected resource error, got %v", tc.url, err)
		}
		if re.Stage != tc.stage || re.Status != tc.status {
			t.Fatalf("%s: expected stage %s status %d, got %s %d", tc.url, tc.stage, tc.status, re.Stage, re.Status)
		}
	}
}

func TestLoaderRejectsHTTPWhenDisabled(t *testing.T) {
	l, err := New(resource.Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = l.FetchText(context.Background(), "https://example.com/x.html")
	var re *resource.Error
	if !errors.As(err, &re) || re.Stage != resource.StageInit {
		t.Fatalf("expected init stage error, got %v", err)
	}
}
