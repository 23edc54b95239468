package processors

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-wolf/pkg/data"
)

func newNavigator(t *testing.T, opts ...Option) *data.Navigator {
	t.Helper()

	reg := data.NewProcessors()
	if err := Register(reg, opts...); err != nil {
		t.Fatalf("register processors: %v", err)
	}
	return data.NewNavigator(reg)
}

func TestReadProcessors(t *testing.T) {
	nav := newNavigator(t)
	root := map[string]any{
		"items": []any{"a", "b", "c"},
		"tags":  map[string]any{"go": 1, "html": 2},
		"name":  "  Ann Lee ",
		"empty": "",
		"on":    true,
		"zero":  0.0,
	}

	cases := []struct {
		path string
		want any
	}{
		{path: "items/^count", want: 3},
		{path: "tags/^count", want: 2},
		{path: "missing/^count", want: 0},
		{path: "tags/^keys", want: []any{"go", "html"}},
		{path: "name/^trim", want: "Ann Lee"},
		{path: "name/^trim/^upper", want: "ANN LEE"},
		{path: "name/^trim/^lower", want: "ann lee"},
		{path: "missing/^upper", want: nil},
		{path: "empty/^default(n/a)", want: "n/a"},
		{path: "missing/^default(none)", want: "none"},
		{path: "name/^default(x)", want: "  Ann Lee "},
		{path: "items/^join", want: "a,b,c"},
		{path: "items/^join( | )", want: "a | b | c"},
		{path: "on/^not", want: false},
		{path: "zero/^not", want: true},
		{path: "missing/^not", want: true},
		{path: "items/^not/^not", want: true},
		{path: "tags/^json", want: `{"go":1,"html":2}`},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			got, err := nav.Get(root, tc.path, data.Context{})
			if err != nil {
				t.Fatalf("get %s: %v", tc.path, err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("unexpected value (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCountRejectsScalars(t *testing.T) {
	nav := newNavigator(t)

	_, err := nav.Get(map[string]any{"n": 4.0}, "n/^count", data.Context{})
	if err == nil {
		t.Fatalf("expected count on a number to fail")
	}
}

func TestJSONSetMergesObject(t *testing.T) {
	nav := newNavigator(t)
	root := map[string]any{"cfg": map[string]any{"keep": "yes"}}

	if err := nav.Set(root, "cfg/^json", `{"size":2,"tags":["a"]}`, data.Context{}); err != nil {
		t.Fatalf("set json: %v", err)
	}
	want := map[string]any{"keep": "yes", "size": float64(2), "tags": []any{"a"}}
	if diff := cmp.Diff(want, root["cfg"]); diff != "" {
		t.Fatalf("unexpected merge (-want +got):\n%s", diff)
	}

	err := nav.Set(root, "cfg/^json", `[1,2]`, data.Context{})
	if !errors.Is(err, ErrJSONTarget) {
		t.Fatalf("expected ErrJSONTarget, got %v", err)
	}
	err = nav.Set(root, "cfg/keep/^json", `{}`, data.Context{})
	if !errors.Is(err, ErrJSONTarget) {
		t.Fatalf("expected ErrJSONTarget for a string target, got %v", err)
	}
}

func TestSanitize(t *testing.T) {
	nav := newNavigator(t)
	root := map[string]any{"bio": `<b>hi</b><script>alert(1)</script>`}

	got, err := nav.Get(root, "bio/^sanitize", data.Context{})
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if got != "<b>hi</b>" {
		t.Fatalf("unexpected sanitized html %q", got)
	}
}

func TestTemplates(t *testing.T) {
	nav := newNavigator(t,
		WithTemplates(map[string]string{
			"greet": "Hello {{ name }}",
			"n":     "#{{ value }}",
		}),
		WithTemplateFS(fstest.MapFS{
			"card.txt": {Data: []byte("[{{ name }}]")},
		}),
	)
	root := map[string]any{"user": map[string]any{"name": "Ann"}, "id": 7}

	cases := []struct {
		path string
		want string
	}{
		{path: "user/^tpl(greet)", want: "Hello Ann"},
		{path: "id/^tpl(n)", want: "#7"},
		{path: "user/^tpl(card.txt)", want: "[Ann]"},
	}
	for _, tc := range cases {
		got, err := nav.Get(root, tc.path, data.Context{})
		if err != nil {
			t.Fatalf("get %s: %v", tc.path, err)
		}
		if got != tc.want {
			t.Fatalf("%s: want %q, got %q", tc.path, tc.want, got)
		}
	}
}

func TestTemplateErrors(t *testing.T) {
	nav := newNavigator(t)

	_, err := nav.Get(map[string]any{}, "^tpl(missing)", data.Context{})
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}

	reg := data.NewProcessors()
	if err := Register(reg, WithTemplates(map[string]string{"bad": "{% if %}"})); err == nil {
		t.Fatalf("expected compile error for a broken template")
	}
	if err := Register(nil); err == nil {
		t.Fatalf("expected error for a nil registry")
	}
}
