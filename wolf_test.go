package wolf

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-wolf/internal/logging"
	"github.com/goliatone/go-wolf/pkg/dom"
	"github.com/goliatone/go-wolf/pkg/processors"
	"github.com/goliatone/go-wolf/pkg/ui"
)

func quiet() Option {
	return WithEngineOptions(ui.WithLogger(logging.Discard()))
}

func TestRenderString(t *testing.T) {
	cases := []struct {
		name   string
		markup string
		root   any
		opts   []Option
		want   string
	}{
		{
			name:   "processors",
			markup: `<p class="{tags/^join( )}">{name/^upper} has {tags/^count} tags</p>`,
			root:   map[string]any{"name": "ann", "tags": []any{"a", "b"}},
			want:   `<p class="a b">ANN has 2 tags</p>`,
		},
		{
			name:   "repeat",
			markup: `<ul><li wolf:repeat="{items}">{label}</li></ul>`,
			root:   map[string]any{"items": []any{map[string]any{"label": "x"}, map[string]any{"label": "y"}}},
			want:   `<ul><li>x</li><li>y</li></ul>`,
		},
		{
			name:   "stock controls",
			markup: `<wolf:labeled label="Name"><b>{name}</b></wolf:labeled>`,
			root:   map[string]any{"name": "Ann"},
			opts:   []Option{WithStockControls()},
			want:   `<label class="wolf-labeled"><span class="wolf-label">Name</span><b>Ann</b><small class="wolf-hint"></small></label>`,
		},
		{
			name:   "stock templates",
			markup: `<p>{card/^tpl(summary.html)}</p>`,
			root:   map[string]any{"card": map[string]any{"title": "Inbox", "count": 2}},
			opts:   []Option{WithStockTemplates()},
			want:   `<p>Inbox (2)</p>`,
		},
		{
			name:   "inline templates",
			markup: `<p>{user/^tpl(hello)}</p>`,
			root:   map[string]any{"user": map[string]any{"name": "Ann"}},
			opts:   []Option{WithProcessorOptions(processors.WithTemplates(map[string]string{"hello": "Hi {{ name }}"}))},
			want:   `<p>Hi Ann</p>`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RenderString(context.Background(), tc.markup, tc.root, append([]Option{quiet()}, tc.opts...)...)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("unexpected html (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMountStaysBound(t *testing.T) {
	ctx := context.Background()
	e, err := New(quiet(), WithStockControls(), WithEngineOptions(ui.WithData(map[string]any{"status": "open"})))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	var picked []string
	err = e.RegisterController("page", ui.Methods{
		"pick": func(*ui.Element, *dom.Event) error {
			picked = append(picked, "pick")
			return nil
		},
	})
	if err != nil {
		t.Fatalf("register controller: %v", err)
	}

	body, err := Mount(ctx, e, `<wolf:fragment controller="page"><div><wolf:pill text="{status}" event:select="pick"></wolf:pill></div></wolf:fragment>`)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if got := dom.InnerHTML(body); got != `<div><button class="neutral">open</button></div>` {
		t.Fatalf("unexpected html %q", got)
	}

	if err := e.SetProperty("status", "closed"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if got := dom.InnerHTML(body); got != `<div><button class="neutral">closed</button></div>` {
		t.Fatalf("unexpected html after update %q", got)
	}

	button := body.FirstChild.FirstChild
	if err := button.Dispatch(dom.NewEvent("click", nil)); err != nil {
		t.Fatalf("click: %v", err)
	}
	if diff := cmp.Diff([]string{"pick"}, picked); diff != "" {
		t.Fatalf("unexpected handler calls (-want +got):\n%s", diff)
	}
}

func TestNewReportsProcessorErrors(t *testing.T) {
	_, err := New(WithProcessorOptions(processors.WithTemplates(map[string]string{"bad": "{% if %}"})))
	if err == nil {
		t.Fatalf("expected template compile error")
	}
	if _, err := Mount(context.Background(), nil, "<p></p>"); err == nil {
		t.Fatalf("expected nil engine error")
	}
}
