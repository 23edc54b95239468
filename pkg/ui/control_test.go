package ui

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-wolf/pkg/dom"
	"github.com/goliatone/go-wolf/pkg/template"
	"github.com/goliatone/go-wolf/pkg/testsupport"
)

const greetingControl = `<wolf:control id="greeting">` +
	`<attr>name</attr>` +
	`<attr default="Hi">salute</attr>` +
	`<event>picked</event>` +
	`<ui><span class="$salute" event:click="picked">$name</span></ui>` +
	`</wolf:control>`

func TestControlHooksAndEvents(t *testing.T) {
	e, body := newTestEngine(t, map[string]any{"user": map[string]any{"name": "Ann"}})

	mountMarkup(t, e, body, greetingControl+
		`<div id="host"><wolf:greeting name="{user/name}" event:picked="onPicked"></wolf:greeting></div>`)
	require.Equal(t, `<div id="host"><span class="Hi">Ann</span></div>`, testsupport.HTML(body))

	require.NoError(t, e.SetProperty("user/name", "Bob"))
	require.Equal(t, `<div id="host"><span class="Hi">Bob</span></div>`, testsupport.HTML(body))

	host := body.FirstChild
	outer := &recorder{}
	Of(host).SetController(outer)

	require.NoError(t, click(t, host.FirstChild))
	require.Equal(t, []string{"onPicked"}, outer.calls)
}

func TestControlLiteralValuesOverrideDefaults(t *testing.T) {
	e, body := newTestEngine(t, nil)

	mountMarkup(t, e, body, greetingControl+`<wolf:greeting salute="Hey" name="Sam"></wolf:greeting>`)
	require.Equal(t, `<span class="Hey">Sam</span>`, testsupport.HTML(body))

	span := body.FirstChild
	require.NoError(t, click(t, span))
}

func TestControlBehavior(t *testing.T) {
	e, body := newTestEngine(t, nil)

	var api *ControlAPI
	count := 0
	require.NoError(t, e.RegisterBehavior("counter", func(a *ControlAPI) (*Behavior, error) {
		api = a
		return &Behavior{
			Methods: Methods{
				"inc": func(*Element, *dom.Event) error {
					count++
					return a.Emit("changed", count)
				},
			},
		}, nil
	}))

	outer := &recorder{}
	require.NoError(t, e.RegisterController("page", outer))

	mountMarkup(t, e, body, `<wolf:control id="counter">`+
		`<attr bindable="false">label</attr>`+
		`<event>changed</event>`+
		`<ui><button event:click="inc">$label</button></ui>`+
		`<script>counter</script>`+
		`</wolf:control>`+
		`<wolf:fragment controller="page"><div><wolf:counter label="Add" event:changed="onChanged"></wolf:counter></div></wolf:fragment>`)
	require.Equal(t, `<div><button>Add</button></div>`, testsupport.HTML(body))

	button := body.FirstChild.FirstChild
	require.NoError(t, click(t, button))
	require.NoError(t, click(t, button))
	require.Equal(t, 2, count)
	require.Equal(t, []string{"onChanged", "onChanged"}, outer.calls)
	require.Equal(t, []any{1, 2}, outer.details)

	require.NotNil(t, api)
	require.Equal(t, "counter", api.ID())
	require.Same(t, button, api.Node())
	label, err := api.Attr("label")
	require.NoError(t, err)
	require.Equal(t, "Add", label)
	require.Error(t, api.Emit("unknown", nil))

	_, err = e.Read(`<wolf:counter label="{x}"></wolf:counter>`)
	require.ErrorIs(t, err, template.ErrNotBindable)
}

func TestControlBoundValuesReadCallerContext(t *testing.T) {
	e, body := newTestEngine(t, map[string]any{
		"user": map[string]any{
			"name":  "Ann",
			"inner": map[string]any{"name": "shadow"},
		},
	})

	mountMarkup(t, e, body, `<wolf:control id="badge">`+
		`<attr>name</attr>`+
		`<ui><span wolf:context="inner">$name</span></ui>`+
		`</wolf:control>`+
		`<div wolf:context="user"><wolf:badge name="{name}"></wolf:badge></div>`)
	require.Equal(t, `<div><span>Ann</span></div>`, testsupport.HTML(body))

	require.NoError(t, e.SetProperty("user/name", "Bob"))
	require.Equal(t, `<div><span>Bob</span></div>`, testsupport.HTML(body))
}

func TestControlChildrenSlot(t *testing.T) {
	e, body := newTestEngine(t, map[string]any{"title": "T"})

	mountMarkup(t, e, body, `<wolf:control id="card">`+
		`<ui><section class="card"><wolf:children></wolf:children></section></ui>`+
		`</wolf:control>`+
		`<div id="host"><wolf:card><a event:click="open">{title}</a></wolf:card></div>`)
	require.Equal(t, `<div id="host"><section class="card"><a>T</a></section></div>`, testsupport.HTML(body))

	host := body.FirstChild
	outer := &recorder{}
	Of(host).SetController(outer)

	link := host.FirstChild.FirstChild
	require.NoError(t, click(t, link))
	require.Equal(t, []string{"open"}, outer.calls)
}

func TestControlRenderOverride(t *testing.T) {
	e, body := newTestEngine(t, nil)

	require.NoError(t, e.RegisterBehavior("tabs", func(a *ControlAPI) (*Behavior, error) {
		return &Behavior{
			Render: func(a *ControlAPI) ([]*template.Template, error) {
				return a.UI("compact", false), nil
			},
		}, nil
	}))

	mountMarkup(t, e, body, `<wolf:control id="tabs">`+
		`<attr>title</attr>`+
		`<ui><h2>$title</h2></ui>`+
		`<ui id="compact"><b>$title</b></ui>`+
		`<script>tabs</script>`+
		`</wolf:control>`+
		`<wolf:tabs title="Main"></wolf:tabs>`)
	require.Equal(t, `<b>Main</b>`, testsupport.HTML(body))
}

func TestControlDefinitionErrors(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	cases := []struct {
		name   string
		markup string
		want   error
	}{
		{name: "reserved attribute", markup: `<wolf:control id="a"><attr>ui</attr></wolf:control>`, want: ErrInvalidControl},
		{name: "namespaced attribute", markup: `<wolf:control id="b"><attr>x:y</attr></wolf:control>`, want: ErrInvalidControl},
		{name: "duplicate attribute", markup: `<wolf:control id="c"><attr>x</attr><attr>x</attr></wolf:control>`, want: ErrInvalidControl},
		{name: "duplicate event", markup: `<wolf:control id="d"><event>go</event><event>go</event></wolf:control>`, want: ErrInvalidControl},
		{name: "duplicate ui", markup: `<wolf:control id="f"><ui></ui><ui></ui></wolf:control>`, want: ErrInvalidControl},
		{name: "unexpected section", markup: `<wolf:control id="g"><style></style></wolf:control>`, want: ErrInvalidControl},
		{name: "builtin name", markup: `<wolf:control id="repeat"></wolf:control>`, want: ErrReservedName},
		{name: "missing id", markup: `<wolf:control></wolf:control>`, want: template.ErrMissingAttribute},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Read(tc.markup)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestControlUnknownBehavior(t *testing.T) {
	e, body := newTestEngine(t, nil)

	list, err := e.Read(`<wolf:control id="lost"><ui><i></i></ui><script>nowhere</script></wolf:control><wolf:lost></wolf:lost>`)
	require.NoError(t, err)
	_, err = e.MountAll(body, list, Ext{})
	require.ErrorIs(t, err, ErrBehaviorNotFound)
}
