package ui

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-wolf/pkg/dom"
	"github.com/goliatone/go-wolf/pkg/resource"
	"github.com/goliatone/go-wolf/pkg/template"
	"github.com/goliatone/go-wolf/pkg/testsupport"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLoadFragmentCachesAndInstalls(t *testing.T) {
	loader := testsupport.NewMapLoader(map[string]string{
		"/card.html": `<wolf:fragment controller="card"><p>{title}</p></wolf:fragment>`,
	})
	e, body := newTestEngine(t, map[string]any{"title": "T"}, WithLoader(loader))
	ctrl := &recorder{}
	require.NoError(t, e.RegisterController("card", ctrl))

	mountMarkup(t, e, body, `<div id="slot"><span>old</span></div>`)
	slot := body.FirstChild

	require.NoError(t, e.LoadFragmentTo(waitCtx(t), "/card.html", slot))
	require.Equal(t, `<div id="slot"><p>T</p></div>`, testsupport.HTML(body))
	require.Same(t, ctrl, Of(slot).Controller())
	require.Equal(t, 1, ctrl.inits)

	require.NoError(t, e.LoadFragmentTo(waitCtx(t), "/card.html", slot))
	require.Equal(t, 1, loader.Fetches("/card.html"))
	require.Equal(t, 2, ctrl.inits)
}

func TestLoadFragmentSharesConcurrentLoads(t *testing.T) {
	loader := testsupport.NewMapLoader(map[string]string{"/a.html": `<b>a</b>`})
	loader.Gate = make(chan struct{})
	e, _ := newTestEngine(t, nil, WithLoader(loader))

	var (
		wg      sync.WaitGroup
		results [2]*template.Template
		errs    [2]error
	)
	ctx := waitCtx(t)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.LoadFragment(ctx, "/a.html")
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(loader.Gate)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Same(t, results[0], results[1])
	require.Equal(t, 1, loader.Fetches("/a.html"))
	require.Equal(t, ElementFragment, results[0].Name)
	require.Len(t, results[0].Children, 1)
}

func TestFragmentKeepsExistingController(t *testing.T) {
	loader := testsupport.NewMapLoader(map[string]string{
		"/panel.html": `<wolf:fragment controller="panel"><i>panel</i></wolf:fragment>`,
	})
	e, body := newTestEngine(t, nil, WithLoader(loader))
	panel := &recorder{}
	require.NoError(t, e.RegisterController("panel", panel))

	mountMarkup(t, e, body, `<section></section>`)
	section := body.FirstChild
	owner := &recorder{}
	Of(section).SetController(owner)

	require.NoError(t, e.LoadFragmentTo(waitCtx(t), "/panel.html", section))
	require.Equal(t, `<section><i>panel</i></section>`, testsupport.HTML(body))
	require.Same(t, owner, Of(section).Controller())
	require.Zero(t, panel.inits)
}

func TestInsertToAdoptsBareNodes(t *testing.T) {
	loader := testsupport.NewMapLoader(map[string]string{
		"/x.html": `<wolf:fragment controller="x"><em event:click="touch">x</em></wolf:fragment>`,
	})
	e, body := newTestEngine(t, nil, WithLoader(loader))
	ctrl := &recorder{}
	require.NoError(t, e.RegisterController("x", ctrl))

	bare := dom.CreateElement("article")
	body.AppendChild(bare)
	require.NoError(t, e.LoadFragmentTo(waitCtx(t), "/x.html", bare))

	require.NotNil(t, Of(bare))
	require.Same(t, ctrl, Of(bare).Controller())
	require.NoError(t, click(t, bare.FirstChild))
	require.Equal(t, []string{"touch"}, ctrl.calls)
}

func TestNamedFragments(t *testing.T) {
	e, body := newTestEngine(t, nil)

	list, err := e.Read(`<wolf:fragment id="card"><b>card</b></wolf:fragment>`)
	require.NoError(t, err)
	require.Len(t, list, 1)

	frag, err := e.LoadFragment(waitCtx(t), "#card")
	require.NoError(t, err)
	require.Same(t, list[0], frag)

	require.NoError(t, e.InsertTo(body, frag))
	require.Equal(t, `<b>card</b>`, testsupport.HTML(body))

	_, err = e.LoadFragment(waitCtx(t), "#missing")
	require.ErrorIs(t, err, ErrFragmentNotFound)
}

func TestLoadFragmentFailures(t *testing.T) {
	loader := testsupport.NewMapLoader(map[string]string{
		"/broken.html": `<wolf:unknown></wolf:unknown>`,
	})
	e, _ := newTestEngine(t, nil, WithLoader(loader))

	_, err := e.LoadFragment(waitCtx(t), "/absent.html")
	var rerr *resource.Error
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, resource.StageNet, rerr.Stage)

	_, err = e.LoadFragment(waitCtx(t), "/broken.html")
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, resource.StageProcess, rerr.Stage)
	require.ErrorIs(t, err, template.ErrUnknownElement)
}

func TestInitAppWithInclude(t *testing.T) {
	loader := testsupport.NewMapLoader(map[string]string{
		"/detail.html": `<wolf:fragment controller="detail"><p>{title}</p></wolf:fragment>`,
	})
	e, body := newTestEngine(t, map[string]any{"title": "T"}, WithLoader(loader))
	app := &recorder{}
	detail := &recorder{}
	require.NoError(t, e.RegisterController("app", app))
	require.NoError(t, e.RegisterController("detail", detail))

	main := testsupport.MustParse(t, `<main><h1>{title}</h1><section wolf:include="/detail.html"></section></main>`)[0]
	body.AppendChild(main)

	el, err := e.InitApp(waitCtx(t), main, "app")
	require.NoError(t, err)
	require.Same(t, app, el.Controller())
	require.Equal(t, 1, app.inits)
	require.Equal(t, 1, detail.inits)
	require.Equal(t, `<h1>T</h1><section><p>T</p></section>`, testsupport.HTML(main))

	p := main.LastChild.FirstChild
	require.Same(t, el, Of(p).Application())
	require.Same(t, app, Of(p).ApplicationController())
	require.Same(t, detail, Of(p).Controller())

	_, err = e.InitApp(waitCtx(t), dom.CreateElement("div"), "nope")
	require.ErrorIs(t, err, ErrControllerNotFound)
}

func TestIncludeCallback(t *testing.T) {
	e, body := newTestEngine(t, nil)

	mountMarkup(t, e, body, `<div></div>`)
	var got error
	Of(body.FirstChild).Include(waitCtx(t), "/missing.html", func(err error) {
		got = err
	})
	require.NoError(t, e.Wait(waitCtx(t)))

	var rerr *resource.Error
	require.ErrorAs(t, got, &rerr)
	require.Equal(t, "/missing.html", rerr.URL)
}
