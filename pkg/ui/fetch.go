package ui

import (
	"context"

	"github.com/goliatone/go-wolf/pkg/resource"
)

// FetchText loads url off the loop and hands the result to ok on the loop.
// A nil fail logs the error.
func (e *Engine) FetchText(ctx context.Context, url string, ok func(text string) error, fail func(err error)) {
	if ctx == nil {
		ctx = e.ctx
	}
	e.Go(func() func() error {
		text, err := e.loader.FetchText(ctx, url)
		return func() error {
			if err != nil {
				e.failFetch(url, err, fail)
				return nil
			}
			if ok == nil {
				return nil
			}
			return ok(text)
		}
	})
}

// FetchJSON loads and decodes url off the loop and hands the document to ok
// on the loop. A nil fail logs the error.
func (e *Engine) FetchJSON(ctx context.Context, url string, ok func(doc any) error, fail func(err error)) {
	if ctx == nil {
		ctx = e.ctx
	}
	e.Go(func() func() error {
		doc, err := e.loader.FetchJSON(ctx, url)
		return func() error {
			if err != nil {
				e.failFetch(url, err, fail)
				return nil
			}
			if ok == nil {
				return nil
			}
			return ok(doc)
		}
	})
}

func (e *Engine) failFetch(url string, err error, fail func(error)) {
	err = resource.NewError(url, resource.StageNet, err)
	if fail != nil {
		fail(err)
		return
	}
	e.logger.Error("fetch failed", "url", url, "error", err)
}
