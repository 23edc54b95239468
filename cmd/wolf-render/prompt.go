package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/goccy/go-json"

	"github.com/goliatone/go-wolf/pkg/dom"
	"github.com/goliatone/go-wolf/pkg/ui"
)

var errAborted = errors.New("wolf-render: aborted")

type inputConfig struct {
	Message   string
	Default   string
	Help      string
	Validator func(string) error
}

// promptDriver abstracts the terminal so the edit loop can run against a
// scripted driver in tests.
type promptDriver interface {
	Input(ctx context.Context, cfg inputConfig) (string, error)
}

type surveyDriver struct{}

func (surveyDriver) Input(ctx context.Context, cfg inputConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Input{
		Message: cfg.Message,
		Help:    cfg.Help,
		Default: cfg.Default,
	}
	var opts []survey.AskOpt
	if cfg.Validator != nil {
		opts = append(opts, survey.WithValidator(func(ans any) error {
			s, _ := ans.(string)
			return cfg.Validator(s)
		}))
	}
	if err := survey.AskOne(prompt, &out, opts...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errAborted
	}
	return err
}

func validJSON(s string) error {
	if !json.Valid([]byte(strings.TrimSpace(s))) {
		return fmt.Errorf("not a JSON value")
	}
	return nil
}

// edit prompts for path and value pairs, writes each into the default model
// and prints the refreshed markup. An empty path ends the session.
func edit(ctx context.Context, e *ui.Engine, body *dom.Node, driver promptDriver, out io.Writer) error {
	for {
		path, err := driver.Input(ctx, inputConfig{
			Message: "Path",
			Help:    "Model path to update, e.g. user/name. Leave empty to finish.",
		})
		if err != nil {
			return err
		}
		path = strings.TrimSpace(path)
		if path == "" {
			return nil
		}

		current, err := e.GetProperty(path)
		if err != nil {
			return err
		}
		def, err := json.Marshal(current)
		if err != nil {
			def = nil
		}
		raw, err := driver.Input(ctx, inputConfig{
			Message:   "Value (JSON)",
			Default:   string(def),
			Validator: validJSON,
		})
		if err != nil {
			return err
		}
		if err := validJSON(raw); err != nil {
			return fmt.Errorf("wolf-render: %s: %w", path, err)
		}

		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return fmt.Errorf("wolf-render: %s: %w", path, err)
		}
		if err := e.SetProperty(path, value); err != nil {
			return err
		}
		if err := e.Wait(ctx); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(out, dom.InnerHTML(body)); err != nil {
			return err
		}
	}
}
