// Command wolf-render renders wolf markup against a model file and prints the
// resulting HTML. With -interactive it keeps the page bound and prompts for
// model edits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	wolf "github.com/goliatone/go-wolf"
	"github.com/goliatone/go-wolf/internal/logging"
	"github.com/goliatone/go-wolf/pkg/config"
	"github.com/goliatone/go-wolf/pkg/dom"
	"github.com/goliatone/go-wolf/pkg/ui"
)

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, surveyDriver{}); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("wolf-render: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, driver promptDriver) error {
	flags := flag.NewFlagSet("wolf-render", flag.ContinueOnError)
	flags.SetOutput(stderr)
	markupPath := flags.String("markup", "", "template markup file")
	modelPath := flags.String("model", "", "model file (JSON or YAML)")
	configPath := flags.String("config", "", "engine config file (JSON or YAML)")
	output := flags.String("output", "", "output file (stdout if empty)")
	logLevel := flags.String("log-level", "", "log level override (debug, info, warn, error)")
	logFormat := flags.String("log-format", "", "log format override (text, json)")
	interactive := flags.Bool("interactive", false, "prompt for model edits after rendering")
	stock := flags.Bool("stock", true, "load the bundled controls and templates")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*markupPath) == "" {
		return fmt.Errorf("-markup is required")
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.LogFormat = *logFormat
	}
	if cfg.BaseDir == "" && cfg.BaseURL == "" {
		cfg.BaseDir = filepath.Dir(*markupPath)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	ctx = logging.WithLogger(ctx, logger)

	markup, err := os.ReadFile(*markupPath)
	if err != nil {
		return fmt.Errorf("read markup: %w", err)
	}
	root, err := loadModel(*modelPath)
	if err != nil {
		return err
	}

	opts := []wolf.Option{
		wolf.WithEngineOptions(
			ui.WithConfig(cfg),
			ui.WithLogger(logger),
			ui.WithData(root),
			ui.WithContext(ctx),
		),
	}
	if *stock {
		opts = append(opts, wolf.WithStockControls(), wolf.WithStockTemplates())
	}
	e, err := wolf.New(opts...)
	if err != nil {
		return err
	}
	body, err := wolf.Mount(ctx, e, string(markup))
	if err != nil {
		return err
	}
	logger.Debug("markup rendered", "markup", *markupPath, "model", *modelPath)

	if _, err := fmt.Fprintln(stdout, dom.InnerHTML(body)); err != nil {
		return err
	}
	if *interactive {
		if err := edit(ctx, e, body, driver, stdout); err != nil {
			return err
		}
	}

	if *output != "" {
		if err := os.WriteFile(*output, []byte(dom.InnerHTML(body)), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		logger.Info("html written", "path", *output)
	}
	return nil
}

// loadModel decodes a JSON or YAML model file. An empty path yields an empty
// object.
func loadModel(path string) (any, error) {
	if strings.TrimSpace(path) == "" {
		return map[string]any{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	var root any
	if err := json.Unmarshal(raw, &root); err == nil {
		return root, nil
	}
	root = nil
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("parse model %s: invalid JSON or YAML", path)
	}
	if root == nil {
		root = map[string]any{}
	}
	return root, nil
}
