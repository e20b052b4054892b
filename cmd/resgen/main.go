// Command resgen compiles JSON or YAML resource sources into binary resource
// containers, one per locale.
//
//	resgen -in strings.yaml -in overrides.json -base Strings -out ./resources
//	resgen -in strings.yaml -base Strings -out ./embedded -layout satellite
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	resources "github.com/goliatone/go-resources"
)

type generatorConfig struct {
	inputs  []string
	base    string
	out     string
	layout  string
	verbose bool
}

type inputFlag struct {
	items []string
}

func (f *inputFlag) String() string {
	return strings.Join(f.items, ",")
}

func (f *inputFlag) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f.items = append(f.items, part)
	}
	return nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		reportError(err)
	}

	logger := zap.NewNop()
	if cfg.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			reportError(err)
		}
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		reportError(err)
	}
}

func reportError(err error) {
	fmt.Fprintf(os.Stderr, "resgen: %v\n", err)
	os.Exit(1)
}

func parseFlags(args []string) (generatorConfig, error) {
	var cfg generatorConfig
	var inputs inputFlag

	fs := flag.NewFlagSet("resgen", flag.ContinueOnError)
	fs.Var(&inputs, "in", "JSON or YAML resource source (repeat or comma separate)")
	fs.StringVar(&cfg.base, "base", "Strings", "resource base name")
	fs.StringVar(&cfg.out, "out", ".", "output directory")
	fs.StringVar(&cfg.layout, "layout", "flat", "file layout: flat (<base>.<locale>.resources) or satellite (<locale>/<base>.<locale>.resources)")
	fs.BoolVar(&cfg.verbose, "v", false, "log progress")

	if err := fs.Parse(args); err != nil {
		return generatorConfig{}, err
	}

	if len(inputs.items) == 0 {
		return generatorConfig{}, errors.New("at least one -in value is required")
	}
	if cfg.base == "" {
		return generatorConfig{}, errors.New("-base must not be empty")
	}
	switch cfg.layout {
	case "flat", "satellite":
	default:
		return generatorConfig{}, fmt.Errorf("unknown layout %q", cfg.layout)
	}
	cfg.inputs = inputs.items
	return cfg, nil
}

func run(cfg generatorConfig, logger *zap.Logger) error {
	translations, err := resources.NewFileLoader(cfg.inputs...).Load()
	if err != nil {
		return err
	}

	var g errgroup.Group
	for _, name := range translations.Locales() {
		values := translations[name]
		g.Go(func() error {
			culture, err := resources.NewCulture(name)
			if err != nil {
				return err
			}
			path := outputPath(cfg, culture)
			if err := writeContainer(path, values); err != nil {
				return fmt.Errorf("%s: %w", culture, err)
			}
			logger.Info("container written",
				zap.String("locale", culture.String()),
				zap.String("path", path),
				zap.Int("resources", len(values)),
			)
			return nil
		})
	}
	return g.Wait()
}

func outputPath(cfg generatorConfig, culture resources.Culture) string {
	file := resources.ResourceFileName(cfg.base, culture)
	if cfg.layout == "satellite" && !culture.IsInvariant() {
		return filepath.Join(cfg.out, culture.Name(), file)
	}
	return filepath.Join(cfg.out, file)
}

func writeContainer(path string, values map[string]any) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	w := resources.NewWriter()
	for _, name := range names {
		if err := w.AddResource(name, values[name]); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := w.Generate(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
