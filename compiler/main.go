package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/xiaobogaga/jmm/compiler/internal"
	"github.com/xiaobogaga/jmm/compiler/internal/cache"
	"github.com/xiaobogaga/jmm/compiler/internal/config"
	"github.com/xiaobogaga/jmm/compiler/internal/report"
)

var (
	input      = flag.String("input", "", "the tree produced by the parser")
	configDir  = flag.String("config", ".", "where to start looking for jmm.toml")
	format     = flag.String("format", "", "input format, json or cbor")
	outputDir  = flag.String("o", "", "where to write the .ollir and .j files")
	verbosity  = flag.Int("v", -1, "log verbosity")
	strict     = flag.Bool("strict", false, "warn about unmatched imports and redefined methods")
	stackLimit = flag.Int("stack", 0, "operand stack limit of generated methods")
	useCache   = flag.Bool("cache", false, "reuse artifacts of identical inputs")
)

// applyFlags lets the flags given on the command line override the configuration file.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			cfg.InputFormat = *format
		case "o":
			cfg.OutputDir = *outputDir
		case "v":
			cfg.Log.Verbosity = *verbosity
		case "strict":
			cfg.StrictSymbols = *strict
		case "stack":
			cfg.StackLimit = *stackLimit
		case "cache":
			cfg.Cache.Enabled = *useCache
		}
	})
}

func main() {
	flag.Parse()
	err := run(context.Background())
	if err != nil {
		fmt.Printf("Error: %+v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.FindAndLoad(*configDir)
	if err != nil {
		return err
	}
	applyFlags(cfg)
	var logPath *string
	if cfg.Log.Path != "" {
		p := cfg.Resolve(cfg.Log.Path)
		logPath = &p
	}
	commonlog.Configure(cfg.Log.Verbosity, logPath)
	log := commonlog.GetLogger("jmm")

	if *input == "" {
		return errors.New("no input, use -input")
	}
	data, err := os.ReadFile(*input)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", *input, err)
	}
	root, err := internal.Decode(cfg.InputFormat, data)
	if err != nil {
		return err
	}

	var store *cache.Cache
	var key string
	if cfg.Cache.Enabled {
		store, err = cache.Open(ctx, cfg.Resolve(cfg.Cache.Path))
		if err != nil {
			return err
		}
		defer store.Close()
		key, err = cache.Key(root, cfg.Fingerprint())
		if err != nil {
			return err
		}
		artifact, err := store.Get(ctx, key)
		switch {
		case err == nil:
			log.Infof("using cached artifacts for %s", *input)
			return finish(cfg, className(artifact.Jasmin, *input), artifact)
		case !errors.Is(err, cache.ErrNotFound):
			return err
		}
	}

	result, err := internal.Compile(root, cfg)
	if err != nil {
		return err
	}
	artifact := &cache.Artifact{Ollir: result.Ollir, Jasmin: result.Text, Reports: result.Reports}
	if store != nil {
		if err := store.Put(ctx, key, artifact); err != nil {
			return err
		}
	}
	name := result.ClassName
	if name == "" {
		name = className("", *input)
	}
	return finish(cfg, name, artifact)
}

// className falls back to the input file name when the listing does not say.
func className(listing string, input string) string {
	var name string
	if _, err := fmt.Sscanf(listing, ".class public %s", &name); err == nil {
		return name
	}
	base := filepath.Base(input)
	return base[:len(base)-len(filepath.Ext(base))]
}

func finish(cfg *config.Config, name string, artifact *cache.Artifact) error {
	for _, r := range artifact.Reports {
		fmt.Println(r)
	}
	dir := cfg.Resolve(cfg.OutputDir)
	if artifact.Ollir != "" || artifact.Jasmin != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create %s: %w", dir, err)
		}
	}
	if artifact.Ollir != "" {
		if err := os.WriteFile(filepath.Join(dir, name+".ollir"), []byte(artifact.Ollir), 0o644); err != nil {
			return err
		}
	}
	if artifact.Jasmin != "" {
		if err := os.WriteFile(filepath.Join(dir, name+".j"), []byte(artifact.Jasmin), 0o644); err != nil {
			return err
		}
	}
	if report.HasErrors(artifact.Reports) {
		return fmt.Errorf("compilation of %s failed with %d errors", name, len(report.Errors(artifact.Reports)))
	}
	return nil
}
