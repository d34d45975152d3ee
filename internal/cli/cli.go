package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/docfoundry/docgraph/pkg/buildinfo"
	"github.com/docfoundry/docgraph/pkg/cache"
	"github.com/docfoundry/docgraph/pkg/config"
	"github.com/docfoundry/docgraph/pkg/engine"
	"github.com/docfoundry/docgraph/pkg/impact"
)

// rootOptions holds the persistent flags shared by all commands.
type rootOptions struct {
	verbose bool
	config  string
	key     string
	noCache bool
}

// Execute runs the docgraph CLI and returns an error if any command fails.
//
// The root command wires up all subcommands (impact, check, cycles, export,
// sign), configures logging based on the --verbose flag, and executes the
// command tree. The logger is attached to the context and accessible to all
// commands via loggerFromContext.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the CLI under an externally controlled context, so
// main can wire signal handling to command cancellation.
func ExecuteContext(ctx context.Context) error {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "docgraph",
		Short:        "Docgraph tracks dependencies between documentation files",
		Long:         `Docgraph analyzes the dependency graph of a documentation suite: which documents a change ripples to, whether the suite is internally consistent, and where circular references hide.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if opts.verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&opts.config, "config", "", "path to a TOML limits file")
	root.PersistentFlags().StringVar(&opts.key, "key", "", "HMAC signing key for graph files")
	root.PersistentFlags().BoolVar(&opts.noCache, "no-cache", false, "disable the analysis result cache")

	root.AddCommand(newImpactCmd(opts))
	root.AddCommand(newCheckCmd(opts))
	root.AddCommand(newCyclesCmd(opts))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newSignCmd(opts))

	return root.ExecuteContext(ctx)
}

// loadLimits resolves limits from --config, falling back to defaults.
func loadLimits(opts *rootOptions) (config.Limits, error) {
	if opts.config == "" {
		return config.DefaultLimits(), nil
	}
	return config.Load(opts.config)
}

// loadEngine builds an engine from the persistent flags and loads the graph
// file into it. When verify is false the --key flag is ignored, so unsigned
// files can be read (the sign command relies on this).
func loadEngine(ctx context.Context, opts *rootOptions, path string, strategy impact.Strategy, verify bool) (*engine.Engine, error) {
	limits, err := loadLimits(opts)
	if err != nil {
		return nil, err
	}

	var key []byte
	if verify && opts.key != "" {
		key = []byte(opts.key)
	}

	store, err := newCache(opts.noCache)
	if err != nil {
		return nil, err
	}

	e, err := engine.New(engine.Config{
		Limits:     limits,
		Logger:     loggerFromContext(ctx),
		Cache:      store,
		Strategy:   strategy,
		SigningKey: key,
	})
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := e.ImportJSON(f); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return e, nil
}

// newCache picks the cache backend for one-shot runs: a file cache under the
// user cache dir, so repeated analyses of an unchanged graph file are served
// from earlier invocations.
func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// cacheDir returns the cache directory using the XDG convention
// (~/.cache/docgraph).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, "docgraph"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "docgraph"), nil
}
