package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/recera/rill/cmd/rill/internal/build"
	"github.com/recera/rill/internal/cache"
	"github.com/recera/rill/internal/config"
)

// projectFlags are the configuration overrides shared by the build commands
type projectFlags struct {
	format  string
	outDir  string
	srcDir  string
	noCache bool
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Module format: esm or cjs (overrides config)")
	cmd.Flags().StringVarP(&f.outDir, "out-dir", "o", "", "Output directory (overrides config)")
	cmd.Flags().StringVarP(&f.srcDir, "dir", "d", "", "Template directory (overrides config)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "Always recompile, ignoring cached modules")
}

// newBuilder creates a builder backed by the module cache unless disabled.
// The returned function persists the cache.
func (f *projectFlags) newBuilder(cfg *config.Config) (*build.Builder, func()) {
	builder := build.New(cfg)
	if f.noCache {
		return builder, func() {}
	}

	c, err := cache.New(cache.DefaultConfig())
	if err != nil {
		// Continue without cache
		fmt.Fprintf(os.Stderr, "⚠️  Failed to initialize module cache: %v\n", err)
		return builder, func() {}
	}
	return builder.WithCache(c), func() {
		if err := c.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Failed to save module cache: %v\n", err)
		}
	}
}

// loadConfig reads the project configuration and applies flag overrides.
// CLI takes precedence.
func (f *projectFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if f.format != "" {
		cfg.Format = f.format
	}
	if f.outDir != "" {
		cfg.OutDir = f.outDir
	}
	if f.srcDir != "" {
		cfg.SourceDir = f.srcDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newCompileCommand() *cobra.Command {
	var flags projectFlags

	cmd := &cobra.Command{
		Use:   "compile [files...]",
		Short: "Compile templates to JavaScript modules",
		Long: `Compiles the given .rill files, or every template under the source
directory when no files are given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			builder, closeCache := flags.newBuilder(cfg)
			defer closeCache()
			return runCompile(cfg, builder, args)
		},
	}

	flags.register(cmd)
	return cmd
}

func runCompile(cfg *config.Config, builder *build.Builder, files []string) error {
	var results []build.Result
	if len(files) > 0 {
		results = builder.Files(files)
	} else {
		fmt.Printf("🔍 Scanning %s for templates...\n", cfg.SourceDir)
		var err error
		results, err = builder.Dir(cfg.SourceDir)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("⚠️  No templates found")
			return nil
		}
	}

	printResults(results)

	summary := build.Summarize(results)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d templates failed to compile", summary.Failed, len(results))
	}
	fmt.Printf("✨ Compiled %d templates\n", summary.Compiled)
	return nil
}

func printResults(results []build.Result) {
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("❌ %s: %v\n", r.Source, r.Err)
			continue
		}
		if r.Cached {
			fmt.Printf("✅ Generated %s from %s (cached)\n", r.Output, r.Source)
			continue
		}
		fmt.Printf("✅ Generated %s from %s (%s)\n", r.Output, r.Source, r.Elapsed)
	}
}
