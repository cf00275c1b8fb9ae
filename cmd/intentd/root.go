package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"intentd/internal/catalog"
	"intentd/internal/config"
)

// rootFlags are overrides layered on top of the config file. Empty means
// "keep the file value".
type rootFlags struct {
	configPath  string
	addr        string
	logLevel    string
	corsOrigins string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "intentd",
		Short:         "Local intent-routing daemon around a llama engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file (.toml|.yaml|.json)")
	root.PersistentFlags().StringVar(&flags.addr, "addr", "", "HTTP listen address, e.g. :8090 (defaults INTENTD_ADDR or config)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug|info|warn|error")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(flags)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
	serveCmd.Flags().StringVar(&flags.corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins; setting it enables CORS")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Print the filtered model catalog and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(flags)
			if err != nil {
				return err
			}
			log := newLogger(cfg.Log)
			entries := loadRegistry(cfg.Catalog, log)
			choices := catalog.Prepare(entries, filterOptions(cfg.Catalog))
			if len(choices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no selectable models")
				return nil
			}
			for _, c := range choices {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.ID, c.DisplayName)
			}
			return nil
		},
	}

	root.AddCommand(serveCmd, modelsCmd)
	return root
}

// resolveConfig loads the config file (when given) and applies flag and
// environment overrides, then validates the result.
func resolveConfig(f *rootFlags) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		cfg, err = config.Load(f.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}
	addr := f.addr
	if addr == "" {
		addr = os.Getenv("INTENTD_ADDR")
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if origins := splitCSV(f.corsOrigins); len(origins) > 0 {
		cfg.Server.CORSEnabled = true
		cfg.Server.CORSOrigins = origins
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func filterOptions(c config.CatalogConfig) catalog.FilterOptions {
	return catalog.FilterOptions{
		MaxVRAMMB:   c.MaxVRAMMB,
		QuantTag:    c.QuantTag,
		ExcludeType: c.ExcludeType,
	}
}

// splitCSV splits a comma-separated flag value, trimming whitespace and
// dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
