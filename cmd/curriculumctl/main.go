// Command curriculumctl seeds, imports, exports and validates curriculum
// content against the same database and blob store the server uses.
// Configuration is read from the environment and CONFIG_FILE, as for
// curriculumd.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-curriculum/internal/app"
	"github.com/mind-engage/mindengage-curriculum/internal/config"
	"github.com/mind-engage/mindengage-curriculum/internal/logger"
)

type cli struct {
	logLevel string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "curriculumctl",
		Short:         "Manage curriculum content",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Override LOG_LEVEL (debug|info|warn|error)")

	root.AddCommand(
		c.seedCmd(),
		c.importCmd(),
		c.exportCmd(),
		c.validateCmd(),
	)
	return root
}

// open connects the stores; callers Close the returned App.
func (c *cli) open(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if c.logLevel != "" {
		level = c.logLevel
	}
	log, err := logger.New(cfg.LogMode, level)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, log, false)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
