package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tutorui/internal/genui"
	"tutorui/internal/logging"
)

type cli struct {
	verbose     bool
	catalogPath string
	logger      *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "genui",
		Short:         "Compose tutoring pages and try interaction rules from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if c.verbose {
				level = "debug"
			}
			logger, err := logging.New(level, "local")
			if err != nil {
				return err
			}
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&c.catalogPath, "catalog", "", "component catalog YAML (defaults to the built-in catalog)")

	root.AddCommand(c.composeCmd(), c.eventCmd(), c.schemaCmd())
	return root
}

func (c *cli) catalog() (*genui.Catalog, error) {
	if c.catalogPath == "" {
		return genui.DefaultCatalog(), nil
	}
	return genui.LoadCatalog(c.catalogPath)
}

func (c *cli) log() *zap.Logger {
	if c.logger == nil {
		return zap.NewNop()
	}
	return c.logger
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
