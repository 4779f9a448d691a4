// Command imoji is a terminal client for the imoji sticker API.
//
// Session settings come from IMOJI_* environment variables, an optional .env
// file and an optional YAML file (--config). Set IMOJI_PERSISTENT_PATH and
// IMOJI_CACHE_PATH to keep a synchronized user between runs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	app := &cli{}
	root := &cobra.Command{
		Use:           "imoji",
		Short:         "Search, render and collect imoji stickers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return app.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.configFile, "config", "", "YAML config file")
	flags.StringSliceVar(&app.envFiles, "env-file", nil, ".env files to load before reading the environment")
	flags.StringVar(&app.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&app.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(
		searchCommand(app),
		featuredCommand(app),
		categoriesCommand(app),
		fetchCommand(app),
		renderCommand(app),
		syncCommand(app),
		collectionCommand(app),
	)
	return root
}
