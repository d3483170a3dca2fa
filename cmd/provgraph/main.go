// Package main provides the provgraph binary entry point.
// Provgraph rebuilds the version history of a rawbase store from its
// provenance graph and serves it to the editor.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/c360studio/provgraph/config"
	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "provgraph"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Provenance graph reconstruction for rawbase",
		Long: `Provgraph reads the provenance graph of a rawbase store, folds its
commit statements into a version graph and selects the current version.

It can render a history once (render) or keep it fresh and serve it over
HTTP, refreshing on file changes or NATS notifications (serve).`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(initCmd())
	cmd.AddCommand(renderCmd(flags))
	cmd.AddCommand(serveCmd(flags))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// loadConfig loads the explicit config file if given, the layered
// configuration otherwise.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	loader := config.NewLoader(nil)
	if flags.configPath != "" {
		return loader.LoadFile(flags.configPath)
	}
	return loader.Load()
}

// newLogger configures the default logger. The flag wins over the config.
func newLogger(w io.Writer, flagLevel, cfgLevel string) *slog.Logger {
	name := cfgLevel
	if flagLevel != "" {
		name = flagLevel
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(name)}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
