package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/c360studio/provgraph/export"
	"github.com/c360studio/provgraph/provenance"
	"github.com/c360studio/provgraph/source"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	file     string
	endpoint string
	graph    string
	format   string
	profile  string
	out      string
}

func renderCmd(flags *globalFlags) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Reconstruct the provenance graph once and print it",
		Example: `  provgraph render --file history.ttl --format dot | dot -Tsvg > history.svg
  provgraph render --endpoint http://localhost:8080/rawbase/ --format ttl --profile cco`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), flags, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Read the provenance document from a Turtle file")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "Fetch the provenance document from this rawbase endpoint")
	cmd.Flags().StringVar(&opts.graph, "graph", "", "Provenance graph IRI to fetch")
	cmd.Flags().StringVar(&opts.format, "format", string(export.FormatJSON), "Output format")
	cmd.Flags().StringVar(&opts.profile, "profile", string(export.ProfileMinimal), "Ontology profile for RDF output")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write to this file instead of stdout")
	cmd.MarkFlagsMutuallyExclusive("file", "endpoint")

	return cmd
}

func runRender(ctx context.Context, flags *globalFlags, opts *renderOptions, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	profile, err := export.ParseProfile(opts.profile)
	if err != nil {
		return err
	}

	var (
		src    source.Source
		logger *slog.Logger
	)
	if opts.file != "" {
		logger = newLogger(os.Stderr, flags.logLevel, "warn")
		src = source.File{Path: opts.file}
	} else {
		cfg, err := loadConfig(flags)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if opts.endpoint != "" {
			cfg.Source.Endpoint = opts.endpoint
		}
		if opts.graph != "" {
			cfg.Source.Graph = opts.graph
		}
		logger = newLogger(os.Stderr, flags.logLevel, cfg.Log.Level)
		src = source.NewFetcher(cfg.Source, logger)
	}

	doc, err := src.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch provenance: %w", err)
	}
	if !doc.Found {
		logger.Warn("No provenance graph found, rendering empty history", "origin", doc.Origin)
	}

	snap, err := provenance.Reconstruct(doc.Reader(), provenance.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("reconstruct %s: %w", doc.Origin, err)
	}

	exporter := export.NewExporter(profile)
	if opts.out == "" {
		return exporter.Write(stdout, snap, format)
	}
	return writeFile(opts.out, func(w io.Writer) error {
		return exporter.Write(w, snap, format)
	})
}

// writeFile creates path and runs write against it. A failed close is
// reported, since buffered data may not have reached the disk.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()
	return write(f)
}
