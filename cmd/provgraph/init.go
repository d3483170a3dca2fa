package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/c360studio/provgraph/config"
	"github.com/spf13/cobra"
)

type initOptions struct {
	out      string
	endpoint string
	graph    string
	force    bool
}

func initCmd() *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter provgraph.yaml with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runInit(opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", opts.out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", config.ProjectConfigFile, "Config file to write")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "Rawbase endpoint to record")
	cmd.Flags().StringVar(&opts.graph, "graph", "", "Provenance graph IRI to record")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite an existing file")

	return cmd
}

func runInit(opts *initOptions) error {
	if !opts.force {
		_, err := os.Stat(opts.out)
		if err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", opts.out)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("check %s: %w", opts.out, err)
		}
	}

	cfg := config.DefaultConfig()
	if opts.endpoint != "" {
		cfg.Source.Endpoint = opts.endpoint
	}
	if opts.graph != "" {
		cfg.Source.Graph = opts.graph
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return cfg.SaveToFile(opts.out)
}
