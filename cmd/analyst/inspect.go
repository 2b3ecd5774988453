package main

import (
	"path/filepath"

	"ai-data-analyst-be/internal/config"
	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/pkg/engine"
	"ai-data-analyst-be/pkg/ingest"
	"ai-data-analyst-be/pkg/schema"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func schemaCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <file>",
		Short: "Print the schema derived from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readFile(args[0])
			if err != nil {
				return err
			}
			ds, err := ingest.Ingest(filepath.Base(args[0]), data)
			if err != nil {
				return err
			}
			printSchema(schema.Derive(ds))
			color.HiBlack("%d rows", ds.Len())
			return nil
		},
	}
}

func queryCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "query <file> <sql>",
		Short: "Run raw SQL against a file loaded as table \"data\"",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.Load()

			data, err := readFile(args[0])
			if err != nil {
				return err
			}
			ds, err := ingest.Ingest(filepath.Base(args[0]), data)
			if err != nil {
				return err
			}

			bridge := engine.New(engine.Options{QueueDepth: cfg.Analysis.EngineQueueDepth, Logger: logger.NewNopLogger()})
			defer bridge.Close()

			if err := bridge.Initialize(ctx); err != nil {
				return err
			}
			if err := bridge.LoadTable(ctx, schema.Derive(ds), ds); err != nil {
				return err
			}
			sets, err := bridge.Execute(ctx, args[1])
			if err != nil {
				return err
			}
			printResultSets(sets)
			return nil
		},
	}
}
