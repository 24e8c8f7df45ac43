package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"medibot/internal/embedder"
	"medibot/internal/ingest"
	"medibot/internal/store"
)

var flagWorkers int

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Load, chunk, embed, and upsert documents into the index",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourceDir := cfg.SourceDir
		if len(args) == 1 {
			sourceDir = args[0]
		}
		if _, err := os.Stat(sourceDir); err != nil {
			return fmt.Errorf("source directory: %w", err)
		}

		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("create db directory: %w", err)
		}

		st, err := store.Open(cfg.DBPath, cfg.EmbedDim)
		if err != nil {
			return err
		}
		defer st.Close()

		workers := flagWorkers
		if workers == 0 {
			workers = cfg.IngestWorkers
		}

		ing, err := ingest.New(
			embedder.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbedModel),
			st,
			ingest.Config{
				ChunkSize:        cfg.ChunkSize,
				ChunkOverlap:     cfg.ChunkOverlap,
				BatchSize:        cfg.BatchSize,
				Namespace:        cfg.Namespace,
				DeterministicIDs: cfg.DeterministicIDs,
				Workers:          workers,
			},
		)
		if err != nil {
			return err
		}

		fmt.Printf("Ingesting %s into namespace %q...\n", sourceDir, cfg.Namespace)
		start := time.Now()

		stats, err := ing.Ingest(cmd.Context(), sourceDir)

		if stats != nil {
			fmt.Printf("\nDone in %s\n", time.Since(start).Round(time.Millisecond))
			fmt.Printf("  Pages loaded:    %d\n", stats.PagesLoaded)
			fmt.Printf("  Chunks created:  %d\n", stats.ChunksCreated)
			fmt.Printf("  Chunks upserted: %d\n", stats.ChunksUpserted)
		}

		return err
	},
}

func init() {
	ingestCmd.Flags().IntVar(&flagWorkers, "workers", 0, "concurrent ingestion batches (default $INGEST_WORKERS or 1)")
	rootCmd.AddCommand(ingestCmd)
}
