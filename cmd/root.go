package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"medibot/internal/config"
	"medibot/internal/embedder"
	"medibot/internal/llm"
	"medibot/internal/rag"
	"medibot/internal/store"
)

var cfg *config.Config

var (
	flagDB        string
	flagNamespace string
)

var rootCmd = &cobra.Command{
	Use:   "medibot",
	Short: "Grounded question answering over ingested medical books",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; the environment always wins over defaults.
		_ = godotenv.Load()
		c, err := config.Load()
		if err != nil {
			return err
		}
		if flagDB != "" {
			c.DBPath = flagDB
		}
		if flagNamespace != "" {
			c.Namespace = flagNamespace
		}
		cfg = c
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default $MEDIBOT_DB or data/medibot.db)")
	rootCmd.PersistentFlags().StringVar(&flagNamespace, "namespace", "", "corpus namespace (default $MEDIBOT_NAMESPACE or medical)")
}

// openQueryPipeline opens the store and model clients shared by the
// ask, chat, and mcp commands. The caller closes the returned store.
func openQueryPipeline() (*rag.Pipeline, *store.SQLiteStore, error) {
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("index not found at %s\nRun 'medibot ingest' first to build the index", cfg.DBPath)
	}

	st, err := store.Open(cfg.DBPath, cfg.EmbedDim)
	if err != nil {
		return nil, nil, fmt.Errorf("open index: %w", err)
	}

	emb := embedder.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbedModel)
	chat := llm.NewOllamaChat(cfg.OllamaURL, cfg.ChatModel)
	pipeline := rag.New(emb, st, chat, cfg.Namespace, cfg.TopK, cfg.ScoreThreshold)
	return pipeline, st, nil
}

// printAnswer writes the answer and, when grounded, its citations.
func printAnswer(ans rag.Answer) {
	fmt.Println(ans.Text)
	if !ans.Grounded {
		return
	}
	refs := ans.Sources()
	if len(refs) == 0 {
		return
	}
	fmt.Println("\nSources:")
	for _, ref := range refs {
		fmt.Printf("  %s — page %d\n", ref.Source, ref.Page)
	}
}
