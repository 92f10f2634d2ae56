package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siterag/siterag/internal/config"
	"github.com/siterag/siterag/internal/vectorstore"
)

var collectionFlags struct {
	collection string
	yes        bool
}

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Inspect or manage the vector store collection",
}

var collectionStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the number of indexed records",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, name, err := openCollection()
		if err != nil {
			return err
		}
		defer store.Close()

		count, err := store.Count(cmd.Context(), name)
		if err != nil {
			return fmt.Errorf("count collection %q: %w", name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Collection %q on %s:%d holds %d records\n",
			name, cfg.QdrantHost, cfg.QdrantPort, count)
		return nil
	},
}

var collectionDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the collection and all its records",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !collectionFlags.yes {
			return fmt.Errorf("refusing to drop without --yes")
		}

		_, store, name, err := openCollection()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteCollection(cmd.Context(), name); err != nil {
			return fmt.Errorf("drop collection %q: %w", name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Collection %q dropped\n", name)
		return nil
	},
}

func init() {
	collectionCmd.PersistentFlags().StringVar(&collectionFlags.collection, "collection", "", "collection name (defaults to configured collection)")
	collectionDropCmd.Flags().BoolVar(&collectionFlags.yes, "yes", false, "confirm the drop")
	collectionCmd.AddCommand(collectionStatsCmd)
	collectionCmd.AddCommand(collectionDropCmd)
	rootCmd.AddCommand(collectionCmd)
}

// openCollection loads config and connects to Qdrant. The caller owns the
// returned store and must Close it.
func openCollection() (*config.Config, *vectorstore.Qdrant, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, "", err
	}
	// Collection management only talks to Qdrant; the full validation set
	// would demand a Gemini key these commands never use.
	if cfg.QdrantHost == "" {
		return nil, nil, "", config.ErrMissingQdrantHost
	}

	store, err := vectorstore.New(vectorstore.Config{
		Host:   cfg.QdrantHost,
		Port:   cfg.QdrantPort,
		APIKey: cfg.QdrantAPIKey,
		UseTLS: cfg.QdrantUseTLS,
	}, newLogger())
	if err != nil {
		return nil, nil, "", fmt.Errorf("connect to qdrant: %w", err)
	}

	name := cfg.Collection
	if collectionFlags.collection != "" {
		name = collectionFlags.collection
	}
	return cfg, store, name, nil
}
