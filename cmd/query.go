package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"github.com/siterag/siterag/internal/agent"
	"github.com/siterag/siterag/internal/config"
	"github.com/siterag/siterag/internal/embedding"
	"github.com/siterag/siterag/internal/history"
	"github.com/siterag/siterag/internal/llm"
	"github.com/siterag/siterag/internal/vectorstore"
)

var queryFlags struct {
	query      string
	collection string
	topK       int
	noHistory  bool
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Answer a question against the indexed site",
	Long: `Query embeds the question, retrieves the most similar chunks from the
Qdrant collection, and asks the model to answer from that context. The
answer is printed with its sources, and the exchange is recorded to the
prompt history unless --no-history is given.`,
	RunE: runQuery,
}

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryFlags.query, "query", "", "question to answer (required)")
	f.StringVar(&queryFlags.collection, "collection", "", "collection to search (defaults to configured collection)")
	f.IntVar(&queryFlags.topK, "top-k", 0, "number of chunks to retrieve (defaults to configured top_k)")
	f.BoolVar(&queryFlags.noHistory, "no-history", false, "skip recording the exchange to prompt history")
	_ = queryCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	collection := cfg.Collection
	if queryFlags.collection != "" {
		collection = queryFlags.collection
	}
	topK := cfg.TopK
	if queryFlags.topK > 0 {
		topK = queryFlags.topK
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("create genai client: %w", err)
	}

	store, err := vectorstore.New(vectorstore.Config{
		Host:   cfg.QdrantHost,
		Port:   cfg.QdrantPort,
		APIKey: cfg.QdrantAPIKey,
		UseTLS: cfg.QdrantUseTLS,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect to qdrant: %w", err)
	}
	defer store.Close()

	embedder := embedding.New(genaiClient, cfg.EmbedderModel, int32(config.DefaultVectorDim), logger)
	generator := llm.New(genaiClient, cfg.ModelName, logger)

	opts := []agent.Option{
		agent.WithTopK(topK),
		agent.WithOutput(cmd.OutOrStdout()),
	}
	if !queryFlags.noHistory {
		opts = append(opts, agent.WithRecorder(history.NewRecorder(cfg.HistoryDir, logger)))
	}

	a := agent.New(embedder, store, generator, collection, cfg.ModelName, logger, opts...)
	command := fmt.Sprintf("siterag query --query %q", queryFlags.query)
	return a.Answer(ctx, queryFlags.query, command)
}
