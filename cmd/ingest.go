package cmd

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/siterag/siterag/internal/chunker"
	"github.com/siterag/siterag/internal/config"
	"github.com/siterag/siterag/internal/crawler"
	"github.com/siterag/siterag/internal/embedding"
	"github.com/siterag/siterag/internal/indexer"
	"github.com/siterag/siterag/internal/pipeline"
	"github.com/siterag/siterag/internal/vectorstore"
)

var ingestFlags struct {
	start      int
	end        int
	urlIndex   int
	chunkStart int
	chunkEnd   int
	countOnly  bool
	verify     bool
	recreate   bool
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Crawl the sitemap and index page content",
	Long: `Ingest resolves page URLs from the configured sitemap, extracts and
chunks their text, embeds each chunk, and upserts the vectors into the
Qdrant collection. URL and chunk ranges select a subset for partial or
resumed runs.`,
	RunE: runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.IntVar(&ingestFlags.start, "start", 0, "first URL index to process (inclusive)")
	f.IntVar(&ingestFlags.end, "end", 0, "URL index to stop before (0 means all)")
	f.IntVar(&ingestFlags.urlIndex, "url-index", -1, "process only the URL at this index")
	f.IntVar(&ingestFlags.chunkStart, "chunk-start", 0, "first chunk index per page (inclusive)")
	f.IntVar(&ingestFlags.chunkEnd, "chunk-end", 0, "chunk index to stop before (0 means all)")
	f.BoolVar(&ingestFlags.countOnly, "count-only", false, "count chunks without embedding or writing")
	f.BoolVar(&ingestFlags.verify, "verify", false, "read back a sample record after each batch")
	f.BoolVar(&ingestFlags.recreate, "recreate-collection", false, "drop and recreate the collection on a vector size mismatch")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: crawler.DefaultTimeout}
	resolver := crawler.NewSitemapResolver(client, cfg.SitemapURL, logger)
	extractor := crawler.NewExtractor(client, logger)
	splitter := chunker.New(
		chunker.WithChunkSize(cfg.ChunkSize),
		chunker.WithOverlap(cfg.ChunkOverlap),
	)

	var (
		embedder pipeline.DocumentEmbedder
		writer   pipeline.ChunkWriter
		limiter  *rate.Limiter
	)
	if !ingestFlags.countOnly {
		genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return fmt.Errorf("create genai client: %w", err)
		}
		embedder = embedding.New(genaiClient, cfg.EmbedderModel, int32(config.DefaultVectorDim), logger)

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

		writerOpts := []indexer.Option{}
		if ingestFlags.verify {
			writerOpts = append(writerOpts, indexer.WithVerification())
		}
		if ingestFlags.recreate {
			writerOpts = append(writerOpts, indexer.WithRecreate())
		}
		writer = indexer.NewWriter(store, cfg.Collection, uint64(config.DefaultVectorDim), logger, writerOpts...)

		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	p := pipeline.New(resolver, extractor, splitter, embedder, writer, limiter, logger)
	result, err := p.Run(ctx, pipeline.Options{
		URLStart:   ingestFlags.start,
		URLEnd:     ingestFlags.end,
		URLIndex:   ingestFlags.urlIndex,
		ChunkStart: ingestFlags.chunkStart,
		ChunkEnd:   ingestFlags.chunkEnd,
		CountOnly:  ingestFlags.countOnly,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "URLs: %d total, %d selected, %d processed, %d failed\n",
		result.URLsTotal, result.URLsSelected, result.URLsProcessed, result.URLsFailed)
	if ingestFlags.countOnly {
		fmt.Fprintf(out, "Chunks: %d (%d skipped)\n", result.Chunks, result.ChunksSkipped)
		return nil
	}
	fmt.Fprintf(out, "Chunks: %d (%d skipped), records written: %d\n",
		result.Chunks, result.ChunksSkipped, result.RecordsWritten)
	return nil
}
