// Command amelia-mcp serves Amelia's retrieval tools over MCP stdio.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcp "github.com/metoro-io/mcp-golang"
	"github.com/metoro-io/mcp-golang/transport/stdio"

	"github.com/amelia-run/amelia/internal/chunker"
	"github.com/amelia-run/amelia/internal/config"
	"github.com/amelia-run/amelia/internal/coordinator"
	"github.com/amelia-run/amelia/internal/crawl"
	"github.com/amelia-run/amelia/internal/embedder"
	"github.com/amelia-run/amelia/internal/ingest"
	"github.com/amelia-run/amelia/internal/observability"
	"github.com/amelia-run/amelia/internal/ratelimiter"
	"github.com/amelia-run/amelia/internal/search"
	"github.com/amelia-run/amelia/internal/store"
	"github.com/amelia-run/amelia/internal/tools"
	"github.com/amelia-run/amelia/internal/transcribe"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(2)
	}
	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, cfg.Store, cfg.Embedding.Dimension)
	if err != nil {
		log.Fatal().Err(err).Msg("amelia-mcp: open store")
	}
	defer st.Pool.Close()

	emb := embedder.New(cfg.Embedding, cfg.Embedding.Dimension)
	reranker := search.NewReranker(cfg.Rerank)
	engine := search.New(st, emb, reranker, cfg.RRFK, cfg.HybridAlpha)

	chunkOpts := chunker.Options{MaxChars: cfg.Chunk.TargetChars, Overlap: cfg.Chunk.OverlapChars}

	ingestPipeline := &ingest.Pipeline{
		Store:     st,
		Parsers:   ingest.DefaultParsers(os.ReadFile),
		Embedder:  emb,
		ChunkOpts: chunkOpts,
		Language:  "en",
	}

	var transcribePipeline *transcribe.Pipeline
	if cfg.ASR.ModelPath != "" {
		asr, err := transcribe.NewWhisperASR(cfg.ASR.ModelPath)
		if err != nil {
			log.Fatal().Err(err).Msg("amelia-mcp: load whisper model")
		}
		defer asr.Close()
		transcribePipeline = &transcribe.Pipeline{
			Store:     st,
			ASR:       asr,
			Embedder:  emb,
			ChunkOpts: chunkOpts,
			ModelName: cfg.ASR.ModelPath,
		}
	} else {
		log.Warn().Msg("amelia-mcp: asr.model_path not set, transcription jobs will fail permanently")
	}

	crawler := &crawl.Crawler{
		Store:     st,
		Fetcher:   crawl.NewHTTPFetcher(20 << 20),
		JSFetcher: crawl.NewChromeFetcher(),
		Robots:    crawl.NewRobotsChecker(cfg.Crawl.UserAgent),
		Limiter:   ratelimiter.New(cfg.Crawl.RequestsPerSecond, cfg.Crawl.BucketCapacity, 0),
		Embedder:  emb,
		ChunkOpts: chunkOpts,
	}

	coord := coordinator.New(st, ingestPipeline, crawler, transcribePipeline, cfg.Jobs)
	if err := coord.Recover(ctx); err != nil {
		log.Fatal().Err(err).Msg("amelia-mcp: recover stuck jobs")
	}

	go func() {
		if err := coord.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("amelia-mcp: coordinator stopped")
		}
	}()

	handlers := tools.New(st, engine)

	serverTransport := stdio.NewStdioServerTransport()
	server := mcp.NewServer(serverTransport)

	register(server, "ingest_documents", "Ingests local files or directories into a collection", handlers.IngestDocuments)
	register(server, "crawl_website", "Crawls a website and ingests its pages into a collection", handlers.CrawlWebsite)
	register(server, "search_documents", "Searches a collection using vector, keyword, or hybrid retrieval", handlers.SearchDocuments)
	registerSlice(server, "list_sources", "Lists the documents ingested into a collection", handlers.ListSources)
	register(server, "remove_source", "Removes a previously ingested document from a collection", handlers.RemoveSource)
	register(server, "get_statistics", "Reports document and chunk counts for a collection", handlers.GetStatistics)
	register(server, "get_job_status", "Reports a job's lifecycle status and progress", handlers.GetJobStatus)
	register(server, "cancel_job", "Cancels a pending or running job", handlers.CancelJob)

	log.Info().Msg("amelia-mcp: serving over stdio")
	if err := server.Serve(); err != nil {
		log.Fatal().Err(err).Msg("amelia-mcp: serve")
	}

	<-ctx.Done()
}

// register adapts a tools.Handlers method into mcp-golang's synchronous,
// context-free RegisterTool shape, JSON-encoding the result the way the
// rest of this server's structured tool responses are returned.
func register[A, R any](server *mcp.Server, name, description string, handler func(context.Context, A) (R, error)) {
	if err := server.RegisterTool(name, description, func(args A) (*mcp.ToolResponse, error) {
		res, err := handler(context.Background(), args)
		if err != nil {
			return nil, err
		}
		return jsonResponse(res)
	}); err != nil {
		panic(err)
	}
}

// registerSlice mirrors register for handlers returning a bare slice
// (list_sources has no enclosing result struct).
func registerSlice[A, R any](server *mcp.Server, name, description string, handler func(context.Context, A) ([]R, error)) {
	if err := server.RegisterTool(name, description, func(args A) (*mcp.ToolResponse, error) {
		res, err := handler(context.Background(), args)
		if err != nil {
			return nil, err
		}
		return jsonResponse(res)
	}); err != nil {
		panic(err)
	}
}

func jsonResponse(v any) (*mcp.ToolResponse, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("amelia-mcp: marshal tool result: %w", err)
	}
	return mcp.NewToolResponse(mcp.NewTextContent(string(b))), nil
}
