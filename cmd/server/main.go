// Command server runs the reportability advisory HTTP API, or, given
// "-ingest <dir> <index>", walks a directory of plain-text/markdown
// documents into the configured search backends and exits.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"reportability-engine/internal/agents"
	"reportability-engine/internal/config"
	"reportability-engine/internal/docresult"
	"reportability-engine/internal/httpapi"
	"reportability-engine/internal/llm"
	"reportability-engine/internal/llm/anthropic"
	"reportability-engine/internal/llm/openai"
	"reportability-engine/internal/objectstore"
	"reportability-engine/internal/observability"
	"reportability-engine/internal/orchestrator"
	"reportability-engine/internal/rag/chunker"
	"reportability-engine/internal/rag/embedder"
	"reportability-engine/internal/rag/ingest"
	"reportability-engine/internal/search"
)

const (
	idxNureg               = "nureg"
	idxReportabilityManual = "reportability_manual"
	idxTSNaiveSearch       = "ts_naive_search"
	idxUFSARNaiveSearch    = "ufsar_naive_search"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.InitOTel(ctx, cfg.OTel)
	if err != nil {
		log.Warn().Err(err).Msg("otel tracing disabled")
	} else {
		defer func() { _ = shutdownOTel(context.Background()) }()
		observability.AttachOTelLog(cfg.OTel.ServiceName)
	}

	if len(os.Args) > 1 && os.Args[1] == "-ingest" {
		if len(os.Args) != 4 {
			fmt.Fprintln(os.Stderr, "usage: server -ingest <dir> <index>")
			os.Exit(1)
		}
		if err := runIngest(ctx, cfg, os.Args[2], os.Args[3]); err != nil {
			log.Fatal().Err(err).Msg("ingest failed")
		}
		return
	}

	provider := buildProvider(cfg)
	ft, vec := buildSearchBackends(ctx, cfg)
	emb := buildEmbedder(cfg)

	descriptors, err := search.LoadDescriptors(cfg.Search.ConfigPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load search descriptors")
	}

	nuregPlugin := search.NewPlugin("search_nureg", descriptorFor(descriptors, idxNureg), docresult.KindNuregSection, ft, vec, emb)
	manualPlugin := search.NewPlugin("search_reportability_manual", descriptorFor(descriptors, idxReportabilityManual), docresult.KindReportabilityManual, ft, vec, emb)
	tsNaivePlugin := search.NewPlugin("search_ts_naive", descriptorFor(descriptors, idxTSNaiveSearch), docresult.KindNaiveChunk, ft, vec, emb)
	ufsarNaivePlugin := search.NewPlugin("search_ufsar_naive", descriptorFor(descriptors, idxUFSARNaiveSearch), docresult.KindNaiveChunk, ft, vec, emb)

	store, err := objectstore.NewS3Store(ctx, cfg.S3, objectstore.WithHTTPClient(observability.NewHTTPClient(nil)))
	if err != nil {
		log.Fatal().Err(err).Msg("construct s3 store")
	}

	model := modelFor(cfg)
	roster := orchestrator.Roster{
		Intent:                       agents.NewIntentAgent(provider, model),
		NuregKnowledge:               agents.NewNuregKnowledgeAgent(provider, model, nuregPlugin),
		ReportabilityManualKnowledge: agents.NewReportabilityManualKnowledgeAgent(provider, model, manualPlugin),
		Recommendation:               agents.NewRecommendationAgent(provider, model),
		Extraction:                   agents.NewExtractionAgent(provider, model),
		SingleNRC:                    agents.NewSingleNRCAgent(provider, model, nuregPlugin, manualPlugin, tsNaivePlugin, ufsarNaivePlugin),
		Signer:                       store,
		URLExpiry:                    time.Duration(cfg.S3.SASTokenExpirationDays) * 24 * time.Hour,
	}

	e := httpapi.NewEcho(httpapi.Deps{
		Roster:               roster,
		DefaultOrchestration: cfg.DefaultOrchestration,
		StreamBufferSize:     cfg.StreamBufferSize,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	go func() {
		log.Info().Str("addr", addr).Msg("reportability-engine listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func modelFor(cfg config.Config) string {
	if cfg.LLM.Provider == "anthropic" {
		return cfg.LLM.Anthropic.Model
	}
	return cfg.LLM.OpenAI.Model
}

func buildProvider(cfg config.Config) llm.Provider {
	httpClient := observability.NewHTTPClient(nil)
	if cfg.LLM.Provider == "anthropic" {
		return anthropic.New(cfg.LLM.Anthropic, httpClient)
	}
	return openai.New(cfg.LLM.OpenAI, httpClient)
}

// buildSearchBackends constructs one shared FullTextSearch and one shared
// VectorStore instance for the whole process. Every logical index's Plugin
// binds to the same pair of backends: the Postgres and in-memory backends
// each keep a single table/map of documents regardless of logical index,
// so documents are namespaced by id convention (doc:<kind>:..., chunk:...)
// rather than by separate tables. This mirrors how the ingestion helpers in
// internal/rag/ingest already tag every row with a "type"/"doc_id" metadata
// field instead of routing to per-index storage.
func buildSearchBackends(ctx context.Context, cfg config.Config) (search.FullTextSearch, search.VectorStore) {
	switch cfg.Search.Backend {
	case "postgres":
		pool, err := search.OpenPool(ctx, cfg.Search.Postgres.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open postgres pool")
		}
		return search.NewPostgresSearch(pool), search.NewPostgresVector(pool, cfg.Search.Postgres.VectorDimensions, cfg.Search.Postgres.VectorMetric)
	case "qdrant":
		vec, err := search.NewQdrantVector(cfg.Search.Qdrant.DSN, cfg.Search.Qdrant.Collection, cfg.Search.Qdrant.Dimensions, cfg.Search.Qdrant.Metric)
		if err != nil {
			log.Fatal().Err(err).Msg("connect qdrant")
		}
		return search.NewMemorySearch(), vec
	default:
		return search.NewMemorySearch(), search.NewMemoryVector()
	}
}

func buildEmbedder(cfg config.Config) embedder.Embedder {
	if cfg.Embedding.BaseURL == "" {
		return embedder.NewDeterministic(cfg.Embedding.Dimensions, true, 0)
	}
	return embedder.NewClient(cfg.Embedding, cfg.Embedding.Dimensions)
}

func descriptorFor(df search.DescriptorFile, name string) search.Descriptor {
	if d, ok := df[name]; ok {
		return d
	}
	return search.Descriptor{SearchType: search.ModeFullText, Top: 5}
}

// runIngest walks dir, ingesting every regular file under it into the
// logical index named by index: each file becomes one IngestRequest, split
// into chunks, indexed for full text and, when an embedding endpoint is
// configured, embedded and upserted into the vector store.
func runIngest(ctx context.Context, cfg config.Config, dir, index string) error {
	ft, vec := buildSearchBackends(ctx, cfg)
	emb := buildEmbedder(cfg)
	ch := chunker.SimpleChunker{}

	var count int
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		rel, _ := filepath.Rel(dir, path)
		docID := "doc:" + index + ":" + strings.ReplaceAll(rel, string(filepath.Separator), "_")
		req := ingest.IngestRequest{
			ID:     docID,
			Title:  filepath.Base(path),
			Source: "file",
			URL:    path,
			Text:   string(raw),
			Options: ingest.IngestOptions{
				Chunking:       ingest.ChunkingOptions{Strategy: "markdown", MaxTokens: 512, Overlap: 32},
				Embedding:      ingest.EmbeddingOptions{Enabled: cfg.Embedding.BaseURL != ""},
				ReingestPolicy: ingest.ReingestOverwrite,
			},
			Metadata: map[string]any{"title": filepath.Base(path), "index": index},
		}

		pre, err := ingest.Preprocess(ctx, nil, req)
		if err != nil {
			return fmt.Errorf("preprocess %s: %w", path, err)
		}
		if err := ingest.UpsertDocumentToSearch(ctx, ft, docID, req, pre, 1); err != nil {
			return fmt.Errorf("index document %s: %w", path, err)
		}

		chunks, err := ch.Chunk(pre.Text, req.Options.Chunking)
		if err != nil {
			return fmt.Errorf("chunk %s: %w", path, err)
		}
		records := make([]ingest.ChunkRecord, len(chunks))
		for i, c := range chunks {
			records[i] = ingest.ChunkRecord{Index: c.Index, Text: c.Text}
		}
		if _, err := ingest.UpsertChunksToSearch(ctx, ft, docID, pre.Language, records, req, 1); err != nil {
			return fmt.Errorf("index chunks %s: %w", path, err)
		}
		if req.Options.Embedding.Enabled {
			if _, err := ingest.UpsertChunkEmbeddings(ctx, vec, emb, docID, pre.Language, records, req, 1); err != nil {
				return fmt.Errorf("embed chunks %s: %w", path, err)
			}
		}

		count++
		log.Info().Str("file", path).Int("chunks", len(records)).Msg("ingested document")
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Int("documents", count).Str("index", index).Msg("ingestion complete")
	return nil
}
