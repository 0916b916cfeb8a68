package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"catalog-rag/internal/chunker"
	"catalog-rag/internal/config"
	"catalog-rag/internal/embedding"
	"catalog-rag/internal/helper"
	"catalog-rag/internal/ingest"
	"catalog-rag/internal/layout"
	"catalog-rag/internal/llmservice"
	"catalog-rag/internal/models"
	"catalog-rag/internal/parser"
	"catalog-rag/internal/rag"
	"catalog-rag/internal/router"
	"catalog-rag/internal/server"
	"catalog-rag/internal/vectorstore"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Catalog document to ingest (.pdf, .docx, .xlsx, .md, .txt)")
	dryRun := flag.Bool("dry-run", false, "Reconstruct and chunk only, do not embed or store")
	policy := flag.String("policy", "", "Chunking policy override: page or window")
	query := flag.String("query", "", "Answer one user message")
	serve := flag.Bool("serve", false, "Start the HTTP chat server")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Error loading .env")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if *policy != "" {
		cfg.RAG.Policy = *policy
	}
	closeLog := setupLogging(&cfg.Log)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	modes := 0
	for _, set := range []bool{*filePath != "", *query != "", *serve} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		log.Fatal().Msg("Please provide exactly one of -file, -query or -serve")
	}

	switch {
	case *filePath != "":
		err = ingestFile(ctx, cfg, *filePath, *dryRun)
	case *query != "":
		err = answerQuery(ctx, cfg, *query)
	case *serve:
		err = serveHTTP(ctx, cfg)
	}
	if err != nil {
		log.Error().Err(err).Msg("Command failed")
		closeLog()
		os.Exit(1)
	}
}

// setupLogging applies the configured level and tees events as JSON into the
// diagnostics file when one is set.
func setupLogging(logConfig *config.LogConfig) func() {
	level, err := zerolog.ParseLevel(logConfig.Level)
	if err != nil {
		log.Warn().Str("level", logConfig.Level).Msg("Unknown log level, using debug")
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if logConfig.DiagnosticsFile == "" {
		return func() {}
	}
	f, err := os.OpenFile(logConfig.DiagnosticsFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Warn().Err(err).Str("file", logConfig.DiagnosticsFile).Msg("Diagnostics file unavailable")
		return func() {}
	}
	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, f)).With().Timestamp().Caller().Logger()
	return func() { f.Close() }
}

func openStore(ctx context.Context, cfg *config.Config) (vectorstore.Store, error) {
	if cfg.Database.Driver == "chromem" && !cfg.Chromem.InMemory {
		if err := helper.CreateFolder(cfg.Chromem.Path); err != nil {
			return nil, err
		}
	}
	return vectorstore.Open(ctx, cfg)
}

func newEmbedClient(ctx context.Context, cfg *config.Config) (*embedding.Client, error) {
	embedder, err := llmservice.NewEmbedder(ctx, &cfg.EmbedLLM)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingProvider, err)
	}
	return embedding.NewClient(embedder, &cfg.Embedding, cfg.Database.Dimension)
}

func ingestFile(ctx context.Context, cfg *config.Config, filePath string, dryRun bool) error {
	src, err := parser.Open(filePath)
	if err != nil {
		return err
	}
	defer src.Close()

	c, err := chunker.New(&cfg.RAG)
	if err != nil {
		return err
	}
	reconstructor := layout.NewReconstructor(&cfg.Layout)
	log.Info().Str("file", filePath).Int("pages", src.NumPages()).Str("policy", cfg.RAG.Policy).Msg("Ingesting catalog")

	if dryRun {
		chunks, err := ingest.New(reconstructor, c, nil, nil).Plan(src)
		if err != nil {
			return err
		}
		helper.PrettyPrint(chunks)
		log.Info().Int("chunks", len(chunks)).Msg("Dry run finished")
		return nil
	}

	client, err := newEmbedClient(ctx, cfg)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := ingest.New(reconstructor, c, client, store).Run(ctx, src)
	if report != nil && len(report.Failures) > 0 {
		helper.PrettyPrint(report.Failures)
	}
	return err
}

func newService(ctx context.Context, cfg *config.Config, store vectorstore.Store) (*rag.Service, error) {
	client, err := newEmbedClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	routerLLM, err := llmservice.NewProvider(ctx, &cfg.RouterLLM)
	if err != nil {
		return nil, err
	}
	chatLLM, err := llmservice.NewProvider(ctx, &cfg.ChatLLM)
	if err != nil {
		return nil, err
	}
	r, err := router.New(routerLLM, &cfg.Router, &cfg.Retrieval)
	if err != nil {
		return nil, err
	}
	assembler := rag.NewContextAssembler(client, store, &cfg.Retrieval)
	return rag.NewService(r, assembler, chatLLM, &cfg.Chat)
}

func answerQuery(ctx context.Context, cfg *config.Config, query string) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := newService(ctx, cfg, store)
	if err != nil {
		return err
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	response, err := svc.Answer(ctx, []models.Message{{Role: models.RoleUser, Content: query}}, func(chunk string) error {
		_, err := io.WriteString(os.Stdout, chunk)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Print("\n\n")

	log.Info().Str("decision", response.Query).Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Source)
	return nil
}

func serveHTTP(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := newService(ctx, cfg, store)
	if err != nil {
		return err
	}
	srv := server.NewServer(svc, &cfg.Server)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down server")
		return srv.Stop(shutdownCtx)
	}
}
