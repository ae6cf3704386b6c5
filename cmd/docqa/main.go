package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/lifecycle"
	"docqa/internal/llm"
	"docqa/internal/loader"
	"docqa/internal/logging"
	"docqa/internal/progress"
	"docqa/internal/prompt"
	"docqa/internal/retrieval"
	"docqa/internal/service"
	"docqa/internal/tui"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/file"
	"docqa/internal/vectorstore/sqlite"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		// "error:" keeps system failures distinct from refusals
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the pipeline from flags and config, then answers one question
// or starts the TUI. Every resource opened here is closed before it returns.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		cfgPath  string
		question string
		rebuild  bool
	)
	fs := flag.NewFlagSet("docqa", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ./config.yaml or ~/.config/docqa/config.yaml if not provided)")
	fs.StringVar(&question, "ask", "", "Answer a single question and exit")
	fs.BoolVar(&rebuild, "rebuild", false, "Rebuild the index from the corpus before answering")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, cfgPath, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closeLog, err := logging.New(cfg.Logging, stderr)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closeLog()
	logger.Debug("Loaded config", slog.String("path", cfgPath))

	fail := func(msg string, err error) error {
		logger.Error(msg, slog.Any("error", err))
		return fmt.Errorf("%s: %w", msg, err)
	}

	// Assemble components
	emb, err := embedding.New(cfg.Embedder)
	if err != nil {
		return fail("embedder init failed", err)
	}
	if c, ok := emb.(interface{ Close() error }); ok {
		defer c.Close()
	}

	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "fixed", "":
		ch, err = chunker.NewFixedChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	case "sentence":
		ch, err = chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	default:
		err = fmt.Errorf("unknown chunker: %s", cfg.Chunker.Type)
	}
	if err != nil {
		return fail("chunker init failed", err)
	}

	var st vectorstore.Storage
	switch cfg.Index.Type {
	case "file", "":
		st = file.NewStorage(cfg.Index.Path, cfg.Index.Namespace)
	case "sqlite":
		if cfg.Index.SQLite == nil {
			return fail("index init failed", errors.New("sqlite config missing"))
		}
		db, err := sqlite.Open(cfg.Index.SQLite.Path, cfg.Index.Namespace)
		if err != nil {
			return fail("index init failed", err)
		}
		defer db.Close()
		st = db
	default:
		return fail("index init failed", fmt.Errorf("unknown index storage: %s", cfg.Index.Type))
	}

	mgr := lifecycle.New(loader.New(cfg.Corpus.Dir, cfg.Corpus.Patterns), ch, emb, st, logger)
	mgr.SetProgress(progress.New())
	var ix *vectorstore.Index
	if rebuild {
		ix, err = mgr.Rebuild(ctx)
	} else {
		ix, err = mgr.EnsureReady(ctx)
	}
	if err != nil {
		return fail("index not ready", err)
	}

	model, err := llm.New(cfg.LLM)
	if err != nil {
		return fail("llm init failed", err)
	}
	asm, err := prompt.NewFromFile(cfg.Prompt.TemplateFile, cfg.Prompt.ChunkCharLimit, cfg.Prompt.MaxPromptChars)
	if err != nil {
		return fail("prompt init failed", err)
	}
	ret := retrieval.New(emb, cfg.Retrieval.TopK, cfg.Retrieval.Threshold())
	svc := service.NewRAGService(ix, ret, asm, model, logger)

	if question != "" {
		a, err := svc.Answer(ctx, question)
		if err != nil {
			return fail("answer failed", err)
		}
		printAnswer(stdout, a)
		return nil
	}

	summary := fmt.Sprintf("%d chunks from %s | embedder %s | llm %s", ix.Len(), cfg.Corpus.Dir, ix.Model, cfg.LLM.Type)
	if _, err := tea.NewProgram(tui.New(ctx, svc, summary), tea.WithContext(ctx), tea.WithOutput(stdout)).Run(); err != nil {
		return fail("tui failed", err)
	}
	return nil
}
