// Package main is the yomu CLI entry point.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/yomu/internal/answer"
	"github.com/hyperjump/yomu/internal/changes"
	"github.com/hyperjump/yomu/internal/cli"
	"github.com/hyperjump/yomu/internal/completion"
	"github.com/hyperjump/yomu/internal/config"
	"github.com/hyperjump/yomu/internal/crawl"
	"github.com/hyperjump/yomu/internal/embedding"
	"github.com/hyperjump/yomu/internal/extract"
	"github.com/hyperjump/yomu/internal/fetch"
	"github.com/hyperjump/yomu/internal/indexer"
	"github.com/hyperjump/yomu/internal/keyword"
	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/pipeline"
	"github.com/hyperjump/yomu/internal/retrieval"
	"github.com/hyperjump/yomu/internal/server"
	"github.com/hyperjump/yomu/internal/storage"
	"github.com/hyperjump/yomu/internal/vector"
	"github.com/hyperjump/yomu/internal/watcher"
	"github.com/hyperjump/yomu/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "config.yaml"

// loadConfig loads config from path. A missing file at the default path falls back to
// built-in defaults; the returned path is then empty.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg, err := config.LoadDefault()
			return cfg, "", err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return cfg, abs, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "chat":
		runChat()
	case "serve", "server":
		runServe()
	case "sources":
		runSources()
	case "events":
		runEvents()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("yomu version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// commonFlags registers the flags every command shares.
func commonFlags(fs *flag.FlagSet) (configPath *string, debug *bool) {
	configPath = fs.String("config", defaultConfigPath, "config file path (.yaml or .toml)")
	debug = fs.Bool("debug", false, "enable debug logging")
	return configPath, debug
}

func outputFlag(fs *flag.FlagSet) *string {
	return fs.String("output", "text", "output format: text or json")
}

// setup loads config, builds a logger and initializes components. Any failure exits 1.
func setup(configPath string, debugFlag bool, interactive bool) (*config.Config, string, *zap.Logger, *Components) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	var logger *zap.Logger
	if interactive {
		logger, err = utils.NewCLILogger(debugMode)
	} else {
		logger, err = utils.NewLogger(debugMode)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize components", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	return cfg, resolved, logger, components
}

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

// argsReorder moves flags ahead of positional words so "yomu ask what is grace --output json" works.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	seed := fs.String("seed", "", "seed URL (default: crawl.seed_url)")
	depth := fs.Int("depth", -1, "maximum link depth from the seed (default: crawl.max_depth)")
	maxPages := fs.Int("max-pages", 0, "maximum HTML pages to fetch (default: crawl.max_pages)")
	fullReset := fs.Bool("full-reset", false, "forget fingerprints and drop all chunks before crawling")
	output := outputFlag(fs)
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*output)

	_, _, logger, components := setup(*configPath, *debug, true)
	defer logger.Sync()
	defer components.Close()

	req := &models.IngestRequest{SeedURL: *seed, MaxPages: *maxPages, FullReset: *fullReset}
	if *depth >= 0 {
		req.MaxDepth = depth
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	report, err := components.Pipeline.Run(ctx, req)
	if report != nil {
		_ = cli.WriteReport(os.Stdout, report, format)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingestion failed: %v\n", err)
		components.Close()
		os.Exit(1)
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	topK := fs.Int("top-k", 0, "number of chunks to retrieve (default: retrieval.top_k)")
	output := outputFlag(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: yomu ask [flags] <question>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))
	format := parseFormat(*output)

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fs.Usage()
		os.Exit(1)
	}

	_, _, logger, components := setup(*configPath, *debug, true)
	defer logger.Sync()
	defer components.Close()

	ans, err := components.Service.Ask(context.Background(), &models.AskRequest{Question: question, TopK: *topK})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to answer: %v\n", err)
		components.Close()
		os.Exit(1)
	}
	_ = cli.WriteAnswer(os.Stdout, ans, format)
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	_ = fs.Parse(os.Args[2:])

	_, _, logger, components := setup(*configPath, *debug, true)
	defer logger.Sync()
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	chat(ctx, components.Service, os.Stdin, os.Stdout)
}

// chat answers one question per input line until quit, exit or EOF.
func chat(ctx context.Context, asker server.Asker, in io.Reader, out io.Writer) {
	fmt.Fprintln(out, "yomu chat: ask about the indexed materials. Type 'quit' or 'exit' to end the session.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			fmt.Fprintln(out, "Goodbye.")
			return
		}
		ans, err := asker.Ask(ctx, &models.AskRequest{Question: line})
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		_ = cli.WriteAnswer(out, ans, cli.OutputText)
		if ctx.Err() != nil {
			return
		}
	}
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	_ = fs.Parse(os.Args[2:])

	cfg, resolved, logger, components := setup(*configPath, *debug, false)
	defer logger.Sync()
	defer components.Close()

	status := func(ctx context.Context) (*pipeline.Status, error) {
		return pipeline.CollectStatus(ctx, components.Storage, components.VectorIndex, &cfg.Storage)
	}
	srv := server.NewServer(components.Service, components.Pipeline, components.Storage, status, &cfg.Server, logger)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if resolved != "" {
		w := watcher.NewWatcher([]string{resolved}, func(path string) {
			components.Reload(path)
		}, watcher.WithLogger(logger))
		if err := w.Start(watchCtx); err != nil {
			logger.Warn("Config watcher not started", zap.String("path", resolved), zap.Error(err))
		}
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runSources() {
	fs := flag.NewFlagSet("sources", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	offset := fs.Int("offset", 0, "skip this many sources")
	limit := fs.Int("limit", 100, "maximum sources to list (0 = all)")
	output := outputFlag(fs)
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*output)

	_, _, logger, components := setup(*configPath, *debug, true)
	defer logger.Sync()
	defer components.Close()

	sources, err := components.Storage.ListSources(context.Background(), *offset, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list sources: %v\n", err)
		components.Close()
		os.Exit(1)
	}
	_ = cli.WriteSources(os.Stdout, sources, format)
}

func runEvents() {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	limit := fs.Int("limit", 50, "maximum events to list, newest first (0 = all)")
	output := outputFlag(fs)
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*output)

	_, _, logger, components := setup(*configPath, *debug, true)
	defer logger.Sync()
	defer components.Close()

	events, err := components.Storage.ListEvents(context.Background(), *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list events: %v\n", err)
		components.Close()
		os.Exit(1)
	}
	_ = cli.WriteEvents(os.Stdout, events, format)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	output := outputFlag(fs)
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*output)

	cfg, _, logger, components := setup(*configPath, *debug, true)
	defer logger.Sync()
	defer components.Close()

	st, err := pipeline.CollectStatus(context.Background(), components.Storage, components.VectorIndex, &cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to collect status: %v\n", err)
		components.Close()
		os.Exit(1)
	}
	_ = cli.WriteStatus(os.Stdout, st, cfg.Retrieval.Strategy, format)
}

// Components holds every wired dependency for one process.
type Components struct {
	Config       *config.Config
	Storage      storage.Storage
	Embedder     embedding.Embedder
	VectorIndex  vector.VectorIndex
	KeywordIndex *keyword.BleveIndex
	Completer    completion.Completer
	Indexer      *indexer.Indexer
	Pipeline     *pipeline.Pipeline
	Service      *answer.Service
	logger       *zap.Logger
	closed       bool
}

// Close saves the vector index and releases every resource. Safe to call twice.
func (c *Components) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.Embedder != nil && c.VectorIndex != nil && c.Config.Storage.VectorIndexPath != "" {
		if err := c.VectorIndex.Save(c.Config.Storage.VectorIndexPath); err != nil {
			c.logger.Warn("vector index save failed", zap.String("path", c.Config.Storage.VectorIndexPath), zap.Error(err))
		}
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// Reload re-reads the config file and swaps the retrieval and answer settings. Storage,
// crawl and model settings need a restart.
func (c *Components) Reload(path string) {
	cfg, err := config.Load(path)
	if err != nil {
		c.logger.Warn("Config reload failed; keeping previous settings", zap.String("path", path), zap.Error(err))
		return
	}
	retriever, err := c.newRetriever(&cfg.Retrieval)
	if err != nil {
		c.logger.Warn("Config reload rejected", zap.String("path", path), zap.Error(err))
		return
	}
	composer := answer.NewComposer(c.Completer, &cfg.Answer, answer.WithLogger(c.logger))
	c.Service.Reconfigure(retriever, composer, cfg.Retrieval.TopK)
	c.logger.Info("Config reloaded",
		zap.String("path", path),
		zap.String("strategy", cfg.Retrieval.Strategy),
		zap.Int("top_k", cfg.Retrieval.TopK))
}

func (c *Components) newRetriever(cfg *config.RetrievalConfig) (*retrieval.Retriever, error) {
	return retrieval.New(cfg, retrieval.Dependencies{
		Store:    c.Storage,
		Embedder: c.Embedder,
		Vectors:  c.VectorIndex,
		Keywords: c.KeywordIndex,
		Logger:   c.logger,
	})
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{Config: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	embedder, err := embedding.New(&cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Embedder = embedder

	dims := cfg.Embedding.Dimensions
	if embedder != nil {
		dims = embedder.Dimensions()
	}
	vectorIndex, err := vector.NewVectorIndex(cfg.Storage.VectorIndexType, dims)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize vector index: %w", models.ErrConfiguration, err)
	}
	if embedder != nil && cfg.Storage.VectorIndexPath != "" {
		if loadErr := vectorIndex.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
			logger.Warn("vector index load skipped; rebuilding from stored embeddings",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
		}
	}
	c.VectorIndex = vectorIndex

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.KeywordIndex = keywordIndex

	idx := indexer.NewIndexer(store, embedder, vectorIndex, keywordIndex, &cfg.Chunking, indexer.WithLogger(logger))
	if err := idx.Sync(context.Background()); err != nil {
		logger.Warn("index sync failed", zap.Error(err))
	}
	c.Indexer = idx

	fetcher := fetch.NewFetcher(&cfg.Crawl, fetch.WithLogger(logger))
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithVectorFile(vectorIndex, cfg.Storage.VectorIndexPath),
	}
	if cfg.Crawl.RespectRobots {
		client := &http.Client{Timeout: cfg.Crawl.GetTimeout()}
		opts = append(opts, pipeline.WithRobots(crawl.NewRobotsChecker(client, fetcher.UserAgent(), logger,
			crawl.WithRobotsLimiter(fetcher.Limiter()))))
	}
	tracker := changes.NewTracker(store, changes.WithLogger(logger))
	c.Pipeline = pipeline.New(store, tracker, idx, fetcher, extract.NewExtractor(), &cfg.Crawl, opts...)

	retriever, err := c.newRetriever(&cfg.Retrieval)
	if err != nil {
		return nil, err
	}
	completer, err := completion.New(&cfg.Completion)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize completion: %w", err)
	}
	c.Completer = completer
	composer := answer.NewComposer(completer, &cfg.Answer, answer.WithLogger(logger))
	c.Service = answer.NewService(retriever, composer, cfg.Retrieval.TopK, store, logger)

	logger.Debug("components initialized",
		zap.String("strategy", retriever.Name()),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.Bool("generative", composer.Generative()),
		zap.Int("vectors", vectorIndex.Size()))
	ok = true
	return c, nil
}

func printUsage() {
	fmt.Println(`yomu - incremental crawl, index and answer pipeline

Usage:
  yomu ingest [flags]            Crawl the seed site and index new or changed sources
  yomu ask [flags] <question>    Answer a question from the indexed materials
  yomu chat [flags]              Interactive question loop on stdin
  yomu serve [flags]             Start the HTTP API
  yomu sources [flags]           List tracked sources
  yomu events [flags]            Show the ingest log, newest first
  yomu status [flags]            Show storage and index counts
  yomu version                   Show version
  yomu help                      Show this help

Common Flags:
  --config string    Config file path, .yaml or .toml (default: ./config.yaml, built-in defaults when absent)
  --debug            Enable debug logging

Ingest Flags:
  --seed string      Seed URL (default: crawl.seed_url)
  --depth int        Maximum link depth (default: crawl.max_depth)
  --max-pages int    Maximum HTML pages per run (default: crawl.max_pages)
  --full-reset       Forget fingerprints and drop all chunks first
  --output string    Output format: text or json (default: text)

Ask Flags:
  --top-k int        Chunks to retrieve (default: retrieval.top_k)
  --output string    Output format: text or json (default: text)

Examples:
  yomu ingest --seed https://example.org/studies --depth 2
  yomu ingest --full-reset
  yomu ask what does the text say about grace
  yomu ask --output json "What is faith?"
  yomu chat
  yomu serve --config /etc/yomu/config.toml
  yomu events --limit 20`)
}
