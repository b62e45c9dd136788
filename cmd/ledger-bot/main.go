package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zombor/ledger-bot/internal/conversation"
	"github.com/zombor/ledger-bot/internal/datetime"
	"github.com/zombor/ledger-bot/internal/inline"
	"github.com/zombor/ledger-bot/internal/ledger"
	"github.com/zombor/ledger-bot/internal/metrics"
	"github.com/zombor/ledger-bot/internal/scanning"
	"github.com/zombor/ledger-bot/internal/storage"
	"github.com/zombor/ledger-bot/internal/telegram"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env", "error", err)
	}

	flags := ff.NewFlagSet("ledger-bot")
	var (
		port           = flags.IntLong("port", 8080, "HTTP server port")
		token          = flags.StringLong("telegram-token", "", "Telegram bot token")
		apiEndpoint    = flags.StringLong("telegram-api", "", "Telegram API endpoint format (default api.telegram.org)")
		fileEndpoint   = flags.StringLong("telegram-files", "", "Telegram file endpoint format (default api.telegram.org)")
		webhookURL     = flags.StringLong("webhook-url", "", "Public webhook URL to register on startup (optional)")
		webhookSecret  = flags.StringLong("webhook-secret", "", "Secret token expected on webhook deliveries (optional)")
		storeDriver    = flags.StringLong("store", "bolt", "Store driver: 'bolt' or 'postgres'")
		dbPath         = flags.StringLong("db", "ledger-bot.db", "Bolt database file path")
		databaseURL    = flags.StringLong("database-url", "", "PostgreSQL connection URL")
		scratchPath    = flags.StringLong("scratch", "", "Directory for downloaded attachments (default OS temp dir)")
		timeZone       = flags.StringLong("tz", datetime.DefaultZone, "Time zone for transaction dates")
		sessionTTL     = flags.DurationLong("session-ttl", 30*time.Minute, "Idle time before an unfinished entry is dropped")
		visionType     = flags.StringLong("vision", "none", "Transcription fallback: 'none', 'gemini' or 'ollama'")
		geminiKey      = flags.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = flags.StringLong("gemini-model", "gemini-1.5-flash", "Google Gemini model name")
		ollamaURL      = flags.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = flags.StringLong("ollama-model", "llava", "Ollama model name")
		tessdata       = flags.StringLong("tessdata", "", "Tesseract tessdata directory (default library path)")
		ocrConcurrency = flags.IntLong("ocr-concurrency", 4, "Recognition passes run in parallel")
		debugOCR       = flags.BoolLong("debug-ocr", "Echo recognized text when no amount is found")
		showVersion    = flags.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(flags, os.Args[1:],
		ff.WithEnvVarPrefix("LEDGER_BOT"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := datetime.LoadLocation(*timeZone)
	if err != nil {
		slog.Error("Invalid time zone", "tz", *timeZone, "error", err)
		os.Exit(1)
	}
	dates := datetime.NewNormalizer(loc)

	// Initialize store
	slog.Info("Initializing store...", "driver", *storeDriver)
	var store ledger.Store
	switch *storeDriver {
	case "bolt":
		store, err = ledger.NewBoltStore(*dbPath)
	case "postgres":
		var pg *ledger.PostgresStore
		pg, err = ledger.NewPostgresStore(ctx, *databaseURL, dates.Location())
		if err == nil {
			if err = pg.Migrate(ctx); err != nil {
				pg.Close()
			}
		}
		store = pg
	default:
		err = fmt.Errorf("unknown store driver %q, want bolt or postgres", *storeDriver)
	}
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	cached, err := ledger.NewCachedStore(store)
	if err != nil {
		slog.Error("Failed to initialize lookup cache", "error", err)
		os.Exit(1)
	}
	defer cached.Close()

	// Initialize transcription fallback based on type
	var transcriber scanning.Transcriber
	switch *visionType {
	case "none", "":
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini transcriber...", "model", *geminiModel)
		transcriber, err = scanning.NewGemini(apiKey, *geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama transcriber...", "url", *ollamaURL, "model", *ollamaModel)
		transcriber, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
	default:
		err = fmt.Errorf("invalid vision type %q, want none, gemini or ollama", *visionType)
	}
	if err != nil {
		slog.Error("Failed to initialize transcriber", "error", err)
		os.Exit(1)
	}
	if transcriber != nil {
		defer transcriber.Close()
	}

	scratch, err := storage.NewLocalStorage(*scratchPath)
	if err != nil {
		slog.Error("Failed to initialize scratch storage", "error", err)
		os.Exit(1)
	}

	sessions := conversation.NewSessionStore(*sessionTTL)
	defer sessions.Stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	// The engine is built after the collectors it reports to; /metrics is not served before then.
	var engine *conversation.Engine
	m, err := metrics.New("ledger_bot", registry, func() int { return engine.ActiveSessions() })
	if err != nil {
		slog.Error("Failed to register metrics", "error", err)
		os.Exit(1)
	}

	recognizer := scanning.NewRecognizer(scanning.NewTesseract(*tessdata), scanning.Config{
		Transcriber: transcriber,
		Concurrency: *ocrConcurrency,
		Observer:    m,
	})

	slog.Info("Connecting to Telegram...")
	bot, err := telegram.NewBot(telegram.Config{
		Token:        *token,
		APIEndpoint:  *apiEndpoint,
		FileEndpoint: *fileEndpoint,
	})
	if err != nil {
		slog.Error("Failed to initialize Telegram bot", "error", err)
		os.Exit(1)
	}
	if *webhookURL != "" {
		if err := bot.RegisterWebhook(*webhookURL, *webhookSecret); err != nil {
			slog.Error("Failed to register webhook", "error", err)
			os.Exit(1)
		}
		slog.Info("Webhook registered", "url", *webhookURL)
	}

	engine, err = conversation.NewEngine(conversation.Deps{
		Sessions:   sessions,
		Ledger:     ledger.NewService(cached, dates),
		Messenger:  bot,
		Fetcher:    bot,
		Scratch:    scratch,
		Recognizer: recognizer,
		Parser:     inline.NewParser(dates),
		Dates:      dates,
		Observer:   m,
		DebugOCR:   *debugOCR,
	})
	if err != nil {
		slog.Error("Failed to initialize conversation engine", "error", err)
		os.Exit(1)
	}

	server := telegram.NewServer(engine, *webhookSecret, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Bot started", "username", bot.Username(), "address", addr, "version", version)
	if err := server.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	slog.Info("Shutting down...")
}
