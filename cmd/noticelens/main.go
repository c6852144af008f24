package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/noticelens/noticelens/internal/extraction"
	"github.com/noticelens/noticelens/internal/notice"
	"github.com/noticelens/noticelens/internal/summarizing"
	"github.com/noticelens/noticelens/internal/user"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// config aggregates everything read at startup. Components receive the
// values they need through their constructors; there is no package-level
// mutable state.
type config struct {
	port            int
	dbHost          string
	dbPort          string
	dbUser          string
	dbPassword      string
	dbName          string
	dbSSLMode       string
	geminiKey       string
	geminiModel     string
	upstreamTimeout time.Duration
}

func (c config) dsn() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.dbHost, c.dbPort, c.dbUser, c.dbPassword, c.dbName, c.dbSSLMode)
}

// fallbackEnv returns val, or the named environment variable when val is
// empty. The bare names match the original deployment environment.
func fallbackEnv(val, key string) string {
	if val != "" {
		return val
	}
	return os.Getenv(key)
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A local .env is optional; deployed environments set variables directly
	_ = godotenv.Load()

	fs := ff.NewFlagSet("noticelens")
	var (
		port            = fs.IntLong("port", 8080, "HTTP server port")
		dbHost          = fs.StringLong("db-host", "", "PostgreSQL host (or set DB_HOST env var)")
		dbPort          = fs.StringLong("db-port", "", "PostgreSQL port (or set DB_PORT env var)")
		dbUser          = fs.StringLong("db-user", "", "PostgreSQL user (or set DB_USER env var)")
		dbPassword      = fs.StringLong("db-password", "", "PostgreSQL password (or set DB_PASSWORD env var)")
		dbName          = fs.StringLong("db-name", "", "PostgreSQL database name (or set DB_NAME env var)")
		dbSSLMode       = fs.StringLong("db-ssl-mode", "", "PostgreSQL SSL mode (or set DB_SSL_MODE env var)")
		geminiKey       = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel     = fs.StringLong("gemini-model", "gemini-1.5-flash", "Google Gemini model name")
		upstreamTimeout = fs.DurationLong("upstream-timeout", 45*time.Second, "Timeout for the AI provider call")
		showVersion     = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("NOTICELENS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if envPort := os.Getenv("PORT"); envPort != "" && *port == 8080 {
		fmt.Sscanf(envPort, "%d", port)
	}

	cfg := config{
		port:            *port,
		dbHost:          fallbackEnv(*dbHost, "DB_HOST"),
		dbPort:          fallbackEnv(*dbPort, "DB_PORT"),
		dbUser:          fallbackEnv(*dbUser, "DB_USER"),
		dbPassword:      fallbackEnv(*dbPassword, "DB_PASSWORD"),
		dbName:          fallbackEnv(*dbName, "DB_NAME"),
		dbSSLMode:       fallbackEnv(*dbSSLMode, "DB_SSL_MODE"),
		geminiKey:       fallbackEnv(*geminiKey, "GEMINI_API_KEY"),
		geminiModel:     *geminiModel,
		upstreamTimeout: *upstreamTimeout,
	}
	if cfg.dbPort == "" {
		cfg.dbPort = "5432"
	}
	if cfg.dbSSLMode == "" {
		cfg.dbSSLMode = "require"
	}

	if cfg.geminiKey == "" {
		slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
		os.Exit(1)
	}

	ctx := context.Background()

	slog.Info("Initializing credential store...", "host", cfg.dbHost, "database", cfg.dbName)
	store, err := user.NewPostgresStore(ctx, cfg.dsn())
	if err != nil {
		slog.Error("Failed to initialize credential store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := store.EnsureSchema(schemaCtx); err != nil {
		// Auth requests will keep reporting the failure individually
		slog.Warn("Failed to ensure users table, continuing", "error", err)
	}
	cancel()

	slog.Info("Initializing Gemini summarizer...", "model", cfg.geminiModel, "timeout", cfg.upstreamTimeout)
	summarizer, err := summarizing.NewGemini(cfg.geminiKey, cfg.geminiModel, cfg.upstreamTimeout)
	if err != nil {
		slog.Error("Failed to initialize Gemini", "error", err)
		os.Exit(1)
	}
	defer summarizer.Close()

	noticeService := notice.NewService(extraction.NewPDF(), summarizer)
	userService := user.NewService(store)
	server := notice.NewServer(noticeService, userService)

	addr := fmt.Sprintf(":%d", cfg.port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
