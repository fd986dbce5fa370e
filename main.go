package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/toolgate/toolgate/internal/adapter/llm"
	"github.com/toolgate/toolgate/internal/adapter/notifier"
	"github.com/toolgate/toolgate/internal/adapter/uploader"
	"github.com/toolgate/toolgate/internal/config"
	"github.com/toolgate/toolgate/internal/discovery"
	"github.com/toolgate/toolgate/internal/executor"
	"github.com/toolgate/toolgate/internal/ledger"
	"github.com/toolgate/toolgate/internal/media"
	"github.com/toolgate/toolgate/internal/normalize"
	"github.com/toolgate/toolgate/internal/provider"
	store "github.com/toolgate/toolgate/internal/repository"
	"github.com/toolgate/toolgate/internal/service"
	"github.com/toolgate/toolgate/internal/transform"
	v1 "github.com/toolgate/toolgate/internal/transport/http/v1"
	"github.com/toolgate/toolgate/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting toolgate...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Discovery TTL: %s", cfg.DiscoveryTTL)
	log.Printf("Auto-approve: %v", cfg.AutoApprove)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Tool providers: builtins plus every configured MCP server
	providers := []provider.Provider{provider.NewBuiltinProvider()}
	for _, srv := range cfg.MCPServers {
		log.Printf("MCP server: %s (%s)", srv.Name, srv.URL)
		providers = append(providers, provider.NewMCPProvider(srv.Name, srv.URL))
	}
	disc := discovery.New(providers, cfg.DiscoveryTTL)

	// Initialize pipeline components
	led := ledger.New()
	mediaCtx := media.New(cfg.AllowGlobalMediaFallback)
	uploadClient := uploader.NewClient(cfg.UploadURL, 30*time.Second)
	transformer := transform.New(mediaCtx, uploadClient)
	engine := executor.New(disc, cfg.RetryMax, cfg.RetryBaseDelay)

	// Summarizer LLM is optional; without it the normalizer falls back
	// to deterministic listings.
	var llmClient llm.Client
	if cfg.LLMURL != "" {
		llmClient = llm.NewOpenAIClient(cfg.LLMURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	}
	normalizer := normalize.New(llmClient)

	notifyClient := notifier.NewClient(cfg.WebhookURL)

	// Initialize policy engine
	ctx := context.Background()
	policyContent := policy.DefaultPolicy
	if cfg.AutoApprove {
		policyContent = policy.AutoApprovePolicy
	}
	policyEngine, err := policy.NewEngine(ctx, policyContent)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize service
	svc := service.New(db, led, disc, transformer, engine, normalizer, notifyClient, policyEngine, cfg)

	// Initialize handler
	h := v1.NewHandler(svc)

	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	h.RegisterRoutes(e)

	// Background sweeper for pending records nobody decided
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	go svc.RunPendingSweeper(sweepCtx)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down toolgate...")
	stopSweeper()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Toolgate stopped")
}
