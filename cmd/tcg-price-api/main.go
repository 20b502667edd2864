package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maltedev/tcg-price-scraper/internal/api"
	"github.com/maltedev/tcg-price-scraper/internal/browser"
	"github.com/maltedev/tcg-price-scraper/internal/config"
	"github.com/maltedev/tcg-price-scraper/internal/events"
	"github.com/maltedev/tcg-price-scraper/internal/parser"
	"github.com/maltedev/tcg-price-scraper/internal/scraper"
	"github.com/maltedev/tcg-price-scraper/pkg/logger"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "json").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Browser setup
	b, err := browser.New(browser.OptionsFromConfig(cfg), log)
	if err != nil {
		log.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	pool := browser.NewPool(b, cfg.Scraper.Workers, cfg.Scraper.OperationTimeout, log)

	// Optional lookup event stream
	var publisher scraper.Publisher
	if cfg.Redis.Enabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("failed to connect to Redis", "error", err, "addr", cfg.Redis.Addr)
			os.Exit(1)
		}
		publisher = events.NewPublisher(redisClient, cfg.Redis.Stream, cfg.Redis.MaxLen, log)
		log.Info("publishing price lookups", "stream", cfg.Redis.Stream)
	}

	// Initialize services
	cardOpts := parser.DefaultCardParserOptions()
	cardOpts.SiteBaseURL = cfg.Scraper.SiteBaseURL
	cards := parser.NewCardParser(cardOpts, log)
	extractor := parser.NewPriceExtractor(parser.DefaultPriceWaits(), log)

	waits := scraper.DefaultWaits()
	searchScraper := scraper.NewSearchScraper(pool, cards, cfg.Scraper.SearchBaseURL, waits, log)
	priceScraper := scraper.NewPriceScraper(pool, extractor, publisher, cfg.Scraper.PriceBaseURL, waits, log)

	handlers := api.NewHandlers(searchScraper, priceScraper, log)
	router := api.NewRouter(handlers, api.RouterOptions{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Scraper.OperationTimeout + 30*time.Second,
		RatePerMinute:  cfg.Server.RatePerMinute,
		RateBurst:      cfg.Server.RateBurst,
	}, log)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "addr", server.Addr, "workers", cfg.Scraper.Workers)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
