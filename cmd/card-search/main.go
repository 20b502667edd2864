package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/maltedev/tcg-price-scraper/internal/browser"
	"github.com/maltedev/tcg-price-scraper/internal/config"
	"github.com/maltedev/tcg-price-scraper/internal/dom"
	"github.com/maltedev/tcg-price-scraper/internal/models"
	"github.com/maltedev/tcg-price-scraper/internal/parser"
	"github.com/maltedev/tcg-price-scraper/internal/scraper"
	"github.com/maltedev/tcg-price-scraper/pkg/logger"
)

func main() {
	var (
		query      = flag.String("q", "", "Suggestion search text")
		cardName   = flag.String("card", "", "Card name for a price lookup")
		setName    = flag.String("set", "", "Set name for a price lookup (optional)")
		isFoil     = flag.Bool("foil", false, "Look up the foil printing")
		page       = flag.Int("page", 1, "Results page for suggestion search")
		pageSize   = flag.Int("page-size", scraper.DefaultPageSize, "Suggestions per page (1-50)")
		htmlFile   = flag.String("html", "", "Extract from a saved results page instead of a live browser")
		outputFile = flag.String("output", "", "Also write suggestions to this CSV file")
		headless   = flag.Bool("headless", true, "Run browser in headless mode")
	)
	flag.Parse()

	if (*query == "") == (*cardName == "") {
		fmt.Fprintln(os.Stderr, "Provide either -q for suggestions or -card for a price lookup")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// JSON goes to stdout, logs to stderr
	logger := logger.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	renderer, closeRenderer, err := newRenderer(cfg, *htmlFile, *headless, logger)
	if err != nil {
		logger.Error("Failed to initialize renderer", "error", err)
		os.Exit(1)
	}
	defer closeRenderer()

	cardOpts := parser.DefaultCardParserOptions()
	cardOpts.SiteBaseURL = cfg.Scraper.SiteBaseURL
	waits := scraper.DefaultWaits()

	var result any
	if *query != "" {
		cards := parser.NewCardParser(cardOpts, logger)
		searchScraper := scraper.NewSearchScraper(renderer, cards, cfg.Scraper.SearchBaseURL, waits, logger)

		resp, err := searchScraper.Search(ctx, *query, *page, *pageSize)
		if err != nil {
			logger.Error("Failed to search suggestions", "error", err)
			os.Exit(1)
		}
		if *outputFile != "" {
			if err := writeCSV(*outputFile, resp.Results); err != nil {
				logger.Error("Failed to write CSV", "error", err)
				os.Exit(1)
			}
			logger.Info("Wrote suggestions", "file", *outputFile, "count", len(resp.Results))
		}
		result = resp
	} else {
		extractor := parser.NewPriceExtractor(parser.DefaultPriceWaits(), logger)
		priceScraper := scraper.NewPriceScraper(renderer, extractor, nil, cfg.Scraper.PriceBaseURL, waits, logger)

		price, err := priceScraper.FetchPrice(ctx, models.CardQuery{CardName: *cardName, SetName: *setName, IsFoil: *isFoil})
		if err != nil {
			logger.Error("Failed to fetch price", "error", err)
			os.Exit(1)
		}
		result = price
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Error("Failed to encode result", "error", err)
		os.Exit(1)
	}
}

// newRenderer returns a live browser pool, or a renderer that serves the
// saved page for every URL when htmlFile is set.
func newRenderer(cfg *config.Config, htmlFile string, headless bool, logger *slog.Logger) (scraper.Renderer, func(), error) {
	if htmlFile != "" {
		return fileRenderer{path: htmlFile}, func() {}, nil
	}

	opts := browser.OptionsFromConfig(cfg)
	opts.Headless = headless && opts.Headless

	b, err := browser.New(opts, logger)
	if err != nil {
		return nil, nil, err
	}
	pool := browser.NewPool(b, 1, cfg.Scraper.OperationTimeout, logger)
	return pool, func() { b.Close() }, nil
}

type fileRenderer struct {
	path string
}

func (f fileRenderer) Render(_ context.Context, url string) (dom.Page, func(), error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", f.path, err)
	}
	defer file.Close()

	doc, err := dom.NewDocument(file, url)
	if err != nil {
		return nil, nil, err
	}
	return doc, func() {}, nil
}

func writeCSV(path string, results []models.SearchSuggestion) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	writer.Write([]string{"card_name", "set_name", "card_number", "rarity", "card_type", "color", "market_price", "product_url"})
	for _, s := range results {
		price := ""
		if s.MarketPrice != nil {
			price = strconv.FormatFloat(*s.MarketPrice, 'f', 2, 64)
		}
		writer.Write([]string{
			s.CardName,
			deref(s.SetName),
			deref(s.CardNumber),
			deref(s.Rarity),
			deref(s.CardType),
			deref(s.Color),
			price,
			deref(s.ProductURL),
		})
	}
	writer.Flush()
	return writer.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
