package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/dwalters/scrapeflow/internal/browser"
	"github.com/dwalters/scrapeflow/internal/config"
	"github.com/dwalters/scrapeflow/internal/database"
	"github.com/dwalters/scrapeflow/internal/export"
	"github.com/dwalters/scrapeflow/internal/records"
	"github.com/dwalters/scrapeflow/internal/scraper"
	"github.com/dwalters/scrapeflow/internal/stream"
	"github.com/dwalters/scrapeflow/pkg/logger"
)

func main() {
	var (
		startURL  = flag.String("url", "", "Start URL of the paginated listing to scrape")
		profile   = flag.String("profile", "", "Extraction profile (quotes, books)")
		maxPages  = flag.Int("max-pages", 0, "Maximum number of pages to visit (0 = unbounded)")
		csvPath   = flag.String("csv", "", "Write results to this CSV file")
		xlsxPath  = flag.String("xlsx", "", "Write results to this XLSX file")
		headless  = flag.Bool("headless", true, "Run browser in headless mode")
		strict    = flag.Bool("strict", false, "Fail when a page yields zero records")
		timeout   = flag.Duration("timeout", 0, "Explicit wait timeout per page (e.g. 10s)")
		pageDelay = flag.Duration("page-delay", 0, "Polite delay between pagination clicks")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logg := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	if *startURL == "" {
		fmt.Fprintln(os.Stderr, "No start URL given. Use -url to point at a paginated listing.")
		flag.Usage()
		os.Exit(1)
	}

	// Flags win over environment configuration.
	if *profile != "" {
		cfg.Scraper.Profile = *profile
	}
	if *maxPages > 0 {
		cfg.Scraper.MaxPages = *maxPages
	}
	if *strict {
		cfg.Scraper.Strict = true
	}
	if *timeout > 0 {
		cfg.Scraper.Timeout = *timeout
	}
	if *pageDelay > 0 {
		cfg.Scraper.PageDelayMin = *pageDelay
		cfg.Scraper.PageDelayMax = *pageDelay
	}
	if *csvPath != "" {
		cfg.Export.CSVPath = *csvPath
	}
	if *xlsxPath != "" {
		cfg.Export.XLSXPath = *xlsxPath
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logg.Info("shutdown signal received")
		cancel()
	}()

	b, err := browser.New(&browser.Options{
		Headless:       *headless && cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		UserAgent:      browserUserAgent(cfg),
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
		ProxyServer:    cfg.Browser.ProxyServer,
	})
	if err != nil {
		logg.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	svc := scraper.NewService(b, scraper.ServiceOptions{
		Timeout:      cfg.Scraper.Timeout,
		MaxPages:     cfg.Scraper.MaxPages,
		Strict:       cfg.Scraper.Strict,
		PageDelayMin: cfg.Scraper.PageDelayMin,
		PageDelayMax: cfg.Scraper.PageDelayMax,
	})

	if cfg.Database.Enabled {
		db, err := database.New(ctx, database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			logg.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		store := database.NewRunStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			logg.Error("failed to prepare schema", "error", err)
			os.Exit(1)
		}
		svc.SetRunStore(store)
	}

	var publisher *stream.Publisher
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logg.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		publisher = stream.NewPublisher(redisClient, cfg.Redis.Stream)
		svc.AddObserver(publisher)
	}

	run, rs, runErr := svc.Scrape(ctx, scraper.Request{
		StartURL: *startURL,
		Profile:  cfg.Scraper.Profile,
		MaxPages: cfg.Scraper.MaxPages,
		Strict:   cfg.Scraper.Strict,
	})

	if publisher != nil && rs != nil && runErr == nil {
		if err := publisher.PublishRunFinished(ctx, run, rs); err != nil {
			logg.Warn("failed to publish run summary", "error", err)
		}
	}

	exportErr := exportResults(ctx, cfg, rs)

	if runErr != nil {
		var pageErr *scraper.PageError
		if errors.As(runErr, &pageErr) {
			logg.Error("scrape failed",
				"page", pageErr.Page,
				"url", pageErr.URL,
				"error", pageErr.Err,
				"partial_records", rs.Len())
		} else {
			logg.Error("scrape failed", "error", runErr)
		}
		os.Exit(1)
	}
	if exportErr != nil {
		logg.Error("export failed", "error", exportErr)
		os.Exit(1)
	}

	fmt.Printf("Saved %d records from %d pages\n", rs.Len(), rs.Pages())
}

// exportResults writes whatever was gathered, including partial results
// from a failed run, to every configured sink.
func exportResults(ctx context.Context, cfg *config.Config, rs *records.ResultSet) error {
	if rs == nil || rs.Len() == 0 {
		return nil
	}

	var sinks []export.Sink
	if cfg.Export.CSVPath != "" {
		sinks = append(sinks, export.NewCSV(cfg.Export.CSVPath))
	}
	if cfg.Export.XLSXPath != "" {
		sheet := cfg.Export.SheetName
		if sheet == "" {
			sheet = cfg.Scraper.Profile
		}
		sinks = append(sinks, export.NewXLSX(cfg.Export.XLSXPath, sheet))
	}

	for _, sink := range sinks {
		if err := sink.Write(ctx, rs); err != nil {
			return fmt.Errorf("%s export: %w", sink.Name(), err)
		}
	}
	return nil
}

func browserUserAgent(cfg *config.Config) string {
	if cfg.Browser.UserAgent != "" {
		return cfg.Browser.UserAgent
	}
	return browser.DefaultOptions().UserAgent
}
