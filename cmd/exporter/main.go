package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"swiggy_order_exporter/internal/browser"
	"swiggy_order_exporter/internal/capture"
	"swiggy_order_exporter/internal/config"
	"swiggy_order_exporter/internal/drive"
	"swiggy_order_exporter/internal/ledger"
	"swiggy_order_exporter/internal/models"
	"swiggy_order_exporter/internal/parser"
	"swiggy_order_exporter/internal/scraper"
)

func main() {
	envLoaded := godotenv.Load() == nil

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	configureLogging(cfg.Logging)
	log.Logger = log.With().Str("run", uuid.NewString()).Logger()

	if envLoaded {
		log.Debug().Msg("loaded environment from .env")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := os.MkdirAll(cfg.Scrape.BillsDir, 0755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Scrape.BillsDir).Msg("failed to create bills directory")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn().Msg("shutdown signal received")
		cancel()
	}()

	rows, err := collectOrders(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Int("rows", len(rows)).Msg("order extraction stopped early, continuing with what was collected")
	}

	if len(rows) == 0 {
		log.Info().Str("location", cfg.Site.DeliveryLocation).Msg("no qualifying orders found, nothing to synchronize")
		return
	}

	syncLedger(ctx, cfg, rows)
}

// collectOrders drives the browser through the manual login and the order
// walk. Rows gathered before any failure are returned alongside the error so
// the caller can still synchronize a partial batch.
func collectOrders(ctx context.Context, cfg *config.Config) ([]models.OrderRow, error) {
	uploader, err := drive.NewUploader(ctx, cfg.Drive.ServiceAccountFile, cfg.Drive.FolderID)
	if err != nil {
		return nil, err
	}

	b, err := browser.Launch(&browser.Options{
		UserDataDir:    cfg.Browser.UserDataDir,
		ExecutablePath: cfg.Browser.ExecutablePath,
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
	})
	if err != nil {
		return nil, err
	}
	defer b.Close()

	session := browser.NewSession(b.Page())

	if err := session.Navigate(cfg.Site.URL); err != nil {
		return nil, err
	}

	log.Info().Msg("log in if needed, then open the orders page in the browser window")
	log.Info().Str("pattern", cfg.Site.OrdersURLPattern).Msg("waiting for the orders page")

	// No timeout here: the login is manual and takes as long as it takes.
	if err := session.WaitForURLPattern(cfg.Site.OrdersURLPattern, 0); err != nil {
		return nil, err
	}

	log.Info().Msg("orders page detected, starting extraction")
	session.WaitQuiet(cfg.Scrape.QuietTimeout)

	captures, err := capture.Open(filepath.Join(cfg.Scrape.BillsDir, "captures.json"))
	if err != nil {
		log.Warn().Err(err).Msg("capture manifest unavailable, continuing without it")
	}

	s := scraper.NewOrderScraper(session, parser.NewSwiggyParser(), uploader, scraper.Options{
		BillsDir:         cfg.Scrape.BillsDir,
		DeliveryLocation: cfg.Site.DeliveryLocation,
		Captures:         captures,
		Tunables:         tunables(cfg.Scrape),
	})

	return s.Run(ctx)
}

// syncLedger pushes the batch into the spreadsheet. Failures are reported,
// not fatal: the captures are already uploaded and the next run merges
// cleanly on order id.
func syncLedger(ctx context.Context, cfg *config.Config, rows []models.OrderRow) {
	mode, err := ledger.ParseMergeMode(cfg.Ledger.MergeMode)
	if err != nil {
		log.Error().Err(err).Msg("ledger synchronization skipped")
		return
	}

	client, err := ledger.NewGoogleClient(ctx, cfg.Ledger.ServiceAccountFile)
	if err != nil {
		log.Error().Err(err).Msg("failed to reach the ledger")
		return
	}

	url, err := ledger.NewSynchronizer(client).Sync(ctx, rows, cfg.Ledger.SheetName, cfg.Ledger.WorksheetName, mode)
	if err != nil {
		log.Error().Err(err).Msg("ledger synchronization failed")
		return
	}

	log.Info().Int("rows", len(rows)).Str("url", url).Msg("ledger updated")
}

func tunables(sc config.ScrapeConfig) scraper.Tunables {
	return scraper.Tunables{
		ShowMoreTimeout: sc.ShowMoreTimeout,
		OverlayTimeout:  sc.OverlayTimeout,
		OverlaySettle:   sc.OverlaySettle,
		ItemSettle:      sc.ItemSettle,
		MarkerTimeout:   sc.MarkerTimeout,
		ReloadTimeout:   sc.ReloadTimeout,
		QuietTimeout:    sc.QuietTimeout,
		ClickTimeout:    sc.ClickTimeout,
	}
}

func configureLogging(cfg config.LoggingConfig) {
	if cfg.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
