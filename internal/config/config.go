package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Site    SiteConfig
	Browser BrowserConfig
	Scrape  ScrapeConfig
	Drive   DriveConfig
	Ledger  LedgerConfig
	Logging LoggingConfig
}

type SiteConfig struct {
	URL              string
	OrdersURLPattern string
	DeliveryLocation string
}

type BrowserConfig struct {
	UserDataDir    string
	ExecutablePath string
	Headless       bool
	Timeout        time.Duration
}

type ScrapeConfig struct {
	BillsDir        string
	ShowMoreTimeout time.Duration
	OverlayTimeout  time.Duration
	OverlaySettle   time.Duration
	ItemSettle      time.Duration
	MarkerTimeout   time.Duration
	ReloadTimeout   time.Duration
	QuietTimeout    time.Duration
	ClickTimeout    time.Duration
}

type DriveConfig struct {
	ServiceAccountFile string
	FolderID           string
}

type LedgerConfig struct {
	ServiceAccountFile string
	SheetName          string
	WorksheetName      string
	MergeMode          string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	driveCreds := expandHome(getEnvOrDefault("SERVICE_ACCOUNT_FILE", "credentials.json"))

	cfg := &Config{
		Site: SiteConfig{
			URL:              getEnvOrDefault("SWIGGY_URL", "https://www.swiggy.com/"),
			OrdersURLPattern: getEnvOrDefault("ORDERS_URL_PATTERN", "**/my-account/orders"),
			DeliveryLocation: getEnvOrDefault("DELIVERY_LOCATION", "work"),
		},
		Browser: BrowserConfig{
			UserDataDir:    expandHome(getEnvOrDefault("BRAVE_USER_DATA_DIR", "~/Library/Application Support/BraveSoftware/Brave-Browser/Default")),
			ExecutablePath: expandHome(getEnvOrDefault("BRAVE_EXECUTABLE_PATH", "/Applications/Brave Browser.app/Contents/MacOS/Brave Browser")),
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", false),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
		},
		Scrape: ScrapeConfig{
			BillsDir:        expandHome(getEnvOrDefault("BILLS_DIRECTORY", "./bills")),
			ShowMoreTimeout: getDurationOrDefault("SCRAPE_SHOW_MORE_TIMEOUT", 7*time.Second),
			OverlayTimeout:  getDurationOrDefault("SCRAPE_OVERLAY_TIMEOUT", time.Second),
			OverlaySettle:   getDurationOrDefault("SCRAPE_OVERLAY_SETTLE", 500*time.Millisecond),
			ItemSettle:      getDurationOrDefault("SCRAPE_ITEM_SETTLE", time.Second),
			MarkerTimeout:   getDurationOrDefault("SCRAPE_MARKER_TIMEOUT", 5*time.Second),
			ReloadTimeout:   getDurationOrDefault("SCRAPE_RELOAD_TIMEOUT", 30*time.Second),
			QuietTimeout:    getDurationOrDefault("SCRAPE_QUIET_TIMEOUT", 30*time.Second),
			ClickTimeout:    getDurationOrDefault("SCRAPE_CLICK_TIMEOUT", 30*time.Second),
		},
		Drive: DriveConfig{
			ServiceAccountFile: driveCreds,
			FolderID:           os.Getenv("GOOGLE_DRIVE_FOLDER_ID"),
		},
		Ledger: LedgerConfig{
			ServiceAccountFile: expandHome(getEnvOrDefault("GSHEET_SERVICE_ACCOUNT_FILE", driveCreds)),
			SheetName:          getEnvOrDefault("GOOGLE_SHEET_NAME", "Swiggy Work Orders"),
			WorksheetName:      getEnvOrDefault("WORKSHEET_NAME", "Orders"),
			MergeMode:          getEnvOrDefault("SHEET_MERGE_MODE", "append"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "console"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Site.URL == "" {
		return fmt.Errorf("SWIGGY_URL must not be empty")
	}

	if c.Site.OrdersURLPattern == "" {
		return fmt.Errorf("ORDERS_URL_PATTERN must not be empty")
	}

	if c.Site.DeliveryLocation == "" {
		return fmt.Errorf("DELIVERY_LOCATION must not be empty")
	}

	if c.Browser.UserDataDir == "" {
		return fmt.Errorf("BRAVE_USER_DATA_DIR must not be empty")
	}

	if c.Scrape.BillsDir == "" {
		return fmt.Errorf("BILLS_DIRECTORY must not be empty")
	}

	if c.Ledger.SheetName == "" {
		return fmt.Errorf("GOOGLE_SHEET_NAME must not be empty")
	}

	if c.Ledger.WorksheetName == "" {
		return fmt.Errorf("WORKSHEET_NAME must not be empty")
	}

	if m := c.Ledger.MergeMode; m != "append" && m != "replace" {
		return fmt.Errorf("SHEET_MERGE_MODE must be append or replace, got %q", m)
	}

	if c.Scrape.ShowMoreTimeout <= 0 {
		return fmt.Errorf("SCRAPE_SHOW_MORE_TIMEOUT must be positive")
	}

	if c.Scrape.MarkerTimeout <= 0 {
		return fmt.Errorf("SCRAPE_MARKER_TIMEOUT must be positive")
	}

	if c.Scrape.ReloadTimeout <= 0 {
		return fmt.Errorf("SCRAPE_RELOAD_TIMEOUT must be positive")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// expandHome resolves a leading ~ so profile paths from .env files work on
// any machine.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
