package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dtnitsch/design-scan/internal/common"
	"github.com/dtnitsch/design-scan/models"
	"github.com/dtnitsch/design-scan/pkg/db"
	"github.com/dtnitsch/design-scan/pkg/fetcher"
	"github.com/dtnitsch/design-scan/pkg/scanner"
	"github.com/dtnitsch/design-scan/pkg/storage"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func ScanAction(c *cli.Context) error {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	targetURL := common.SanitizeURL(c.Args().First())
	if targetURL == "" {
		fmt.Fprintln(os.Stderr, "Error: No URL provided")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, `  design-scan scan https://example.com`)
		fmt.Fprintln(os.Stderr, `  design-scan scan --download-logo --tenant acme https://example.com`)
		return cli.Exit("", 1)
	}

	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return cli.Exit("", 2)
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return cli.Exit("", 2)
	}

	f := fetcher.NewFetcher(logger, fetcherOptions(cfg)...)
	opts := []scanner.Option{scanner.WithDefaultTimeout(cfg.ScanTimeout(fetcher.DefaultPageTimeout))}

	if cfg.Scan.DownloadLogo {
		store, err := storage.NewFileStore(cfg.Storage.Dir, cfg.Storage.BaseURL)
		if err != nil {
			logger.Error("failed to initialize asset storage", "error", err)
			return cli.Exit("", 2)
		}
		database, err := db.Open(cfg.Registry.Path)
		if err != nil {
			logger.Error("failed to open asset registry", "error", err)
			return cli.Exit("", 2)
		}
		defer database.Close()
		opts = append(opts, scanner.WithAssetStore(store), scanner.WithAssetRegistry(database))
	}

	s := scanner.NewScanner(f, logger, opts...)
	result := s.Scan(context.Background(), models.ScanRequest{
		URL:          targetURL,
		TenantID:     c.String("tenant"),
		DownloadLogo: cfg.Scan.DownloadLogo,
	})

	if err := writeResult(os.Stdout, result, c.String("format")); err != nil {
		logger.Error("failed to write result", "error", err)
		return cli.Exit("", 2)
	}
	if !result.Success {
		return cli.Exit("", 1)
	}
	return nil
}

// applyFlags overrides config values with the flags the user actually set.
func applyFlags(c *cli.Context, cfg *models.Config) {
	if c.IsSet("timeout") {
		cfg.Scan.Timeout = c.String("timeout")
	}
	if c.IsSet("stylesheet-timeout") {
		cfg.Scan.StylesheetTimeout = c.String("stylesheet-timeout")
	}
	if c.IsSet("max-stylesheets") {
		cfg.Scan.MaxStylesheets = c.Int("max-stylesheets")
	}
	if c.IsSet("user-agent") {
		cfg.Scan.UserAgent = c.String("user-agent")
	}
	if c.IsSet("download-logo") {
		cfg.Scan.DownloadLogo = c.Bool("download-logo")
	}
	if c.IsSet("storage-dir") {
		cfg.Storage.Dir = c.String("storage-dir")
	}
	if c.IsSet("db") {
		cfg.Registry.Path = c.String("db")
	}
}

func fetcherOptions(cfg *models.Config) []fetcher.Option {
	opts := []fetcher.Option{
		fetcher.WithStylesheetTimeout(cfg.StylesheetTimeout(fetcher.DefaultStylesheetTimeout)),
		fetcher.WithImageTimeout(cfg.LogoTimeout(fetcher.DefaultImageTimeout)),
	}
	if cfg.Scan.MaxStylesheets > 0 {
		opts = append(opts, fetcher.WithMaxStylesheets(cfg.Scan.MaxStylesheets))
	}
	if cfg.Scan.UserAgent != "" {
		opts = append(opts, fetcher.WithUserAgent(cfg.Scan.UserAgent))
	}
	return opts
}

func writeResult(w io.Writer, result models.ScanResult, format string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(format) {
	case "", "json":
		data, err = json.MarshalIndent(result, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(result)
	default:
		return fmt.Errorf("unknown format %q, expected json or yaml", format)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}
