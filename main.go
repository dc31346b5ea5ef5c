package main

import (
	"fmt"
	"os"

	"github.com/dtnitsch/design-scan/internal/assets"
	"github.com/dtnitsch/design-scan/internal/scan"
	"github.com/dtnitsch/design-scan/models"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	// Optional; flags fall back to DESIGN_SCAN_* variables from .env
	_ = godotenv.Load()

	defaults := models.DefaultConfig()

	dbFlag := &cli.StringFlag{
		Name:    "db",
		EnvVars: []string{"DESIGN_SCAN_DB"},
		Usage:   "Path to the asset registry database",
		Value:   defaults.Registry.Path,
	}
	storageFlag := &cli.StringFlag{
		Name:    "storage-dir",
		EnvVars: []string{"DESIGN_SCAN_STORAGE_DIR"},
		Usage:   "Directory where downloaded assets are stored",
		Value:   defaults.Storage.Dir,
	}
	tenantFlag := &cli.StringFlag{
		Name:    "tenant",
		EnvVars: []string{"DESIGN_SCAN_TENANT"},
		Usage:   "Owner ID recorded on imported assets",
		Value:   "local",
	}

	app := &cli.App{
		Name:  "design-scan",
		Usage: "Extract brand colors, fonts, logo, navigation and layout from a website",
		Commands: []*cli.Command{
			{
				Name:      "scan",
				Usage:     "Scan a website and print the extracted design",
				ArgsUsage: "<url>",
				Action:    scan.ScanAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						EnvVars: []string{"DESIGN_SCAN_CONFIG"},
						Usage:   "Optional YAML config file",
						Value:   "config.yaml",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: json or yaml",
						Value: "json",
					},
					&cli.StringFlag{
						Name:  "timeout",
						Usage: "Page fetch timeout (e.g. 15s)",
						Value: defaults.Scan.Timeout,
					},
					&cli.StringFlag{
						Name:  "stylesheet-timeout",
						Usage: "Per-stylesheet fetch timeout",
						Value: defaults.Scan.StylesheetTimeout,
					},
					&cli.IntFlag{
						Name:  "max-stylesheets",
						Usage: "Maximum number of external stylesheets to fetch",
						Value: defaults.Scan.MaxStylesheets,
					},
					&cli.StringFlag{
						Name:    "user-agent",
						EnvVars: []string{"DESIGN_SCAN_USER_AGENT"},
						Usage:   "Override the browser User-Agent header",
					},
					&cli.BoolFlag{
						Name:  "download-logo",
						Usage: "Download the detected logo into the asset library",
					},
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Only log errors",
					},
					tenantFlag,
					storageFlag,
					dbFlag,
				},
			},
			{
				Name:  "assets",
				Usage: "Inspect the imported asset library",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List imported assets, newest first",
						Action: assets.ListAction,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "tenant",
								Usage: "Only list assets for this owner (default: all)",
							},
							&cli.IntFlag{
								Name:  "limit",
								Usage: "Maximum number of assets to show",
								Value: 20,
							},
							dbFlag,
						},
					},
					{
						Name:      "show",
						Usage:     "Show one asset and its stored variants",
						ArgsUsage: "<asset-id>",
						Action:    assets.ShowAction,
						Flags:     []cli.Flag{dbFlag, storageFlag},
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
