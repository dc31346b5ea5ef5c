package assets

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dtnitsch/design-scan/models"
	"github.com/dtnitsch/design-scan/pkg/db"
	"github.com/dtnitsch/design-scan/pkg/storage"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
)

// ListAction prints the assets registered for a tenant, newest first.
func ListAction(c *cli.Context) error {
	database, err := db.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	assets, err := database.ListAssets(c.Context, c.String("tenant"), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list assets: %w", err)
	}

	if len(assets) == 0 {
		fmt.Println("No assets found")
		return nil
	}

	printAssetTable(os.Stdout, assets)
	fmt.Printf("\nTip: Use 'design-scan assets show <id>' to see details\n")
	return nil
}

// ShowAction prints one asset and checks its variants against local storage.
func ShowAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("asset ID required. Run 'design-scan assets list' to find one")
	}

	database, err := db.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	asset, err := database.GetAsset(c.Context, c.Args().First())
	if err != nil {
		return fmt.Errorf("failed to get asset: %w", err)
	}

	store, err := storage.NewFileStore(c.String("storage-dir"), "")
	if err != nil {
		return fmt.Errorf("failed to open asset storage: %w", err)
	}

	printAssetDetail(os.Stdout, asset, store)
	return nil
}

func printAssetTable(w io.Writer, assets []models.Asset) {
	fmt.Fprintf(w, "%-36s %-12s %-14s %-10s %-16s %s\n",
		"ID", "Owner", "Type", "Size", "Created", "Imported From")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for _, a := range assets {
		fmt.Fprintf(w, "%-36s %-12s %-14s %-10s %-16s %s\n",
			a.ID,
			a.OwnerID,
			a.MimeType,
			humanize.IBytes(uint64(a.SizeBytes)),
			humanize.Time(a.CreatedAt),
			a.ImportedFrom,
		)
	}

	fmt.Fprintf(w, "\nTotal: %d assets\n", len(assets))
}

func printAssetDetail(w io.Writer, asset *models.Asset, store *storage.FileStore) {
	fmt.Fprintf(w, "Asset %s\n", asset.ID)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Owner:       %s\n", asset.OwnerID)
	fmt.Fprintf(w, "File:        %s (%s, %s)\n", asset.Filename, asset.MimeType, humanize.IBytes(uint64(asset.SizeBytes)))
	fmt.Fprintf(w, "Source:      %s\n", asset.Source)
	fmt.Fprintf(w, "Imported:    %s\n", asset.ImportedFrom)
	fmt.Fprintf(w, "Created:     %s (%s)\n", asset.CreatedAt.Format("2006-01-02 15:04:05"), humanize.Time(asset.CreatedAt))

	fmt.Fprintf(w, "\nVariants (%d):\n", len(asset.Variants))
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for i, v := range asset.Variants {
		fmt.Fprintf(w, "%2d. %s  %s\n", i+1, v.Name, v.URL)
		stats, err := store.GetFileStats(v.Key)
		if err != nil {
			fmt.Fprintf(w, "    Stored: missing (%s)\n", v.Key)
			continue
		}
		fmt.Fprintf(w, "    Stored: %s, modified %s\n", humanize.IBytes(uint64(stats.SizeBytes)), humanize.Time(stats.ModTime))
	}
}
