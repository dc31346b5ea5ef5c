package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dtnitsch/design-scan/models"
	"github.com/google/uuid"
)

// created_at is stored as fixed-width UTC text so ORDER BY sorts it
// chronologically. RFC3339Nano trims trailing zeros and does not.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrAssetNotFound is returned when no asset has the requested id.
var ErrAssetNotFound = errors.New("asset not found")

var now = time.Now

// Create registers an asset and its variants, returning the stored record
// with its new id.
func (db *DB) Create(ctx context.Context, rec models.AssetRecord) (models.Asset, error) {
	if rec.OwnerID == "" {
		return models.Asset{}, fmt.Errorf("asset owner is required")
	}
	asset := models.Asset{
		ID:          uuid.NewString(),
		AssetRecord: rec,
		CreatedAt:   now().UTC(),
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return models.Asset{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // No-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO assets (asset_id, owner_id, type, mime_type, filename, size_bytes, source, imported_from, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, asset.ID, rec.OwnerID, rec.Type, rec.MimeType, rec.Filename, rec.SizeBytes,
		rec.Source, NewNullString(rec.ImportedFrom), asset.CreatedAt.Format(timestampLayout))
	if err != nil {
		return models.Asset{}, fmt.Errorf("failed to insert asset: %w", err)
	}

	for _, v := range rec.Variants {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO asset_variants (asset_id, name, url, storage_key)
			VALUES (?, ?, ?, ?)
		`, asset.ID, v.Name, v.URL, v.Key)
		if err != nil {
			return models.Asset{}, fmt.Errorf("failed to insert asset variant %q: %w", v.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Asset{}, fmt.Errorf("failed to commit asset: %w", err)
	}
	if asset.Variants == nil {
		asset.Variants = []models.AssetVariant{}
	}
	return asset, nil
}

// GetAsset loads one asset with its variants.
func (db *DB) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	row := db.QueryRowContext(ctx, `
		SELECT asset_id, owner_id, type, mime_type, filename, size_bytes, source, imported_from, created_at
		FROM assets
		WHERE asset_id = ?
	`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	if asset.Variants, err = db.listVariants(ctx, asset.ID); err != nil {
		return nil, err
	}
	return asset, nil
}

// ListAssets returns an owner's assets, newest first. An empty owner lists
// every owner. limit <= 0 means no limit.
func (db *DB) ListAssets(ctx context.Context, ownerID string, limit int) ([]models.Asset, error) {
	query := `
		SELECT asset_id, owner_id, type, mime_type, filename, size_bytes, source, imported_from, created_at
		FROM assets
		WHERE (? = '' OR owner_id = ?)
		ORDER BY created_at DESC, rowid DESC
	`
	args := []any{ownerID, ownerID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var assets []models.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, *asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assets: %w", err)
	}

	for i := range assets {
		if assets[i].Variants, err = db.listVariants(ctx, assets[i].ID); err != nil {
			return nil, err
		}
	}
	return assets, nil
}

func (db *DB) listVariants(ctx context.Context, assetID string) ([]models.AssetVariant, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name, url, storage_key
		FROM asset_variants
		WHERE asset_id = ?
		ORDER BY variant_id
	`, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list asset variants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	variants := []models.AssetVariant{}
	for rows.Next() {
		var v models.AssetVariant
		if err := rows.Scan(&v.Name, &v.URL, &v.Key); err != nil {
			return nil, fmt.Errorf("failed to scan asset variant: %w", err)
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*models.Asset, error) {
	var (
		a            models.Asset
		importedFrom sql.NullString
		createdAt    string
	)
	if err := row.Scan(&a.ID, &a.OwnerID, &a.Type, &a.MimeType, &a.Filename, &a.SizeBytes,
		&a.Source, &importedFrom, &createdAt); err != nil {
		return nil, err
	}
	a.ImportedFrom = importedFrom.String
	if t, err := time.Parse(timestampLayout, createdAt); err == nil {
		a.CreatedAt = t
	}
	return &a, nil
}

// NewNullString returns a NullString that is NULL for the empty string.
func NewNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
