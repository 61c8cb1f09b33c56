package asset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

// Repository provides access to asset metadata storage.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a new asset repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `asset_id, path, filename, mime, size_bytes, uploaded_by, post_id,
used_by_post, alt, caption, public_link, created_at, updated_at`

// UpsertByPath inserts the record or, when the path already exists, updates
// its mutable fields in place. asset_id and created_at survive from the
// first insert; the database enforces atomicity for concurrent callers.
func (r *Repository) UpsertByPath(ctx context.Context, rec Record) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO assets (asset_id, path, filename, mime, size_bytes, uploaded_by, post_id,
                    used_by_post, alt, caption, public_link, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
ON CONFLICT (path) DO UPDATE SET
	filename     = EXCLUDED.filename,
	mime         = EXCLUDED.mime,
	size_bytes   = EXCLUDED.size_bytes,
	uploaded_by  = EXCLUDED.uploaded_by,
	post_id      = EXCLUDED.post_id,
	used_by_post = EXCLUDED.used_by_post,
	alt          = EXCLUDED.alt,
	caption      = EXCLUDED.caption,
	public_link  = EXCLUDED.public_link,
	updated_at   = now()
RETURNING ` + recordColumns + `;`

	row := r.pool.QueryRow(ctx, query,
		rec.AssetID,
		rec.Path,
		rec.Filename,
		rec.Mime,
		rec.Size,
		rec.UploadedBy,
		rec.PostID,
		rec.UsedByPost,
		rec.Alt,
		rec.Caption,
		rec.PublicLink,
	)

	stored, err := scanRecord(row)
	if err != nil {
		return Record{}, fmt.Errorf("upsert asset metadata: %w", err)
	}
	return stored, nil
}

// GetByAssetID fetches metadata by the external asset handle.
func (r *Repository) GetByAssetID(ctx context.Context, assetID uuid.UUID) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + recordColumns + ` FROM assets WHERE asset_id = $1;`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, assetID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("get asset metadata: %w", err)
	}
	return rec, nil
}

// GetByPath resolves an asset by its storage key. The path carries the
// unique index, so lookups through it are deterministic even when several
// assets share a filename.
func (r *Repository) GetByPath(ctx context.Context, path string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + recordColumns + ` FROM assets WHERE path = $1;`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, path))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("get asset by path: %w", err)
	}
	return rec, nil
}

// DeleteByAssetID removes the metadata row and returns the deleted record.
func (r *Repository) DeleteByAssetID(ctx context.Context, assetID uuid.UUID) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `DELETE FROM assets WHERE asset_id = $1 RETURNING ` + recordColumns + `;`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, assetID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("delete asset metadata: %w", err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.AssetID,
		&rec.Path,
		&rec.Filename,
		&rec.Mime,
		&rec.Size,
		&rec.UploadedBy,
		&rec.PostID,
		&rec.UsedByPost,
		&rec.Alt,
		&rec.Caption,
		&rec.PublicLink,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	return rec, err
}
