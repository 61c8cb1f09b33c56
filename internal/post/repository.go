package post

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

// Repository provides access to post storage.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a new post repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const postColumns = `id, title, slug, summary, body, tags, status, author_id,
cover_asset_id, cover_image_key, cover_link, html_asset_id, html_key, html_link,
created_at, updated_at, published_at, is_deleted, deleted_at, deleted_by`

// Create inserts a new post.
func (r *Repository) Create(ctx context.Context, p Post) (Post, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO posts (id, title, slug, summary, body, tags, status, author_id,
                   created_at, updated_at, published_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now(), $9)
RETURNING ` + postColumns + `;`

	row := r.pool.QueryRow(ctx, query,
		p.ID, p.Title, p.Slug, p.Summary, p.Body, p.Tags, p.Status, p.AuthorID, p.PublishedAt,
	)

	stored, err := scanPost(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Post{}, ErrSlugExists
		}
		return Post{}, fmt.Errorf("create post: %w", err)
	}
	return stored, nil
}

// GetByID fetches a post regardless of status or deletion state.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Post, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1;`

	p, err := scanPost(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrPostNotFound
		}
		return Post{}, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

// Update rewrites the writable fields, stamping published_at on the first
// transition to published.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, d Draft) (Post, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
UPDATE posts SET
	title        = $2,
	slug         = $3,
	summary      = $4,
	body         = $5,
	tags         = $6,
	status       = $7,
	published_at = CASE WHEN $7 = 'published' AND published_at IS NULL THEN now() ELSE published_at END,
	updated_at   = now()
WHERE id = $1
RETURNING ` + postColumns + `;`

	row := r.pool.QueryRow(ctx, query, id, d.Title, d.Slug, d.Summary, d.Body, d.Tags, d.Status)

	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrPostNotFound
		}
		if isUniqueViolation(err) {
			return Post{}, ErrSlugExists
		}
		return Post{}, fmt.Errorf("update post: %w", err)
	}
	return p, nil
}

// SetStatus updates the lifecycle status, stamping published_at on the
// first publish.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status string) (Post, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
UPDATE posts SET
	status       = $2,
	published_at = CASE WHEN $2 = 'published' AND published_at IS NULL THEN now() ELSE published_at END,
	updated_at   = now()
WHERE id = $1
RETURNING ` + postColumns + `;`

	p, err := scanPost(r.pool.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrPostNotFound
		}
		return Post{}, fmt.Errorf("set post status: %w", err)
	}
	return p, nil
}

// SoftDelete hides the post and records who deleted it.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
UPDATE posts SET is_deleted = TRUE, deleted_at = now(), deleted_by = $2, updated_at = now()
WHERE id = $1;`

	tag, err := r.pool.Exec(ctx, query, id, deletedBy)
	if err != nil {
		return fmt.Errorf("soft delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

// Restore reverses a soft delete.
func (r *Repository) Restore(ctx context.Context, id uuid.UUID) (Post, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
UPDATE posts SET is_deleted = FALSE, deleted_at = NULL, deleted_by = NULL, updated_at = now()
WHERE id = $1
RETURNING ` + postColumns + `;`

	p, err := scanPost(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrPostNotFound
		}
		return Post{}, fmt.Errorf("restore post: %w", err)
	}
	return p, nil
}

// ListAdmin returns posts for the admin console, newest first.
func (r *Repository) ListAdmin(ctx context.Context, f AdminFilter) ([]Post, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var conds []string
	var args []any

	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.IsDeleted != nil {
		args = append(args, *f.IsDeleted)
		conds = append(conds, fmt.Sprintf("is_deleted = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	args = append(args, f.Limit)
	limitPos := len(args)
	args = append(args, f.Skip)
	skipPos := len(args)

	query := fmt.Sprintf(`SELECT %s FROM posts %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d;`,
		postColumns, where, limitPos, skipPos)

	return r.queryPosts(ctx, query, args...)
}

// ListPublished returns published, non-deleted posts, newest publish first.
// Search matches title or summary case-insensitively.
func (r *Repository) ListPublished(ctx context.Context, f PublicFilter) ([]Post, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	conds := []string{"status = 'published'", "is_deleted = FALSE"}
	var args []any

	if f.Tag != "" {
		args = append(args, f.Tag)
		conds = append(conds, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR summary ILIKE $%d)", len(args), len(args)))
	}

	args = append(args, f.Limit)
	limitPos := len(args)
	args = append(args, f.Skip)
	skipPos := len(args)

	query := fmt.Sprintf(`SELECT %s FROM posts WHERE %s ORDER BY published_at DESC LIMIT $%d OFFSET $%d;`,
		postColumns, strings.Join(conds, " AND "), limitPos, skipPos)

	return r.queryPosts(ctx, query, args...)
}

// GetPublishedBySlug fetches one published, non-deleted post by slug.
func (r *Repository) GetPublishedBySlug(ctx context.Context, slug string) (Post, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + postColumns + ` FROM posts
WHERE slug = $1 AND status = 'published' AND is_deleted = FALSE;`

	p, err := scanPost(r.pool.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrPostNotFound
		}
		return Post{}, fmt.Errorf("get published post by slug: %w", err)
	}
	return p, nil
}

// GetPublishedByID fetches one published, non-deleted post by id.
func (r *Repository) GetPublishedByID(ctx context.Context, id uuid.UUID) (Post, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + postColumns + ` FROM posts
WHERE id = $1 AND status = 'published' AND is_deleted = FALSE;`

	p, err := scanPost(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrPostNotFound
		}
		return Post{}, fmt.Errorf("get published post by id: %w", err)
	}
	return p, nil
}

// SlugTaken reports whether another post already uses the slug.
func (r *Repository) SlugTaken(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT EXISTS(SELECT 1 FROM posts WHERE slug = $1 AND ($2::uuid IS NULL OR id <> $2));`

	var taken bool
	if err := r.pool.QueryRow(ctx, query, slug, excludeID).Scan(&taken); err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return taken, nil
}

// SetCover atomically updates the post's cover asset reference. The
// previous cover asset, when different, is released in the same statement
// so its used_by_post flag never lies.
func (r *Repository) SetCover(ctx context.Context, postID, assetID uuid.UUID, key, link string) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
WITH released AS (
	UPDATE assets SET used_by_post = FALSE, updated_at = now()
	WHERE asset_id = (SELECT cover_asset_id FROM posts WHERE id = $1)
	  AND asset_id <> $2
)
UPDATE posts SET cover_asset_id = $2, cover_image_key = $3, cover_link = $4, updated_at = now()
WHERE id = $1;`

	tag, err := r.pool.Exec(ctx, query, postID, assetID, key, link)
	if err != nil {
		return fmt.Errorf("set cover: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

// SetHTMLSnapshot atomically updates the post's HTML snapshot reference.
func (r *Repository) SetHTMLSnapshot(ctx context.Context, postID, assetID uuid.UUID, key, link string) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
UPDATE posts SET html_asset_id = $2, html_key = $3, html_link = $4, updated_at = now()
WHERE id = $1;`

	tag, err := r.pool.Exec(ctx, query, postID, assetID, key, link)
	if err != nil {
		return fmt.Errorf("set html snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *Repository) queryPosts(ctx context.Context, query string, args ...any) ([]Post, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (Post, error) {
	var p Post
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Slug,
		&p.Summary,
		&p.Body,
		&p.Tags,
		&p.Status,
		&p.AuthorID,
		&p.CoverAssetID,
		&p.CoverImageKey,
		&p.CoverLink,
		&p.HTMLAssetID,
		&p.HTMLKey,
		&p.HTMLLink,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.PublishedAt,
		&p.IsDeleted,
		&p.DeletedAt,
		&p.DeletedBy,
	)
	return p, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
