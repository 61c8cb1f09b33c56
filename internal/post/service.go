package post

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// postStore abstracts the persistence layer.
type postStore interface {
	Create(ctx context.Context, p Post) (Post, error)
	GetByID(ctx context.Context, id uuid.UUID) (Post, error)
	Update(ctx context.Context, id uuid.UUID, d Draft) (Post, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) (Post, error)
	SoftDelete(ctx context.Context, id uuid.UUID, deletedBy string) error
	Restore(ctx context.Context, id uuid.UUID) (Post, error)
	ListAdmin(ctx context.Context, f AdminFilter) ([]Post, error)
	ListPublished(ctx context.Context, f PublicFilter) ([]Post, error)
	GetPublishedBySlug(ctx context.Context, slug string) (Post, error)
	GetPublishedByID(ctx context.Context, id uuid.UUID) (Post, error)
	SlugTaken(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error)
}

// Service encapsulates post lifecycle use cases.
type Service struct {
	repo postStore
}

// NewService constructs a post service.
func NewService(repo postStore) *Service {
	return &Service{repo: repo}
}

// Create inserts a new post authored by the given administrator.
func (s *Service) Create(ctx context.Context, authorID string, d Draft) (Post, error) {
	if d.Status == "" {
		d.Status = StatusDraft
	}
	if d.Status != StatusDraft && d.Status != StatusPublished {
		return Post{}, ErrInvalidStatus
	}

	if d.Slug != nil {
		taken, err := s.repo.SlugTaken(ctx, *d.Slug, nil)
		if err != nil {
			return Post{}, err
		}
		if taken {
			return Post{}, ErrSlugExists
		}
	}

	p := Post{
		ID:       uuid.New(),
		Title:    d.Title,
		Slug:     d.Slug,
		Summary:  d.Summary,
		Body:     d.Body,
		Tags:     d.Tags,
		Status:   d.Status,
		AuthorID: authorID,
	}
	if d.Status == StatusPublished {
		now := time.Now().UTC()
		p.PublishedAt = &now
	}

	return s.repo.Create(ctx, p)
}

// Get fetches a post for the admin console.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Post, error) {
	return s.repo.GetByID(ctx, id)
}

// Update rewrites a post's writable fields, re-checking slug uniqueness
// when the slug changes.
func (s *Service) Update(ctx context.Context, id uuid.UUID, d Draft) (Post, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Post{}, err
	}

	if d.Status == "" {
		d.Status = existing.Status
	}
	if d.Status != StatusDraft && d.Status != StatusPublished {
		return Post{}, ErrInvalidStatus
	}

	if d.Slug != nil && (existing.Slug == nil || *existing.Slug != *d.Slug) {
		taken, err := s.repo.SlugTaken(ctx, *d.Slug, &id)
		if err != nil {
			return Post{}, err
		}
		if taken {
			return Post{}, ErrSlugExists
		}
	}

	return s.repo.Update(ctx, id, d)
}

// Publish transitions the post to published, stamping published_at the
// first time only.
func (s *Service) Publish(ctx context.Context, id uuid.UUID) (Post, error) {
	return s.repo.SetStatus(ctx, id, StatusPublished)
}

// ChangeStatus sets an explicit lifecycle status.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, status string) (Post, error) {
	if status != StatusDraft && status != StatusPublished {
		return Post{}, ErrInvalidStatus
	}
	return s.repo.SetStatus(ctx, id, status)
}

// SoftDelete hides the post from public listings; the record survives.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	return s.repo.SoftDelete(ctx, id, deletedBy)
}

// Restore reverses a soft delete.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) (Post, error) {
	return s.repo.Restore(ctx, id)
}

// ListAdmin returns posts for the admin console.
func (s *Service) ListAdmin(ctx context.Context, f AdminFilter) ([]Post, error) {
	f.Limit = clampLimit(f.Limit, 50)
	return s.repo.ListAdmin(ctx, f)
}

// ListPublished returns the public feed.
func (s *Service) ListPublished(ctx context.Context, f PublicFilter) ([]Post, error) {
	f.Limit = clampLimit(f.Limit, 10)
	return s.repo.ListPublished(ctx, f)
}

// GetPublishedBySlug fetches one public post by slug.
func (s *Service) GetPublishedBySlug(ctx context.Context, slug string) (Post, error) {
	return s.repo.GetPublishedBySlug(ctx, slug)
}

// GetPublishedByID fetches one public post by id.
func (s *Service) GetPublishedByID(ctx context.Context, id uuid.UUID) (Post, error) {
	return s.repo.GetPublishedByID(ctx, id)
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 || limit > 100 {
		return fallback
	}
	return limit
}
