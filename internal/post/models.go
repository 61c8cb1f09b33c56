package post

import (
	"time"

	"github.com/google/uuid"
)

// Post statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Post is one content record. Asset references (cover, HTML snapshot) are
// non-owning: the asset record owns the stored bytes.
type Post struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Slug    *string   `json:"slug,omitempty"`
	Summary *string   `json:"summary,omitempty"`
	Body    string    `json:"body"`
	Tags    []string  `json:"tags"`
	Status  string    `json:"status"`

	AuthorID string `json:"author_id"`

	CoverAssetID  *uuid.UUID `json:"cover_asset_id,omitempty"`
	CoverImageKey *string    `json:"cover_image_key,omitempty"`
	CoverLink     *string    `json:"cover_link,omitempty"`
	HTMLAssetID   *uuid.UUID `json:"html_asset_id,omitempty"`
	HTMLKey       *string    `json:"html_key,omitempty"`
	HTMLLink      *string    `json:"html_link,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy *string    `json:"deleted_by,omitempty"`
}

// Draft carries the writable fields for create and update.
type Draft struct {
	Title   string   `json:"title" binding:"required"`
	Slug    *string  `json:"slug"`
	Summary *string  `json:"summary"`
	Body    string   `json:"body" binding:"required"`
	Tags    []string `json:"tags"`
	Status  string   `json:"status"`
}

// AdminFilter narrows the admin listing.
type AdminFilter struct {
	Status    string
	IsDeleted *bool
	Limit     int
	Skip      int
}

// PublicFilter narrows the public listing to published, non-deleted posts.
type PublicFilter struct {
	Tag    string
	Search string
	Limit  int
	Skip   int
}
