package asset

import (
	"time"

	"github.com/google/uuid"
)

// Record is the metadata row for one stored object. AssetID is the
// external handle; Path is the object-store key and the upsert key.
type Record struct {
	AssetID    uuid.UUID  `json:"asset_id"`
	Path       string     `json:"path"`
	Filename   string     `json:"filename"`
	Mime       string     `json:"mime"`
	Size       int64      `json:"size"`
	UploadedBy string     `json:"uploaded_by"`
	PostID     *uuid.UUID `json:"post_id,omitempty"`
	UsedByPost bool       `json:"used_by_post"`
	Alt        *string    `json:"alt,omitempty"`
	Caption    *string    `json:"caption,omitempty"`
	PublicLink string     `json:"public_link"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// UploadInput carries one multipart upload through the ingest pipeline.
type UploadInput struct {
	Raw          []byte
	DeclaredMime string
	Filename     string
	UploadedBy   string
	PostID       *uuid.UUID
	Alt          *string
	Caption      *string
}

// IngestResult is the outcome of the size/type gate and conditional
// compression: the bytes that will actually be stored.
type IngestResult struct {
	Bytes []byte
	Mime  string
	Size  int64
}

// HTMLPage bundles a served HTML snapshot with its metadata.
type HTMLPage struct {
	Record Record `json:"metadata"`
	HTML   string `json:"html"`
}
