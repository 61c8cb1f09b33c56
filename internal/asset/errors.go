package asset

import "errors"

var (
	// ErrUnsupportedType rejects uploads whose declared mime is not allowed.
	ErrUnsupportedType = errors.New("unsupported media type")
	// ErrTooLarge rejects payloads over the upload ceiling.
	ErrTooLarge = errors.New("payload too large")
	// ErrStorageWrite signals the object store rejected the write.
	ErrStorageWrite = errors.New("object storage write failed")
	// ErrMetadataPersist signals the metadata upsert failed.
	ErrMetadataPersist = errors.New("asset metadata persist failed")
	// ErrParentNotFound is returned when the linked post does not exist.
	// The asset itself stays persisted.
	ErrParentNotFound = errors.New("parent post not found")
	// ErrNotFound signals the asset record could not be located.
	ErrNotFound = errors.New("asset not found")
	// ErrObjectMissing marks metadata/object drift: the record exists but
	// the object store no longer has the key.
	ErrObjectMissing = errors.New("stored object missing")
	// ErrUpstreamFetch signals the HTML proxy fetch failed or timed out.
	ErrUpstreamFetch = errors.New("upstream fetch failed")
)
