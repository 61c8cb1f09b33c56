package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vectorthoughts/blog-api/internal/config"
	"github.com/vectorthoughts/blog-api/internal/imaging"
	"github.com/vectorthoughts/blog-api/internal/metrics"
	"github.com/vectorthoughts/blog-api/internal/post"
)

const (
	imageKeyPrefix = "images"
	htmlKeyPrefix  = "html"
)

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/gif":  true,
	"image/webp": true,
}

var allowedHTMLTypes = map[string]bool{
	"text/html":             true,
	"application/xhtml+xml": true,
}

// metadataStore abstracts the persistence layer.
type metadataStore interface {
	UpsertByPath(ctx context.Context, rec Record) (Record, error)
	GetByAssetID(ctx context.Context, assetID uuid.UUID) (Record, error)
	GetByPath(ctx context.Context, path string) (Record, error)
	DeleteByAssetID(ctx context.Context, assetID uuid.UUID) (Record, error)
}

type objectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type compressor interface {
	Submit(ctx context.Context, raw []byte, budget int64, opts imaging.Options) (imaging.Result, error)
}

// parentLinker updates a post's asset references.
type parentLinker interface {
	SetCover(ctx context.Context, postID, assetID uuid.UUID, key, link string) error
	SetHTMLSnapshot(ctx context.Context, postID, assetID uuid.UUID, key, link string) error
}

// Service runs the asset ingest, storage and serving pipeline.
type Service struct {
	repo       metadataStore
	objects    objectStore
	pool       compressor
	posts      parentLinker
	cfg        config.UploadConfig
	htmlClient *http.Client
	logg       *zap.Logger
}

// NewService constructs the asset service.
func NewService(repo metadataStore, objects objectStore, pool compressor, posts parentLinker, cfg config.UploadConfig, logg *zap.Logger) *Service {
	if logg == nil {
		logg = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		objects:    objects,
		pool:       pool,
		posts:      posts,
		cfg:        cfg,
		htmlClient: &http.Client{Timeout: cfg.ProxyTimeout},
		logg:       logg,
	}
}

// Ingest gates an upload on type and size, compressing oversized images
// down to the stored-size budget. Payloads already within budget pass
// through unmodified with their original mime type.
func (s *Service) Ingest(ctx context.Context, raw []byte, declaredMime string) (IngestResult, error) {
	if len(raw) == 0 {
		return IngestResult{}, fmt.Errorf("%w: empty payload", ErrUnsupportedType)
	}
	if !allowedImageTypes[declaredMime] {
		return IngestResult{}, ErrUnsupportedType
	}
	if int64(len(raw)) > s.cfg.MaxUploadBytes {
		return IngestResult{}, ErrTooLarge
	}

	if int64(len(raw)) <= s.cfg.MaxStoredBytes {
		return IngestResult{Bytes: raw, Mime: declaredMime, Size: int64(len(raw))}, nil
	}

	start := time.Now()
	result, err := s.pool.Submit(ctx, raw, s.cfg.MaxStoredBytes, imaging.Options{
		MinQuality: s.cfg.MinQuality,
		MaxQuality: s.cfg.MaxQuality,
	})
	metrics.CompressionSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return IngestResult{}, err
	}

	s.logg.Debug("image compressed",
		zap.Int("original_bytes", len(raw)),
		zap.Int("stored_bytes", len(result.Bytes)),
		zap.Int("quality", result.Quality))

	return IngestResult{
		Bytes: result.Bytes,
		Mime:  "image/jpeg",
		Size:  int64(len(result.Bytes)),
	}, nil
}

// UploadImage runs the full pipeline for one image upload.
func (s *Service) UploadImage(ctx context.Context, in UploadInput) (Record, error) {
	ingested, err := s.Ingest(ctx, in.Raw, in.DeclaredMime)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return Record{}, err
	}

	rec, err := s.StoreAndLink(ctx, ingested, imageKeyPrefix, in)
	if err != nil && !errors.Is(err, ErrParentNotFound) {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return Record{}, err
	}

	metrics.UploadsTotal.WithLabelValues("stored").Inc()
	return rec, err
}

// StoreAndLink writes the final bytes under a freshly derived key, upserts
// the metadata record and, when a parent post is referenced, updates the
// post's cover fields. A parent-link failure does not roll back the asset.
func (s *Service) StoreAndLink(ctx context.Context, ingested IngestResult, keyPrefix string, in UploadInput) (Record, error) {
	key := fmt.Sprintf("%s/%s%s", keyPrefix, uuid.New().String(), extensionForMime(ingested.Mime))

	rec, err := s.storeAtKey(ctx, key, ingested, in)
	if err != nil {
		return Record{}, err
	}

	if in.PostID != nil {
		if err := s.posts.SetCover(ctx, *in.PostID, rec.AssetID, rec.Path, rec.PublicLink); err != nil {
			if errors.Is(err, post.ErrPostNotFound) {
				return rec, ErrParentNotFound
			}
			return rec, fmt.Errorf("link cover asset: %w", err)
		}
	}

	return rec, nil
}

// storeAtKey uploads bytes and upserts metadata keyed by the storage path.
// The upsert is the serialization point for concurrent writes to one key.
func (s *Service) storeAtKey(ctx context.Context, key string, ingested IngestResult, in UploadInput) (Record, error) {
	if err := s.objects.Put(ctx, key, ingested.Bytes, ingested.Mime); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	link, err := s.objects.PresignGet(ctx, key, s.cfg.PresignTTL)
	if err != nil {
		s.compensate(ctx, key)
		return Record{}, fmt.Errorf("%w: presign: %v", ErrStorageWrite, err)
	}

	rec := Record{
		AssetID:    uuid.New(),
		Path:       key,
		Filename:   in.Filename,
		Mime:       ingested.Mime,
		Size:       ingested.Size,
		UploadedBy: in.UploadedBy,
		PostID:     in.PostID,
		UsedByPost: in.PostID != nil,
		Alt:        in.Alt,
		Caption:    in.Caption,
		PublicLink: link,
	}

	stored, err := s.repo.UpsertByPath(ctx, rec)
	if err != nil {
		s.compensate(ctx, key)
		return Record{}, fmt.Errorf("%w: %v", ErrMetadataPersist, err)
	}

	return stored, nil
}

// compensate removes a just-uploaded object after a metadata failure.
// Best effort: failures are logged and counted, never propagated, since an
// orphaned object is sweepable later.
func (s *Service) compensate(ctx context.Context, key string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := s.objects.Remove(cleanupCtx, key); err != nil {
		metrics.CompensatingDeletesTotal.WithLabelValues("failed").Inc()
		s.logg.Error("compensating delete failed; object orphaned",
			zap.String("key", key),
			zap.Error(err))
		return
	}
	metrics.CompensatingDeletesTotal.WithLabelValues("ok").Inc()
}

// UploadHTML stores a rendered HTML snapshot under a stable key derived
// from its filename, so re-publishing a post overwrites in place via the
// same upsert-by-path that images use.
func (s *Service) UploadHTML(ctx context.Context, in UploadInput) (Record, error) {
	if !allowedHTMLTypes[in.DeclaredMime] {
		return Record{}, ErrUnsupportedType
	}
	if int64(len(in.Raw)) > s.cfg.MaxUploadBytes {
		return Record{}, ErrTooLarge
	}

	filename := in.Filename
	if !strings.HasSuffix(filename, ".html") && !strings.HasSuffix(filename, ".htm") {
		filename += ".html"
	}
	in.Filename = filename

	ingested := IngestResult{Bytes: in.Raw, Mime: in.DeclaredMime, Size: int64(len(in.Raw))}
	key := fmt.Sprintf("%s/%s", htmlKeyPrefix, filename)

	rec, err := s.storeAtKey(ctx, key, ingested, in)
	if err != nil {
		return Record{}, err
	}

	if in.PostID != nil {
		if err := s.posts.SetHTMLSnapshot(ctx, *in.PostID, rec.AssetID, rec.Path, rec.PublicLink); err != nil {
			if errors.Is(err, post.ErrPostNotFound) {
				return rec, ErrParentNotFound
			}
			return rec, fmt.Errorf("link html snapshot: %w", err)
		}
	}

	return rec, nil
}

// Fetch returns the metadata record and the stored bytes for an asset.
func (s *Service) Fetch(ctx context.Context, assetID uuid.UUID) (Record, []byte, error) {
	rec, err := s.repo.GetByAssetID(ctx, assetID)
	if err != nil {
		return Record{}, nil, err
	}

	data, err := s.objects.Get(ctx, rec.Path)
	if err != nil {
		return Record{}, nil, fmt.Errorf("%w: key %q: %v", ErrObjectMissing, rec.Path, err)
	}

	return rec, data, nil
}

// ServeHTML resolves the snapshot for a post slug and returns its content.
// When a proxy base is configured the HTML is fetched over HTTP with a
// bounded wait; otherwise it is read straight from the object store.
func (s *Service) ServeHTML(ctx context.Context, slug string) (HTMLPage, error) {
	filename := fmt.Sprintf("%s-post.html", slug)

	// Resolve through the unique storage key, not the filename: an image
	// uploaded under a colliding original filename must not shadow the
	// snapshot.
	rec, err := s.repo.GetByPath(ctx, fmt.Sprintf("%s/%s", htmlKeyPrefix, filename))
	if err != nil {
		return HTMLPage{}, err
	}

	if s.cfg.HTMLFetchBase == "" {
		data, err := s.objects.Get(ctx, rec.Path)
		if err != nil {
			return HTMLPage{}, fmt.Errorf("%w: key %q: %v", ErrObjectMissing, rec.Path, err)
		}
		return HTMLPage{Record: rec, HTML: string(data)}, nil
	}

	url := fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.cfg.HTMLFetchBase, "/"), htmlKeyPrefix, filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return HTMLPage{}, fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
	}

	resp, err := s.htmlClient.Do(req)
	if err != nil {
		return HTMLPage{}, fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return HTMLPage{}, fmt.Errorf("%w: upstream returned %d", ErrUpstreamFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return HTMLPage{}, fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
	}

	return HTMLPage{Record: rec, HTML: string(body)}, nil
}

// Delete removes the stored object first, then the metadata record. A crash
// in between leaves a detectable dangling record rather than orphaned bytes.
func (s *Service) Delete(ctx context.Context, assetID uuid.UUID) error {
	rec, err := s.repo.GetByAssetID(ctx, assetID)
	if err != nil {
		return err
	}

	if err := s.objects.Remove(ctx, rec.Path); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	if _, err := s.repo.DeleteByAssetID(ctx, assetID); err != nil {
		return err
	}

	return nil
}

func extensionForMime(mime string) string {
	switch mime {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
