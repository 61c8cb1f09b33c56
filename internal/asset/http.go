package asset

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vectorthoughts/blog-api/internal/identity"
	"github.com/vectorthoughts/blog-api/internal/imaging"
)

const fetchCacheControl = "public, max-age=3600"

// RegisterRoutes mounts asset operations. Fetch and HTML serving are
// public; upload and delete run behind the admin group.
func RegisterRoutes(public, admin *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}

	admin.POST("/assets/upload-image", handler.uploadImage)
	admin.POST("/assets/html", handler.uploadHTML)
	admin.DELETE("/assets/:assetID", handler.deleteAsset)

	public.GET("/assets/html/:slug", handler.serveHTML)
	public.GET("/assets/:assetID", handler.fetchAsset)
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) uploadImage(c *gin.Context) {
	ident, ok := identity.RequireAdmin(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	in, ok := h.readUploadForm(c, ident.Subject)
	if !ok {
		return
	}

	rec, err := h.service.UploadImage(c.Request.Context(), in)
	if err != nil {
		h.writeUploadError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"asset_id": rec.AssetID, "link": rec.PublicLink})
}

func (h *httpHandler) uploadHTML(c *gin.Context) {
	ident, ok := identity.RequireAdmin(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	in, ok := h.readUploadForm(c, ident.Subject)
	if !ok {
		return
	}

	rec, err := h.service.UploadHTML(c.Request.Context(), in)
	if err != nil {
		h.writeUploadError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"asset_id": rec.AssetID,
		"path":     rec.Path,
		"filename": rec.Filename,
		"link":     rec.PublicLink,
	})
}

// readUploadForm parses the multipart fields shared by both upload routes.
func (h *httpHandler) readUploadForm(c *gin.Context, uploadedBy string) (UploadInput, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return UploadInput{}, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file payload"})
		return UploadInput{}, false
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file payload"})
		return UploadInput{}, false
	}

	in := UploadInput{
		Raw:          raw,
		DeclaredMime: fileHeader.Header.Get("Content-Type"),
		Filename:     sanitizeFilename(fileHeader.Filename),
		UploadedBy:   uploadedBy,
	}

	if alt := c.PostForm("alt"); alt != "" {
		in.Alt = &alt
	}
	if caption := c.PostForm("caption"); caption != "" {
		in.Caption = &caption
	}
	if postID := c.PostForm("post_id"); postID != "" {
		id, err := uuid.Parse(postID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
			return UploadInput{}, false
		}
		in.PostID = &id
	}

	return in, true
}

func (h *httpHandler) writeUploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
	case errors.Is(err, ErrTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
	case isBudgetError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": "image cannot be compressed within the size budget"})
	case errors.Is(err, ErrParentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store asset"})
	}
}

func (h *httpHandler) fetchAsset(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("assetID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset id"})
		return
	}

	rec, data, err := h.service.Fetch(c.Request.Context(), assetID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
		case errors.Is(err, ErrObjectMissing):
			c.JSON(http.StatusBadGateway, gin.H{"error": "stored object unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch asset"})
		}
		return
	}

	c.Header("Cache-Control", fetchCacheControl)
	c.Data(http.StatusOK, responseContentType(rec.Mime), data)
}

func (h *httpHandler) serveHTML(c *gin.Context) {
	page, err := h.service.ServeHTML(c.Request.Context(), c.Param("slug"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
		case errors.Is(err, ErrUpstreamFetch), errors.Is(err, ErrObjectMissing):
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch snapshot"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to serve snapshot"})
		}
		return
	}

	c.Header("Cache-Control", fetchCacheControl)
	c.JSON(http.StatusOK, page)
}

func (h *httpHandler) deleteAsset(c *gin.Context) {
	if _, ok := identity.RequireAdmin(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	assetID, err := uuid.Parse(c.Param("assetID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), assetID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete asset"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// responseContentType classifies stored mimes for serving: HTML renders as
// text, images keep their stored type, everything else is opaque binary.
func responseContentType(mime string) string {
	switch {
	case mime == "text/html" || mime == "application/xhtml+xml":
		return "text/html; charset=utf-8"
	case strings.HasPrefix(mime, "image/"):
		return mime
	default:
		return "application/octet-stream"
	}
}

func isBudgetError(err error) bool {
	return errors.Is(err, imaging.ErrBudgetUnsatisfiable)
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "upload"
	}
	return name
}
