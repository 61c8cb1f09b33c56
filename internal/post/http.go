package post

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vectorthoughts/blog-api/internal/identity"
)

// RegisterAdminRoutes mounts the authenticated post operations.
func RegisterAdminRoutes(group *gin.RouterGroup, service *Service) {
	handler := &adminHandler{service: service}
	group.GET("/posts", handler.list)
	group.POST("/posts", handler.create)
	group.GET("/posts/:id", handler.get)
	group.PUT("/posts/:id", handler.update)
	group.POST("/posts/:id/publish", handler.publish)
	group.PATCH("/posts/:id/status", handler.changeStatus)
	group.DELETE("/posts/:id", handler.softDelete)
	group.POST("/posts/:id/restore", handler.restore)
}

type adminHandler struct {
	service *Service
}

func (h *adminHandler) list(c *gin.Context) {
	filter := AdminFilter{
		Status: c.Query("status"),
		Limit:  intQuery(c, "limit", 50),
		Skip:   intQuery(c, "skip", 0),
	}
	if raw, ok := c.GetQuery("is_deleted"); ok {
		deleted, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid is_deleted"})
			return
		}
		filter.IsDeleted = &deleted
	}

	posts, err := h.service.ListAdmin(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list posts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *adminHandler) create(c *gin.Context) {
	ident, ok := identity.RequireAdmin(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var draft Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post payload"})
		return
	}

	p, err := h.service.Create(c.Request.Context(), ident.Subject, draft)
	if err != nil {
		writePostError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": p.ID})
}

func (h *adminHandler) get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		writePostError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *adminHandler) update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var draft Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post payload"})
		return
	}

	p, err := h.service.Update(c.Request.Context(), id, draft)
	if err != nil {
		writePostError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *adminHandler) publish(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	p, err := h.service.Publish(c.Request.Context(), id)
	if err != nil {
		writePostError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *adminHandler) changeStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	status := c.Query("status")
	if status == "" {
		var body struct {
			Status string `json:"status"`
		}
		if err := c.ShouldBindJSON(&body); err == nil {
			status = body.Status
		}
	}

	p, err := h.service.ChangeStatus(c.Request.Context(), id, status)
	if err != nil {
		writePostError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *adminHandler) softDelete(c *gin.Context) {
	ident, ok := identity.RequireAdmin(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.SoftDelete(c.Request.Context(), id, ident.Subject); err != nil {
		writePostError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *adminHandler) restore(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	p, err := h.service.Restore(c.Request.Context(), id)
	if err != nil {
		writePostError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func writePostError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPostNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
	case errors.Is(err, ErrSlugExists):
		c.JSON(http.StatusConflict, gin.H{"error": "slug already exists"})
	case errors.Is(err, ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "post operation failed"})
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
