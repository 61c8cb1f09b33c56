package post

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterPublicRoutes mounts the anonymous read-only post endpoints.
func RegisterPublicRoutes(group *gin.RouterGroup, service *Service) {
	handler := &publicHandler{service: service}
	group.GET("/posts", handler.list)
	group.GET("/post/:slug", handler.getBySlug)
	group.GET("/post-id/:id", handler.getByID)
}

type publicHandler struct {
	service *Service
}

func (h *publicHandler) list(c *gin.Context) {
	filter := PublicFilter{
		Tag:    c.Query("tag"),
		Search: c.Query("q"),
		Limit:  intQuery(c, "limit", 10),
		Skip:   intQuery(c, "skip", 0),
	}

	posts, err := h.service.ListPublished(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list posts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *publicHandler) getBySlug(c *gin.Context) {
	p, err := h.service.GetPublishedBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch post"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *publicHandler) getByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	p, err := h.service.GetPublishedByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch post"})
		return
	}
	c.JSON(http.StatusOK, p)
}
