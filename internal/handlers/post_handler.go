package handlers

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"github.com/circlehub/backend/internal/blobstore"
	"github.com/circlehub/backend/internal/models"
	"github.com/circlehub/backend/internal/repositories"
	"github.com/circlehub/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// PostHandler handles post HTTP requests
type PostHandler struct {
	postRepository    repositories.PostRepository
	membershipService *services.MembershipService
	blobs             blobstore.Store
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postRepo repositories.PostRepository, membershipService *services.MembershipService, blobs blobstore.Store) *PostHandler {
	return &PostHandler{
		postRepository:    postRepo,
		membershipService: membershipService,
		blobs:             blobs,
	}
}

// RegisterPostRoutes registers post routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/:id", h.GetPost)
	g.GET("/users/:id/posts", h.GetUserPosts)
	g.GET("/groups/:id/posts", h.GetGroupPosts)
	g.DELETE("/posts/:id", h.DeletePost)
	g.POST("/media", h.UploadMedia)
	g.GET("/media/:ref", h.GetMedia)
}

// CreatePost stores a new post. Posting into a group requires an active
// membership.
func (h *PostHandler) CreatePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if req.GroupID != nil {
		outcome, err := h.membershipService.IsMember(ctx, currentUserID, *req.GroupID)
		if err != nil {
			return httpError(err)
		}
		if outcome != services.OutcomeYes {
			return echo.NewHTTPError(http.StatusUnauthorized, "Not a member of the group")
		}
	}

	now := time.Now()
	post := &models.Post{
		UserID:    currentUserID,
		GroupID:   req.GroupID,
		Kind:      req.Kind,
		Content:   req.Content,
		MediaRefs: req.MediaRefs,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.postRepository.CreatePost(ctx, post); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, post)
}

func (h *PostHandler) GetUserPosts(c echo.Context) error {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	skip, limit := pagination(c)
	posts, err := h.postRepository.GetPostsByUserID(c.Request().Context(), userID, skip, limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, posts)
}

func (h *PostHandler) GetGroupPosts(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid group ID")
	}
	ctx := c.Request().Context()
	outcome, err := h.membershipService.IsMember(ctx, currentUserID, groupID)
	if err != nil {
		return httpError(err)
	}
	if outcome != services.OutcomeYes {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not a member of the group")
	}
	skip, limit := pagination(c)
	posts, err := h.postRepository.GetGroupFeed(ctx, groupID, skip, limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, posts)
}

// DeletePost deletes the caller's own post along with its media blobs.
func (h *PostHandler) DeletePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	ctx := c.Request().Context()
	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if post.UserID != currentUserID {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized access")
	}
	if err := h.postRepository.DeletePost(ctx, c.Param("id")); err != nil {
		return httpError(err)
	}
	for _, ref := range post.MediaRefs {
		if err := h.blobs.Delete(ctx, ref); err != nil {
			c.Logger().Warnf("delete media %s: %v", ref, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Post deleted successfully"})
}

// UploadMedia stores a media file and returns its blobstore reference for
// use in a subsequent post.
func (h *PostHandler) UploadMedia(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	fh, err := c.FormFile("media")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing media file")
	}
	data, err := readFilePart(fh)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unable to read media file")
	}
	ref, err := h.blobs.Put(c.Request().Context(), "post-media", data)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"ref": ref})
}

func (h *PostHandler) GetMedia(c echo.Context) error {
	data, err := h.blobs.Get(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"media": base64.StdEncoding.EncodeToString(data)})
}

func pagination(c echo.Context) (skip, limit int64) {
	page, _ := strconv.ParseInt(c.QueryParam("page"), 10, 64)
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return (page - 1) * limit, limit
}
