package handlers

import (
	"context"
	"encoding/base64"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/circlehub/backend/internal/blobstore"
	"github.com/circlehub/backend/internal/models"
	"github.com/circlehub/backend/internal/repositories"
	"github.com/circlehub/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// GroupHandler handles group lifecycle HTTP requests
type GroupHandler struct {
	groupRepository   repositories.GroupRepository
	postRepository    repositories.PostRepository
	membershipService *services.MembershipService
	blobs             blobstore.Store
}

// NewGroupHandler creates a new GroupHandler
func NewGroupHandler(groupRepo repositories.GroupRepository, postRepo repositories.PostRepository, membershipService *services.MembershipService, blobs blobstore.Store) *GroupHandler {
	return &GroupHandler{
		groupRepository:   groupRepo,
		postRepository:    postRepo,
		membershipService: membershipService,
		blobs:             blobs,
	}
}

// RegisterGroupRoutes registers group lifecycle routes
func (h *GroupHandler) RegisterGroupRoutes(g *echo.Group) {
	g.POST("/create-group", h.CreateGroup)
	g.GET("/groups/:id", h.GetGroup)
	g.POST("/update-groupinformation", h.UpdateGroupInfo)
	g.POST("/update-groupmainimage", h.UpdateGroupIcon)
	g.POST("/update-backgroundimage", h.UpdateGroupBackground)
	g.POST("/remove-group", h.RemoveGroup)
	g.POST("/get_number_of_group_followers", h.GetMemberCount)
	g.POST("/get_curruntuser_detail_from_group", h.GetCurrentUserDetail)
	g.GET("/groups/:id/icon", h.GetGroupIcon)
	g.GET("/groups/:id/background", h.GetGroupBackground)
	g.GET("/my-groups", h.MyGroups)
}

func readFilePart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// CreateGroup creates the group with the caller as its admin. The group row,
// the owner membership and the member counter land in one transaction.
func (h *GroupHandler) CreateGroup(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateGroupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	group := &models.Group{
		OwnerID: currentUserID,
		Name:    req.Name,
		Kind:    req.Kind,
	}

	ctx := c.Request().Context()
	if fh, err := c.FormFile("groupimage"); err == nil {
		data, err := readFilePart(fh)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Unable to read group image")
		}
		ref, err := h.blobs.Put(ctx, "group-icon", data)
		if err != nil {
			return httpError(err)
		}
		group.IconRef = ref
	}
	if fh, err := c.FormFile("groupbackgroundimage"); err == nil {
		data, err := readFilePart(fh)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Unable to read background image")
		}
		ref, err := h.blobs.Put(ctx, "group-background", data)
		if err != nil {
			return httpError(err)
		}
		group.BackgroundRef = ref
	}

	if err := h.groupRepository.CreateGroup(ctx, group); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"groupid": group.ID,
		"message": "Group created successfully",
	})
}

func (h *GroupHandler) GetGroup(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid group ID")
	}
	group, err := h.groupRepository.GetGroupByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, group)
}

func (h *GroupHandler) UpdateGroupInfo(c echo.Context) error {
	group, err := h.requireOwnedGroup(c)
	if err != nil {
		return err
	}
	var req models.UpdateGroupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.groupRepository.UpdateGroupInfo(c.Request().Context(), group.ID, req.Name, req.Kind); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Group information updated successfully"})
}

func (h *GroupHandler) UpdateGroupIcon(c echo.Context) error {
	return h.updateImage(c, "groupimage", h.groupRepository.UpdateIcon)
}

func (h *GroupHandler) UpdateGroupBackground(c echo.Context) error {
	return h.updateImage(c, "groupbackgroundimage", h.groupRepository.UpdateBackground)
}

func (h *GroupHandler) updateImage(c echo.Context, field string, save func(ctx context.Context, id int64, ref string) error) error {
	group, err := h.requireOwnedGroup(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile(field)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing image file")
	}
	data, err := readFilePart(fh)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unable to read image file")
	}
	ctx := c.Request().Context()
	ref, err := h.blobs.Put(ctx, field, data)
	if err != nil {
		return httpError(err)
	}
	if err := save(ctx, group.ID, ref); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Image updated successfully"})
}

// RemoveGroup deletes the group, its memberships, group follow edges,
// notifications and posts.
func (h *GroupHandler) RemoveGroup(c echo.Context) error {
	group, err := h.requireOwnedGroup(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.groupRepository.DeleteGroup(ctx, group.ID); err != nil {
		return httpError(err)
	}
	if err := h.postRepository.DeleteGroupPosts(ctx, group.ID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Group removed successfully"})
}

// GetMemberCount returns the denormalized member counter.
func (h *GroupHandler) GetMemberCount(c echo.Context) error {
	groupID, err := strconv.ParseInt(c.FormValue("groupid"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid group ID")
	}
	group, err := h.groupRepository.GetGroupByID(c.Request().Context(), groupID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"members": group.MemberCount})
}

// GetCurrentUserDetail returns the caller's membership row in the group.
func (h *GroupHandler) GetCurrentUserDetail(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	groupID, err := strconv.ParseInt(c.FormValue("groupid"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid group ID")
	}
	membership, err := h.membershipService.CurrentMembership(c.Request().Context(), currentUserID, groupID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, membership)
}

func (h *GroupHandler) GetGroupIcon(c echo.Context) error {
	return h.serveImage(c, func(g *models.Group) string { return g.IconRef })
}

func (h *GroupHandler) GetGroupBackground(c echo.Context) error {
	return h.serveImage(c, func(g *models.Group) string { return g.BackgroundRef })
}

func (h *GroupHandler) serveImage(c echo.Context, ref func(*models.Group) string) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid group ID")
	}
	group, err := h.groupRepository.GetGroupByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	r := ref(group)
	if r == "" {
		return echo.NewHTTPError(http.StatusNotFound, "No image set")
	}
	data, err := h.blobs.Get(c.Request().Context(), r)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"image": base64.StdEncoding.EncodeToString(data)})
}

// MyGroups lists the groups the caller owns.
func (h *GroupHandler) MyGroups(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	groups, err := h.groupRepository.GroupsOwnedBy(c.Request().Context(), currentUserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, groups)
}

// requireOwnedGroup loads the group named by the groupid form value and
// refuses callers other than its owner.
func (h *GroupHandler) requireOwnedGroup(c echo.Context) (*models.Group, error) {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	groupID, err := strconv.ParseInt(c.FormValue("groupid"), 10, 64)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid group ID")
	}
	group, err := h.groupRepository.GetGroupByID(c.Request().Context(), groupID)
	if err != nil {
		return nil, httpError(err)
	}
	if group.OwnerID != currentUserID {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized access")
	}
	return group, nil
}
