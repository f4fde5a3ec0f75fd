package handlers

import (
	"net/http"

	"github.com/circlehub/backend/internal/models"
	"github.com/circlehub/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// FollowHandler handles user-to-user follow HTTP requests
type FollowHandler struct {
	followService *services.FollowService
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followService *services.FollowService) *FollowHandler {
	return &FollowHandler{followService: followService}
}

// RegisterFollowRoutes registers follow routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/start-to-follow", h.ToggleFollow)
	g.POST("/remove-user-from-iamfollowing", h.Unfollow)
	g.POST("/check_follow_status", h.CheckFollowStatus)
	g.GET("/iamfollowing", h.Following)
	g.GET("/myfollowers", h.Followers)
	g.POST("/get_myfollowed_users_not_in_group", h.FollowedNotInGroup)
}

// ToggleFollow follows the target user, or unfollows when the edge already
// exists.
func (h *FollowHandler) ToggleFollow(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	targetID, err := formID(c, "userid")
	if err != nil {
		return err
	}
	outcome, err := h.followService.Toggle(c.Request().Context(), currentUserID, targetID)
	return outcomeResponse(c, outcome, err)
}

// Unfollow removes the follow edge and stays quiet when it is already gone.
func (h *FollowHandler) Unfollow(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	targetID, err := formID(c, "userid")
	if err != nil {
		return err
	}
	outcome, err := h.followService.Unfollow(c.Request().Context(), currentUserID, targetID)
	return outcomeResponse(c, outcome, err)
}

// CheckFollowStatus answers yes/no for whether the caller follows the target.
func (h *FollowHandler) CheckFollowStatus(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	targetID, err := formID(c, "userid")
	if err != nil {
		return err
	}
	outcome, err := h.followService.IsFollowing(c.Request().Context(), currentUserID, targetID)
	return outcomeResponse(c, outcome, err)
}

func (h *FollowHandler) Following(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	users, err := h.followService.Following(c.Request().Context(), currentUserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, compactUsers(users))
}

func (h *FollowHandler) Followers(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	users, err := h.followService.Followers(c.Request().Context(), currentUserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, compactUsers(users))
}

// FollowedNotInGroup lists followed users eligible for a direct group add.
func (h *FollowHandler) FollowedNotInGroup(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	groupID, err := formID(c, "groupid")
	if err != nil {
		return err
	}
	users, err := h.followService.FollowedNotInGroup(c.Request().Context(), currentUserID, groupID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, compactUsers(users))
}

func compactUsers(users []models.User) []models.UserCompact {
	out := make([]models.UserCompact, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToCompact())
	}
	return out
}
