package handlers

import (
	"net/http"
	"strconv"

	"github.com/circlehub/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// MembershipHandler handles group membership HTTP requests
type MembershipHandler struct {
	membershipService *services.MembershipService
}

// NewMembershipHandler creates a new MembershipHandler
func NewMembershipHandler(membershipService *services.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipService: membershipService}
}

// RegisterMembershipRoutes registers membership routes
func (h *MembershipHandler) RegisterMembershipRoutes(g *echo.Group) {
	g.POST("/join-group", h.ToggleJoin)
	g.POST("/ask_permission_from_admin_to_join_group", h.RequestJoin)
	g.POST("/accept-user-from-group", h.AcceptUser)
	g.POST("/add_iamfollowed_users_into_group", h.AddMember)
	g.POST("/change_user_type_in_group", h.ChangeUserType)
	g.POST("/change_user_type_mod_into_user", h.DemoteToMember)
	g.POST("/remove-user-from-group", h.RemoveUser)
	g.POST("/check-isa-member-of-group", h.CheckIsMember)
	g.POST("/check_group_join_accepted", h.CheckJoinAccepted)
}

func formID(c echo.Context, field string) (int64, error) {
	id, err := strconv.ParseInt(c.FormValue(field), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+field)
	}
	return id, nil
}

func outcomeResponse(c echo.Context, outcome services.Outcome, err error) error {
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": outcome.ClientMessage()})
}

// ToggleJoin joins the caller into a public group, or takes them out again
// if they are already in it.
func (h *MembershipHandler) ToggleJoin(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	groupID, err := formID(c, "groupid")
	if err != nil {
		return err
	}
	outcome, err := h.membershipService.ToggleJoin(c.Request().Context(), currentUserID, groupID)
	return outcomeResponse(c, outcome, err)
}

// RequestJoin files a pending join request for a private group and notifies
// its admin.
func (h *MembershipHandler) RequestJoin(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	groupID, err := formID(c, "groupid")
	if err != nil {
		return err
	}
	outcome, err := h.membershipService.RequestJoin(c.Request().Context(), currentUserID, groupID)
	return outcomeResponse(c, outcome, err)
}

// AcceptUser turns a pending request into an active membership.
func (h *MembershipHandler) AcceptUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	userID, err := formID(c, "userid")
	if err != nil {
		return err
	}
	groupID, err := formID(c, "groupid")
	if err != nil {
		return err
	}
	outcome, err := h.membershipService.Approve(c.Request().Context(), currentUserID, userID, groupID)
	return outcomeResponse(c, outcome, err)
}

// AddMember puts a user straight into the group as an active member.
func (h *MembershipHandler) AddMember(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	userID, err := formID(c, "userid")
	if err != nil {
		return err
	}
	groupID, err := formID(c, "groupid")
	if err != nil {
		return err
	}
	outcome, err := h.membershipService.AddMember(c.Request().Context(), currentUserID, userID, groupID)
	return outcomeResponse(c, outcome, err)
}

func (h *MembershipHandler) ChangeUserType(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	var req struct {
		UserID  int64  `form:"userid" validate:"required"`
		GroupID int64  `form:"groupid" validate:"required"`
		Role    string `form:"usertype" validate:"required,oneof=admin moderator member"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	outcome, err := h.membershipService.ChangeRole(c.Request().Context(), currentUserID, req.UserID, req.GroupID, req.Role)
	return outcomeResponse(c, outcome, err)
}

func (h *MembershipHandler) DemoteToMember(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	userID, err := formID(c, "userid")
	if err != nil {
		return err
	}
	groupID, err := formID(c, "groupid")
	if err != nil {
		return err
	}
	outcome, err := h.membershipService.DemoteToMember(c.Request().Context(), currentUserID, userID, groupID)
	return outcomeResponse(c, outcome, err)
}

// RemoveUser removes a member from the group. Members can remove themselves,
// anyone else needs a manager role.
func (h *MembershipHandler) RemoveUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	userID, err := formID(c, "userid")
	if err != nil {
		return err
	}
	groupID, err := formID(c, "groupid")
	if err != nil {
		return err
	}
	outcome, err := h.membershipService.Remove(c.Request().Context(), currentUserID, userID, groupID)
	return outcomeResponse(c, outcome, err)
}

// CheckIsMember answers yes/no for active membership of the caller.
func (h *MembershipHandler) CheckIsMember(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	groupID, err := formID(c, "groupid")
	if err != nil {
		return err
	}
	outcome, err := h.membershipService.IsMember(c.Request().Context(), currentUserID, groupID)
	return outcomeResponse(c, outcome, err)
}

// CheckJoinAccepted answers yes/no for whether a pending request has been
// approved yet.
func (h *MembershipHandler) CheckJoinAccepted(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	groupID, err := formID(c, "groupid")
	if err != nil {
		return err
	}
	outcome, err := h.membershipService.JoinAccepted(c.Request().Context(), currentUserID, groupID)
	return outcomeResponse(c, outcome, err)
}
