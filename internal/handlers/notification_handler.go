package handlers

import (
	"net/http"
	"strconv"

	"github.com/circlehub/backend/internal/models"
	"github.com/circlehub/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles notification HTTP requests
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
	userRepository         repositories.UserRepository
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationRepo repositories.NotificationRepository, userRepo repositories.UserRepository) *NotificationHandler {
	return &NotificationHandler{
		notificationRepository: notificationRepo,
		userRepository:         userRepo,
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.POST("/update_user_notification_seen_status", h.MarkSeen)
	g.POST("/mark_all_notifications_seen", h.MarkAllSeen)
}

type notificationView struct {
	models.Notification
	Actor *models.UserCompact `json:"actor,omitempty"`
}

// GetNotifications returns the caller's notifications, newest first, with
// the acting user attached so the client does not round-trip per row.
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	ctx := c.Request().Context()
	notifications, total, err := h.notificationRepository.GetByRecipientID(ctx, currentUserID, page, limit)
	if err != nil {
		return httpError(err)
	}

	actors := make(map[int64]*models.UserCompact)
	views := make([]notificationView, 0, len(notifications))
	for _, n := range notifications {
		view := notificationView{Notification: n}
		if n.ActorID != 0 {
			actor, ok := actors[n.ActorID]
			if !ok {
				if u, err := h.userRepository.GetUserByID(ctx, n.ActorID); err == nil {
					compact := u.ToCompact()
					actor = &compact
				}
				actors[n.ActorID] = actor
			}
			view.Actor = actor
		}
		views = append(views, view)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"notifications": views,
		"total":         total,
		"page":          page,
		"limit":         limit,
	})
}

func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	count, err := h.notificationRepository.GetUnreadCount(c.Request().Context(), currentUserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": count})
}

func (h *NotificationHandler) MarkSeen(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	id, err := strconv.ParseUint(c.FormValue("notificationid"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid notification ID")
	}
	if err := h.notificationRepository.MarkSeen(c.Request().Context(), uint(id)); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Notification status updated successfully"})
}

// MarkAllSeen marks every notification seen and drops the user's unread flag
// in the same transaction.
func (h *NotificationHandler) MarkAllSeen(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	if err := h.notificationRepository.MarkAllSeen(c.Request().Context(), currentUserID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Notification status updated successfully"})
}
