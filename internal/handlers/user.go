package handlers

import (
	"encoding/base64"
	"net/http"
	"strconv"

	"github.com/circlehub/backend/internal/blobstore"
	"github.com/circlehub/backend/internal/models"
	"github.com/circlehub/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// UserHandler handles profile and presence HTTP requests
type UserHandler struct {
	userRepository repositories.UserRepository
	blobs          blobstore.Store
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, blobs blobstore.Store) *UserHandler {
	return &UserHandler{userRepository: userRepo, blobs: blobs}
}

// RegisterUserRoutes registers profile and presence routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("/users/:id", h.GetUser)
	g.PUT("/update-user-profile", h.UpdateProfile)
	g.GET("/users/:id/profile-image", h.GetProfileImage)
	g.POST("/update_online_status", h.SetOnline)
	g.POST("/update_online_status_hidden", h.SetOffline)
	g.POST("/check_postowner_online_status", h.CheckOnline)
	g.GET("/users/search", h.SearchUsers)
}

func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	user, err := h.userRepository.GetUserByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), currentUserID)
	if err != nil {
		return httpError(err)
	}
	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Birthdate != "" {
		user.Birthdate = req.Birthdate
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = req.PhoneNumber
	}
	if err := h.userRepository.UpdateUser(c.Request().Context(), user); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// GetProfileImage serves the stored blob base64-encoded, the shape the
// mobile clients expect.
func (h *UserHandler) GetProfileImage(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	user, err := h.userRepository.GetUserByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if user.ProfileImageRef == "" {
		return echo.NewHTTPError(http.StatusNotFound, "No profile image")
	}
	data, err := h.blobs.Get(c.Request().Context(), user.ProfileImageRef)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"profileimage": base64.StdEncoding.EncodeToString(data),
	})
}

func (h *UserHandler) SetOnline(c echo.Context) error {
	return h.setOnline(c, true)
}

func (h *UserHandler) SetOffline(c echo.Context) error {
	return h.setOnline(c, false)
}

func (h *UserHandler) setOnline(c echo.Context, online bool) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	if err := h.userRepository.SetOnline(c.Request().Context(), currentUserID, online); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Online status updated"})
}

// CheckOnline reports another user's presence as "yes"/"no".
func (h *UserHandler) CheckOnline(c echo.Context) error {
	targetID, err := strconv.ParseInt(c.FormValue("userid"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	user, err := h.userRepository.GetUserByID(c.Request().Context(), targetID)
	if err != nil {
		return httpError(err)
	}
	message := "no"
	if user.Online {
		message = "yes"
	}
	return c.JSON(http.StatusOK, echo.Map{"message": message})
}

// SearchUsers searches users by name or email
func (h *UserHandler) SearchUsers(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing search query")
	}
	users, err := h.userRepository.SearchUsers(c.Request().Context(), query)
	if err != nil {
		return httpError(err)
	}
	compact := make([]models.UserCompact, len(users))
	for i := range users {
		compact[i] = users[i].ToCompact()
	}
	return c.JSON(http.StatusOK, echo.Map{"users": compact})
}
