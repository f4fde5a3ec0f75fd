package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/circlehub/backend/internal/models"
	"github.com/circlehub/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterAuthRoutes registers the unprotected authentication routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/sign-up", h.SignUp)
	g.POST("/sign-up-with-google", h.GoogleSignUp)
	g.POST("/log-in", h.LogIn)
	g.POST("/log-in-with-google", h.GoogleLogIn)
	g.POST("/logout", h.Logout)
	g.POST("/update-email-confirmation", h.ConfirmEmail)
	g.POST("/check-password-for-reset", h.RequestPasswordReset)
	g.POST("/check-code-submit-forget-password", h.CheckResetCode)
	g.POST("/update-forget-new-password", h.UpdatePassword)
	g.POST("/expire-password", h.ExpireReset)
}

// SignUp handles multipart local registration with a profile image.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req models.SignUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var image []byte
	if fh, err := c.FormFile("profileimage"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Unable to read profile image")
		}
		defer f.Close()
		image, err = io.ReadAll(f)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Unable to read profile image")
		}
	}

	user, err := h.authService.SignUp(c.Request().Context(), &req, image)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User created successfully",
		"userid":  strconv.FormatInt(user.ID, 10),
	})
}

// GoogleSignUp creates an account from a verified Firebase ID token.
func (h *AuthHandler) GoogleSignUp(c echo.Context) error {
	var req models.GoogleSignUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	token, user, err := h.authService.GoogleSignUp(c.Request().Context(), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"token": token, "user": user})
}

// LogIn issues a JWT for valid credentials.
func (h *AuthHandler) LogIn(c echo.Context) error {
	var req models.LogInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	token, user, err := h.authService.LogIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token, "user": user})
}

// GoogleLogIn issues a JWT for an account linked to a Firebase UID.
func (h *AuthHandler) GoogleLogIn(c echo.Context) error {
	idToken := c.FormValue("id_token")
	if idToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing id_token")
	}
	token, user, err := h.authService.GoogleLogIn(c.Request().Context(), idToken)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token, "user": user})
}

// Logout revokes the presented bearer token.
func (h *AuthHandler) Logout(c echo.Context) error {
	authHeader := c.Request().Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Missing bearer token")
	}
	h.authService.Logout(parts[1])
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

// ConfirmEmail is the target of the emailed confirmation link.
func (h *AuthHandler) ConfirmEmail(c echo.Context) error {
	userID, err := strconv.ParseInt(c.FormValue("userid"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	if err := h.authService.ConfirmEmail(c.Request().Context(), userID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Email confirmed successfully"})
}

// RequestPasswordReset starts the reset flow. Clients branch on
// "matched"/"notmatched".
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req models.RequestPasswordResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	outcome, reset, err := h.authService.RequestPasswordReset(c.Request().Context(), req.Email)
	if err != nil {
		return httpError(err)
	}
	resp := echo.Map{"message": outcome.ClientMessage()}
	if reset != nil {
		resp["passwordresetid"] = reset.ID
	}
	return c.JSON(http.StatusOK, resp)
}

// CheckResetCode verifies a submitted reset code.
func (h *AuthHandler) CheckResetCode(c echo.Context) error {
	var req models.CheckResetCodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	outcome, err := h.authService.CheckResetCode(c.Request().Context(), req.PasswordResetID, req.Code)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": outcome.ClientMessage()})
}

// UpdatePassword finishes the reset flow.
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	var req models.UpdatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.authService.UpdatePassword(c.Request().Context(), req.PasswordResetID, req.NewPassword); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password updated successfully"})
}

// ExpireReset abandons an outstanding reset attempt.
func (h *AuthHandler) ExpireReset(c echo.Context) error {
	resetID := c.FormValue("passwordresetid")
	if resetID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing passwordresetid")
	}
	if err := h.authService.ExpireReset(c.Request().Context(), resetID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password reset expired"})
}
