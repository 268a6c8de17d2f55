package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuthHandler struct {
	service *UserService
}

func NewAuthHandler(service *UserService) *AuthHandler {
	return &AuthHandler{service: service}
}

// statusForError maps service errors onto the response taxonomy:
// validation 400, unknown user 404, everything unexpected 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrEmailNotVerified),
		errors.Is(err, ErrPhoneNotVerified),
		errors.Is(err, ErrInvalidOTP),
		errors.Is(err, ErrInvalidEmailToken),
		errors.Is(err, ErrEmailRegistered),
		errors.Is(err, ErrPhoneRegistered),
		errors.Is(err, ErrInvalidPhone),
		errors.Is(err, ErrPhoneUnverified),
		errors.Is(err, ErrAlreadyVerified),
		errors.Is(err, ErrWrongPassword),
		errors.Is(err, ErrDuplicateIdentity):
		return http.StatusBadRequest
	case errors.Is(err, ErrOTPDelivery):
		return http.StatusInternalServerError
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *AuthHandler) SendOTP(c echo.Context) error {
	var req SendOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request"})
	}

	if err := h.service.RequestOTP(c.Request().Context(), req.Email, req.Phone); err != nil {
		return c.JSON(statusForError(err), map[string]string{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "OTP sent successfully to your institute email"})
}

func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request"})
	}

	if err := h.service.VerifyOTP(c.Request().Context(), req.Email, req.Phone, req.OTP); err != nil {
		return c.JSON(statusForError(err), map[string]string{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "OTP verified successfully"})
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request"})
	}

	if err := h.service.Register(c.Request().Context(), req); err != nil {
		return c.JSON(statusForError(err), map[string]string{"message": err.Error()})
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"message": "Registration successful. Please check your email to verify your account.",
	})
}

// VerifyEmail lands from the link in the verification mail, so the
// outcome is a redirect to the frontend login page rather than JSON.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	token := c.Param("token")
	frontend := os.Getenv("FRONTEND_URL")
	if frontend == "" {
		frontend = "http://localhost:3000"
	}

	if err := h.service.VerifyEmail(c.Request().Context(), token); err != nil {
		dest := fmt.Sprintf("%s/login?error=%s", frontend, url.QueryEscape(err.Error()))
		return c.Redirect(http.StatusFound, dest)
	}
	dest := fmt.Sprintf("%s/login?success=%s", frontend,
		url.QueryEscape("Email verified successfully. You can now log in."))
	return c.Redirect(http.StatusFound, dest)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request"})
	}

	token, user, err := h.service.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return c.JSON(statusForError(err), map[string]string{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"token": token,
		"user": map[string]interface{}{
			"id":    user.ID.Hex(),
			"name":  user.Name,
			"email": user.Email,
			"phone": user.Phone,
			"role":  user.Role,
		},
	})
}

func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req ResendVerificationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request"})
	}

	if err := h.service.ResendVerification(c.Request().Context(), req.Email); err != nil {
		return c.JSON(statusForError(err), map[string]string{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Verification email sent successfully"})
}

// VerifyToken reports whether the soft-auth pass attached an identity.
func (h *AuthHandler) VerifyToken(c echo.Context) error {
	claims, ok := c.Get("user").(*JWTClaims)
	if !ok || claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Invalid or expired token"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"valid":   true,
		"userId":  claims.UserID,
		"message": "Token is valid",
	})
}

func (h *AuthHandler) GetProfile(c echo.Context) error {
	claims, ok := c.Get("user").(*JWTClaims)
	if !ok || claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Authentication required"})
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Invalid token"})
	}

	user, err := h.service.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(statusForError(err), map[string]string{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	claims, ok := c.Get("user").(*JWTClaims)
	if !ok || claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Authentication required"})
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Invalid token"})
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request"})
	}

	user, err := h.service.UpdateProfile(c.Request().Context(), userID, req)
	if err != nil {
		return c.JSON(statusForError(err), map[string]string{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, user)
}
