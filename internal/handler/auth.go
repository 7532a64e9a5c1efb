package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/draftdesk/identity/config"
	"github.com/draftdesk/identity/internal/constants"
	"github.com/draftdesk/identity/internal/dto"
	apperrors "github.com/draftdesk/identity/internal/errors"
	"github.com/draftdesk/identity/internal/middleware"
	"github.com/draftdesk/identity/internal/model"
	"github.com/draftdesk/identity/internal/service"
	"github.com/draftdesk/identity/pkg/logger"
	"github.com/draftdesk/identity/pkg/validation"
)

type AuthHandler struct {
	auth   *service.AuthService
	tokens *service.TokenService
	cfg    *config.Config
}

func NewAuthHandler(auth *service.AuthService, tokens *service.TokenService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		tokens: tokens,
		cfg:    cfg,
	}
}

// Signup registers a new account and starts OTP verification.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(bindingErrorMessage(err), nil))
		return
	}

	if _, err := h.auth.Signup(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SignupResponse{Status: "ok", Next: "verify-otp"})
}

// Login starts an OTP challenge for an email address or phone number.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(bindingErrorMessage(err), nil))
		return
	}

	if err := h.auth.LoginChallenge(c.Request.Context(), req.EmailOrPhone); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Code sent"))
}

// RequestOtp re-sends a login code over the requested channel.
func (h *AuthHandler) RequestOtp(c *gin.Context) {
	var req dto.RequestOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(bindingErrorMessage(err), nil))
		return
	}

	channel, target, err := channelTarget(req.Channel, req.Email, req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.auth.RequestOtp(c.Request.Context(), channel, target); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Code sent"))
}

// VerifyOtp checks a submitted code and establishes a session.
func (h *AuthHandler) VerifyOtp(c *gin.Context) {
	var req dto.VerifyOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(bindingErrorMessage(err), nil))
		return
	}

	channel, target, err := channelTarget(req.Channel, req.Email, req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}

	user, token, err := h.auth.VerifyOtp(c.Request.Context(), channel, target, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookie(c, token)
	c.JSON(http.StatusOK, dto.VerifyOtpResponse{
		Status: "ok",
		User:   userResponse(user),
	})
}

// ForgotPassword sends a password-reset code.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(bindingErrorMessage(err), nil))
		return
	}

	channel, target, err := channelTarget(req.Channel, req.Email, req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), channel, target); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Reset code sent"))
}

// ResetPassword consumes a reset code, stores the new password and
// refreshes the session cookie.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(bindingErrorMessage(err), nil))
		return
	}

	channel, target, err := channelTarget(req.Channel, req.Email, req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}

	_, token, err := h.auth.ResetPassword(c.Request.Context(), channel, target, req.Code, req.NewPassword)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookie(c, token)
	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Password updated"))
}

// Me returns the authenticated user's public projection. The session
// middleware has already resolved the user.
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userResponse(user)})
}

// Logout clears the session cookie. Always succeeds.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Signed out"))
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		constants.AccessTokenCookie,
		token,
		int(h.tokens.TTL().Seconds()),
		"/",
		"",
		h.cfg.IsProduction(),
		true,
	)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.AccessTokenCookie, "", -1, "/", "", h.cfg.IsProduction(), true)
}

func respondError(c *gin.Context, err error) {
	status := apperrors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.GetLogger().Error("Request failed", zap.Error(err))
	}
	c.JSON(status, constants.BuildErrorResponse(apperrors.GetErrorMessage(err), nil))
}

// channelTarget picks the identifier matching the requested channel.
func channelTarget(channel, email, phone string) (model.Channel, string, error) {
	ch := model.Channel(channel)
	switch ch {
	case model.ChannelEmail:
		if email == "" {
			return "", "", apperrors.ErrInvalidInput
		}
		return ch, email, nil
	case model.ChannelPhone:
		if phone == "" {
			return "", "", apperrors.ErrInvalidInput
		}
		return ch, phone, nil
	default:
		return "", "", apperrors.ErrInvalidInput
	}
}

func userResponse(user *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Phone: user.Phone,
	}
}

// bindingErrorMessage maps a bind failure onto user-facing copy. Only the
// first field error surfaces; the client fixes one thing at a time.
func bindingErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return validation.Message(verrs[0].Field(), verrs[0].Tag())
	}
	return constants.MsgBadRequest
}
