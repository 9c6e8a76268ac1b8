package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"careerbot/internal/apperr"
	"careerbot/internal/auth"
	"careerbot/internal/service/assistant"
)

type registerRequest struct {
	Username        string `form:"username" json:"username"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

type loginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

type profileRequest struct {
	Username        string `form:"username" json:"username"`
	Email           string `form:"email" json:"email"`
	CurrentPassword string `form:"current_password" json:"current_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

type saveRequest struct {
	FeatureID string `form:"feature_id" json:"feature_id"`
	Title     string `form:"title" json:"title"`
	Response  string `form:"response" json:"response"`
}

func (h *Handler) registerUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request"})
		return
	}
	if req.Password != req.ConfirmPassword {
		h.writeError(c, apperr.Validation("confirm_password", "passwords must match"))
		return
	}
	user, err := h.assistant.RegisterUser(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) loginUser(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request"})
		return
	}
	user, err := h.assistant.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, assistant.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "invalid email or password"})
			return
		}
		h.writeError(c, err)
		return
	}
	token, err := h.auth.IssueToken(c.Request.Context(), user.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	csrfToken, err := h.auth.NewCSRFToken()
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.setAuthCookies(c, token, csrfToken)
	h.logger.Info("user logged in", zap.Int64("user_id", user.ID))
	c.JSON(http.StatusOK, gin.H{
		"user":       user,
		"auth_token": token,
	})
}

func (h *Handler) logoutUser(c *gin.Context) {
	token, ok := auth.AuthTokenFromContext(c)
	if !ok || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "authorization required"})
		return
	}
	if err := h.auth.RevokeToken(c.Request.Context(), token); err != nil {
		h.writeError(c, err)
		return
	}
	h.clearAuthCookies(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) getProfile(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	user, err := h.assistant.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) updateProfile(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	var req profileRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request"})
		return
	}
	if req.NewPassword != "" && req.NewPassword != req.ConfirmPassword {
		h.writeError(c, apperr.Validation("confirm_password", "passwords must match"))
		return
	}
	user, err := h.assistant.UpdateProfile(c.Request.Context(), userID, assistant.ProfileUpdate{
		Username:        req.Username,
		Email:           req.Email,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) deleteUser(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.auth.RevokeUserTokens(ctx, userID); err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.assistant.DeleteUser(ctx, userID); err != nil {
		h.writeError(c, err)
		return
	}
	h.clearAuthCookies(c)
	h.logger.Info("user deleted", zap.Int64("user_id", userID))
	c.Status(http.StatusNoContent)
}

func (h *Handler) saveResponse(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	var req saveRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request"})
		return
	}
	feature, err := parseFeature(req.FeatureID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	id, err := h.assistant.SaveResponse(c.Request.Context(), userID, feature, req.Title, req.Response)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "id": id})
}

func (h *Handler) listSaved(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	saved, err := h.assistant.ListSavedResponses(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved_responses": saved})
}

func (h *Handler) deleteSaved(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c.Param("id"))
	if !ok {
		h.writeError(c, apperr.Validation("id", "invalid id"))
		return
	}
	if err := h.assistant.DeleteSavedResponse(c.Request.Context(), userID, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
