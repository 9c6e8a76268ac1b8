package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"careerbot/internal/apperr"
	"careerbot/internal/auth"
	"careerbot/internal/models"
	"careerbot/internal/service/advisor"
	"careerbot/internal/service/assistant"
	"careerbot/internal/service/extract"
)

// Handler wires HTTP routes to the advisor, account and auth services.
type Handler struct {
	advisor   *advisor.Advisor
	assistant *assistant.Service
	auth      *auth.Service
	extractor *extract.Extractor
	logger    *zap.Logger
	maxUpload int64
}

// NewHandler constructs a Handler instance.
func NewHandler(adv *advisor.Advisor, service *assistant.Service, authService *auth.Service, extractor *extract.Extractor, maxUpload int64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Handler{
		advisor:   adv,
		assistant: service,
		auth:      authService,
		extractor: extractor,
		logger:    logger,
		maxUpload: maxUpload,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.health)

	api := router.Group("/api")
	api.GET("/features", h.listFeatures)
	api.POST("/users/register", h.registerUser)
	api.POST("/users/login", h.loginUser)

	open := api.Group("")
	open.Use(h.auth.Subject(), h.auth.CSRFMiddleware())
	open.POST("/careers", h.careerNames)
	open.POST("/advice/careers", h.adviceRoute(models.FeatureCareerPaths, "interest", "advice"))
	open.POST("/advice/resume", h.resumeFeedback)
	open.POST("/advice/market", h.adviceRoute(models.FeatureMarketInsights, "topic", "insights"))
	open.POST("/advice/college", h.adviceRoute(models.FeatureCollegeAdvice, "major", "advice"))
	open.POST("/advice/interview", h.adviceRoute(models.FeatureInterviewTips, "role", "tips"))
	open.POST("/chat", h.chat)
	open.POST("/chat/clear", h.clearChat)
	open.POST("/chat/history", h.chatHistory)

	user := api.Group("")
	user.Use(h.auth.Middleware(), h.auth.CSRFMiddleware())
	user.POST("/users/logout", h.logoutUser)
	user.GET("/users/me", h.getProfile)
	user.PUT("/users/me", h.updateProfile)
	user.DELETE("/users/me", h.deleteUser)
	user.POST("/saved", h.saveResponse)
	user.GET("/saved", h.listSaved)
	user.DELETE("/saved/:id", h.deleteSaved)
}

func (h *Handler) health(c *gin.Context) {
	if err := h.assistant.Ping(c.Request.Context()); err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) listFeatures(c *gin.Context) {
	features := make(map[string]string, len(models.Features))
	for _, f := range models.Features {
		features[f.String()] = f.Name()
	}
	c.JSON(http.StatusOK, gin.H{"features": features})
}

func (h *Handler) authorizedUserID(c *gin.Context) (int64, bool) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok || userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return 0, false
	}
	return userID, true
}

func (h *Handler) subject(c *gin.Context) (models.Subject, bool) {
	subject, ok := auth.SubjectFromContext(c)
	if !ok {
		h.logger.Error("subject missing from context", zap.String("path", c.FullPath()))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "internal error"})
		return models.Subject{}, false
	}
	return subject, true
}

func parseFeature(raw string) (models.Feature, error) {
	f, err := models.ParseFeature(raw)
	if err != nil {
		return 0, apperr.Validation("feature_id", err.Error())
	}
	return f, nil
}

// writeError maps service errors onto HTTP statuses.
func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		verr *apperr.ValidationError
		ferr *apperr.FileProcessingError
	)
	switch {
	case errors.As(err, &verr):
		body := gin.H{"status": "error", "error": verr.Message}
		if verr.Field != "" {
			body["field"] = verr.Field
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &ferr):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": ferr.Message})
	case apperr.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": err.Error()})
	case errors.Is(err, advisor.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"status": "error", "error": err.Error()})
	case errors.Is(err, assistant.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": err.Error()})
	default:
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "internal error"})
	}
}

func (h *Handler) setAuthCookies(c *gin.Context, authToken, csrfToken string) {
	ttl := int(h.auth.TokenTTL().Seconds())
	if ttl <= 0 {
		ttl = 3600
	}
	secure := h.auth.SecureCookies()
	setCookie(c, &http.Cookie{
		Name:     h.auth.AuthCookieName(),
		Value:    authToken,
		MaxAge:   ttl,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	setCookie(c, &http.Cookie{
		Name:     h.auth.CSRFCookieName(),
		Value:    csrfToken,
		MaxAge:   ttl,
		Path:     "/",
		Secure:   secure,
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearAuthCookies(c *gin.Context) {
	for _, name := range []string{h.auth.AuthCookieName(), h.auth.CSRFCookieName()} {
		setCookie(c, &http.Cookie{
			Name:     name,
			Value:    "",
			MaxAge:   -1,
			Path:     "/",
			Secure:   h.auth.SecureCookies(),
			HttpOnly: name == h.auth.AuthCookieName(),
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func setCookie(c *gin.Context, ck *http.Cookie) {
	if ck == nil {
		return
	}
	http.SetCookie(c.Writer, ck)
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
