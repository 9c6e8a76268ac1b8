package auth

import (
	"net/http"
	"strings"

	"careerbot/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	userIDContextKey    = "auth_user_id"
	authTokenContextKey = "auth_token"
	subjectContextKey   = "auth_subject"
)

// Middleware validates bearer tokens and stores the authenticated user in the context.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authToken := s.extractToken(c)
		if authToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		userID, err := s.ValidateToken(c.Request.Context(), authToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(userIDContextKey, userID)
		c.Set(authTokenContextKey, authToken)
		c.Set(subjectContextKey, models.UserSubject(userID))
		c.Next()
	}
}

// Subject resolves who owns the conversation: the token's user when a valid
// token is presented, otherwise the anonymous browser session. A session id
// cookie is issued on first use.
func (s *Service) Subject() gin.HandlerFunc {
	return func(c *gin.Context) {
		if authToken := s.extractToken(c); authToken != "" {
			if userID, err := s.ValidateToken(c.Request.Context(), authToken); err == nil {
				c.Set(userIDContextKey, userID)
				c.Set(authTokenContextKey, authToken)
				c.Set(subjectContextKey, models.UserSubject(userID))
				c.Next()
				return
			}
		}

		sessionID, err := c.Cookie(s.anonCookieName)
		if _, perr := uuid.Parse(sessionID); err != nil || perr != nil {
			sessionID = uuid.NewString()
		}
		// sliding expiry, same as the session history ttl
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     s.anonCookieName,
			Value:    sessionID,
			MaxAge:   int(s.anonTTL.Seconds()),
			Path:     "/",
			Secure:   s.secureCookies,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		c.Set(subjectContextKey, models.AnonymousSubject(sessionID))
		c.Next()
	}
}

// SubjectFromContext returns the subject resolved by Subject or Middleware.
func SubjectFromContext(c *gin.Context) (models.Subject, bool) {
	val, ok := c.Get(subjectContextKey)
	if !ok {
		return models.Subject{}, false
	}
	subject, ok := val.(models.Subject)
	return subject, ok
}

// UserIDFromContext retrieves the authenticated user id from the gin context.
func UserIDFromContext(c *gin.Context) (int64, bool) {
	val, ok := c.Get(userIDContextKey)
	if !ok {
		return 0, false
	}
	userID, ok := val.(int64)
	return userID, ok
}

// AuthTokenFromContext retrieves the bearer token captured by the middleware.
func AuthTokenFromContext(c *gin.Context) (string, bool) {
	val, ok := c.Get(authTokenContextKey)
	if !ok {
		return "", false
	}
	token, ok := val.(string)
	return token, ok
}

func (s *Service) extractToken(c *gin.Context) string {
	authHeader := c.GetHeader(s.headerName)
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	if token, err := c.Cookie(s.cookieName); err == nil && token != "" {
		return token
	}
	return ""
}
