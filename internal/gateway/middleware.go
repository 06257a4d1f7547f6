package gateway

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"studybuddy/internal/identity"
	"studybuddy/internal/session"
)

const identityKey = "gateway_identity"

// OptionalSessionMiddleware drops any identity headers the client sent and,
// when the session cookie resolves, forwards the session's user instead.
func OptionalSessionMiddleware(sessions session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity.Strip(c.Request.Header)

		sessionID, err := c.Cookie(session.CookieName)
		if err != nil || sessionID == "" {
			c.Next()
			return
		}

		sess, err := sessions.Get(c.Request.Context(), sessionID)
		if err != nil {
			slog.Debug("Ignoring invalid session",
				"error", err.Error(),
				"request_id", c.GetString("request_id"))
			c.Next()
			return
		}

		who := sess.Identity()
		identity.Apply(c.Request.Header, who)
		c.Set(identityKey, who)
		c.Next()
	}
}

func currentIdentity(c *gin.Context) identity.Identity {
	if v, ok := c.Get(identityKey); ok {
		if who, ok := v.(identity.Identity); ok {
			return who
		}
	}
	return identity.Identity{}
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": "unauthorized: valid session required",
	})
}

// RequireSessionMiddleware must run after OptionalSessionMiddleware
func RequireSessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentIdentity(c).Authenticated() {
			unauthorized(c)
			return
		}
		c.Next()
	}
}

// RequireSessionForWrites lets reads through anonymously and guards every other method
func RequireSessionForWrites() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if !currentIdentity(c).Authenticated() {
			unauthorized(c)
			return
		}
		c.Next()
	}
}
