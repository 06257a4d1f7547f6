// Package identity carries the acting user between the gateway and the
// services. The gateway resolves the session and forwards the user as
// headers; services rebuild an Identity from them and pass it explicitly.
package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Headers set by the gateway after session validation
const (
	HeaderUserID   = "X-User-ID"
	HeaderEmail    = "X-User-Email"
	HeaderUsername = "X-User-Name"
)

// AnonymousName is shown when a user has neither username nor email
const AnonymousName = "Anonymous"

const contextKey = "identity"

// Identity is the current user. The zero value is an anonymous viewer.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Authenticated reports whether the identity belongs to a signed in user
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// DisplayName prefers the configured username, then email, then AnonymousName
func (i Identity) DisplayName() string {
	if name := strings.TrimSpace(i.Username); name != "" {
		return name
	}
	if email := strings.TrimSpace(i.Email); email != "" {
		return email
	}
	return AnonymousName
}

// UUID parses UserID. The second result is false for anonymous or malformed ids.
func (i Identity) UUID() (uuid.UUID, bool) {
	id, err := uuid.Parse(i.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// FromHeaders reads the gateway headers. A malformed user id yields an anonymous identity.
func FromHeaders(h http.Header) Identity {
	id := Identity{
		UserID:   strings.TrimSpace(h.Get(HeaderUserID)),
		Email:    strings.TrimSpace(h.Get(HeaderEmail)),
		Username: strings.TrimSpace(h.Get(HeaderUsername)),
	}
	if id.UserID == "" {
		return Identity{}
	}
	if _, err := uuid.Parse(id.UserID); err != nil {
		return Identity{}
	}
	return id
}

// Apply writes the identity onto outgoing headers, removing stale values first
func Apply(h http.Header, id Identity) {
	Strip(h)
	if !id.Authenticated() {
		return
	}
	h.Set(HeaderUserID, id.UserID)
	if id.Email != "" {
		h.Set(HeaderEmail, id.Email)
	}
	if id.Username != "" {
		h.Set(HeaderUsername, id.Username)
	}
}

// Strip removes identity headers so clients cannot forge them
func Strip(h http.Header) {
	h.Del(HeaderUserID)
	h.Del(HeaderEmail)
	h.Del(HeaderUsername)
}

// Middleware stores the identity (possibly anonymous) in the gin context
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextKey, FromHeaders(c.Request.Header))
		c.Next()
	}
}

// Require aborts with 401 unless the request carries an authenticated identity
func Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := FromHeaders(c.Request.Header)
		if !id.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Unauthorized: missing user authentication",
			})
			return
		}
		c.Set(contextKey, id)
		c.Next()
	}
}

// FromContext returns the identity stored by Middleware or Require
func FromContext(c *gin.Context) Identity {
	if v, ok := c.Get(contextKey); ok {
		if id, ok := v.(Identity); ok {
			return id
		}
	}
	return FromHeaders(c.Request.Header)
}
