package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"studybuddy/internal/config"
	"studybuddy/internal/identity"
	"studybuddy/internal/session"
)

// CookieConfig controls the session cookie
type CookieConfig struct {
	MaxAge  int
	Secure  bool
	SiteURL string
}

// LoadCookieConfig reads SESSION_MAX_AGE (default 7 days), APP_ENV and SITE_URL
func LoadCookieConfig() CookieConfig {
	return CookieConfig{
		MaxAge:  config.GetEnvInt("SESSION_MAX_AGE", 7*24*3600),
		Secure:  config.GetEnvOrDefault("APP_ENV", "") == "production",
		SiteURL: config.GetEnvOrDefault("SITE_URL", "http://localhost:8080"),
	}
}

// Handler serves the auth endpoints
type Handler struct {
	service   Service
	sessions  session.Manager
	states    *StateStore
	providers map[string]*Provider
	cookie    CookieConfig
}

func NewHandler(service Service, sessions session.Manager, states *StateStore, providers map[string]*Provider, cookie CookieConfig) *Handler {
	return &Handler{
		service:   service,
		sessions:  sessions,
		states:    states,
		providers: providers,
		cookie:    cookie,
	}
}

func userIdentity(u *User) identity.Identity {
	return identity.Identity{UserID: u.ID, Email: u.Email, Username: u.Username}
}

func (h *Handler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, value, maxAge, "/", "", h.cookie.Secure, true)
}

func (h *Handler) startSession(c *gin.Context, u *User) (string, bool) {
	sessionID, err := h.sessions.Create(c.Request.Context(), userIdentity(u), h.cookie.MaxAge)
	if err != nil {
		slog.Error("Failed to create session", "user_id", u.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return "", false
	}
	h.setCookie(c, sessionID, h.cookie.MaxAge)
	return sessionID, true
}

// Signup handles POST /signup
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.Signup(c.Request.Context(), req)
	switch {
	case errors.Is(err, ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "password"})
		return
	case errors.Is(err, ErrEmailExists):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "email_taken",
			"message": "This email is already registered",
			"field":   "email",
		})
		return
	case err != nil:
		slog.Error("Signup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
		return
	}

	sessionID, ok := h.startSession(c, user)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, AuthResponse{User: user, SessionID: sessionID})
}

// Login handles POST /login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.Login(c.Request.Context(), req)
	if errors.Is(err, ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		slog.Error("Login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		return
	}

	sessionID, ok := h.startSession(c, user)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, AuthResponse{User: user, SessionID: sessionID})
}

// Logout handles POST /logout
func (h *Handler) Logout(c *gin.Context) {
	sessionID, err := c.Cookie(session.CookieName)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"message": "already logged out"})
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), sessionID); err != nil {
		slog.Warn("Failed to delete session", "error", err)
	}
	h.setCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

// Me handles GET /me
func (h *Handler) Me(c *gin.Context) {
	sessionID, err := c.Cookie(session.CookieName)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}
	sess, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), sess.UserID)
	if err != nil {
		// the account is gone but the session outlived it
		c.JSON(http.StatusOK, gin.H{"user": sess.Identity()})
		return
	}
	c.JSON(http.StatusOK, AuthResponse{User: user})
}

// OAuthStart handles GET /oauth/:provider
func (h *Handler) OAuthStart(c *gin.Context) {
	p, ok := h.providers[c.Param("provider")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown oauth provider"})
		return
	}

	state, err := h.states.Issue(c.Request.Context(), p.Name)
	if err != nil {
		slog.Error("Failed to issue oauth state", "provider", p.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start login"})
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, p.Config.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// OAuthCallback handles GET /oauth/:provider/callback
func (h *Handler) OAuthCallback(c *gin.Context) {
	ctx := c.Request.Context()
	p, ok := h.providers[c.Param("provider")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown oauth provider"})
		return
	}

	if err := h.states.Consume(ctx, p.Name, c.Query("state")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing authorization code"})
		return
	}

	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		slog.Warn("OAuth code exchange failed", "provider", p.Name, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to exchange authorization code"})
		return
	}

	profile, err := p.Fetch(ctx, p.Config.Client(ctx, token))
	if err != nil {
		slog.Warn("OAuth profile fetch failed", "provider", p.Name, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load profile"})
		return
	}

	user, err := h.service.OAuthLogin(ctx, p.Name, profile)
	if err != nil {
		slog.Error("OAuth login failed", "provider", p.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		return
	}

	if _, ok := h.startSession(c, user); !ok {
		return
	}
	c.Redirect(http.StatusFound, h.cookie.SiteURL)
}
