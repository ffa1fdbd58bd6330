package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/config"
)

// Context keys for request identity
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyAuthType = "auth_type"
)

// ActingUserHeader names the library member on whose behalf a request is made.
const ActingUserHeader = "X-User-Id"

// AuthType indicates how the request was authenticated
type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeBasic AuthType = "basic"
)

const realm = `Basic realm="library"`

// Middleware handles authentication for HTTP requests.
type Middleware struct {
	mode        config.AuthMode
	credentials Credentials
	publicPaths map[string]bool
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(cfg config.Auth) *Middleware {
	return &Middleware{
		mode:        cfg.Mode,
		credentials: NewCredentials(cfg),
		publicPaths: map[string]bool{
			"/health":  true,
			"/healthz": true,
		},
	}
}

// Handler returns a Gin middleware handler that authenticates requests.
func (m *Middleware) Handler() gin.HandlerFunc {
	if m.mode == config.AuthModeNone {
		return m.noAuthHandler()
	}
	return m.basicHandler()
}

func (m *Middleware) noAuthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		setIdentity(c, AuthTypeNone)
		c.Next()
	}
}

func (m *Middleware) basicHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.publicPaths[c.Request.URL.Path] {
			setIdentity(c, AuthTypeNone)
			c.Next()
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if !ok || !m.credentials.Verify(user, pass) {
			c.Header("WWW-Authenticate", realm)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
				"code":  "UNAUTHORIZED",
			})
			return
		}

		setIdentity(c, AuthTypeBasic)
		c.Next()
	}
}

func setIdentity(c *gin.Context, authType AuthType) {
	c.Set(ContextKeyAuthType, authType)
	if id := strings.TrimSpace(c.GetHeader(ActingUserHeader)); id != "" {
		c.Set(ContextKeyUserID, id)
	}
}

// GetUserID returns the acting member's ID, or "" when none was given.
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}

// GetAuthType retrieves the authentication method used.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}
