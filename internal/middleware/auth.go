package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/Raed-Bourouis/VoiceUP/internal/config"
)

// GatewayAuth guards the local gateway. The UI shell presents the
// token the installer generated; only its bcrypt hash lives in the
// daemon's config.
func GatewayAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.GatewayTokenHash == "" {
			// Unconfigured is only acceptable on a dev machine
			if cfg.Environment == "development" {
				c.Next()
				return
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "gateway token not configured"})
			c.Abort()
			return
		}

		token := bearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(cfg.GatewayTokenHash), []byte(token)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid gateway token"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.Split(header, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	// Socket handshakes cannot set headers and pass the token as a
	// query param instead
	return c.Query("token")
}
