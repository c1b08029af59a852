package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS returns gin-contrib/cors configured against an explicit allowlist.
// An empty allowlist means allow-all, with credentials disabled since
// AllowCredentials and a wildcard origin are mutually exclusive in the CORS
// spec itself.
func CORS(allowlist []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: len(allowlist) > 0,
	}
	if len(allowlist) > 0 {
		cfg.AllowOrigins = allowlist
	} else {
		cfg.AllowAllOrigins = true
	}
	return cors.New(cfg)
}
