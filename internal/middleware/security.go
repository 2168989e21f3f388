package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityConfig controls the response security headers.
type SecurityConfig struct {
	HSTSMaxAge int
	// JitsiDomain is allowed in frame-src so the booking UI can embed the
	// consultation room.
	JitsiDomain   string
	CSPDirectives []string
}

func DefaultSecurityConfig(jitsiDomain string) SecurityConfig {
	return SecurityConfig{
		HSTSMaxAge:  31536000,
		JitsiDomain: jitsiDomain,
		CSPDirectives: []string{
			"default-src 'self'",
			"img-src 'self' data: https:",
			"style-src 'self' 'unsafe-inline'",
			"connect-src 'self' https://" + jitsiDomain,
			"frame-src 'self' https://" + jitsiDomain,
		},
	}
}

// SecurityHeaders sets the standard response hardening headers. Clinical data
// passes through this API, so everything defaults to strict.
func SecurityHeaders(config SecurityConfig) gin.HandlerFunc {
	csp := strings.Join(config.CSPDirectives, "; ")
	hsts := fmt.Sprintf("max-age=%d; includeSubDomains", config.HSTSMaxAge)

	return func(c *gin.Context) {
		c.Header("Strict-Transport-Security", hsts)
		c.Header("X-Frame-Options", "SAMEORIGIN")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if csp != "" {
			c.Header("Content-Security-Policy", csp)
		}
		c.Next()
	}
}
