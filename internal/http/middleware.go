package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"techanswers/internal/auth"
	"techanswers/internal/service"
)

const claimsKey = "claims"

func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allow := origin
		if allow == "" {
			allow = "*"
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", allow)
		if allow != "*" {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, Stripe-Signature")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, Retry-After")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Debug("request")
		}
	}
}

// identify attaches the claims of the first valid token found to the context.
// Admin routes look at the admin-token cookie first.
func (h *Handler) identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, raw := range h.candidateTokens(c) {
			claims, err := h.tokens.Parse(raw)
			if err == nil {
				c.Set(claimsKey, claims)
				break
			}
		}
		c.Next()
	}
}

func (h *Handler) candidateTokens(c *gin.Context) []string {
	var tokens []string
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		tokens = append(tokens, strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
	}
	names := []string{tokenCookie, adminTokenCookie}
	if strings.HasPrefix(c.Request.URL.Path, "/api/admin") {
		names = []string{adminTokenCookie, tokenCookie}
	}
	for _, name := range names {
		if v, err := c.Cookie(name); err == nil && v != "" {
			tokens = append(tokens, v)
		}
	}
	return tokens
}

func claimsFrom(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

func actor(c *gin.Context) service.Actor {
	claims, ok := claimsFrom(c)
	if !ok {
		return service.Actor{}
	}
	return service.Actor{UserID: claims.UserID, IsAdmin: claims.IsAdmin, IsSuperAdmin: claims.IsSuperAdmin}
}

func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := claimsFrom(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentification requise"})
			return
		}
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return requireRole(func(claims *auth.Claims) bool { return claims.IsAdmin })
}

func requireSuperAdmin() gin.HandlerFunc {
	return requireRole(func(claims *auth.Claims) bool { return claims.IsSuperAdmin })
}

func requireRole(allowed func(*auth.Claims) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentification requise"})
			return
		}
		if !allowed(claims) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
			return
		}
		c.Next()
	}
}

func fingerprint(c *gin.Context) string {
	return auth.RequestFingerprint(c.Request, c.ClientIP())
}

func (h *Handler) setCookie(c *gin.Context, name, value string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(ttl.Seconds()), "/", "", h.opts.CookieSecure, true)
}

func (h *Handler) clearCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", h.opts.CookieSecure, true)
}

// isUnauthenticated reports token errors that should read as 401.
func isUnauthenticated(err error) bool {
	return errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken)
}
