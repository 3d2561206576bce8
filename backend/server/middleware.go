package server

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"mangrovewatch/backend/server/api"
)

// SecurityHeaders adds security headers to responses.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("X-XSS-Protection", "1; mode=block")
		c.Writer.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Next()
	}
}

// Each client gets a token bucket: 10 req/s sustained, bursts of 20.
const (
	rateLimitPerSecond = 10
	rateLimitBurst     = 20
)

var (
	limitersMu sync.Mutex
	limiters   = map[string]*rate.Limiter{}
)

func clientLimiter(clientIP string) *rate.Limiter {
	limitersMu.Lock()
	defer limitersMu.Unlock()
	limiter, ok := limiters[clientIP]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(rateLimitPerSecond), rateLimitBurst)
		limiters[clientIP] = limiter
	}
	return limiter
}

// RateLimitMiddleware implements per-client rate limiting.
func RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !clientLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, api.ErrorResponse{
				Status:  "error",
				Message: "Too many requests, slow down.",
			})
			return
		}
		c.Next()
	}
}

// AuthMiddleware validates JWT tokens for protected routes.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResponse{
				Status:  "error",
				Message: "Missing authorization header.",
			})
			return
		}

		tokenString := extractToken(authHeader)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResponse{
				Status:  "error",
				Message: "Invalid authorization format.",
			})
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResponse{
				Status:  "error",
				Message: "Invalid or expired token.",
			})
			return
		}

		if sub, ok := claims["sub"].(float64); ok {
			c.Set("auth_user_id", int64(sub))
		}
		c.Next()
	}
}

func extractToken(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
