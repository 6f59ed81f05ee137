// Package httpkit provides HTTP middleware infrastructure.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"venue_backend/platform/apperr"
	"venue_backend/platform/config"
	"venue_backend/platform/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// ContextCallerIDKey is the gin context key for the authenticated caller (token subject).
	ContextCallerIDKey = "callerID"

	// HeaderRequestID carries the request id in both directions.
	HeaderRequestID = "X-Request-ID"

	// CORSAllowHeaders are the request headers browser clients may send.
	CORSAllowHeaders = "authorization, x-client-info, apikey, content-type"

	errMissingToken = "missing token"
	errInvalidToken = "invalid token"
)

// RequestID assigns a request id (or keeps the caller's) and stores it in the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger logs HTTP requests with timing.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		log.WithContext(c.Request.Context()).
			HTTPRequest(c.Request.Method, path, c.Writer.Status(), float64(latency.Milliseconds()), c.ClientIP())
	}
}

// Recovery converts panics into the standard 500 error body.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		err := fmt.Errorf("panic: %v", recovered)
		log.HTTPError(c.Request.Method, c.Request.URL.Path, http.StatusInternalServerError, err, c.ClientIP())
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "Unexpected error"})
	})
}

// CORS returns permissive CORS handling for browser clients. Preflights
// answer 200 so they match the plain OPTIONS handler.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              []string{http.MethodPost, http.MethodOptions},
		AllowHeaders:              strings.Split(strings.ReplaceAll(CORSAllowHeaders, " ", ""), ","),
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	})
}

// PreflightOK answers OPTIONS requests that carry no Origin header.
// The CORS middleware only handles requests with an Origin.
func PreflightOK(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", CORSAllowHeaders)
	c.String(http.StatusOK, "ok")
}

// IPRateLimiter manages per-IP rate limiters.
type IPRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

// NewIPRateLimiter creates a new IP-based rate limiter.
func NewIPRateLimiter(r rate.Limit, burst int, log *logger.Logger) *IPRateLimiter {
	return &IPRateLimiter{
		rate:  r,
		burst: burst,
		log:   log,
	}
}

// NewPerMinuteLimiter allows perMinute requests per IP per minute with an equal burst.
// Returns nil when perMinute is not positive, which disables limiting.
func NewPerMinuteLimiter(cfg config.RateLimitConfig, log *logger.Logger) *IPRateLimiter {
	perMinute := cfg.GetRateLimitPerMinute()
	if perMinute <= 0 {
		return nil
	}
	return NewIPRateLimiter(rate.Limit(float64(perMinute)/60.0), perMinute, log)
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	limiter, _ := i.limiters.LoadOrStore(ip, rate.NewLimiter(i.rate, i.burst))
	return limiter.(*rate.Limiter)
}

// RateLimit returns a middleware that rate limits by IP. A nil limiter lets everything through.
func (i *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if i == nil {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if !i.getLimiter(ip).Allow() {
			if i.log != nil {
				i.log.RateLimitExceeded(ip, c.Request.URL.Path)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
			return
		}

		c.Next()
	}
}

// AuthRequired validates the caller's bearer token (HS256, signed with the
// project JWT secret). With no secret configured the middleware is a no-op.
func AuthRequired(cfg config.JWTConfig) gin.HandlerFunc {
	secret := cfg.GetJWTSecret()
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		rawToken, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, errMissingToken)
			return
		}

		claims, err := parseClaims(rawToken, secret)
		if err != nil {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		sub, _ := claims["sub"].(string)
		c.Set(ContextCallerIDKey, sub)
		if sub != "" {
			ctx := context.WithValue(c.Request.Context(), logger.CallerIDKey, sub)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func extractBearerToken(authHeader string) (string, bool) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}

	rawToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if rawToken == "" {
		return "", false
	}

	return rawToken, true
}

func parseClaims(rawToken, secret string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(rawToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, errors.New(errInvalidToken)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New(errInvalidToken)
	}
	return claims, nil
}

func abortUnauthorized(c *gin.Context, message string) {
	err := apperr.Unauthorized(message)
	c.AbortWithStatusJSON(err.HTTPStatus(), ErrorResponse{Error: err.Message})
}
