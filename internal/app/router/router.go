// Package router はGinエンジンの構築とルーティング定義を提供します。
package router

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	authhandler "cuecards_backend/internal/feature/auth/transport/handler"
	"cuecards_backend/internal/platform/http/handler"
	jwtmw "cuecards_backend/internal/platform/jwt"
)

const requestIDHeader = "X-Request-Id"

// Params are the handlers and settings the router is built from.
type Params struct {
	Auth          *authhandler.AuthHandler
	Health        *handler.HealthHandler
	Authenticator jwtmw.Authenticator
	CORSOrigins   []string
	Logger        *slog.Logger
}

// NewRouter builds the Gin engine with all routes registered.
func NewRouter(p Params) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.New(requestid.WithCustomHeaderStrKey(requestIDHeader)))
	r.Use(requestLogger(p.Logger))
	if len(p.CORSOrigins) > 0 {
		r.Use(corsMiddleware(p.CORSOrigins))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 導通確認用
	r.GET("/healthz", p.Health.Health)
	r.HEAD("/healthz", p.Health.Health)

	mw := jwtmw.NewMiddleware(p.Authenticator)

	// 認証不要
	auth := r.Group("/auth")
	{
		auth.POST("/register", p.Auth.Register)
		auth.POST("/confirm", p.Auth.ConfirmEmail)
		auth.POST("/confirm/resend", p.Auth.ResendConfirmation)
		auth.POST("/login", p.Auth.Login)
		auth.POST("/refresh", p.Auth.Refresh)
		auth.POST("/password/forgot", p.Auth.ForgotPassword)
		auth.POST("/password/reset", p.Auth.ResetPassword)

		// 認証必須
		auth.POST("/logout", mw.Require(p.Auth.Logout))
		auth.PATCH("/password", mw.Require(p.Auth.ChangePassword))
	}

	user := r.Group("/user")
	{
		user.GET("", mw.Require(p.Auth.Me))
		user.PATCH("/update", mw.Require(p.Auth.UpdateProfile))
		user.DELETE("", mw.Require(p.Auth.DeleteAccount))
	}

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "HEAD", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// requestLogger logs one line per request, tagged with the request id.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		rlog := logger.With(
			"method", c.Request.Method,
			"path", c.FullPath(),
			"client_ip", c.ClientIP(),
			"request_id", requestid.Get(c),
		)
		status := c.Writer.Status()
		switch {
		case status >= 500:
			rlog.Error("request completed", "status", status, "duration", time.Since(start))
		case c.Request.URL.Path == "/healthz":
			rlog.Debug("request completed", "status", status, "duration", time.Since(start))
		default:
			rlog.Info("request completed", "status", status, "duration", time.Since(start))
		}
	}
}
