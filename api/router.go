package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/autologin/api/handler"
	"github.com/use-agent/autologin/api/middleware"
	"github.com/use-agent/autologin/autologin"
	"github.com/use-agent/autologin/cleaner"
	"github.com/use-agent/autologin/config"
	"github.com/use-agent/autologin/keychain"
	"github.com/use-agent/autologin/session"
	"github.com/use-agent/autologin/webhook"
)

// Services are the collaborators the handlers work with.
type Services struct {
	AutoLogin *autologin.AutoLogin
	Sessions  *session.Store
	Keychain  *keychain.Keychain
	Previewer *cleaner.Previewer
	Webhooks  *webhook.Sender // optional
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health is outside auth so health checks always work. ctx bounds the
// rate limiter's background cleanup.
func NewRouter(ctx context.Context, svc Services, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(svc.Sessions, cfg.Keychain.Backend, startTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	// Login
	protected.POST("/login", handler.Login(svc.AutoLogin, svc.Sessions, svc.Keychain, svc.Webhooks))
	protected.POST("/links", handler.Links(svc.AutoLogin))

	// Sessions
	protected.GET("/sessions/:id", handler.GetSession(svc.Sessions))
	protected.DELETE("/sessions/:id", handler.DeleteSession(svc.Sessions))
	protected.POST("/sessions/:id/preview", handler.PreviewSession(svc.Sessions, svc.AutoLogin, svc.Previewer))

	// Keychain
	protected.GET("/keychain", handler.ListKeychain(svc.Keychain))
	protected.PUT("/keychain/:key", handler.PutKeychain(svc.Keychain))
	protected.DELETE("/keychain/:key", handler.DeleteKeychain(svc.Keychain))

	return r
}
