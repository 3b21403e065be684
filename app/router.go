// Package app builds the HTTP router and wires every handler to it
package app

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"bitwise74/todo-api/app/account"
	"bitwise74/todo-api/app/respond"
	"bitwise74/todo-api/app/root"
	"bitwise74/todo-api/app/todo"
	"bitwise74/todo-api/internal"
	"bitwise74/todo-api/pkg/middleware"
	"bitwise74/todo-api/web"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const loginPath = "/accounts/login"

// handler binds d to a handler that needs the shared services
func handler(d *internal.Deps, h func(*gin.Context, *internal.Deps)) gin.HandlerFunc {
	return func(c *gin.Context) { h(c, d) }
}

func NewRouter(d *internal.Deps) (*gin.Engine, error) {
	cfg := d.Config

	router := gin.New()

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates, %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	respond.UseJSONNames()

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     cfg.Host.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.TurnstileHeader, middleware.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		middleware.NewMetricsMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == http.MethodHead || c.FullPath() == "/metrics"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	router.MaxMultipartMemory = cfg.Upload.MaxImageSize + 1<<20

	jwt := middleware.NewJWTMiddleware(d.Gateway)
	pageAuth := middleware.NewPageAuthMiddleware(d.Gateway, loginPath)
	turnstile := middleware.NewTurnstileMiddleware(middleware.TurnstileConfig{
		Enabled:     cfg.Cloudflare.Turnstile.Enabled,
		SecretToken: cfg.Cloudflare.Turnstile.SecretToken,
	})
	rateLimiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.Security.RateLimit,
		Burst:             cfg.Security.RateLimit * 2,
	})
	bodyLimit := middleware.BodySizeLimiter(cfg.Security.BodyLimit)

	// HEAD /heartbeat		-> Used to check if the server is alive
	router.HEAD("/heartbeat", root.Heartbeat)

	// GET /metrics			-> Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Storage.Type == "local" && strings.HasPrefix(cfg.Storage.PublicURL, "/") {
		router.Static(cfg.Storage.PublicURL, cfg.Storage.LocalDir)
	}

	router.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/todo/") })

	a := router.Group("/accounts", rateLimiter)
	{
		api := a.Group("", bodyLimit)

		// POST /accounts/register			-> Registers a new account and mails the activation link
		api.POST("/register", turnstile, handler(d, account.Register))

		// POST /accounts/token				-> Exchanges credentials for an access/refresh pair
		api.POST("/token", handler(d, account.Token))

		// POST /accounts/token/refresh		-> Issues a new access token
		api.POST("/token/refresh", handler(d, account.Refresh))

		// POST /accounts/token/verify		-> Checks a token
		api.POST("/token/verify", handler(d, account.Verify))

		// POST /accounts/token/blacklist	-> Revokes a refresh token
		api.POST("/token/blacklist", handler(d, account.Blacklist))

		// GET /accounts/activation/confirm	-> Activates an account from the mailed link
		api.GET("/activation/confirm", handler(d, account.ActivationConfirm))

		// POST /accounts/activation/resend	-> Mails a new activation link
		api.POST("/activation/resend", turnstile, handler(d, account.ActivationResend))

		// POST /accounts/reset-password		-> Mails a password reset link
		api.POST("/reset-password", turnstile, handler(d, account.ResetPassword))

		// POST /accounts/reset-password/confirm	-> Sets a new password with a reset token
		api.POST("/reset-password/confirm", handler(d, account.ResetPasswordConfirm))

		// PUT /accounts/change-password		-> Changes the password of the logged in account
		api.PUT("/change-password", jwt, handler(d, account.ChangePassword))

		// GET /accounts/profile			-> Returns the profile of the logged in account
		api.GET("/profile", jwt, handler(d, account.ProfileFetch))

		// PATCH /accounts/profile			-> Updates the profile, multipart bodies may carry an image
		a.PATCH("/profile", jwt, middleware.BodySizeLimiter(cfg.Upload.MaxImageSize+cfg.Security.BodyLimit), handler(d, account.ProfileUpdate))

		// GET|POST /accounts/login			-> Login page
		a.GET("/login", account.LoginPage)
		a.POST("/login", bodyLimit, handler(d, account.Login))

		// GET /accounts/logout			-> Drops the auth cookies
		a.GET("/logout", handler(d, account.Logout))
	}

	t := router.Group("/todo", rateLimiter)
	{
		api := t.Group("/api/v1/tasks", jwt, bodyLimit)
		{
			// GET /todo/api/v1/tasks			-> Lists tasks, paged when ?page= is set
			api.GET("", handler(d, todo.List))

			// POST /todo/api/v1/tasks			-> Creates a task
			api.POST("", handler(d, todo.Create))

			// GET /todo/api/v1/tasks/:id		-> Returns a task
			api.GET("/:id", handler(d, todo.Fetch))

			// PATCH /todo/api/v1/tasks/:id		-> Updates the title or completion of a task
			api.PATCH("/:id", handler(d, todo.Update))

			// DELETE /todo/api/v1/tasks/:id		-> Deletes a task
			api.DELETE("/:id", handler(d, todo.Delete))

			// POST /todo/api/v1/tasks/:id/complete	-> Marks a task as complete
			api.POST("/:id/complete", handler(d, todo.Complete))
		}

		pages := t.Group("", pageAuth, bodyLimit)
		{
			pages.GET("/", handler(d, todo.ListPage))
			pages.POST("/create", handler(d, todo.CreatePage))
			pages.GET("/:id/update", handler(d, todo.UpdatePage))
			pages.POST("/:id/update", handler(d, todo.UpdatePage))
			pages.GET("/:id/delete", handler(d, todo.DeletePage))
			pages.POST("/:id/delete", handler(d, todo.DeletePage))
			pages.GET("/:id/complete", handler(d, todo.CompletePage))
		}
	}

	return router, nil
}
