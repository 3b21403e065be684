package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"bitwise74/todo-api/internal/model"
	"bitwise74/todo-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthCookie holds the access token for the rendered pages
const AuthCookie = "auth_token"

// Identifier resolves an access token to the account it was issued for
type Identifier interface {
	Identify(ctx context.Context, access string) (*model.Account, error)
}

// NewJWTMiddleware authenticates API requests. The token is taken from the
// Authorization header and falls back to the auth_token cookie. On success
// the account, userID and profileID are set on the context.
func NewJWTMiddleware(id Identifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetString("requestID")

		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authentication credentials were not provided",
				"requestID": requestID,
			})
			return
		}

		acc, err := id.Identify(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrUnverifiedAccount):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error":     "Please verify your account before using the service",
					"requestID": requestID,
				})
			case errors.Is(err, service.ErrUnauthorized):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":     "Authorization token invalid",
					"requestID": requestID,
				})
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":     "Internal server error",
					"requestID": requestID,
				})

				zap.L().Error("Failed to identify account", zap.Error(err), zap.String("requestID", requestID))
			}
			return
		}

		setAccount(c, acc)
		c.Next()
	}
}

// NewPageAuthMiddleware is the rendered-page variant of NewJWTMiddleware.
// Anonymous visitors are redirected to loginPath with a next parameter.
func NewPageAuthMiddleware(id Identifier, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(AuthCookie)
		if token == "" {
			redirectToLogin(c, loginPath)
			return
		}

		acc, err := id.Identify(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, service.ErrUnauthorized) && !errors.Is(err, service.ErrUnverifiedAccount) {
				zap.L().Error("Failed to identify account", zap.Error(err), zap.String("requestID", c.GetString("requestID")))
			}

			redirectToLogin(c, loginPath)
			return
		}

		setAccount(c, acc)
		c.Next()
	}
}

// Account returns the account set by one of the auth middlewares
func Account(c *gin.Context) *model.Account {
	return c.MustGet("account").(*model.Account)
}

func setAccount(c *gin.Context, acc *model.Account) {
	c.Set("account", acc)
	c.Set("userID", acc.ID)
	c.Set("profileID", acc.Profile.ID)
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}

	token, _ := c.Cookie(AuthCookie)
	return token
}

func redirectToLogin(c *gin.Context, loginPath string) {
	c.Redirect(http.StatusFound, loginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
	c.Abort()
}
