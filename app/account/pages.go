package account

import (
	"errors"
	"net/http"
	"strings"

	"bitwise74/todo-api/internal"
	"bitwise74/todo-api/internal/service"
	"bitwise74/todo-api/pkg/middleware"
	"bitwise74/todo-api/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	refreshCookie = "refresh_token"
	homePath      = "/todo/"
)

func LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", web.Page{
		Title: "Log in",
		Next:  c.Query("next"),
	})
}

// Login is the form variant of Token. The tokens end up in cookies.
func Login(c *gin.Context, d *internal.Deps) {
	email := c.PostForm("email")
	next := c.PostForm("next")

	page := web.Page{
		Title: "Log in",
		Next:  next,
		Form:  map[string]string{"Email": email},
	}

	pair, err := d.Gateway.Authenticate(c.Request.Context(), email, c.PostForm("password"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAuthentication):
			page.Error = "Please enter a correct email and password."
			c.HTML(http.StatusUnauthorized, "login.html", page)
		case errors.Is(err, service.ErrUnverifiedAccount):
			page.Error = "Please verify your account before logging in. Check your inbox for the activation link."
			c.HTML(http.StatusBadRequest, "login.html", page)
		default:
			zap.L().Error("Failed to log in", zap.Error(err), zap.String("requestID", c.GetString("requestID")))

			page.Error = "Something went wrong, please try again."
			c.HTML(http.StatusInternalServerError, "login.html", page)
		}
		return
	}

	secure := d.Config.Host.SSL.Enabled
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AuthCookie, pair.Access, int(d.Config.JWT.AccessTTL.Seconds()), "/", "", secure, true)
	c.SetCookie(refreshCookie, pair.Refresh, int(d.Config.JWT.RefreshTTL.Seconds()), "/accounts", "", secure, true)

	c.Redirect(http.StatusFound, safeNext(next))
}

// Logout drops the cookies and revokes the refresh token if there is one
func Logout(c *gin.Context, d *internal.Deps) {
	if refresh, _ := c.Cookie(refreshCookie); refresh != "" {
		if err := d.Gateway.Blacklist(c.Request.Context(), refresh); err != nil {
			zap.L().Debug("Failed to blacklist refresh token on logout", zap.Error(err), zap.String("requestID", c.GetString("requestID")))
		}
	}

	secure := d.Config.Host.SSL.Enabled
	c.SetCookie(middleware.AuthCookie, "", -1, "/", "", secure, true)
	c.SetCookie(refreshCookie, "", -1, "/accounts", "", secure, true)

	c.Redirect(http.StatusFound, "/accounts/login")
}

// safeNext only follows redirects that stay on this site
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return homePath
	}

	return next
}
