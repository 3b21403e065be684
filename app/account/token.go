package account

import (
	"net/http"

	"bitwise74/todo-api/app/respond"
	"bitwise74/todo-api/internal"

	"github.com/gin-gonic/gin"
)

type tokenBody struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type refreshBody struct {
	Refresh string `json:"refresh" binding:"required"`
}

type verifyBody struct {
	Token string `json:"token" binding:"required"`
}

// Token exchanges credentials for an access and refresh token
func Token(c *gin.Context, d *internal.Deps) {
	var data tokenBody
	if !respond.Bind(c, &data) {
		return
	}

	pair, err := d.Gateway.Authenticate(c.Request.Context(), data.Email, data.Password)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access":  pair.Access,
		"refresh": pair.Refresh,
		"email":   pair.Account.Email,
		"user_id": pair.Account.ID,
	})
}

func Refresh(c *gin.Context, d *internal.Deps) {
	var data refreshBody
	if !respond.Bind(c, &data) {
		return
	}

	access, err := d.Gateway.Refresh(c.Request.Context(), data.Refresh)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access": access})
}

func Verify(c *gin.Context, d *internal.Deps) {
	var data verifyBody
	if !respond.Bind(c, &data) {
		return
	}

	if _, err := d.Gateway.Verify(data.Token); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

// Blacklist revokes a refresh token, which is how API clients log out
func Blacklist(c *gin.Context, d *internal.Deps) {
	var data refreshBody
	if !respond.Bind(c, &data) {
		return
	}

	if err := d.Gateway.Blacklist(c.Request.Context(), data.Refresh); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}
