package account

import (
	"net/http"

	"bitwise74/todo-api/app/respond"
	"bitwise74/todo-api/internal"
	"bitwise74/todo-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

type resetConfirmBody struct {
	Token     string `json:"token" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Password1 string `json:"password1" binding:"required"`
}

type changePasswordBody struct {
	OldPassword  string `json:"old_password" binding:"required"`
	NewPassword  string `json:"new_password" binding:"required"`
	NewPassword1 string `json:"new_password1" binding:"required"`
}

func ResetPassword(c *gin.Context, d *internal.Deps) {
	var data emailBody
	if !respond.Bind(c, &data) {
		return
	}

	if err := d.Accounts.RequestPasswordReset(c.Request.Context(), data.Email); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "Password reset mail sent"})
}

func ResetPasswordConfirm(c *gin.Context, d *internal.Deps) {
	var data resetConfirmBody
	if !respond.Bind(c, &data) {
		return
	}

	if err := d.Accounts.RedeemReset(c.Request.Context(), data.Token, data.Password, data.Password1); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "Password has been reset"})
}

func ChangePassword(c *gin.Context, d *internal.Deps) {
	var data changePasswordBody
	if !respond.Bind(c, &data) {
		return
	}

	acc := middleware.Account(c)
	if err := d.Accounts.ChangePassword(c.Request.Context(), acc, data.OldPassword, data.NewPassword, data.NewPassword1); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "Password changed successfully"})
}
