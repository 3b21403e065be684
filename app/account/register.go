package account

import (
	"net/http"

	"bitwise74/todo-api/app/respond"
	"bitwise74/todo-api/internal"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerBody struct {
	Email     string `json:"email" form:"email" binding:"required"`
	Password  string `json:"password" form:"password" binding:"required"`
	Password1 string `json:"password1" form:"password1" binding:"required"`
}

func Register(c *gin.Context, d *internal.Deps) {
	var data registerBody
	if !respond.Bind(c, &data) {
		return
	}

	acc, err := d.Accounts.Register(c.Request.Context(), data.Email, data.Password, data.Password1)
	if err != nil {
		fail(c, err)
		return
	}

	zap.L().Info("Account registered", zap.String("userID", acc.ID), zap.String("requestID", c.GetString("requestID")))

	c.JSON(http.StatusCreated, gin.H{
		"email":   acc.Email,
		"user_id": acc.ID,
	})
}
