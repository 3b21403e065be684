package account

import (
	"net/http"

	"bitwise74/todo-api/app/respond"
	"bitwise74/todo-api/internal"
	"bitwise74/todo-api/web"

	"github.com/gin-gonic/gin"
)

type emailBody struct {
	Email string `json:"email" form:"email" binding:"required"`
}

// ActivationConfirm is where the link in the activation mail points to.
// Browsers get a page, API clients get JSON.
func ActivationConfirm(c *gin.Context, d *internal.Deps) {
	token := c.Query("token")
	html := c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML

	err := d.Accounts.Activate(c.Request.Context(), token)
	if err != nil && !html {
		fail(c, err)
		return
	}

	if html {
		p := web.Page{Title: "Account activated", Message: "Your account is active, you can log in now."}
		status := http.StatusOK

		if err != nil {
			p = web.Page{Title: "Activation failed", Message: "This link is invalid or has expired."}
			status = http.StatusBadRequest
		}

		c.HTML(status, "message.html", p)
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "Account activated"})
}

func ActivationResend(c *gin.Context, d *internal.Deps) {
	var data emailBody
	if !respond.Bind(c, &data) {
		return
	}

	if err := d.Accounts.RequestActivation(c.Request.Context(), data.Email); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "Activation mail sent"})
}
