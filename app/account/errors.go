// Package account holds the /accounts endpoints and pages
package account

import (
	"errors"
	"net/http"

	"bitwise74/todo-api/app/respond"
	"bitwise74/todo-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// fail maps service errors to responses. Anything it doesn't know is a 500.
func fail(c *gin.Context, err error) {
	requestID := c.GetString("requestID")

	var verr *service.ValidationError
	var mbe *http.MaxBytesError

	switch {
	case errors.As(err, &verr):
		respond.Fields(c, http.StatusBadRequest, verr.Fields)
	case errors.As(err, &mbe):
		respond.Error(c, http.StatusRequestEntityTooLarge, "Request body size exceeds limit")
	case errors.Is(err, service.ErrAuthentication):
		respond.Error(c, http.StatusUnauthorized, "No active account found with the given credentials")
	case errors.Is(err, service.ErrUnverifiedAccount):
		respond.Error(c, http.StatusBadRequest, service.ErrUnverifiedAccount.Error())
	case errors.Is(err, service.ErrUnauthorized):
		zap.L().Debug("Rejected token", zap.Error(err), zap.String("requestID", requestID))
		respond.Error(c, http.StatusUnauthorized, "Token is invalid or expired")
	case errors.Is(err, service.ErrInvalidToken):
		zap.L().Debug("Rejected verification token", zap.Error(err), zap.String("requestID", requestID))
		respond.Error(c, http.StatusBadRequest, "Invalid or expired token")
	case errors.Is(err, service.ErrEmailNotFound):
		respond.Error(c, http.StatusNotFound, "User with this email doesn't exist")
	case errors.Is(err, service.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "Not found")
	case errors.Is(err, service.ErrAlreadyVerified):
		respond.Error(c, http.StatusBadRequest, "Account is already verified")
	case errors.Is(err, service.ErrResendCooldown):
		respond.Error(c, http.StatusTooManyRequests, service.ErrResendCooldown.Error())
	default:
		respond.Internal(c, "Account request failed", err)
	}
}
