// Package respond writes the JSON error bodies shared by every handler
package respond

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"bitwise74/todo-api/pkg/validators"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// UseJSONNames makes binding errors report the json name of a field
// instead of the Go one
func UseJSONNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" {
			name, _, _ = strings.Cut(f.Tag.Get("form"), ",")
		}

		if name == "-" {
			return ""
		}

		return name
	})
}

// Error aborts with {"error": msg, "requestID": ...}
func Error(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":     msg,
		"requestID": c.GetString("requestID"),
	})
}

// Fields aborts with {"errors": {field: [msg]}, "requestID": ...}
func Fields(c *gin.Context, status int, fields validators.FieldErrors) {
	c.AbortWithStatusJSON(status, gin.H{
		"errors":    fields,
		"requestID": c.GetString("requestID"),
	})
}

// Internal logs err and answers with a generic 500
func Internal(c *gin.Context, msg string, err error) {
	requestID := c.GetString("requestID")

	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error":     "Internal server error",
		"requestID": requestID,
	})

	zap.L().Error(msg, zap.Error(err), zap.String("requestID", requestID))
}

// Bind decodes the request body into obj and answers with 400 when it's
// malformed or misses required fields
func Bind(c *gin.Context, obj any) bool {
	err := c.ShouldBind(obj)
	if err == nil {
		return true
	}

	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		Error(c, http.StatusRequestEntityTooLarge, "Request body size exceeds limit")
		return false
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := validators.FieldErrors{}
		for _, fe := range verrs {
			fields.Add(fe.Field(), fieldMessage(fe))
		}

		Fields(c, http.StatusBadRequest, fields)
		return false
	}

	if errors.Is(err, io.EOF) {
		Error(c, http.StatusBadRequest, "Request body is empty")
		return false
	}

	zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", c.GetString("requestID")))
	Error(c, http.StatusBadRequest, "Invalid request body")
	return false
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	default:
		return "This field is invalid."
	}
}
