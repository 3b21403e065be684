// Package todo holds the task API and the task pages
package todo

import (
	"errors"
	"net/http"
	"strconv"

	"bitwise74/todo-api/app/respond"
	"bitwise74/todo-api/internal/service"

	"github.com/gin-gonic/gin"
)

func fail(c *gin.Context, err error) {
	var verr *service.ValidationError

	switch {
	case errors.As(err, &verr):
		respond.Fields(c, http.StatusBadRequest, verr.Fields)
	case errors.Is(err, service.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "Not found")
	default:
		respond.Internal(c, "Task request failed", err)
	}
}

// taskID parses the :id param. Anything that isn't a positive integer
// can't name a task so it's reported as missing.
func taskID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, service.ErrNotFound
	}

	return uint(id), nil
}

// pageNumber reads ?page=, which may also be "last"
func pageNumber(c *gin.Context) (int, error) {
	raw := c.DefaultQuery("page", "1")
	if raw == "last" {
		return service.LastPage, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, service.ErrNotFound
	}

	return n, nil
}

func profileID(c *gin.Context) uint {
	return c.GetUint("profileID")
}
