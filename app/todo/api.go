package todo

import (
	"net/http"

	"bitwise74/todo-api/app/respond"
	"bitwise74/todo-api/internal"
	"bitwise74/todo-api/internal/service"
	"bitwise74/todo-api/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type createBody struct {
	Title string `json:"title"`
}

type updateBody struct {
	Title    *string `json:"title"`
	Complete *bool   `json:"complete"`
}

// List returns every task of the caller, or a single page of them when
// ?page= is given
func List(c *gin.Context, d *internal.Deps) {
	ctx := c.Request.Context()

	if _, paged := c.GetQuery("page"); !paged {
		tasks, err := d.Tasks.List(ctx, profileID(c))
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"count":   len(tasks),
			"results": tasks,
		})
		return
	}

	n, err := pageNumber(c)
	if err != nil {
		fail(c, err)
		return
	}

	page, err := d.Tasks.Page(ctx, profileID(c), n, d.Config.Tasks.PageSize)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":      page.Total,
		"results":    page.Tasks,
		"pagination": pagination.Render(page.Pages, page.Page),
	})
}

func Create(c *gin.Context, d *internal.Deps) {
	var data createBody
	if !respond.Bind(c, &data) {
		return
	}

	task, err := d.Tasks.Create(c.Request.Context(), profileID(c), data.Title)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

func Fetch(c *gin.Context, d *internal.Deps) {
	id, err := taskID(c)
	if err != nil {
		fail(c, err)
		return
	}

	task, err := d.Tasks.Get(c.Request.Context(), profileID(c), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

func Update(c *gin.Context, d *internal.Deps) {
	id, err := taskID(c)
	if err != nil {
		fail(c, err)
		return
	}

	var data updateBody
	if !respond.Bind(c, &data) {
		return
	}

	task, err := d.Tasks.Update(c.Request.Context(), profileID(c), id, service.TaskUpdate{
		Title:    data.Title,
		Complete: data.Complete,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

func Delete(c *gin.Context, d *internal.Deps) {
	id, err := taskID(c)
	if err != nil {
		fail(c, err)
		return
	}

	if err := d.Tasks.Delete(c.Request.Context(), profileID(c), id); err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func Complete(c *gin.Context, d *internal.Deps) {
	id, err := taskID(c)
	if err != nil {
		fail(c, err)
		return
	}

	task, err := d.Tasks.MarkComplete(c.Request.Context(), profileID(c), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}
