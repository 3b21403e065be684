package todo

import (
	"errors"
	"net/http"

	"bitwise74/todo-api/internal"
	"bitwise74/todo-api/internal/service"
	"bitwise74/todo-api/pkg/middleware"
	"bitwise74/todo-api/pkg/pagination"
	"bitwise74/todo-api/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const listPath = "/todo/"

func newPage(c *gin.Context) web.Page {
	return web.Page{Email: middleware.Account(c).Email}
}

// renderList draws the task list. p may already carry form errors.
func renderList(c *gin.Context, d *internal.Deps, status, n int, p web.Page) {
	page, err := d.Tasks.Page(c.Request.Context(), profileID(c), n, d.Config.Tasks.PageSize)
	if err != nil {
		pageFail(c, err)
		return
	}

	w := pagination.Render(page.Pages, page.Page)
	p.Title = "My tasks"
	p.Tasks = page.Tasks
	p.Pagination = &w

	c.HTML(status, "task_list.html", p)
}

func pageFail(c *gin.Context, err error) {
	p := newPage(c)

	if errors.Is(err, service.ErrNotFound) {
		p.Title = "Not found"
		p.Message = "The page you asked for doesn't exist."
		c.HTML(http.StatusNotFound, "message.html", p)
		return
	}

	zap.L().Error("Task page failed", zap.Error(err), zap.String("requestID", c.GetString("requestID")))

	p.Title = "Error"
	p.Message = "Something went wrong, please try again."
	c.HTML(http.StatusInternalServerError, "message.html", p)
}

func ListPage(c *gin.Context, d *internal.Deps) {
	n, err := pageNumber(c)
	if err != nil {
		pageFail(c, err)
		return
	}

	renderList(c, d, http.StatusOK, n, newPage(c))
}

func CreatePage(c *gin.Context, d *internal.Deps) {
	title := c.PostForm("title")

	_, err := d.Tasks.Create(c.Request.Context(), profileID(c), title)
	if err != nil {
		var verr *service.ValidationError
		if !errors.As(err, &verr) {
			pageFail(c, err)
			return
		}

		p := newPage(c)
		p.Errors = verr.Fields
		p.Form = map[string]string{"Title": title}
		renderList(c, d, http.StatusBadRequest, 1, p)
		return
	}

	c.Redirect(http.StatusFound, listPath)
}

func UpdatePage(c *gin.Context, d *internal.Deps) {
	id, err := taskID(c)
	if err != nil {
		pageFail(c, err)
		return
	}

	ctx := c.Request.Context()

	task, err := d.Tasks.Get(ctx, profileID(c), id)
	if err != nil {
		pageFail(c, err)
		return
	}

	p := newPage(c)
	p.Title = "Edit task"
	p.Task = task

	if c.Request.Method != http.MethodPost {
		c.HTML(http.StatusOK, "task_update.html", p)
		return
	}

	// Unchecked boxes aren't sent at all
	title := c.PostForm("title")
	complete := c.PostForm("complete") == "true"

	_, err = d.Tasks.Update(ctx, profileID(c), id, service.TaskUpdate{Title: &title, Complete: &complete})
	if err != nil {
		var verr *service.ValidationError
		if !errors.As(err, &verr) {
			pageFail(c, err)
			return
		}

		task.Title, task.Complete = title, complete
		p.Errors = verr.Fields
		c.HTML(http.StatusBadRequest, "task_update.html", p)
		return
	}

	c.Redirect(http.StatusFound, listPath)
}

// DeletePage asks for confirmation on GET and deletes on POST
func DeletePage(c *gin.Context, d *internal.Deps) {
	id, err := taskID(c)
	if err != nil {
		pageFail(c, err)
		return
	}

	ctx := c.Request.Context()

	if c.Request.Method != http.MethodPost {
		task, err := d.Tasks.Get(ctx, profileID(c), id)
		if err != nil {
			pageFail(c, err)
			return
		}

		p := newPage(c)
		p.Title = "Delete task"
		p.Task = task
		c.HTML(http.StatusOK, "task_confirm_delete.html", p)
		return
	}

	if err := d.Tasks.Delete(ctx, profileID(c), id); err != nil {
		pageFail(c, err)
		return
	}

	c.Redirect(http.StatusFound, listPath)
}

func CompletePage(c *gin.Context, d *internal.Deps) {
	id, err := taskID(c)
	if err != nil {
		pageFail(c, err)
		return
	}

	if _, err := d.Tasks.MarkComplete(c.Request.Context(), profileID(c), id); err != nil {
		pageFail(c, err)
		return
	}

	c.Redirect(http.StatusFound, listPath)
}
