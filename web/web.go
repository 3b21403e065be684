// Package web holds the server-rendered pages
package web

import (
	"embed"
	"html/template"

	"bitwise74/todo-api/internal/model"
	"bitwise74/todo-api/pkg/pagination"
	"bitwise74/todo-api/pkg/validators"
)

//go:embed templates/*.html
var files embed.FS

// Page is the data every template is executed with. Fields a page doesn't
// use are left empty.
type Page struct {
	Title   string
	Email   string // Logged in account, empty for visitors
	Message string
	Error   string
	Next    string

	Errors validators.FieldErrors
	Form   map[string]string

	Tasks      []model.Task
	Task       *model.Task
	Pagination *pagination.Window
}

// Templates parses every page. Each page is looked up by its file name.
func Templates() (*template.Template, error) {
	return template.ParseFS(files, "templates/*.html")
}
