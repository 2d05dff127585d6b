package views

import (
	"embed"
	"fmt"
	"html/template"
	"strconv"

	"usermanager/internal/entities"
	"usermanager/internal/models"
	"usermanager/internal/validation"
)

//go:embed templates
var templatesFS embed.FS

const (
	listTemplate     = "users/index"
	formTemplate     = "users/form"
	notFoundTemplate = "errors/404"
)

// Page is a template name plus the data it renders.
type Page struct {
	Template string
	Data     any
}

// ListData backs the user table.
type ListData struct {
	Title string
	Users []*entities.User
	Flash *models.Flash
}

// FormData backs the create and edit forms.
type FormData struct {
	models.FormState
	Title  string
	Action string
	Method string // Spoofed method for the edit form, empty for create
	Submit string
}

// Templates parses the embedded pages. imageURL resolves stored image paths.
func Templates(imageURL func(path string) string) (*template.Template, error) {
	funcs := template.FuncMap{
		"imageURL": func(path *string) string {
			if path == nil || *path == "" {
				return ""
			}
			return imageURL(*path)
		},
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templatesFS,
		"templates/layout/*.html",
		"templates/users/*.html",
		"templates/errors/*.html",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

func List(users []*entities.User, flash *models.Flash) Page {
	return Page{Template: listTemplate, Data: ListData{Title: "Users", Users: users, Flash: flash}}
}

func CreateForm(errs validation.Errors, previous map[string]string, flash *models.Flash) Page {
	return Page{Template: formTemplate, Data: FormData{
		FormState: models.FormState{Errors: errs, Previous: previous, Flash: flash},
		Title:     "Create User",
		Action:    "/users",
		Submit:    "Create",
	}}
}

// EditForm pre-fills from previous when a rejected submission exists, otherwise from user.
func EditForm(user *entities.User, errs validation.Errors, previous map[string]string, flash *models.Flash) Page {
	return Page{Template: formTemplate, Data: FormData{
		FormState: models.FormState{User: user, Errors: errs, Previous: previous, Flash: flash},
		Title:     "Edit User",
		Action:    "/users/" + strconv.FormatInt(user.ID, 10),
		Method:    "PUT",
		Submit:    "Update",
	}}
}

func NotFound() Page {
	return Page{Template: notFoundTemplate, Data: map[string]string{"Title": "Not Found"}}
}
