package controllers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"usermanager/internal/models"
	"usermanager/internal/service"
	"usermanager/internal/session"
	"usermanager/internal/views"
)

const (
	msgCreated      = "User created successfully."
	msgUpdated      = "User updated successfully."
	msgDeleted      = "User deleted successfully."
	msgSaveFailed   = "The user could not be saved. Please try again."
	msgDeleteFailed = "The user could not be deleted. Please try again."
)

type UserController struct {
	userService service.UserService
	flash       session.FlashStore
	logger      *slog.Logger
}

func NewUserController(userService service.UserService, flash session.FlashStore, logger *slog.Logger) *UserController {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserController{
		userService: userService,
		flash:       flash,
		logger:      logger,
	}
}

// Index handles GET /users
func (uc *UserController) Index(c *gin.Context) {
	flash := uc.popFlash(c)

	users, err := uc.userService.List(c.Request.Context())
	if err != nil {
		uc.logger.Error("failed to list users", "error", err)
		c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	render(c, http.StatusOK, views.List(users, flash))
}

// Create handles GET /users/create
func (uc *UserController) Create(c *gin.Context) {
	render(c, http.StatusOK, views.CreateForm(nil, nil, uc.popFlash(c)))
}

// Store handles POST /users
func (uc *UserController) Store(c *gin.Context) {
	input, err := bindUserInput(c)
	if err != nil {
		uc.logger.Warn("failed to read upload", "error", err)
		render(c, http.StatusBadRequest, views.CreateForm(nil, input.Values(), failure(msgSaveFailed)))
		return
	}

	if _, err := uc.userService.Create(c.Request.Context(), input); err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			render(c, http.StatusUnprocessableEntity, views.CreateForm(verr.Errors, input.Values(), nil))
			return
		}
		uc.logger.Error("failed to create user", "error", err)
		render(c, http.StatusInternalServerError, views.CreateForm(nil, input.Values(), failure(msgSaveFailed)))
		return
	}

	uc.redirect(c, models.Flash{Kind: models.FlashSuccess, Message: msgCreated})
}

// Edit handles GET /users/:id/edit
func (uc *UserController) Edit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		NotFound(c)
		return
	}

	user, err := uc.userService.Get(c.Request.Context(), id)
	if err != nil {
		uc.handleError(c, err)
		return
	}

	render(c, http.StatusOK, views.EditForm(user, nil, nil, uc.popFlash(c)))
}

// Update handles PUT and PATCH /users/:id
func (uc *UserController) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		NotFound(c)
		return
	}

	ctx := c.Request.Context()
	input, bindErr := bindUserInput(c)
	var err error
	if bindErr == nil {
		_, err = uc.userService.Update(ctx, id, input)
		if err == nil {
			uc.redirect(c, models.Flash{Kind: models.FlashSuccess, Message: msgUpdated})
			return
		}
	}

	user, getErr := uc.userService.Get(ctx, id)
	if getErr != nil {
		uc.handleError(c, getErr)
		return
	}

	var verr *service.ValidationError
	switch {
	case bindErr != nil:
		uc.logger.Warn("failed to read upload", "id", id, "error", bindErr)
		render(c, http.StatusBadRequest, views.EditForm(user, nil, input.Values(), failure(msgSaveFailed)))
	case errors.As(err, &verr):
		render(c, http.StatusUnprocessableEntity, views.EditForm(user, verr.Errors, input.Values(), nil))
	case errors.Is(err, service.ErrNotFound):
		NotFound(c)
	default:
		uc.logger.Error("failed to update user", "id", id, "error", err)
		render(c, http.StatusInternalServerError, views.EditForm(user, nil, input.Values(), failure(msgSaveFailed)))
	}
}

// Destroy handles DELETE /users/:id
func (uc *UserController) Destroy(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		NotFound(c)
		return
	}

	if err := uc.userService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			NotFound(c)
			return
		}
		uc.logger.Error("failed to delete user", "id", id, "error", err)
		uc.redirect(c, models.Flash{Kind: models.FlashError, Message: msgDeleteFailed})
		return
	}

	uc.redirect(c, models.Flash{Kind: models.FlashSuccess, Message: msgDeleted})
}

// NotFound renders the 404 page
func NotFound(c *gin.Context) {
	render(c, http.StatusNotFound, views.NotFound())
}

func (uc *UserController) handleError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		NotFound(c)
		return
	}
	uc.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

func (uc *UserController) redirect(c *gin.Context, f models.Flash) {
	if err := uc.flash.Put(c, f); err != nil {
		uc.logger.Warn("failed to store flash message", "error", err)
	}
	c.Redirect(http.StatusSeeOther, "/users")
}

func (uc *UserController) popFlash(c *gin.Context) *models.Flash {
	f, err := uc.flash.Pop(c)
	if err != nil {
		uc.logger.Warn("failed to load flash message", "error", err)
		return nil
	}
	return f
}

func render(c *gin.Context, status int, page views.Page) {
	c.HTML(status, page.Template, page.Data)
}

func failure(message string) *models.Flash {
	return &models.Flash{Kind: models.FlashError, Message: message}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// bindUserInput reads the form fields and optional profile image.
func bindUserInput(c *gin.Context) (models.UserInput, error) {
	input := models.UserInput{
		Name:    c.PostForm("name"),
		Email:   c.PostForm("email"),
		Mobile:  c.PostForm("mobile"),
		Address: c.PostForm("address"),
	}

	header, err := c.FormFile("profile_image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return input, nil
		}
		return input, fmt.Errorf("failed to read profile image: %w", err)
	}
	if header.Filename == "" && header.Size == 0 {
		return input, nil
	}

	f, err := header.Open()
	if err != nil {
		return input, fmt.Errorf("failed to open profile image: %w", err)
	}
	defer f.Close()

	// One byte past the limit is enough for the size rule to fail.
	data, err := io.ReadAll(io.LimitReader(f, models.MaxImageKilobytes*1024+1))
	if err != nil {
		return input, fmt.Errorf("failed to read profile image: %w", err)
	}

	input.Image = &models.ImageUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Data:     data,
	}
	return input, nil
}
