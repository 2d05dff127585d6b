package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"usermanager/internal/entities"
	"usermanager/internal/models"
	"usermanager/internal/repository"
	"usermanager/internal/storage"
)

// UserService defines the interface for user record operations
type UserService interface {
	List(ctx context.Context) ([]*entities.User, error)
	Create(ctx context.Context, input models.UserInput) (*entities.User, error)
	Get(ctx context.Context, id int64) (*entities.User, error)
	Update(ctx context.Context, id int64, input models.UserInput) (*entities.User, error)
	Delete(ctx context.Context, id int64) error
	ImageURL(path string) string
}

type userService struct {
	userRepo repository.UserRepository
	storage  storage.Storage
	logger   *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo repository.UserRepository, store storage.Storage, logger *slog.Logger) UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &userService{
		userRepo: userRepo,
		storage:  store,
		logger:   logger,
	}
}

// List returns every user ordered by id
func (s *userService) List(ctx context.Context) ([]*entities.User, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	return users, nil
}

// Create validates input, stores the image if any and inserts the user
func (s *userService) Create(ctx context.Context, input models.UserInput) (*entities.User, error) {
	input = normalizeInput(input)
	if err := s.validate(ctx, input, 0); err != nil {
		return nil, err
	}

	user := &entities.User{
		Name:    input.Name,
		Email:   input.Email,
		Mobile:  input.Mobile,
		Address: input.Address,
	}

	newImage, err := s.storeImage(ctx, input.Image)
	if err != nil {
		return nil, err
	}
	user.ProfileImage = newImage

	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		s.discardImage(ctx, newImage)
		return nil, &PersistenceError{Op: "create", Err: err}
	}

	s.logger.Info("user created", "id", created.ID)
	return created, nil
}

// Get loads a single user for editing
func (s *userService) Get(ctx context.Context, id int64) (*entities.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "get", Err: err}
	}
	return user, nil
}

// Update validates input and overwrites the user. A new image replaces the
// old one, which is removed only after the row points at the new blob.
func (s *userService) Update(ctx context.Context, id int64, input models.UserInput) (*entities.User, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	input = normalizeInput(input)
	if err := s.validate(ctx, input, id); err != nil {
		return nil, err
	}

	newImage, err := s.storeImage(ctx, input.Image)
	if err != nil {
		return nil, err
	}

	oldImage := existing.ProfileImage
	user := *existing
	user.Name = input.Name
	user.Email = input.Email
	user.Mobile = input.Mobile
	user.Address = input.Address
	if newImage != nil {
		user.ProfileImage = newImage
	}

	updated, err := s.userRepo.Update(ctx, &user)
	if err != nil {
		s.discardImage(ctx, newImage)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "update", Err: err}
	}

	if newImage != nil && existing.HasImage() {
		s.discardImage(ctx, oldImage)
	}

	s.logger.Info("user updated", "id", updated.ID)
	return updated, nil
}

// Delete removes the user's image and then the row
func (s *userService) Delete(ctx context.Context, id int64) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if user.HasImage() {
		if err := s.storage.Delete(ctx, *user.ProfileImage); err != nil {
			s.logger.Warn("failed to delete profile image",
				"id", id, "path", *user.ProfileImage, "error", &StorageError{Op: "delete", Err: err})
		}
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return &PersistenceError{Op: "delete", Err: err}
	}

	s.logger.Info("user deleted", "id", id)
	return nil
}

// ImageURL returns the public URL of a stored image
func (s *userService) ImageURL(path string) string {
	if path == "" {
		return ""
	}
	return s.storage.URL(path)
}

func (s *userService) validate(ctx context.Context, input models.UserInput, excludeID int64) error {
	emailTaken := func(ctx context.Context, email string) (bool, error) {
		return s.userRepo.EmailExists(ctx, email, excludeID)
	}
	errs, err := userRules(emailTaken).Validate(ctx, inputValues(input))
	if err != nil {
		return &PersistenceError{Op: "validate", Err: err}
	}
	if errs.Any() {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func (s *userService) storeImage(ctx context.Context, img *models.ImageUpload) (*string, error) {
	if img.IsZero() {
		return nil, nil
	}
	path, err := s.storage.Put(ctx, profileImageCollection, img.Content())
	if err != nil {
		return nil, &StorageError{Op: "put", Err: err}
	}
	return &path, nil
}

// discardImage removes a blob that is no longer referenced. Failures are logged.
func (s *userService) discardImage(ctx context.Context, path *string) {
	if path == nil || *path == "" {
		return
	}
	if err := s.storage.Delete(context.WithoutCancel(ctx), *path); err != nil {
		s.logger.Warn("failed to delete orphaned profile image", "path", *path, "error", err)
	}
}

func normalizeInput(in models.UserInput) models.UserInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Mobile = strings.TrimSpace(in.Mobile)
	in.Address = strings.TrimSpace(in.Address)
	return in
}
