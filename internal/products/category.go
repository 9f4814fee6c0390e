package product

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartdot/storefront-backend/pkg/db"
	"github.com/smartdot/storefront-backend/pkg/db/models"
	pkgerrors "github.com/smartdot/storefront-backend/pkg/errors"
)

const (
	categoryNotFoundMessage = "category not found"
	categoryExistsMessage   = "Category already exists"
)

// CategoryDTO is the public shape of a category.
type CategoryDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCategoryInput is the admin payload for a new category.
type CreateCategoryInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CategoryService lists categories and lets admins add new ones.
type CategoryService interface {
	List(ctx context.Context) ([]CategoryDTO, error)
	Create(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error)
}

type categoryRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	FindCategoryByName(ctx context.Context, name string) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) (*models.Category, error)
}

type categoryService struct {
	repo categoryRepository
}

// NewCategoryService builds the category service over repo.
func NewCategoryService(repo categoryRepository) (CategoryService, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "category repository required")
	}
	return &categoryService{repo: repo}, nil
}

// List returns every category sorted by name.
func (s *categoryService) List(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, categoryFromModel(&rows[i]))
	}
	return out, nil
}

// Create adds a category. Names differing only in case count as the same category.
func (s *categoryService) Create(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error) {
	name := strings.Join(strings.Fields(input.Name), " ")
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Category name is required")
	}

	existing, err := s.repo.FindCategoryByName(ctx, name)
	switch {
	case err == nil && existing != nil:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, categoryExistsMessage)
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}

	created, err := s.repo.CreateCategory(ctx, &models.Category{Name: name})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, categoryExistsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	dto := categoryFromModel(created)
	return &dto, nil
}

func categoryFromModel(c *models.Category) CategoryDTO {
	return CategoryDTO{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt}
}
