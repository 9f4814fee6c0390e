package product

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartdot/storefront-backend/internal/cart"
	"github.com/smartdot/storefront-backend/pkg/db/models"
	pkgerrors "github.com/smartdot/storefront-backend/pkg/errors"
	"github.com/smartdot/storefront-backend/pkg/pagination"
)

const productNotFoundMessage = "product not found"

// Service exposes catalog reads, admin product management and cart candidate lookup.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, input ListInput) (pagination.Page[ProductDTO], error)
	Candidate(ctx context.Context, id uuid.UUID) (cart.Candidate, error)
	Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	AdminGet(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ListInput captures browse filters plus cursor pagination.
type ListInput struct {
	Category        string
	IncludeInactive bool
	Pagination      pagination.Params
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string     `json:"name" validate:"required,max=200"`
	Description *string    `json:"description,omitempty"`
	Price       float64    `json:"price" validate:"gt=0"`
	Stock       int        `json:"stock" validate:"gte=0"`
	ImageURL    *string    `json:"image_url,omitempty" validate:"omitempty,url"`
	Category    *string    `json:"category,omitempty"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	IsActive    *bool      `json:"is_active,omitempty"`
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,max=200"`
	Description *string    `json:"description,omitempty"`
	Price       *float64   `json:"price,omitempty" validate:"omitempty,gt=0"`
	Stock       *int       `json:"stock,omitempty" validate:"omitempty,gte=0"`
	ImageURL    *string    `json:"image_url,omitempty" validate:"omitempty,url"`
	Category    *string    `json:"category,omitempty"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	IsActive    *bool      `json:"is_active,omitempty"`
}

type productRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, filter ListFilter) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	Save(ctx context.Context, product *models.Product) (*models.Product, error)
	Deactivate(ctx context.Context, id uuid.UUID) (bool, error)
	FindCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

type service struct {
	repo productRepository
}

// NewService builds a catalog service bound to repo.
func NewService(repo productRepository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(product)
	return &dto, nil
}

func (s *service) List(ctx context.Context, input ListInput) (pagination.Page[ProductDTO], error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, ListFilter{
		Category:   input.Category,
		ActiveOnly: !input.IncludeInactive,
		Cursor:     cursor,
		Limit:      input.Pagination.Limit,
	})
	if err != nil {
		return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	dtos := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, FromModel(&rows[i]))
	}
	return pagination.Build(dtos, input.Pagination.Limit, func(p ProductDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	}), nil
}

// Candidate resolves the authoritative name, price and stock ceiling for a cart add.
func (s *service) Candidate(ctx context.Context, id uuid.UUID) (cart.Candidate, error) {
	product, err := s.loadActive(ctx, id)
	if err != nil {
		return cart.Candidate{}, err
	}
	stock := product.Stock
	if stock < 0 {
		stock = 0
	}
	candidate := cart.Candidate{
		ID:       product.ID.String(),
		Name:     product.Name,
		Price:    product.Price.InexactFloat64(),
		MaxStock: &stock,
	}
	if product.ImageURL != nil {
		candidate.Image = *product.ImageURL
	}
	return candidate, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	price, err := parsePrice(input.Price)
	if err != nil {
		return nil, err
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	product := &models.Product{
		Name:        name,
		Description: trimmed(input.Description),
		Price:       price,
		Stock:       input.Stock,
		ImageURL:    trimmed(input.ImageURL),
		Category:    trimmed(input.Category),
		IsActive:    active,
	}
	if input.CategoryID != nil {
		if err := s.assignCategory(ctx, product, *input.CategoryID); err != nil {
			return nil, err
		}
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	dto := FromModel(created)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
		}
		product.Name = name
	}
	if input.Price != nil {
		price, err := parsePrice(*input.Price)
		if err != nil {
			return nil, err
		}
		product.Price = price
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		product.Stock = *input.Stock
	}
	if input.Description != nil {
		product.Description = trimmed(input.Description)
	}
	if input.ImageURL != nil {
		product.ImageURL = trimmed(input.ImageURL)
	}
	if input.Category != nil {
		product.Category = trimmed(input.Category)
		product.CategoryID = nil
	}
	if input.CategoryID != nil {
		if err := s.assignCategory(ctx, product, *input.CategoryID); err != nil {
			return nil, err
		}
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	saved, err := s.repo.Save(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	dto := FromModel(saved)
	return &dto, nil
}

// AdminGet returns the product whether or not it is listed.
func (s *service) AdminGet(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	dto := FromModel(product)
	return &dto, nil
}

// Delete unlists the product. The row stays so past orders keep their references.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, productNotFoundMessage)
	}
	return nil
}

func (s *service) assignCategory(ctx context.Context, product *models.Product, categoryID uuid.UUID) error {
	category, err := s.repo.FindCategoryByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, categoryNotFoundMessage).
				WithDetails(map[string]any{"category_id": categoryID})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	product.CategoryID = &category.ID
	product.Category = &category.Name
	return nil
}

func (s *service) loadActive(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, productNotFoundMessage)
	}
	return product, nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, productNotFoundMessage)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}

func parsePrice(value float64) (decimal.Decimal, error) {
	price := decimal.NewFromFloat(value).Round(2)
	if !price.IsPositive() || price.GreaterThan(decimal.NewFromFloat(cart.MaxPrice)) {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, "price out of range").
			WithDetails(map[string]any{"min": cart.MinPrice, "max": cart.MaxPrice})
	}
	return price, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
