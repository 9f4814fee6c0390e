package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	product "github.com/smartdot/storefront-backend/internal/products"
	pkgerrors "github.com/smartdot/storefront-backend/pkg/errors"
)

type stubCategoryService struct {
	created []string
	err     error
}

func (s *stubCategoryService) List(context.Context) ([]product.CategoryDTO, error) {
	return []product.CategoryDTO{{ID: uuid.New(), Name: "Accessories"}, {ID: uuid.New(), Name: "Phones"}}, s.err
}

func (s *stubCategoryService) Create(_ context.Context, input product.CreateCategoryInput) (*product.CategoryDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, input.Name)
	return &product.CategoryDTO{ID: uuid.New(), Name: input.Name}, nil
}

func TestCategoriesList(t *testing.T) {
	rec := httptest.NewRecorder()
	CategoriesList(&stubCategoryService{}, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"name":"Accessories"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestAdminCreateCategory(t *testing.T) {
	svc := &stubCategoryService{}
	rec := httptest.NewRecorder()
	AdminCreateCategory(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Chargers"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.created) != 1 || svc.created[0] != "Chargers" {
		t.Fatalf("unexpected creates %v", svc.created)
	}

	rec = httptest.NewRecorder()
	AdminCreateCategory(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name got %d", rec.Code)
	}

	svc.err = pkgerrors.New(pkgerrors.CodeConflict, "Category already exists")
	rec = httptest.NewRecorder()
	AdminCreateCategory(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Chargers"}`)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Category already exists") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
