package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"catalogd/internal/common"
	"catalogd/internal/models"
	"catalogd/internal/repositories"
	"catalogd/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockCategoryService struct {
	mock.Mock
}

func (m *MockCategoryService) Create(ctx context.Context, actorID uuid.UUID, input services.CategoryInput, uploads []*services.FileUpload) (*models.Category, error) {
	args := m.Called(ctx, actorID, input, uploads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCategoryService) ListRoots(ctx context.Context) ([]*models.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Category), args.Error(1)
}

func (m *MockCategoryService) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCategoryService) Update(ctx context.Context, actorID, id uuid.UUID, input services.CategoryInput, uploads []*services.FileUpload) (*models.Category, error) {
	args := m.Called(ctx, actorID, id, input, uploads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockSubCategoryService struct {
	mock.Mock
}

func (m *MockSubCategoryService) Create(ctx context.Context, actorID, parentID uuid.UUID, input services.CategoryInput, uploads []*services.FileUpload) (*models.Category, error) {
	args := m.Called(ctx, actorID, parentID, input, uploads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockSubCategoryService) List(ctx context.Context, parentID *uuid.UUID, opts repositories.ListOptions) ([]*models.Category, int, error) {
	args := m.Called(ctx, parentID, opts)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Category), args.Int(1), args.Error(2)
}

func (m *MockSubCategoryService) Update(ctx context.Context, actorID, id uuid.UUID, input services.CategoryInput, uploads []*services.FileUpload) (*models.Category, error) {
	args := m.Called(ctx, actorID, id, input, uploads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockSubCategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newContext(t *testing.T, method, target string, body string, actor *uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if actor != nil {
		req = req.WithContext(common.WithUserID(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestCreateCategory_Returns201WithEnvelope(t *testing.T) {
	svc := new(MockCategoryService)
	h := NewCategoryHandlers(svc)
	actor := uuid.New()

	created := &models.Category{ID: uuid.New(), Name: "Shoes", Slug: "shoes", Children: []*models.Category{}}
	svc.On("Create", mock.Anything, actor, mock.Anything, mock.Anything).Return(created, nil)

	c, rec := newContext(t, http.MethodPost, "/v1/categories", `{"name":"Shoes"}`, &actor)
	assert.NoError(t, h.CreateCategory(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "success", envelope["status"])
	data := envelope["data"].(map[string]interface{})
	category := data["category"].(map[string]interface{})
	assert.Equal(t, "shoes", category["slug"])
}

func TestCreateCategory_MissingActorIs401(t *testing.T) {
	svc := new(MockCategoryService)
	h := NewCategoryHandlers(svc)

	c, _ := newContext(t, http.MethodPost, "/v1/categories", `{"name":"Shoes"}`, nil)
	err := h.CreateCategory(c)

	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetCategory_NotFoundIs404(t *testing.T) {
	svc := new(MockCategoryService)
	h := NewCategoryHandlers(svc)

	svc.On("GetBySlug", mock.Anything, "missing").Return(nil, services.ErrCategoryNotFound)

	c, _ := newContext(t, http.MethodGet, "/v1/categories/missing", "", nil)
	c.SetParamNames("slug")
	c.SetParamValues("missing")

	err := h.GetCategory(c)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestDeleteCategory_Returns204(t *testing.T) {
	svc := new(MockCategoryService)
	h := NewCategoryHandlers(svc)
	id := uuid.New()

	svc.On("Delete", mock.Anything, id).Return(nil)

	c, rec := newContext(t, http.MethodDelete, "/v1/categories/"+id.String(), "", nil)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	assert.NoError(t, h.DeleteCategory(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestDeleteCategory_BadIDIs400(t *testing.T) {
	svc := new(MockCategoryService)
	h := NewCategoryHandlers(svc)

	c, _ := newContext(t, http.MethodDelete, "/v1/categories/nope", "", nil)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	err := h.DeleteCategory(c)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestListCategories_EnvelopeCarriesCategories(t *testing.T) {
	svc := new(MockCategoryService)
	h := NewCategoryHandlers(svc)

	roots := []*models.Category{
		{ID: uuid.New(), Name: "A", Slug: "a", Children: []*models.Category{}},
	}
	svc.On("ListRoots", mock.Anything).Return(roots, nil)

	c, rec := newContext(t, http.MethodGet, "/v1/categories", "", nil)
	assert.NoError(t, h.ListCategories(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]interface{})
	categories := data["categories"].([]interface{})
	assert.Len(t, categories, 1)
}

func TestListSubCategories_PaginationAndSort(t *testing.T) {
	svc := new(MockSubCategoryService)
	h := NewSubCategoryHandlers(svc)
	parent := uuid.New()

	items := []*models.Category{
		{ID: uuid.New(), Name: "Sneakers", ParentID: &parent},
	}
	expectedOpts := repositories.ListOptions{SortBy: "name", SortDesc: true, Page: 2, Limit: 5}
	svc.On("List", mock.Anything, mock.Anything, expectedOpts).Return(items, 11, nil)

	c, rec := newContext(t, http.MethodGet, "/v1/subcategories?parent="+parent.String()+"&sort=-name&page=2&limit=5", "", nil)
	assert.NoError(t, h.ListSubCategories(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]interface{})
	pagination := data["pagination"].(map[string]interface{})
	assert.Equal(t, float64(11), pagination["total"])
	assert.Equal(t, float64(3), pagination["totalPages"])
	assert.Equal(t, float64(2), pagination["page"])
}

func TestListSubCategories_FieldProjection(t *testing.T) {
	svc := new(MockSubCategoryService)
	h := NewSubCategoryHandlers(svc)
	parent := uuid.New()

	items := []*models.Category{
		{ID: uuid.New(), Name: "Sneakers", Slug: "sneakers", ParentID: &parent},
	}
	svc.On("List", mock.Anything, mock.Anything, mock.Anything).Return(items, 1, nil)

	c, rec := newContext(t, http.MethodGet, "/v1/subcategories?fields=name,slug", "", nil)
	assert.NoError(t, h.ListSubCategories(c))

	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]interface{})
	subCategories := data["subCategories"].([]interface{})
	row := subCategories[0].(map[string]interface{})
	assert.Equal(t, "Sneakers", row["name"])
	assert.Equal(t, "sneakers", row["slug"])
	_, hasID := row["id"]
	assert.False(t, hasID)
}

func TestCreateSubCategory_BadParentIDIs400(t *testing.T) {
	svc := new(MockSubCategoryService)
	h := NewSubCategoryHandlers(svc)
	actor := uuid.New()

	c, _ := newContext(t, http.MethodPost, "/v1/categories/nope/subcategories", `{"name":"Sneakers"}`, &actor)
	c.SetParamNames("categoryId")
	c.SetParamValues("nope")

	err := h.CreateSubCategory(c)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestUpdateSubCategory_NotFoundIs404(t *testing.T) {
	svc := new(MockSubCategoryService)
	h := NewSubCategoryHandlers(svc)
	actor := uuid.New()
	id := uuid.New()

	svc.On("Update", mock.Anything, actor, id, mock.Anything, mock.Anything).Return(nil, services.ErrSubCategoryNotFound)

	c, _ := newContext(t, http.MethodPatch, "/v1/subcategories/"+id.String(), `{"name":"Sneakers"}`, &actor)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	err := h.UpdateSubCategory(c)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}
