package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"catalogd/internal/common"
	"catalogd/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CategoryHandlers handles category-related HTTP requests
type CategoryHandlers struct {
	categorySvc services.CategoryService
}

// NewCategoryHandlers creates a new category handlers instance
func NewCategoryHandlers(categorySvc services.CategoryService) *CategoryHandlers {
	return &CategoryHandlers{categorySvc: categorySvc}
}

// CategoryRequest is the shared payload for create and partial update. It
// binds from JSON bodies and multipart form fields alike.
type CategoryRequest struct {
	Name            *string  `json:"name" form:"name"`
	Type            *string  `json:"type" form:"type"`
	Parent          *string  `json:"parent" form:"parent"`
	Active          *bool    `json:"active" form:"active"`
	PopularityScore *float64 `json:"popularityScore" form:"popularityScore"`
}

func (r *CategoryRequest) toInput() (services.CategoryInput, error) {
	input := services.CategoryInput{
		Name:            r.Name,
		Type:            r.Type,
		Active:          r.Active,
		PopularityScore: r.PopularityScore,
	}
	if r.Parent != nil && *r.Parent != "" {
		parentID, err := uuid.Parse(*r.Parent)
		if err != nil {
			return input, echo.NewHTTPError(http.StatusBadRequest, "Invalid parent id format")
		}
		input.ParentID = &parentID
	}
	return input, nil
}

// collectUploads turns the request's multipart files into service uploads.
// The returned closer releases the opened file handles.
func collectUploads(c echo.Context) ([]*services.FileUpload, func(), error) {
	form, err := c.MultipartForm()
	if err != nil {
		// Not a multipart request; no files to pick up.
		return nil, func() {}, nil
	}

	altText := c.FormValue("altText")

	var uploads []*services.FileUpload
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	for fieldName, headers := range form.File {
		for _, header := range headers {
			file, err := header.Open()
			if err != nil {
				closeAll()
				return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "Failed to read uploaded file")
			}
			opened = append(opened, file)
			uploads = append(uploads, &services.FileUpload{
				FieldName:   fieldName,
				Filename:    header.Filename,
				AltText:     altText,
				ContentType: header.Header.Get("Content-Type"),
				Reader:      file,
				Size:        header.Size,
			})
		}
	}
	return uploads, closeAll, nil
}

func actorID(c echo.Context) (uuid.UUID, error) {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "User not found")
	}
	return userID, nil
}

func successEnvelope(message string, data map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"status":  "success",
		"message": message,
		"data":    data,
	}
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, services.ErrCategoryNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "No category found")
	case errors.Is(err, services.ErrSubCategoryNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "No subcategory found")
	case errors.Is(err, services.ErrNameRequired), errors.Is(err, services.ErrInvalidSlug):
		return echo.NewHTTPError(http.StatusBadRequest, "A valid category name is required")
	case errors.Is(err, services.ErrInvalidCategoryType):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid category type")
	case errors.Is(err, services.ErrCycleDetected):
		return echo.NewHTTPError(http.StatusInternalServerError, "Category hierarchy contains a cycle")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// ListCategories returns every top-level category with its full subtree
// expanded.
func (h *CategoryHandlers) ListCategories(c echo.Context) error {
	ctx := c.Request().Context()

	categories, err := h.categorySvc.ListRoots(ctx)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, successEnvelope("Categories fetched successfully", map[string]interface{}{
		"categories": categories,
	}))
}

// GetCategory fetches one category by slug, fully expanded.
func (h *CategoryHandlers) GetCategory(c echo.Context) error {
	ctx := c.Request().Context()

	category, err := h.categorySvc.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, successEnvelope("Category fetched successfully", map[string]interface{}{
		"category": category,
	}))
}

// CreateCategory handles creating a new top-level category with optional
// image uploads.
func (h *CategoryHandlers) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := actorID(c)
	if err != nil {
		return err
	}

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	input, err := req.toInput()
	if err != nil {
		return err
	}

	uploads, closeUploads, err := collectUploads(c)
	if err != nil {
		return err
	}
	defer closeUploads()

	category, err := h.categorySvc.Create(ctx, userID, input, uploads)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, successEnvelope("Category created successfully", map[string]interface{}{
		"category": category,
	}))
}

// UpdateCategory applies a partial update; new files wholesale-replace the
// existing image set.
func (h *CategoryHandlers) UpdateCategory(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := actorID(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid category id format")
	}

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	input, err := req.toInput()
	if err != nil {
		return err
	}

	uploads, closeUploads, err := collectUploads(c)
	if err != nil {
		return err
	}
	defer closeUploads()

	category, err := h.categorySvc.Update(ctx, userID, id, input, uploads)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, successEnvelope("Category updated successfully", map[string]interface{}{
		"category": category,
	}))
}

// DeleteCategory removes the category and its media assets. Children are not
// cascaded.
func (h *CategoryHandlers) DeleteCategory(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid category id format")
	}

	if err := h.categorySvc.Delete(ctx, id); err != nil {
		return mapServiceError(err)
	}

	return c.NoContent(http.StatusNoContent)
}
