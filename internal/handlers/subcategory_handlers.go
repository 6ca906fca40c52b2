package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"catalogd/internal/models"
	"catalogd/internal/repositories"
	"catalogd/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// SubCategoryHandlers handles subcategory-related HTTP requests
type SubCategoryHandlers struct {
	subCategorySvc services.SubCategoryService
}

// NewSubCategoryHandlers creates a new subcategory handlers instance
func NewSubCategoryHandlers(subCategorySvc services.SubCategoryService) *SubCategoryHandlers {
	return &SubCategoryHandlers{subCategorySvc: subCategorySvc}
}

// ListSubCategoriesRequest represents query parameters for listing
// subcategories. Sort accepts a field name with an optional leading "-" for
// descending order; Fields is a comma-separated projection.
type ListSubCategoriesRequest struct {
	Parent string `query:"parent"`
	Sort   string `query:"sort"`
	Fields string `query:"fields"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}

// ListSubCategories returns a flat page of categories that have a parent set,
// optionally filtered to one parent. No tree expansion here.
func (h *SubCategoryHandlers) ListSubCategories(c echo.Context) error {
	ctx := c.Request().Context()

	var req ListSubCategoriesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}

	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}
	if req.Limit > 100 {
		req.Limit = 100
	}

	var parentID *uuid.UUID
	if req.Parent != "" {
		parsed, err := uuid.Parse(req.Parent)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid parent id format")
		}
		parentID = &parsed
	}

	opts := repositories.ListOptions{
		SortBy:   strings.TrimPrefix(req.Sort, "-"),
		SortDesc: strings.HasPrefix(req.Sort, "-"),
		Page:     req.Page,
		Limit:    req.Limit,
	}

	subCategories, total, err := h.subCategorySvc.List(ctx, parentID, opts)
	if err != nil {
		return mapServiceError(err)
	}

	totalPages := total / req.Limit
	if total%req.Limit != 0 {
		totalPages++
	}

	return c.JSON(http.StatusOK, successEnvelope("Subcategories fetched successfully", map[string]interface{}{
		"subCategories": projectCategories(subCategories, req.Fields),
		"pagination": map[string]interface{}{
			"page":       req.Page,
			"limit":      req.Limit,
			"total":      total,
			"totalPages": totalPages,
		},
	}))
}

// CreateSubCategory creates a category under the path-supplied parent. The
// parent from the path wins over any payload value.
func (h *SubCategoryHandlers) CreateSubCategory(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := actorID(c)
	if err != nil {
		return err
	}

	parentID, err := uuid.Parse(c.Param("categoryId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid parent category id format")
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

	subCategory, err := h.subCategorySvc.Create(ctx, userID, parentID, input, uploads)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, successEnvelope("Subcategory created successfully", map[string]interface{}{
		"subCategory": subCategory,
	}))
}

// UpdateSubCategory applies a partial update to a subcategory.
func (h *SubCategoryHandlers) UpdateSubCategory(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := actorID(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid subcategory id format")
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

	subCategory, err := h.subCategorySvc.Update(ctx, userID, id, input, uploads)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, successEnvelope("Subcategory updated successfully", map[string]interface{}{
		"subCategory": subCategory,
	}))
}

// DeleteSubCategory removes a subcategory and its media assets.
func (h *SubCategoryHandlers) DeleteSubCategory(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid subcategory id format")
	}

	if err := h.subCategorySvc.Delete(ctx, id); err != nil {
		return mapServiceError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// projectCategories applies a comma-separated field projection to the JSON
// form of each category. An empty projection returns the categories as-is.
func projectCategories(categories []*models.Category, fields string) interface{} {
	if fields == "" {
		return categories
	}

	wanted := map[string]bool{}
	for _, field := range strings.Split(fields, ",") {
		if field = strings.TrimSpace(field); field != "" {
			wanted[field] = true
		}
	}
	if len(wanted) == 0 {
		return categories
	}

	projected := make([]map[string]interface{}, 0, len(categories))
	for _, category := range categories {
		raw, err := json.Marshal(category)
		if err != nil {
			continue
		}
		var full map[string]interface{}
		if err := json.Unmarshal(raw, &full); err != nil {
			continue
		}
		row := map[string]interface{}{}
		for field := range wanted {
			if value, ok := full[field]; ok {
				row[field] = value
			}
		}
		projected = append(projected, row)
	}
	return projected
}
