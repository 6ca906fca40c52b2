package services

import (
	"context"
	"errors"
	"log"

	"catalogd/internal/caching"
	"catalogd/internal/models"
	"catalogd/internal/repositories"

	"github.com/google/uuid"
)

// SubCategoryService operates on categories below the top level. Creation
// forces the parent from the request path; listing is flat, one level, with
// sorting and page-based pagination against a total count.
type SubCategoryService interface {
	Create(ctx context.Context, actorID, parentID uuid.UUID, input CategoryInput, uploads []*FileUpload) (*models.Category, error)
	List(ctx context.Context, parentID *uuid.UUID, opts repositories.ListOptions) ([]*models.Category, int, error)
	Update(ctx context.Context, actorID, id uuid.UUID, input CategoryInput, uploads []*FileUpload) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type subCategoryService struct {
	categoryRepo repositories.CategoryRepository
	mediaSvc     MediaService
	cacheSvc     caching.CacheService
}

func NewSubCategoryService(categoryRepo repositories.CategoryRepository, mediaSvc MediaService, cacheSvc caching.CacheService) SubCategoryService {
	return &subCategoryService{
		categoryRepo: categoryRepo,
		mediaSvc:     mediaSvc,
		cacheSvc:     cacheSvc,
	}
}

func (s *subCategoryService) Create(ctx context.Context, actorID, parentID uuid.UUID, input CategoryInput, uploads []*FileUpload) (*models.Category, error) {
	if _, err := s.categoryRepo.GetByID(ctx, parentID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	// The path-supplied parent wins over anything in the payload.
	input.ParentID = &parentID

	subCategory, err := buildCategory(ctx, s.categoryRepo, s.mediaSvc, actorID, input, uploads)
	if err != nil {
		return nil, err
	}
	if err := s.categoryRepo.Create(ctx, subCategory); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx)

	subCategory.Children = []*models.Category{}
	return subCategory, nil
}

func (s *subCategoryService) List(ctx context.Context, parentID *uuid.UUID, opts repositories.ListOptions) ([]*models.Category, int, error) {
	total, err := s.categoryRepo.CountByParent(ctx, parentID)
	if err != nil {
		return nil, 0, err
	}

	subCategories, err := s.categoryRepo.ListByParent(ctx, parentID, opts)
	if err != nil {
		return nil, 0, err
	}
	if subCategories == nil {
		subCategories = []*models.Category{}
	}
	for _, subCategory := range subCategories {
		if subCategory.Children == nil {
			subCategory.Children = []*models.Category{}
		}
	}
	return subCategories, total, nil
}

func (s *subCategoryService) Update(ctx context.Context, actorID, id uuid.UUID, input CategoryInput, uploads []*FileUpload) (*models.Category, error) {
	subCategory, err := updateCategory(ctx, s.categoryRepo, s.mediaSvc, actorID, id, input, uploads)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrSubCategoryNotFound
		}
		return nil, err
	}
	s.invalidateCache(ctx)
	return subCategory, nil
}

func (s *subCategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := deleteCategory(ctx, s.categoryRepo, s.mediaSvc, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrSubCategoryNotFound
		}
		return err
	}
	s.invalidateCache(ctx)
	return nil
}

func (s *subCategoryService) invalidateCache(ctx context.Context) {
	if err := s.cacheSvc.InvalidateCategories(ctx); err != nil {
		log.Printf("category cache invalidation failed: %v", err)
	}
}
