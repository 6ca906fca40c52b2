package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"catalogd/internal/caching"
	"catalogd/internal/models"
	"catalogd/internal/repositories"
	"catalogd/internal/slug"

	"github.com/google/uuid"
)

var (
	ErrCategoryNotFound    = errors.New("category not found")
	ErrSubCategoryNotFound = errors.New("subcategory not found")
	ErrNameRequired        = errors.New("category name is required")
	ErrInvalidCategoryType = errors.New("invalid category type")
	ErrInvalidSlug         = errors.New("name does not produce a valid slug")
	ErrCycleDetected       = errors.New("category cycle detected")
)

const treeCacheTTL = 5 * time.Minute

// FileUpload is one multipart file already read off the request. FieldName
// selects the image type; unknown field names fall back to thumbnail.
type FileUpload struct {
	FieldName   string
	Filename    string
	AltText     string
	ContentType string
	Reader      io.Reader
	Size        int64
}

// CategoryInput carries partial category fields; nil means "leave unchanged"
// on update and "use the default" on create.
type CategoryInput struct {
	Name            *string
	Type            *string
	ParentID        *uuid.UUID
	Active          *bool
	PopularityScore *float64
}

type CategoryService interface {
	Create(ctx context.Context, actorID uuid.UUID, input CategoryInput, uploads []*FileUpload) (*models.Category, error)
	ListRoots(ctx context.Context) ([]*models.Category, error)
	GetBySlug(ctx context.Context, categorySlug string) (*models.Category, error)
	Update(ctx context.Context, actorID, id uuid.UUID, input CategoryInput, uploads []*FileUpload) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type categoryService struct {
	categoryRepo repositories.CategoryRepository
	userRepo     repositories.UserRepository
	mediaSvc     MediaService
	cacheSvc     caching.CacheService
}

func NewCategoryService(categoryRepo repositories.CategoryRepository, userRepo repositories.UserRepository, mediaSvc MediaService, cacheSvc caching.CacheService) CategoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
		userRepo:     userRepo,
		mediaSvc:     mediaSvc,
		cacheSvc:     cacheSvc,
	}
}

// assignSlug derives a slug from name and walks numeric suffixes until one is
// free: my-category, my-category-1, my-category-2, ... The check-then-use
// sequence is not atomic; the unique index on slug backstops concurrent
// creations of the same name.
func assignSlug(ctx context.Context, repo repositories.CategoryRepository, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		return "", ErrInvalidSlug
	}

	candidate := base
	for i := 1; ; i++ {
		exists, err := repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// uploadImages stores every file and returns the image records to persist.
// Uploads are sequential; the first failure aborts the whole operation and
// already-stored assets are left behind (no compensation).
func uploadImages(ctx context.Context, media MediaService, uploads []*FileUpload) ([]*models.Image, error) {
	images := make([]*models.Image, 0, len(uploads))
	for _, upload := range uploads {
		assetID := fmt.Sprintf("categories/%s%s", uuid.New(), filepath.Ext(upload.Filename))
		url, err := media.Upload(ctx, assetID, upload.Reader, upload.Size, upload.ContentType)
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", upload.Filename, err)
		}

		imageType := upload.FieldName
		if !models.ValidImageType(imageType) {
			imageType = models.ImageTypeThumbnail
		}
		images = append(images, &models.Image{
			ID:      uuid.New(),
			AssetID: assetID,
			URL:     url,
			AltText: upload.AltText,
			Type:    imageType,
		})
	}
	return images, nil
}

// deleteAssets removes every stored asset the images reference, one call per
// image, in order. Sequential on purpose: the first failing asset id aborts
// and is named in the error.
func deleteAssets(ctx context.Context, media MediaService, images []*models.Image) error {
	for _, image := range images {
		if image.AssetID == "" {
			continue
		}
		if err := media.Delete(ctx, image.AssetID); err != nil {
			return fmt.Errorf("delete asset %s: %w", image.AssetID, err)
		}
	}
	return nil
}

func (s *categoryService) Create(ctx context.Context, actorID uuid.UUID, input CategoryInput, uploads []*FileUpload) (*models.Category, error) {
	category, err := buildCategory(ctx, s.categoryRepo, s.mediaSvc, actorID, input, uploads)
	if err != nil {
		return nil, err
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx)

	// A fresh node has no descendants yet.
	category.Children = []*models.Category{}
	return category, nil
}

// buildCategory assembles a new category record from the input: defaults,
// forced createdBy, slug assignment, and uploaded images.
func buildCategory(ctx context.Context, repo repositories.CategoryRepository, media MediaService, actorID uuid.UUID, input CategoryInput, uploads []*FileUpload) (*models.Category, error) {
	if input.Name == nil || *input.Name == "" {
		return nil, ErrNameRequired
	}

	categoryType := models.CategoryTypeNormal
	if input.Type != nil {
		if !models.ValidCategoryType(*input.Type) {
			return nil, ErrInvalidCategoryType
		}
		categoryType = *input.Type
	}

	assignedSlug, err := assignSlug(ctx, repo, *input.Name)
	if err != nil {
		return nil, err
	}

	images, err := uploadImages(ctx, media, uploads)
	if err != nil {
		return nil, err
	}

	category := &models.Category{
		ID:        uuid.New(),
		Name:      *input.Name,
		Slug:      assignedSlug,
		Type:      categoryType,
		ParentID:  input.ParentID,
		Images:    images,
		Active:    true,
		CreatedBy: actorID,
	}
	if input.Active != nil {
		category.Active = *input.Active
	}
	if input.PopularityScore != nil {
		category.PopularityScore = *input.PopularityScore
	}
	return category, nil
}

func (s *categoryService) ListRoots(ctx context.Context) ([]*models.Category, error) {
	if cached, err := s.cacheSvc.GetRoots(ctx); cached != nil {
		return cached, nil
	} else if err != nil {
		log.Printf("category cache read failed: %v", err)
	}

	roots, err := s.categoryRepo.ListRoots(ctx)
	if err != nil {
		return nil, err
	}

	for _, root := range roots {
		if err := s.attachCreator(ctx, root); err != nil {
			return nil, err
		}
		if err := s.expandChildren(ctx, root, map[uuid.UUID]bool{}); err != nil {
			return nil, err
		}
	}

	if err := s.cacheSvc.SetRoots(ctx, roots, treeCacheTTL); err != nil {
		log.Printf("category cache write failed: %v", err)
	}
	return roots, nil
}

func (s *categoryService) GetBySlug(ctx context.Context, categorySlug string) (*models.Category, error) {
	if cached, err := s.cacheSvc.GetTree(ctx, categorySlug); cached != nil {
		return cached, nil
	} else if err != nil {
		log.Printf("category cache read failed: %v", err)
	}

	category, err := s.categoryRepo.GetBySlug(ctx, categorySlug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	if err := s.attachCreator(ctx, category); err != nil {
		return nil, err
	}
	if err := s.expandChildren(ctx, category, map[uuid.UUID]bool{}); err != nil {
		return nil, err
	}

	if err := s.cacheSvc.SetTree(ctx, categorySlug, category, treeCacheTTL); err != nil {
		log.Printf("category cache write failed: %v", err)
	}
	return category, nil
}

// expandChildren materializes the full subtree under node: fetch the direct
// children by parent-id filter, attach each child's creator, then recurse.
// One lookup per node, no batching across siblings. The visited set guards
// against a corrupted parent chain; revisiting an id fails fast instead of
// recursing forever.
func (s *categoryService) expandChildren(ctx context.Context, node *models.Category, visited map[uuid.UUID]bool) error {
	if visited[node.ID] {
		return fmt.Errorf("%w: %s", ErrCycleDetected, node.ID)
	}
	visited[node.ID] = true

	children, err := s.categoryRepo.Children(ctx, node.ID)
	if err != nil {
		return err
	}

	node.Children = make([]*models.Category, 0, len(children))
	for _, child := range children {
		if err := s.attachCreator(ctx, child); err != nil {
			return err
		}
		if err := s.expandChildren(ctx, child, visited); err != nil {
			return err
		}
		node.Children = append(node.Children, child)
	}
	return nil
}

func (s *categoryService) attachCreator(ctx context.Context, category *models.Category) error {
	user, err := s.userRepo.GetByID(ctx, category.CreatedBy)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Creator rows can outlive their users; the tree stays readable.
			return nil
		}
		return err
	}
	category.Creator = user
	return nil
}

func (s *categoryService) Update(ctx context.Context, actorID, id uuid.UUID, input CategoryInput, uploads []*FileUpload) (*models.Category, error) {
	category, err := updateCategory(ctx, s.categoryRepo, s.mediaSvc, actorID, id, input, uploads)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	s.invalidateCache(ctx)
	return category, nil
}

// updateCategory applies a partial update. When new files are supplied, every
// old image with an asset id is deleted from the media store before the write,
// and the new image list replaces the old one wholesale. If the write then
// fails the old assets are already gone; that ordering is deliberate and
// unrecovered.
func updateCategory(ctx context.Context, repo repositories.CategoryRepository, media MediaService, actorID, id uuid.UUID, input CategoryInput, uploads []*FileUpload) (*models.Category, error) {
	category, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && *input.Name != category.Name {
		if *input.Name == "" {
			return nil, ErrNameRequired
		}
		category.Name = *input.Name
		newSlug, err := assignSlug(ctx, repo, category.Name)
		if err != nil {
			return nil, err
		}
		category.Slug = newSlug
	}
	if input.Type != nil {
		if !models.ValidCategoryType(*input.Type) {
			return nil, ErrInvalidCategoryType
		}
		category.Type = *input.Type
	}
	if input.ParentID != nil {
		category.ParentID = input.ParentID
	}
	if input.Active != nil {
		category.Active = *input.Active
	}
	if input.PopularityScore != nil {
		category.PopularityScore = *input.PopularityScore
	}
	category.UpdatedBy = &actorID

	replaceImages := len(uploads) > 0
	if replaceImages {
		if err := deleteAssets(ctx, media, category.Images); err != nil {
			return nil, err
		}
		images, err := uploadImages(ctx, media, uploads)
		if err != nil {
			return nil, err
		}
		category.Images = images
	}

	if err := repo.Update(ctx, category, replaceImages); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *categoryService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := deleteCategory(ctx, s.categoryRepo, s.mediaSvc, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}
	s.invalidateCache(ctx)
	return nil
}

// deleteCategory removes the media assets first, then the row. Descendants are
// not cascaded; their parent reference dangles.
func deleteCategory(ctx context.Context, repo repositories.CategoryRepository, media MediaService, id uuid.UUID) error {
	category, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := deleteAssets(ctx, media, category.Images); err != nil {
		return err
	}
	return repo.Delete(ctx, id)
}

func (s *categoryService) invalidateCache(ctx context.Context) {
	if err := s.cacheSvc.InvalidateCategories(ctx); err != nil {
		log.Printf("category cache invalidation failed: %v", err)
	}
}
