package repositories

import (
	"context"
	"errors"
	"fmt"

	"catalogd/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Database is the subset of pgxpool.Pool the repositories need. pgxmock
// implements it too, so repository tests run against a mocked pool.
type Database interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ErrNotFound is returned when no row matches the given id or slug.
var ErrNotFound = errors.New("not found")

// ListOptions controls sorting and page-based pagination for flat listings.
type ListOptions struct {
	SortBy   string
	SortDesc bool
	Page     int
	Limit    int
}

// sortableColumns whitelists ORDER BY targets; anything else falls back to
// creation order.
var sortableColumns = map[string]string{
	"name":            "name",
	"createdAt":       "created_at",
	"updatedAt":       "updated_at",
	"popularityScore": "popularity_score",
}

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	Update(ctx context.Context, category *models.Category, replaceImages bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListRoots(ctx context.Context) ([]*models.Category, error)
	Children(ctx context.Context, parentID uuid.UUID) ([]*models.Category, error)
	ListByParent(ctx context.Context, parentID *uuid.UUID, opts ListOptions) ([]*models.Category, error)
	CountByParent(ctx context.Context, parentID *uuid.UUID) (int, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ImageAssetIDs(ctx context.Context) ([]string, error)
}

type categoryRepo struct {
	db Database
}

func NewCategoryRepo(db Database) CategoryRepository {
	return &categoryRepo{db: db}
}

const categoryColumns = `id, name, slug, type, parent_id, ancestors, active, popularity_score, created_by, updated_by, created_at, updated_at`

func scanCategory(row pgx.Row) (*models.Category, error) {
	category := &models.Category{}
	err := row.Scan(&category.ID, &category.Name, &category.Slug, &category.Type,
		&category.ParentID, &category.Ancestors, &category.Active, &category.PopularityScore,
		&category.CreatedBy, &category.UpdatedBy, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (r *categoryRepo) Create(ctx context.Context, category *models.Category) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO categories (id, name, slug, type, parent_id, ancestors, active, popularity_score, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`
	if _, err := tx.Exec(ctx, query, category.ID, category.Name, category.Slug, category.Type,
		category.ParentID, category.Ancestors, category.Active, category.PopularityScore, category.CreatedBy); err != nil {
		return err
	}

	if err := insertImages(ctx, tx, category.ID, category.Images); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertImages(ctx context.Context, tx pgx.Tx, categoryID uuid.UUID, images []*models.Image) error {
	query := `
		INSERT INTO category_images (id, category_id, asset_id, url, alt_text, width, height, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`
	for _, image := range images {
		if image.ID == uuid.Nil {
			image.ID = uuid.New()
		}
		image.CategoryID = categoryID
		if _, err := tx.Exec(ctx, query, image.ID, image.CategoryID, image.AssetID,
			image.URL, image.AltText, image.Width, image.Height, image.Type); err != nil {
			return err
		}
	}
	return nil
}

func (r *categoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories WHERE id = $1`, categoryColumns)
	category, err := scanCategory(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.loadImages(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (r *categoryRepo) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories WHERE slug = $1`, categoryColumns)
	category, err := scanCategory(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.loadImages(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (r *categoryRepo) Update(ctx context.Context, category *models.Category, replaceImages bool) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE categories
		SET name = $1, slug = $2, type = $3, parent_id = $4, ancestors = $5, active = $6,
		    popularity_score = $7, updated_by = $8, updated_at = NOW()
		WHERE id = $9
	`
	tag, err := tx.Exec(ctx, query, category.Name, category.Slug, category.Type,
		category.ParentID, category.Ancestors, category.Active, category.PopularityScore,
		category.UpdatedBy, category.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if replaceImages {
		if _, err := tx.Exec(ctx, `DELETE FROM category_images WHERE category_id = $1`, category.ID); err != nil {
			return err
		}
		if err := insertImages(ctx, tx, category.ID, category.Images); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *categoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *categoryRepo) ListRoots(ctx context.Context) ([]*models.Category, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM categories
		WHERE parent_id IS NULL
		ORDER BY popularity_score DESC, created_at ASC
	`, categoryColumns)
	return r.list(ctx, query)
}

func (r *categoryRepo) Children(ctx context.Context, parentID uuid.UUID) ([]*models.Category, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM categories
		WHERE parent_id = $1
		ORDER BY created_at ASC
	`, categoryColumns)
	return r.list(ctx, query, parentID)
}

func (r *categoryRepo) ListByParent(ctx context.Context, parentID *uuid.UUID, opts ListOptions) ([]*models.Category, error) {
	orderBy := "created_at"
	if col, ok := sortableColumns[opts.SortBy]; ok {
		orderBy = col
	}
	direction := "ASC"
	if opts.SortDesc {
		direction = "DESC"
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	where := "parent_id IS NOT NULL"
	args := []any{limit, offset}
	if parentID != nil {
		where = "parent_id = $3"
		args = append(args, *parentID)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM categories
		WHERE %s
		ORDER BY %s %s
		LIMIT $1 OFFSET $2
	`, categoryColumns, where, orderBy, direction)
	return r.list(ctx, query, args...)
}

func (r *categoryRepo) CountByParent(ctx context.Context, parentID *uuid.UUID) (int, error) {
	var count int
	if parentID != nil {
		err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM categories WHERE parent_id = $1`, *parentID).Scan(&count)
		return count, err
	}
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM categories WHERE parent_id IS NOT NULL`).Scan(&count)
	return count, err
}

func (r *categoryRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM categories WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

// ImageAssetIDs returns every media-store asset id currently referenced by a
// category image. Used by the orphaned-media sweep.
func (r *categoryRepo) ImageAssetIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT asset_id FROM category_images WHERE asset_id <> ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *categoryRepo) list(ctx context.Context, query string, args ...any) ([]*models.Category, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, category := range categories {
		if err := r.loadImages(ctx, category); err != nil {
			return nil, err
		}
	}
	return categories, nil
}

func (r *categoryRepo) loadImages(ctx context.Context, category *models.Category) error {
	query := `
		SELECT id, category_id, asset_id, url, alt_text, width, height, type, created_at
		FROM category_images
		WHERE category_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, category.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	images := []*models.Image{}
	for rows.Next() {
		image := &models.Image{}
		if err := rows.Scan(&image.ID, &image.CategoryID, &image.AssetID, &image.URL,
			&image.AltText, &image.Width, &image.Height, &image.Type, &image.CreatedAt); err != nil {
			return err
		}
		images = append(images, image)
	}
	category.Images = images
	return rows.Err()
}
