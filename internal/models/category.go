package models

import (
	"time"

	"github.com/google/uuid"
)

// Category types
const (
	CategoryTypeMega   = "mega"
	CategoryTypeNormal = "normal"
)

// Image types
const (
	ImageTypeThumbnail = "thumbnail"
	ImageTypeBanner    = "banner"
	ImageTypeMobile    = "mobile"
	ImageTypeGallery   = "gallery"
)

// ValidCategoryType reports whether t is an accepted category type.
func ValidCategoryType(t string) bool {
	return t == CategoryTypeMega || t == CategoryTypeNormal
}

// ValidImageType reports whether t is an accepted image type.
func ValidImageType(t string) bool {
	switch t {
	case ImageTypeThumbnail, ImageTypeBanner, ImageTypeMobile, ImageTypeGallery:
		return true
	}
	return false
}

type Category struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	Name            string      `json:"name" db:"name"`
	Slug            string      `json:"slug" db:"slug"`
	Type            string      `json:"type" db:"type"`
	ParentID        *uuid.UUID  `json:"parent" db:"parent_id"`
	Ancestors       []uuid.UUID `json:"ancestors" db:"ancestors"`
	Images          []*Image    `json:"images" db:"-"`
	Active          bool        `json:"active" db:"active"`
	PopularityScore float64     `json:"popularityScore" db:"popularity_score"`
	CreatedBy       uuid.UUID   `json:"createdBy" db:"created_by"`
	UpdatedBy       *uuid.UUID  `json:"updatedBy,omitempty" db:"updated_by"`
	CreatedAt       time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time   `json:"updatedAt" db:"updated_at"`

	// Children is derived from other categories' parent references and is
	// never stored. Expanded reads always set it, empty at the leaves.
	Children []*Category `json:"children" db:"-"`
	// Creator carries the expanded created_by user on tree reads.
	Creator *User `json:"creator,omitempty" db:"-"`
}

// Image is owned by exactly one category; it has no lifecycle of its own.
type Image struct {
	ID         uuid.UUID `json:"id" db:"id"`
	CategoryID uuid.UUID `json:"-" db:"category_id"`
	// AssetID is the media-store object name, used to delete the asset when
	// the image is replaced or its owning category removed. Empty for
	// externally hosted URLs.
	AssetID   string    `json:"assetId,omitempty" db:"asset_id"`
	URL       string    `json:"url" db:"url"`
	AltText   string    `json:"altText" db:"alt_text"`
	Width     *int      `json:"width,omitempty" db:"width"`
	Height    *int      `json:"height,omitempty" db:"height"`
	Type      string    `json:"type" db:"type"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
