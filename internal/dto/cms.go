package dto

import "encoding/json"

// PageRequest is the body of CMS page mutations.
type PageRequest struct {
	Slug            string  `json:"slug" validate:"omitempty,max=96"`
	Title           string  `json:"title" validate:"required,max=200"`
	MetaTitle       *string `json:"metaTitle" validate:"omitempty,max=200"`
	MetaDescription *string `json:"metaDescription" validate:"omitempty,max=500"`
	Status          string  `json:"status" validate:"omitempty,content_status"`
}

// SectionRequest is the body of PUT /cms/pages/:slug/sections/:key.
type SectionRequest struct {
	SectionType string          `json:"sectionType" validate:"required,section_type"`
	Title       *string         `json:"title" validate:"omitempty,max=200"`
	Content     string          `json:"content" validate:"max=100000"`
	Data        json.RawMessage `json:"data" validate:"rawjson"`
	SortOrder   int             `json:"sortOrder" validate:"min=0"`
	Status      string          `json:"status" validate:"omitempty,content_status"`
}

// ReorderRequest lists section keys in their new display order.
type ReorderRequest struct {
	Keys []string `json:"keys" validate:"required,min=1,dive,required"`
}

// MediaRequest registers an already stored asset.
type MediaRequest struct {
	FileName     string          `json:"fileName" validate:"required,max=255"`
	OriginalName string          `json:"originalName" validate:"required,max=255"`
	MimeType     string          `json:"mimeType" validate:"required,max=100"`
	SizeBytes    int64           `json:"sizeBytes" validate:"min=0"`
	URL          string          `json:"url" validate:"required,max=2000"`
	AltText      *string         `json:"altText" validate:"omitempty,max=500"`
	Metadata     json.RawMessage `json:"metadata" validate:"rawjson"`
}

// BlogPostRequest is the body of blog post mutations.
type BlogPostRequest struct {
	Slug            string   `json:"slug" validate:"omitempty,max=96"`
	Title           string   `json:"title" validate:"required,max=200"`
	Excerpt         *string  `json:"excerpt" validate:"omitempty,max=1000"`
	Content         string   `json:"content" validate:"required"`
	CoverImageURL   *string  `json:"coverImageUrl" validate:"omitempty,max=2000"`
	Tags            []string `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
	MetaTitle       *string  `json:"metaTitle" validate:"omitempty,max=200"`
	MetaDescription *string  `json:"metaDescription" validate:"omitempty,max=500"`
	Status          string   `json:"status" validate:"omitempty,content_status"`
}

// CourseRequest is the body of course mutations.
type CourseRequest struct {
	Slug          string          `json:"slug" validate:"omitempty,max=96"`
	Title         string          `json:"title" validate:"required,max=200"`
	Description   string          `json:"description" validate:"max=10000"`
	Instructor    *string         `json:"instructor" validate:"omitempty,max=200"`
	SpecialtyID   *string         `json:"specialtyId"`
	Price         *float64        `json:"price" validate:"omitempty,min=0"`
	DurationHours int             `json:"durationHours" validate:"min=0"`
	Syllabus      json.RawMessage `json:"syllabus" validate:"rawjson"`
	Status        string          `json:"status" validate:"omitempty,content_status"`
}
