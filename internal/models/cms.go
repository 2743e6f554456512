package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// ContentStatus is shared by every CMS entity. Any status may follow any other.
type ContentStatus string

const (
	ContentDraft     ContentStatus = "draft"
	ContentPublished ContentStatus = "published"
	ContentArchived  ContentStatus = "archived"
)

// SectionType discriminates how a content section's payload is interpreted.
type SectionType string

const (
	SectionText  SectionType = "text"
	SectionImage SectionType = "image"
	SectionHTML  SectionType = "html"
	SectionJSON  SectionType = "json"
)

// ContentPage groups sections under a slug.
type ContentPage struct {
	ID              string        `db:"id" json:"id"`
	Slug            string        `db:"slug" json:"slug"`
	Title           string        `db:"title" json:"title"`
	MetaTitle       *string       `db:"meta_title" json:"metaTitle,omitempty"`
	MetaDescription *string       `db:"meta_description" json:"metaDescription,omitempty"`
	Status          ContentStatus `db:"status" json:"status"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updatedAt"`
}

// ContentSection is one typed, orderable block of a page. Data is set only
// for json sections; other types keep their payload in Content.
type ContentSection struct {
	ID          string         `db:"id" json:"id"`
	PageID      string         `db:"page_id" json:"pageId"`
	SectionKey  string         `db:"section_key" json:"sectionKey"`
	SectionType SectionType    `db:"section_type" json:"sectionType"`
	Title       *string        `db:"title" json:"title,omitempty"`
	Content     string         `db:"content" json:"content"`
	Data        datatypes.JSON `db:"data" json:"data,omitempty"`
	SortOrder   int            `db:"sort_order" json:"sortOrder"`
	Status      ContentStatus  `db:"status" json:"status"`
	UpdatedBy   *string        `db:"updated_by" json:"updatedBy,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// PageWithSections is the public rendering of a page.
type PageWithSections struct {
	ContentPage
	Sections []ContentSection `json:"sections"`
}

// MediaAsset records a file stored elsewhere; uploads are handled outside this service.
type MediaAsset struct {
	ID           string         `db:"id" json:"id"`
	FileName     string         `db:"file_name" json:"fileName"`
	OriginalName string         `db:"original_name" json:"originalName"`
	MimeType     string         `db:"mime_type" json:"mimeType"`
	SizeBytes    int64          `db:"size_bytes" json:"sizeBytes"`
	URL          string         `db:"url" json:"url"`
	AltText      *string        `db:"alt_text" json:"altText,omitempty"`
	Metadata     datatypes.JSON `db:"metadata" json:"metadata,omitempty"`
	UploadedBy   *string        `db:"uploaded_by" json:"uploadedBy,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
}

// BlogPost is an article with SEO metadata.
type BlogPost struct {
	ID              string         `db:"id" json:"id"`
	Slug            string         `db:"slug" json:"slug"`
	Title           string         `db:"title" json:"title"`
	Excerpt         *string        `db:"excerpt" json:"excerpt,omitempty"`
	Content         string         `db:"content" json:"content"`
	CoverImageURL   *string        `db:"cover_image_url" json:"coverImageUrl,omitempty"`
	AuthorID        *string        `db:"author_id" json:"authorId,omitempty"`
	Tags            pq.StringArray `db:"tags" json:"tags"`
	MetaTitle       *string        `db:"meta_title" json:"metaTitle,omitempty"`
	MetaDescription *string        `db:"meta_description" json:"metaDescription,omitempty"`
	Status          ContentStatus  `db:"status" json:"status"`
	PublishedAt     *time.Time     `db:"published_at" json:"publishedAt,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

// Course is a paid or free educational offering listed next to programs.
type Course struct {
	ID            string         `db:"id" json:"id"`
	Slug          string         `db:"slug" json:"slug"`
	Title         string         `db:"title" json:"title"`
	Description   string         `db:"description" json:"description"`
	Instructor    *string        `db:"instructor" json:"instructor,omitempty"`
	SpecialtyID   *string        `db:"specialty_id" json:"specialtyId,omitempty"`
	Price         *float64       `db:"price" json:"price"`
	DurationHours int            `db:"duration_hours" json:"durationHours"`
	Syllabus      datatypes.JSON `db:"syllabus" json:"syllabus,omitempty"`
	Status        ContentStatus  `db:"status" json:"status"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
}

// ContentFilter narrows CMS listings.
type ContentFilter struct {
	Status *ContentStatus
	Tag    *string
	Search string
	Page   int
	Limit  int
}
