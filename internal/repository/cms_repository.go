package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/medrotation-api/internal/models"
)

const (
	pageColumns    = `id, slug, title, meta_title, meta_description, status, created_at, updated_at`
	sectionColumns = `id, page_id, section_key, section_type, title, content, data, sort_order, status, updated_by, created_at, updated_at`
	mediaColumns   = `id, file_name, original_name, mime_type, size_bytes, url, alt_text, metadata, uploaded_by, created_at`
	blogColumns    = `id, slug, title, excerpt, content, cover_image_url, author_id, tags, meta_title, meta_description, status, published_at, created_at, updated_at`
	courseColumns  = `id, slug, title, description, instructor, specialty_id, price, duration_hours, syllabus, status, created_at, updated_at`
)

// CMSRepository persists pages, sections, media records, blog posts and courses.
type CMSRepository struct {
	db *sqlx.DB
}

// NewCMSRepository constructs a CMSRepository.
func NewCMSRepository(db *sqlx.DB) *CMSRepository {
	return &CMSRepository{db: db}
}

func execAffecting(ctx context.Context, db *sqlx.DB, label, query string, args ...interface{}) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func contentWhere(filter models.ContentFilter, searchColumns ...string) (string, []interface{}) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, string(*filter.Status))
	}
	if filter.Tag != nil {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", len(args)+1))
		args = append(args, *filter.Tag)
	}
	if filter.Search != "" && len(searchColumns) > 0 {
		placeholder := fmt.Sprintf("$%d", len(args)+1)
		parts := make([]string, 0, len(searchColumns))
		for _, col := range searchColumns {
			parts = append(parts, fmt.Sprintf("LOWER(%s) LIKE %s", col, placeholder))
		}
		conditions = append(conditions, "("+strings.Join(parts, " OR ")+")")
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// ListPages returns every page, optionally narrowed by status.
func (r *CMSRepository) ListPages(ctx context.Context, status *models.ContentStatus) ([]models.ContentPage, error) {
	where, args := contentWhere(models.ContentFilter{Status: status})
	pages := make([]models.ContentPage, 0)
	if err := r.db.SelectContext(ctx, &pages, "SELECT "+pageColumns+" FROM content_pages "+where+" ORDER BY slug", args...); err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return pages, nil
}

// FindPageBySlug fetches a page.
func (r *CMSRepository) FindPageBySlug(ctx context.Context, slug string) (*models.ContentPage, error) {
	var page models.ContentPage
	if err := r.db.GetContext(ctx, &page, "SELECT "+pageColumns+" FROM content_pages WHERE slug = $1", slug); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreatePage inserts a page.
func (r *CMSRepository) CreatePage(ctx context.Context, page *models.ContentPage) error {
	if page.ID == "" {
		page.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	page.CreatedAt = now
	page.UpdatedAt = now
	const query = `INSERT INTO content_pages (id, slug, title, meta_title, meta_description, status, created_at, updated_at)
        VALUES (:id, :slug, :title, :meta_title, :meta_description, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, page); err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	return nil
}

// UpdatePage rewrites a page's mutable fields.
func (r *CMSRepository) UpdatePage(ctx context.Context, page *models.ContentPage) error {
	page.UpdatedAt = time.Now().UTC()
	return execAffecting(ctx, r.db, "update page",
		`UPDATE content_pages SET slug = $1, title = $2, meta_title = $3, meta_description = $4, status = $5, updated_at = $6 WHERE id = $7`,
		page.Slug, page.Title, page.MetaTitle, page.MetaDescription, page.Status, page.UpdatedAt, page.ID)
}

// DeletePage removes a page and its sections.
func (r *CMSRepository) DeletePage(ctx context.Context, id string) error {
	return execAffecting(ctx, r.db, "delete page", `DELETE FROM content_pages WHERE id = $1`, id)
}

// ListSections returns a page's sections in display order, optionally only
// those with the given status.
func (r *CMSRepository) ListSections(ctx context.Context, pageID string, status *models.ContentStatus) ([]models.ContentSection, error) {
	query := "SELECT " + sectionColumns + " FROM content_sections WHERE page_id = $1"
	args := []interface{}{pageID}
	if status != nil {
		query += " AND status = $2"
		args = append(args, *status)
	}
	query += " ORDER BY sort_order, section_key"
	sections := make([]models.ContentSection, 0)
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// UpsertSection creates or replaces the section keyed by (page, section key).
func (r *CMSRepository) UpsertSection(ctx context.Context, section *models.ContentSection) (*models.ContentSection, error) {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	query := `INSERT INTO content_sections (id, page_id, section_key, section_type, title, content, data, sort_order, status, updated_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
        ON CONFLICT (page_id, section_key) DO UPDATE SET section_type = EXCLUDED.section_type, title = EXCLUDED.title,
        content = EXCLUDED.content, data = EXCLUDED.data, sort_order = EXCLUDED.sort_order, status = EXCLUDED.status,
        updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at
        RETURNING ` + sectionColumns
	var stored models.ContentSection
	if err := r.db.GetContext(ctx, &stored, query,
		section.ID, section.PageID, section.SectionKey, section.SectionType, section.Title, section.Content,
		section.Data, section.SortOrder, section.Status, section.UpdatedBy, now); err != nil {
		return nil, fmt.Errorf("upsert section: %w", err)
	}
	return &stored, nil
}

// ReorderSections assigns sort_order by the position of each key in keys.
// Keys that do not belong to the page are reported as sql.ErrNoRows and
// nothing is changed.
func (r *CMSRepository) ReorderSections(ctx context.Context, pageID string, keys []string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for i, key := range keys {
		res, execErr := tx.ExecContext(ctx,
			`UPDATE content_sections SET sort_order = $1, updated_at = $2 WHERE page_id = $3 AND section_key = $4`,
			i, now, pageID, key)
		if execErr != nil {
			err = fmt.Errorf("reorder section %s: %w", key, execErr)
			return err
		}
		if n, rerr := res.RowsAffected(); rerr == nil && n == 0 {
			err = sql.ErrNoRows
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder: %w", err)
	}
	return nil
}

// DeleteSection removes one section of a page.
func (r *CMSRepository) DeleteSection(ctx context.Context, pageID, key string) error {
	return execAffecting(ctx, r.db, "delete section", `DELETE FROM content_sections WHERE page_id = $1 AND section_key = $2`, pageID, key)
}

// CreateMedia records an externally stored asset.
func (r *CMSRepository) CreateMedia(ctx context.Context, asset *models.MediaAsset) error {
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	asset.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO media_assets (id, file_name, original_name, mime_type, size_bytes, url, alt_text, metadata, uploaded_by, created_at)
        VALUES (:id, :file_name, :original_name, :mime_type, :size_bytes, :url, :alt_text, :metadata, :uploaded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, asset); err != nil {
		return fmt.Errorf("create media asset: %w", err)
	}
	return nil
}

// ListMedia returns a page of media records, newest first.
func (r *CMSRepository) ListMedia(ctx context.Context, filter models.ContentFilter) ([]models.MediaAsset, int, error) {
	where, args := contentWhere(models.ContentFilter{Search: filter.Search}, "original_name", "file_name")
	page, limit := models.NormalizePage(filter.Page, filter.Limit)
	query := fmt.Sprintf("SELECT %s FROM media_assets %s ORDER BY created_at DESC LIMIT %d OFFSET %d", mediaColumns, where, limit, (page-1)*limit)
	assets := make([]models.MediaAsset, 0)
	if err := r.db.SelectContext(ctx, &assets, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list media: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM media_assets "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count media: %w", err)
	}
	return assets, total, nil
}

// DeleteMedia removes a media record.
func (r *CMSRepository) DeleteMedia(ctx context.Context, id string) error {
	return execAffecting(ctx, r.db, "delete media", `DELETE FROM media_assets WHERE id = $1`, id)
}

// ListBlogPosts returns a page of posts, most recently published first.
func (r *CMSRepository) ListBlogPosts(ctx context.Context, filter models.ContentFilter) ([]models.BlogPost, int, error) {
	where, args := contentWhere(filter, "title", "excerpt")
	page, limit := models.NormalizePage(filter.Page, filter.Limit)
	query := fmt.Sprintf("SELECT %s FROM blog_posts %s ORDER BY COALESCE(published_at, created_at) DESC, id DESC LIMIT %d OFFSET %d",
		blogColumns, where, limit, (page-1)*limit)
	posts := make([]models.BlogPost, 0)
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list blog posts: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM blog_posts "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count blog posts: %w", err)
	}
	return posts, total, nil
}

// FindBlogPost fetches a post by id or slug.
func (r *CMSRepository) FindBlogPost(ctx context.Context, idOrSlug string) (*models.BlogPost, error) {
	var post models.BlogPost
	if err := r.db.GetContext(ctx, &post, "SELECT "+blogColumns+" FROM blog_posts WHERE id = $1 OR slug = $1", idOrSlug); err != nil {
		return nil, err
	}
	return &post, nil
}

// CreateBlogPost inserts a post.
func (r *CMSRepository) CreateBlogPost(ctx context.Context, post *models.BlogPost) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Tags == nil {
		post.Tags = []string{}
	}
	const query = `INSERT INTO blog_posts (id, slug, title, excerpt, content, cover_image_url, author_id, tags, meta_title, meta_description, status, published_at, created_at, updated_at)
        VALUES (:id, :slug, :title, :excerpt, :content, :cover_image_url, :author_id, :tags, :meta_title, :meta_description, :status, :published_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("create blog post: %w", err)
	}
	return nil
}

// UpdateBlogPost rewrites a post's mutable fields.
func (r *CMSRepository) UpdateBlogPost(ctx context.Context, post *models.BlogPost) error {
	post.UpdatedAt = time.Now().UTC()
	if post.Tags == nil {
		post.Tags = []string{}
	}
	const query = `UPDATE blog_posts SET slug = :slug, title = :title, excerpt = :excerpt, content = :content, cover_image_url = :cover_image_url,
        tags = :tags, meta_title = :meta_title, meta_description = :meta_description, status = :status, published_at = :published_at, updated_at = :updated_at
        WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, post)
	if err != nil {
		return fmt.Errorf("update blog post: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteBlogPost removes a post.
func (r *CMSRepository) DeleteBlogPost(ctx context.Context, id string) error {
	return execAffecting(ctx, r.db, "delete blog post", `DELETE FROM blog_posts WHERE id = $1`, id)
}

// ListCourses returns a page of courses ordered by title.
func (r *CMSRepository) ListCourses(ctx context.Context, filter models.ContentFilter) ([]models.Course, int, error) {
	where, args := contentWhere(models.ContentFilter{Status: filter.Status, Search: filter.Search}, "title", "description")
	page, limit := models.NormalizePage(filter.Page, filter.Limit)
	query := fmt.Sprintf("SELECT %s FROM courses %s ORDER BY title, id LIMIT %d OFFSET %d", courseColumns, where, limit, (page-1)*limit)
	courses := make([]models.Course, 0)
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindCourse fetches a course by id or slug.
func (r *CMSRepository) FindCourse(ctx context.Context, idOrSlug string) (*models.Course, error) {
	var course models.Course
	if err := r.db.GetContext(ctx, &course, "SELECT "+courseColumns+" FROM courses WHERE id = $1 OR slug = $1", idOrSlug); err != nil {
		return nil, err
	}
	return &course, nil
}

// CreateCourse inserts a course.
func (r *CMSRepository) CreateCourse(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, slug, title, description, instructor, specialty_id, price, duration_hours, syllabus, status, created_at, updated_at)
        VALUES (:id, :slug, :title, :description, :instructor, :specialty_id, :price, :duration_hours, :syllabus, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// UpdateCourse rewrites a course's mutable fields.
func (r *CMSRepository) UpdateCourse(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET slug = :slug, title = :title, description = :description, instructor = :instructor, specialty_id = :specialty_id,
        price = :price, duration_hours = :duration_hours, syllabus = :syllabus, status = :status, updated_at = :updated_at
        WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteCourse removes a course.
func (r *CMSRepository) DeleteCourse(ctx context.Context, id string) error {
	return execAffecting(ctx, r.db, "delete course", `DELETE FROM courses WHERE id = $1`, id)
}
