package dto

// FavoriteStatus answers whether a program is bookmarked.
type FavoriteStatus struct {
	ProgramID  string `json:"programId"`
	IsFavorite bool   `json:"isFavorite"`
}

// CreateReviewRequest is the body of POST /reviews.
type CreateReviewRequest struct {
	ProgramID string  `json:"programId" validate:"required"`
	Rating    int     `json:"rating" validate:"required,min=1,max=5"`
	Title     *string `json:"title" validate:"omitempty,max=200"`
	Content   string  `json:"content" validate:"required,max=5000"`
}

// ModerateReviewRequest is the body of PUT /admin/reviews/:id/moderate.
type ModerateReviewRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

// JoinWaitlistRequest is the body of POST /waitlist.
type JoinWaitlistRequest struct {
	ProgramID string `json:"programId" validate:"required"`
}

// SubscribeRequest is the body of POST /newsletter.
type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email,max=320"`
}

// ContactRequest is the body of POST /contact.
type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=320"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// ContactStatusRequest is the body of PUT /admin/contact/:id.
type ContactStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new in_progress resolved"`
}

// SpecialtyRequest is the body of specialty mutations.
type SpecialtyRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Icon        *string `json:"icon" validate:"omitempty,max=200"`
}

// UpdateRoleRequest is the body of PUT /admin/users/:id/role.
type UpdateRoleRequest struct {
	IsAdmin     bool     `json:"isAdmin"`
	AdminRole   *string  `json:"adminRole" validate:"omitempty,oneof=super_admin regular_admin"`
	Permissions []string `json:"adminPermissions" validate:"omitempty,dive,required"`
}

// CreateExportRequest is the body of POST /admin/exports.
type CreateExportRequest struct {
	Format    string  `json:"format" validate:"required,oneof=csv pdf"`
	Status    *string `json:"status" validate:"omitempty,app_status"`
	ProgramID *string `json:"programId"`
}
