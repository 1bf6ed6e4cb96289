// Package articles is a downstream consumer of the authorization core: every
// endpoint works from the decoded token's company and permission set only.
package articles

import "time"

// Article is a tenant-owned content record.
type Article struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"companyId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateArticleRequest creates an article in the caller's company.
type CreateArticleRequest struct {
	Title   string `json:"title" validate:"required,max=300"`
	Content string `json:"content" validate:"required"`
}

// UpdateArticleRequest updates title and/or content.
type UpdateArticleRequest struct {
	Title   *string `json:"title,omitempty" validate:"omitempty,max=300"`
	Content *string `json:"content,omitempty"`
}
