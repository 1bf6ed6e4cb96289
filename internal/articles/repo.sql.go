package articles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-cms/lumen-cms/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an article for the given company.
func (r *Repository) Create(ctx context.Context, companyID int64, title, content string) (Article, error) {
	var a Article
	err := r.pool.QueryRow(ctx, `
		INSERT INTO articles (company_id, title, content)
		VALUES ($1, $2, $3)
		RETURNING id, company_id, title, content, created_at, updated_at`,
		companyID, title, content).
		Scan(&a.ID, &a.CompanyID, &a.Title, &a.Content, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Article{}, err
	}
	return a, nil
}

// List returns all articles owned by the company ordered by id.
func (r *Repository) List(ctx context.Context, companyID int64) ([]Article, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, title, content, created_at, updated_at
		FROM articles WHERE company_id = $1 ORDER BY id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	articles := make([]Article, 0)
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.Title, &a.Content, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// Get fetches one article scoped to the company.
func (r *Repository) Get(ctx context.Context, companyID, id int64) (Article, error) {
	var a Article
	err := r.pool.QueryRow(ctx, `
		SELECT id, company_id, title, content, created_at, updated_at
		FROM articles WHERE id = $1 AND company_id = $2`, id, companyID).
		Scan(&a.ID, &a.CompanyID, &a.Title, &a.Content, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Article{}, fmt.Errorf("articles: article %d: %w", id, httpx.ErrNotFound)
		}
		return Article{}, err
	}
	return a, nil
}

// Update applies non-nil fields, scoped to the company.
func (r *Repository) Update(ctx context.Context, companyID, id int64, title, content *string) (Article, error) {
	var a Article
	err := r.pool.QueryRow(ctx, `
		UPDATE articles
		SET title = COALESCE($3, title), content = COALESCE($4, content), updated_at = NOW()
		WHERE id = $1 AND company_id = $2
		RETURNING id, company_id, title, content, created_at, updated_at`,
		id, companyID, title, content).
		Scan(&a.ID, &a.CompanyID, &a.Title, &a.Content, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Article{}, fmt.Errorf("articles: article %d: %w", id, httpx.ErrNotFound)
		}
		return Article{}, err
	}
	return a, nil
}

// Delete removes an article scoped to the company.
func (r *Repository) Delete(ctx context.Context, companyID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM articles WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("articles: article %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}
