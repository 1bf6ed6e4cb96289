package images

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-cms/lumen-cms/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for image metadata.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a metadata row.
func (r *Repository) Create(ctx context.Context, img Image) (Image, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO images (company_id, user_id, object_key, original_name, content_type, size)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		img.CompanyID, img.UserID, img.ObjectKey, img.OriginalName, img.ContentType, img.Size).
		Scan(&img.ID, &img.CreatedAt)
	if err != nil {
		return Image{}, err
	}
	return img, nil
}

// Get fetches one image scoped to the company.
func (r *Repository) Get(ctx context.Context, companyID, id int64) (Image, error) {
	var img Image
	err := r.pool.QueryRow(ctx, `
		SELECT id, company_id, user_id, object_key, original_name, content_type, size, created_at
		FROM images WHERE id = $1 AND company_id = $2`, id, companyID).
		Scan(&img.ID, &img.CompanyID, &img.UserID, &img.ObjectKey, &img.OriginalName, &img.ContentType, &img.Size, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Image{}, fmt.Errorf("images: image %d: %w", id, httpx.ErrNotFound)
		}
		return Image{}, err
	}
	return img, nil
}

// List returns all image metadata owned by the company.
func (r *Repository) List(ctx context.Context, companyID int64) ([]Image, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, user_id, object_key, original_name, content_type, size, created_at
		FROM images WHERE company_id = $1 ORDER BY id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	images := make([]Image, 0)
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.CompanyID, &img.UserID, &img.ObjectKey, &img.OriginalName, &img.ContentType, &img.Size, &img.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}
