package images

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

const presignTTL = time.Hour

// RepositoryPort defines data access methods for image metadata.
type RepositoryPort interface {
	Create(ctx context.Context, img Image) (Image, error)
	Get(ctx context.Context, companyID, id int64) (Image, error)
	List(ctx context.Context, companyID int64) ([]Image, error)
}

// Service handles image upload and retrieval.
type Service struct {
	repo  RepositoryPort
	store ObjectStore
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, store ObjectStore) *Service {
	return &Service{repo: repo, store: store}
}

// Upload stores the binary in the object store and records metadata. The
// object key is namespaced by company so tenants can never collide.
func (s *Service) Upload(ctx context.Context, companyID, userID int64, originalName, contentType string, size int64, body io.Reader) (Image, error) {
	key := fmt.Sprintf("%d/%s-%s", companyID, uuid.NewString(), originalName)
	if err := s.store.Put(ctx, key, body, contentType); err != nil {
		return Image{}, err
	}
	return s.repo.Create(ctx, Image{
		CompanyID:    companyID,
		UserID:       userID,
		ObjectKey:    key,
		OriginalName: originalName,
		ContentType:  contentType,
		Size:         size,
	})
}

// List returns the company's image metadata.
func (s *Service) List(ctx context.Context, companyID int64) ([]Image, error) {
	return s.repo.List(ctx, companyID)
}

// URL returns a presigned, time-limited download URL for one image.
func (s *Service) URL(ctx context.Context, companyID, id int64) (string, error) {
	img, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return "", err
	}
	return s.store.PresignGet(ctx, img.ObjectKey, presignTTL)
}
