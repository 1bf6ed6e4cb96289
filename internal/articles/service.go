package articles

import (
	"context"
)

// RepositoryPort defines data access methods for articles.
type RepositoryPort interface {
	Create(ctx context.Context, companyID int64, title, content string) (Article, error)
	List(ctx context.Context, companyID int64) ([]Article, error)
	Get(ctx context.Context, companyID, id int64) (Article, error)
	Update(ctx context.Context, companyID, id int64, title, content *string) (Article, error)
	Delete(ctx context.Context, companyID, id int64) error
}

// Service handles article business logic. Tenant scoping is uniform: the
// company ID always originates from the caller's decoded token.
type Service struct {
	repo  RepositoryPort
	cache *Cache
}

// NewService builds a Service instance. cache may be nil.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Create inserts a new article and invalidates the company listing.
func (s *Service) Create(ctx context.Context, companyID int64, req CreateArticleRequest) (Article, error) {
	article, err := s.repo.Create(ctx, companyID, req.Title, req.Content)
	if err != nil {
		return Article{}, err
	}
	s.cache.Invalidate(ctx, companyID)
	return article, nil
}

// List returns the company's articles through the read cache.
func (s *Service) List(ctx context.Context, companyID int64) ([]Article, error) {
	return s.cache.FetchList(ctx, companyID, func(ctx context.Context) ([]Article, error) {
		return s.repo.List(ctx, companyID)
	})
}

// Get fetches one article.
func (s *Service) Get(ctx context.Context, companyID, id int64) (Article, error) {
	return s.repo.Get(ctx, companyID, id)
}

// Update applies a partial update and invalidates the company listing.
func (s *Service) Update(ctx context.Context, companyID, id int64, req UpdateArticleRequest) (Article, error) {
	article, err := s.repo.Update(ctx, companyID, id, req.Title, req.Content)
	if err != nil {
		return Article{}, err
	}
	s.cache.Invalidate(ctx, companyID)
	return article, nil
}

// Delete removes an article and invalidates the company listing.
func (s *Service) Delete(ctx context.Context, companyID, id int64) error {
	if err := s.repo.Delete(ctx, companyID, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, companyID)
	return nil
}
