package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/crypto/bcrypt"

	"github.com/lumen-cms/lumen-cms/internal/platform/httpx"
	"github.com/lumen-cms/lumen-cms/internal/rbac"
	"github.com/lumen-cms/lumen-cms/internal/shared"
)

// WelcomeMailer enqueues the post-registration welcome email. Enqueue
// failures are logged, never surfaced: mail is best-effort.
type WelcomeMailer interface {
	EnqueueWelcomeEmail(ctx context.Context, email, name string) error
}

// Service wraps registration, credential verification and token issuance.
type Service struct {
	repo       Repository
	tokens     *Issuer
	logger     *slog.Logger
	mailer     WelcomeMailer
	bcryptCost int
}

// NewService constructs a Service. mailer may be nil.
func NewService(repo Repository, tokens *Issuer, logger *slog.Logger, mailer WelcomeMailer, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, tokens: tokens, logger: logger, mailer: mailer, bcryptCost: bcryptCost}
}

// Register creates a company together with its first, admin user. The ADMIN
// role must already be seeded; its absence is a deployment fault, not
// something the caller can fix.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, error) {
	adminRole, err := s.repo.GetRoleByName(ctx, rbac.RoleAdmin)
	if err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("auth: hash password: %w", err)
	}

	user, err := s.repo.CreateCompanyAndAdmin(ctx, req.CompanyName, NewUser{
		Username:     req.Username,
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
	}, adminRole.ID)
	if err != nil {
		return User{}, err
	}

	s.sendWelcome(ctx, user)
	return user, nil
}

// RegisterUserByAdmin creates a user inside the acting admin's company. The
// tenant comes exclusively from the caller's verified claims.
func (s *Service) RegisterUserByAdmin(ctx context.Context, req RegisterUserRequest, actor *shared.Claims) (User, error) {
	if actor == nil {
		return User{}, httpx.ErrUnauthorized
	}

	roleName := req.Role
	if roleName == "" {
		roleName = rbac.RoleUser
	}
	role, err := s.repo.GetRoleByName(ctx, roleName)
	if err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("auth: hash password: %w", err)
	}

	user, err := s.repo.CreateUserWithRole(ctx, actor.CompanyID, NewUser{
		Username:     req.Username,
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
	}, role.ID)
	if err != nil {
		return User{}, err
	}

	s.sendWelcome(ctx, user)
	return user, nil
}

// Login verifies credentials and returns a signed access token. A missing
// user and a wrong password produce the same error; callers must not learn
// which one occurred.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	proj, err := s.repo.GetLoginProjection(ctx, req.CompanyID, req.Username)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return LoginResponse{}, fmt.Errorf("auth: invalid credentials: %w", httpx.ErrUnauthorized)
		}
		return LoginResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(proj.User.PasswordHash), []byte(req.Password)); err != nil {
		return LoginResponse{}, fmt.Errorf("auth: invalid credentials: %w", httpx.ErrUnauthorized)
	}

	token, err := s.tokens.Sign(proj.User, flatten(proj.Roles), flatten(proj.Permissions))
	if err != nil {
		return LoginResponse{}, err
	}
	return LoginResponse{AccessToken: token}, nil
}

// Profile returns the live user record for the token subject.
func (s *Service) Profile(ctx context.Context, claims *shared.Claims) (User, error) {
	if claims == nil {
		return User{}, httpx.ErrUnauthorized
	}
	return s.repo.GetUserInCompany(ctx, claims.UserID(), claims.CompanyID)
}

func (s *Service) sendWelcome(ctx context.Context, user User) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.EnqueueWelcomeEmail(ctx, user.Email, user.Name); err != nil && s.logger != nil {
		s.logger.Warn("enqueue welcome email", slog.Any("error", err))
	}
}

// flatten collapses duplicates across roles into a sorted set. A user with
// two roles that both grant read:Article sees it once.
func flatten(values []string) []string {
	unique := make(map[string]struct{}, len(values))
	for _, v := range values {
		unique[v] = struct{}{}
	}
	out := make([]string, 0, len(unique))
	for v := range unique {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
