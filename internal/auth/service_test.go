package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumen-cms/lumen-cms/internal/platform/httpx"
	"github.com/lumen-cms/lumen-cms/internal/rbac"
	"github.com/lumen-cms/lumen-cms/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockAuthRepo struct {
	roles       map[string]rbac.Role
	users       map[int64]User
	projections map[string]*LoginProjection

	nextUserID int64

	createCompanyError error
	loginError         error
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		roles:       make(map[string]rbac.Role),
		users:       make(map[int64]User),
		projections: make(map[string]*LoginProjection),
		nextUserID:  1,
	}
}

func (m *mockAuthRepo) key(companyID int64, username string) string {
	return fmt.Sprintf("%d/%s", companyID, username)
}

func (m *mockAuthRepo) GetRoleByName(ctx context.Context, name string) (rbac.Role, error) {
	role, ok := m.roles[name]
	if !ok {
		return rbac.Role{}, httpx.ErrNotFound
	}
	return role, nil
}

func (m *mockAuthRepo) CreateCompanyAndAdmin(ctx context.Context, companyName string, admin NewUser, adminRoleID int64) (User, error) {
	if m.createCompanyError != nil {
		return User{}, m.createCompanyError
	}
	user := User{
		ID:           m.nextUserID,
		CompanyID:    m.nextUserID,
		Username:     admin.Username,
		Email:        admin.Email,
		Name:         admin.Name,
		PasswordHash: admin.PasswordHash,
	}
	m.nextUserID++
	m.users[user.ID] = user
	return user, nil
}

func (m *mockAuthRepo) CreateUserWithRole(ctx context.Context, companyID int64, user NewUser, roleID int64) (User, error) {
	created := User{
		ID:           m.nextUserID,
		CompanyID:    companyID,
		Username:     user.Username,
		Email:        user.Email,
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
	}
	m.nextUserID++
	m.users[created.ID] = created
	return created, nil
}

func (m *mockAuthRepo) GetLoginProjection(ctx context.Context, companyID int64, username string) (*LoginProjection, error) {
	if m.loginError != nil {
		return nil, m.loginError
	}
	proj, ok := m.projections[m.key(companyID, username)]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return proj, nil
}

func (m *mockAuthRepo) UserExistsInCompany(ctx context.Context, userID, companyID int64) (bool, error) {
	u, ok := m.users[userID]
	return ok && u.CompanyID == companyID, nil
}

func (m *mockAuthRepo) GetUserInCompany(ctx context.Context, userID, companyID int64) (User, error) {
	u, ok := m.users[userID]
	if !ok || u.CompanyID != companyID {
		return User{}, httpx.ErrNotFound
	}
	return u, nil
}

type recordingMailer struct {
	sent []string
	err  error
}

func (m *recordingMailer) EnqueueWelcomeEmail(ctx context.Context, email, name string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testService(repo Repository, mailer WelcomeMailer) *Service {
	issuer := NewIssuer([]byte("test-secret"), time.Hour)
	return NewService(repo, issuer, testLogger(), mailer, bcrypt.MinCost)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

// ============================================================================
// REGISTRATION
// ============================================================================

func TestRegisterCreatesCompanyAdmin(t *testing.T) {
	repo := newMockAuthRepo()
	repo.roles[rbac.RoleAdmin] = rbac.Role{ID: 1, Name: rbac.RoleAdmin}
	mailer := &recordingMailer{}
	svc := testService(repo, mailer)

	user, err := svc.Register(context.Background(), RegisterRequest{
		CompanyName: "Acme",
		Username:    "ada",
		Email:       "ada@acme.test",
		Password:    "correct horse",
		Name:        "Ada",
	})
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "correct horse", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse")))
	assert.Equal(t, []string{"ada@acme.test"}, mailer.sent)
}

// Registration refuses to run against an unseeded catalog.
func TestRegisterRequiresSeededAdminRole(t *testing.T) {
	repo := newMockAuthRepo()
	svc := testService(repo, nil)

	_, err := svc.Register(context.Background(), RegisterRequest{
		CompanyName: "Acme",
		Username:    "ada",
		Email:       "ada@acme.test",
		Password:    "correct horse",
		Name:        "Ada",
	})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
	assert.Empty(t, repo.users)
}

func TestRegisterSurvivesMailerFailure(t *testing.T) {
	repo := newMockAuthRepo()
	repo.roles[rbac.RoleAdmin] = rbac.Role{ID: 1, Name: rbac.RoleAdmin}
	svc := testService(repo, &recordingMailer{err: errors.New("queue down")})

	_, err := svc.Register(context.Background(), RegisterRequest{
		CompanyName: "Acme",
		Username:    "ada",
		Email:       "ada@acme.test",
		Password:    "correct horse",
		Name:        "Ada",
	})
	assert.NoError(t, err)
}

func TestRegisterUserByAdminUsesActorCompany(t *testing.T) {
	repo := newMockAuthRepo()
	repo.roles[rbac.RoleUser] = rbac.Role{ID: 3, Name: rbac.RoleUser}
	svc := testService(repo, nil)

	actor := &shared.Claims{CompanyID: 77}
	actor.Subject = "1"

	user, err := svc.RegisterUserByAdmin(context.Background(), RegisterUserRequest{
		Username: "bob",
		Email:    "bob@acme.test",
		Password: "hunter2hunter2",
		Name:     "Bob",
	}, actor)
	require.NoError(t, err)

	assert.Equal(t, int64(77), user.CompanyID)
}

func TestRegisterUserByAdminNilActor(t *testing.T) {
	svc := testService(newMockAuthRepo(), nil)
	_, err := svc.RegisterUserByAdmin(context.Background(), RegisterUserRequest{}, nil)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

// ============================================================================
// LOGIN
// ============================================================================

func TestLoginFlattensRolesAndPermissions(t *testing.T) {
	repo := newMockAuthRepo()
	svc := testService(repo, nil)

	user := User{ID: 5, CompanyID: 9, Username: "ada", PasswordHash: mustHash(t, "correct horse")}
	repo.projections[repo.key(9, "ada")] = &LoginProjection{
		User:  user,
		Roles: []string{"EDITOR", "USER", "EDITOR"},
		// Both roles grant read:Product; the claim set carries it once.
		Permissions: []string{"read:Product", "manage:Product", "read:Product", "create:Article"},
	}

	resp, err := svc.Login(context.Background(), LoginRequest{
		Username:  "ada",
		Password:  "correct horse",
		CompanyID: 9,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)

	claims, err := NewIssuer([]byte("test-secret"), time.Hour).Parse(resp.AccessToken)
	require.NoError(t, err)

	assert.Equal(t, []string{"EDITOR", "USER"}, claims.Roles)
	assert.Equal(t, []string{"create:Article", "manage:Product", "read:Product"}, claims.Permissions)
	assert.Equal(t, int64(5), claims.UserID())
	assert.Equal(t, int64(9), claims.CompanyID)
}

// A seeded ADMIN logs in with the complete grant set in the token; a
// default-role user gets exactly read:Product and nothing else.
func TestLoginCarriesSeededCatalogGrants(t *testing.T) {
	catalog := rbac.DefaultCatalog()
	repo := newMockAuthRepo()
	svc := testService(repo, nil)

	admin := User{ID: 1, CompanyID: 4, Username: "ada", PasswordHash: mustHash(t, "correct horse")}
	repo.projections[repo.key(4, "ada")] = &LoginProjection{
		User:        admin,
		Roles:       []string{rbac.RoleAdmin},
		Permissions: catalog.Grants[rbac.RoleAdmin],
	}
	reader := User{ID: 2, CompanyID: 4, Username: "carol", PasswordHash: mustHash(t, "correct horse")}
	repo.projections[repo.key(4, "carol")] = &LoginProjection{
		User:        reader,
		Roles:       []string{rbac.RoleUser},
		Permissions: catalog.Grants[rbac.RoleUser],
	}

	issuer := NewIssuer([]byte("test-secret"), time.Hour)

	resp, err := svc.Login(context.Background(), LoginRequest{Username: "ada", Password: "correct horse", CompanyID: 4})
	require.NoError(t, err)
	claims, err := issuer.Parse(resp.AccessToken)
	require.NoError(t, err)

	expected := append([]string(nil), catalog.Grants[rbac.RoleAdmin]...)
	sort.Strings(expected)
	assert.Len(t, claims.Permissions, 14)
	assert.Equal(t, expected, claims.Permissions)
	assert.Equal(t, []string{rbac.RoleAdmin}, claims.Roles)

	resp, err = svc.Login(context.Background(), LoginRequest{Username: "carol", Password: "correct horse", CompanyID: 4})
	require.NoError(t, err)
	claims, err = issuer.Parse(resp.AccessToken)
	require.NoError(t, err)

	assert.Equal(t, []string{"read:Product"}, claims.Permissions)
	assert.Equal(t, []string{rbac.RoleUser}, claims.Roles)
}

// Only a missing user maps to the credential error. A repository outage
// propagates untouched so the handler answers 500, not 401.
func TestLoginPropagatesRepositoryFailure(t *testing.T) {
	repo := newMockAuthRepo()
	repo.loginError = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
	svc := testService(repo, nil)

	_, err := svc.Login(context.Background(), LoginRequest{Username: "ada", Password: "correct horse", CompanyID: 9})
	require.Error(t, err)
	assert.NotErrorIs(t, err, httpx.ErrUnauthorized)
	assert.ErrorIs(t, err, repo.loginError)
}

// A missing user and a wrong password must be indistinguishable.
func TestLoginFailureModesAreIndistinguishable(t *testing.T) {
	repo := newMockAuthRepo()
	svc := testService(repo, nil)

	user := User{ID: 5, CompanyID: 9, Username: "ada", PasswordHash: mustHash(t, "correct horse")}
	repo.projections[repo.key(9, "ada")] = &LoginProjection{User: user}

	_, wrongPassword := svc.Login(context.Background(), LoginRequest{
		Username: "ada", Password: "wrong", CompanyID: 9,
	})
	_, missingUser := svc.Login(context.Background(), LoginRequest{
		Username: "nobody", Password: "wrong", CompanyID: 9,
	})
	_, wrongTenant := svc.Login(context.Background(), LoginRequest{
		Username: "ada", Password: "correct horse", CompanyID: 8,
	})

	require.Error(t, wrongPassword)
	require.Error(t, missingUser)
	require.Error(t, wrongTenant)

	assert.Equal(t, wrongPassword.Error(), missingUser.Error())
	assert.Equal(t, wrongPassword.Error(), wrongTenant.Error())
	assert.ErrorIs(t, wrongPassword, httpx.ErrUnauthorized)
}

func TestProfileReturnsLiveUser(t *testing.T) {
	repo := newMockAuthRepo()
	svc := testService(repo, nil)
	repo.users[5] = User{ID: 5, CompanyID: 9, Username: "ada"}

	claims := &shared.Claims{CompanyID: 9}
	claims.Subject = "5"

	user, err := svc.Profile(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, "ada", user.Username)

	claims.CompanyID = 8
	_, err = svc.Profile(context.Background(), claims)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}
