// internal/services/auth_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/insurance-backend/internal/config"
	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/repository/memstore"
	"github.com/javajoker/insurance-backend/internal/utils"
)

type AuthServiceTestSuite struct {
	serviceSuite
	auth *AuthService
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func (s *AuthServiceTestSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	utils.SetJWTSecret("test-secret")
	s.auth = NewAuthService(s.store, config.JWTConfig{AccessTokenTTL: 2})
}

func (s *AuthServiceTestSuite) register(email, password string) (*AuthResponse, error) {
	return s.auth.Register(s.ctx, &RegisterRequest{
		Name:     "Priya Sharma",
		Email:    email,
		Password: password,
	})
}

func (s *AuthServiceTestSuite) TestRegisterIssuesCustomerToken() {
	resp, err := s.register("  Priya.Sharma@Example.com ", "secret123")
	s.Require().NoError(err)
	s.Equal("Bearer", resp.TokenType)
	s.Equal(7200, resp.ExpiresIn)
	s.Equal(models.RoleUser, resp.User.Role)
	s.Equal("priya.sharma@example.com", resp.User.Email)
	s.NotEqual("secret123", resp.User.PasswordHash)

	claims, err := utils.ValidateJWT(resp.AccessToken)
	s.Require().NoError(err)
	s.Equal(resp.User.ID.String(), claims.UserID)
	s.Equal(string(models.RoleUser), claims.Role)

	p, err := s.auth.Principal(claims)
	s.Require().NoError(err)
	s.Equal(Principal{ID: resp.User.ID, Role: models.RoleUser}, p)
}

func (s *AuthServiceTestSuite) TestRegisterGuards() {
	_, err := s.register("priya@example.com", "secret123")
	s.Require().NoError(err)

	_, err = s.register("PRIYA@example.com", "another123")
	s.requireKind(err, KindConflict)

	_, err = s.register("weak@example.com", "password")
	s.requireKind(err, KindValidation)

	_, err = s.register("not-an-email", "secret123")
	s.requireKind(err, KindValidation)
}

func (s *AuthServiceTestSuite) TestLogin() {
	registered, err := s.register("priya@example.com", "secret123")
	s.Require().NoError(err)

	_, err = s.auth.Login(s.ctx, &LoginRequest{Email: "priya@example.com", Password: "wrong123"})
	s.requireKind(err, KindUnauthenticated)

	_, err = s.auth.Login(s.ctx, &LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	s.requireKind(err, KindUnauthenticated)

	resp, err := s.auth.Login(s.ctx, &LoginRequest{Email: "Priya@Example.com", Password: "secret123"})
	s.Require().NoError(err)
	s.Equal(registered.User.ID, resp.User.ID)
	s.NotNil(resp.User.LastLoginAt)

	me, err := s.auth.Me(s.ctx, Principal{ID: resp.User.ID, Role: resp.User.Role})
	s.Require().NoError(err)
	s.NotNil(me.LastLoginAt)
}

func (s *AuthServiceTestSuite) TestCreateAccountIsAdminOnly() {
	req := &CreateAccountRequest{
		RegisterRequest: RegisterRequest{
			Name:     "Ravi Agent",
			Email:    "ravi@example.com",
			Password: "agent1234",
		},
		Role: models.RoleAgent,
	}

	_, err := s.auth.CreateAccount(s.ctx, s.agent, req)
	s.requireKind(err, KindForbidden)

	user, err := s.auth.CreateAccount(s.ctx, s.admin, req)
	s.Require().NoError(err)
	s.Equal(models.RoleAgent, user.Role)

	req.Email = "root@example.com"
	req.Role = "superuser"
	_, err = s.auth.CreateAccount(s.ctx, s.admin, req)
	s.requireKind(err, KindValidation)
}

func (s *AuthServiceTestSuite) TestEnsureAdminBootstrapsOnce() {
	// The shared fixture already holds an admin.
	s.Require().NoError(s.auth.EnsureAdmin(s.ctx, config.AdminConfig{Email: "root@example.com", Password: "admin1234"}))
	_, err := s.auth.Login(s.ctx, &LoginRequest{Email: "root@example.com", Password: "admin1234"})
	s.requireKind(err, KindUnauthenticated)
}

func (s *AuthServiceTestSuite) TestPrincipalRejectsBadClaims() {
	_, err := s.auth.Principal(&utils.JWTClaims{UserID: "not-a-uuid", Role: "user"})
	s.requireKind(err, KindUnauthenticated)

	_, err = s.auth.Principal(&utils.JWTClaims{UserID: uuid.NewString(), Role: "root"})
	s.requireKind(err, KindUnauthenticated)
}

func TestEnsureAdminOnEmptyStore(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	auth := NewAuthService(store, config.JWTConfig{})
	utils.SetJWTSecret("test-secret")

	require.NoError(t, auth.EnsureAdmin(ctx, config.AdminConfig{Email: "admin@example.com"}))
	count, err := store.Users().CountByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Zero(t, count)

	cfg := config.AdminConfig{Email: "Admin@Example.com", Password: "admin1234"}
	require.NoError(t, auth.EnsureAdmin(ctx, cfg))
	require.NoError(t, auth.EnsureAdmin(ctx, cfg))

	count, err = store.Users().CountByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	resp, err := auth.Login(ctx, &LoginRequest{Email: "admin@example.com", Password: "admin1234"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.Equal(t, 24*3600, resp.ExpiresIn)
}
