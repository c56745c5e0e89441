package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusrbx/nexusrbx-server/config"
	"github.com/nexusrbx/nexusrbx-server/internal/model"
	"github.com/nexusrbx/nexusrbx-server/internal/model/dto"
	"github.com/nexusrbx/nexusrbx-server/internal/repository"
	"github.com/nexusrbx/nexusrbx-server/internal/testutil"
)

func setupAuthService(t *testing.T) (*AuthService, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	userRepo := repository.NewUserRepository(db)

	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:      "test-secret-key-for-testing",
			ExpireHours: 24,
		},
		OAuth: config.OAuthConfig{
			Github: config.GithubOAuthConfig{
				ClientID:     "test-client-id",
				ClientSecret: "test-client-secret",
				RedirectURI:  "http://localhost:8080/callback",
			},
		},
	}

	service := NewAuthService(userRepo, cfg)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return service, cleanup
}

func TestAuthService_Register_Success(t *testing.T) {
	service, cleanup := setupAuthService(t)
	defer cleanup()

	req := &dto.RegisterRequest{
		Email:    "newuser@example.com",
		Username: "newuser",
		Password: "password123",
	}

	resp, err := service.Register(req)
	require.NoError(t, err)
	assert.NotZero(t, resp.UserID)
	assert.True(t, strings.HasPrefix(resp.UID, "u_"))
}

func TestAuthService_Register_StartsOnFreePlan(t *testing.T) {
	service, cleanup := setupAuthService(t)
	defer cleanup()

	resp, err := service.Register(&dto.RegisterRequest{
		Email:    "freshman@example.com",
		Username: "freshman",
		Password: "password123",
	})
	require.NoError(t, err)

	user, err := service.GetUserByID(resp.UserID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, user.Plan)
	assert.Equal(t, int64(50000), user.SubLimit)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	service, cleanup := setupAuthService(t)
	defer cleanup()

	// First registration
	req := &dto.RegisterRequest{
		Email:    "duplicate@example.com",
		Username: "user1",
		Password: "password123",
	}
	_, err := service.Register(req)
	require.NoError(t, err)

	// Second registration with same email
	req2 := &dto.RegisterRequest{
		Email:    "duplicate@example.com",
		Username: "user2",
		Password: "password123",
	}
	_, err = service.Register(req2)
	assert.Equal(t, ErrEmailExists, err)
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	service, cleanup := setupAuthService(t)
	defer cleanup()

	req := &dto.RegisterRequest{
		Email:    "user1@example.com",
		Username: "sameuser",
		Password: "password123",
	}
	_, err := service.Register(req)
	require.NoError(t, err)

	req2 := &dto.RegisterRequest{
		Email:    "user2@example.com",
		Username: "sameuser",
		Password: "password123",
	}
	_, err = service.Register(req2)
	assert.Equal(t, ErrUsernameExists, err)
}

func TestAuthService_Login_Success(t *testing.T) {
	service, cleanup := setupAuthService(t)
	defer cleanup()

	req := &dto.RegisterRequest{
		Email:    "login@example.com",
		Username: "loginuser",
		Password: "password123",
	}
	_, err := service.Register(req)
	require.NoError(t, err)

	resp, err := service.Login(&dto.LoginRequest{
		Email:    "login@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "loginuser", resp.User.Username)
	assert.Equal(t, model.PlanFree, resp.User.Plan)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	service, cleanup := setupAuthService(t)
	defer cleanup()

	req := &dto.RegisterRequest{
		Email:    "wrongpw@example.com",
		Username: "wrongpwuser",
		Password: "password123",
	}
	_, err := service.Register(req)
	require.NoError(t, err)

	_, err = service.Login(&dto.LoginRequest{
		Email:    "wrongpw@example.com",
		Password: "password456",
	})
	assert.Equal(t, ErrInvalidCredentials, err)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	service, cleanup := setupAuthService(t)
	defer cleanup()

	_, err := service.Login(&dto.LoginRequest{
		Email:    "nobody@example.com",
		Password: "password123",
	})
	assert.Equal(t, ErrInvalidCredentials, err)
}
