package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/nexusrbx/nexusrbx-server/config"
	"github.com/nexusrbx/nexusrbx-server/internal/model"
	"github.com/nexusrbx/nexusrbx-server/internal/model/dto"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/jwt"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/oauth"
	"github.com/nexusrbx/nexusrbx-server/internal/repository"
)

var (
	ErrEmailExists        = errors.New("邮箱已被注册")
	ErrUsernameExists     = errors.New("用户名已被使用")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrUserNotFound       = errors.New("用户不存在")
)

type AuthService struct {
	userRepo    *repository.UserRepository
	cfg         *config.Config
	githubOAuth *oauth.GithubOAuth
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		cfg:      cfg,
		githubOAuth: oauth.NewGithubOAuth(
			cfg.OAuth.Github.ClientID,
			cfg.OAuth.Github.ClientSecret,
			cfg.OAuth.Github.RedirectURI,
		),
	}
}

// Register 用户注册
func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	// 检查邮箱是否存在
	exists, err := s.userRepo.ExistsByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	// 检查用户名是否存在
	exists, err = s.userRepo.ExistsByUsername(req.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUsernameExists
	}

	// 加密密码
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	uid, err := generateUID()
	if err != nil {
		return nil, err
	}

	passwordStr := string(hashedPassword)
	user := &model.User{
		UID:          uid,
		Username:     req.Username,
		Email:        &req.Email,
		PasswordHash: &passwordStr,
		Plan:         model.PlanFree,
		SubLimit:     model.AllowanceFor(model.PlanFree),
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	return &dto.RegisterResponse{
		UserID: user.ID,
		UID:    user.UID,
	}, nil
}

// Login 用户登录
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// 验证密码
	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 生成 Token
	token, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token: token,
		User:  BuildUserInfo(user),
	}, nil
}

// GetUserByID 根据 ID 获取用户
func (s *AuthService) GetUserByID(id int64) (*model.User, error) {
	return s.userRepo.GetByID(id)
}

// GetGithubAuthURL 获取 GitHub 授权 URL
func (s *AuthService) GetGithubAuthURL(state string) string {
	return s.githubOAuth.GetAuthURL(state)
}

// GithubCallback 处理 GitHub OAuth 回调
func (s *AuthService) GithubCallback(ctx context.Context, code string) (*dto.LoginResponse, error) {
	// 用 code 换取 token
	token, err := s.githubOAuth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	// 获取 GitHub 用户信息
	githubUser, err := s.githubOAuth.GetUser(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get github user: %w", err)
	}

	githubIDStr := fmt.Sprintf("%d", githubUser.ID)

	// 检查用户是否已存在
	user, err := s.userRepo.GetByGithubID(githubIDStr)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if user == nil {
		uid, err := generateUID()
		if err != nil {
			return nil, err
		}

		user = &model.User{
			UID:       uid,
			Username:  githubUser.Login,
			GithubID:  &githubIDStr,
			AvatarURL: githubUser.AvatarURL,
			Plan:      model.PlanFree,
			SubLimit:  model.AllowanceFor(model.PlanFree),
		}

		if githubUser.Email != "" {
			user.Email = &githubUser.Email
		}

		// 确保用户名唯一
		exists, _ := s.userRepo.ExistsByUsername(user.Username)
		if exists {
			suffix, err := generateRandomCode(8)
			if err != nil {
				return nil, err
			}
			user.Username = fmt.Sprintf("%s_%s", githubUser.Login, suffix)
		}

		if err := s.userRepo.Create(user); err != nil {
			return nil, err
		}
	}

	// 生成 Token
	jwtToken, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token: jwtToken,
		User:  BuildUserInfo(user),
	}, nil
}

// BuildUserInfo 构造对外返回的用户信息
func BuildUserInfo(user *model.User) *dto.UserInfo {
	info := &dto.UserInfo{
		ID:        user.ID,
		UID:       user.UID,
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
		Plan:      user.Plan,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}

	if user.Email != nil {
		info.Email = *user.Email
	}

	return info
}

func generateRandomCode(length int) (string, error) {
	bytes := make([]byte, length/2)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// generateUID 生成形如 u_9f3a... 的稳定用户标识，计费流程全程使用它而不是自增 ID
func generateUID() (string, error) {
	code, err := generateRandomCode(16)
	if err != nil {
		return "", err
	}
	return "u_" + code, nil
}
