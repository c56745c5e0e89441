package service

import (
	"errors"
	"io"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/nexusrbx/nexusrbx-server/config"
	"github.com/nexusrbx/nexusrbx-server/internal/model"
	"github.com/nexusrbx/nexusrbx-server/internal/model/dto"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/oss"
	"github.com/nexusrbx/nexusrbx-server/internal/repository"
)

type UserService struct {
	userRepo  *repository.UserRepository
	ossClient *oss.Client
	cfg       *config.Config
}

func NewUserService(userRepo *repository.UserRepository, ossClient *oss.Client, cfg *config.Config) *UserService {
	return &UserService{
		userRepo:  userRepo,
		ossClient: ossClient,
		cfg:       cfg,
	}
}

// GetProfile 获取用户详情
func (s *UserService) GetProfile(userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return s.buildUserInfoWithQuota(user), nil
}

// UpdateProfile 更新用户信息
func (s *UserService) UpdateProfile(userID int64, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// 检查用户名是否已被占用
	if req.Username != nil && *req.Username != user.Username {
		exists, err := s.userRepo.ExistsByUsername(*req.Username)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrUsernameExists
		}
		user.Username = *req.Username
	}

	if req.Avatar != nil {
		user.AvatarURL = *req.Avatar
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	return s.buildUserInfoWithQuota(user), nil
}

// UploadAvatar 上传用户头像到 OSS
func (s *UserService) UploadAvatar(userID int64, file io.Reader, filename string) (string, error) {
	if s.ossClient == nil {
		return "", errors.New("OSS 客户端未配置")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".jpg"
	}

	avatarURL, err := s.ossClient.UploadAvatar(userID, data, ext)
	if err != nil {
		return "", err
	}

	if err := s.userRepo.UpdateFields(userID, map[string]interface{}{
		"avatar_url": avatarURL,
	}); err != nil {
		return "", err
	}

	return avatarURL, nil
}

// ListModels 返回模型目录，按用户套餐标记可用性
func (s *UserService) ListModels(userID int64) ([]*dto.ModelInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	models := make([]*dto.ModelInfo, 0, len(s.cfg.Models))
	for i := range s.cfg.Models {
		m := &s.cfg.Models[i]
		models = append(models, &dto.ModelInfo{
			Name:         m.Name,
			DisplayName:  m.DisplayName,
			RequiredPlan: m.RequiredPlan,
			Description:  m.Description,
			Available:    planSatisfies(user.Plan, m.RequiredPlan),
		})
	}
	return models, nil
}

func (s *UserService) buildUserInfoWithQuota(user *model.User) *dto.UserInfo {
	info := BuildUserInfo(user)
	info.CreatedAt = user.CreatedAt.Format(time.RFC3339)

	remaining := user.SubLimit - user.TokensUsed
	if remaining < 0 {
		remaining = 0
	}
	remaining += user.TokenBalance

	info.QuotaInfo = &dto.QuotaInfo{
		Plan:         user.Plan,
		SubLimit:     user.SubLimit,
		TokensUsed:   user.TokensUsed,
		TokenBalance: user.TokenBalance,
		Remaining:    remaining,
	}

	if user.UsageResetAt != nil {
		info.QuotaInfo.ResetAt = user.UsageResetAt.Format(time.RFC3339)
	}

	return info
}
