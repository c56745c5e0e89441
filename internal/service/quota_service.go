package service

import (
	"errors"
	"time"

	"github.com/nexusrbx/nexusrbx-server/config"
	"github.com/nexusrbx/nexusrbx-server/internal/model"
	"github.com/nexusrbx/nexusrbx-server/internal/model/dto"
	"github.com/nexusrbx/nexusrbx-server/internal/repository"
)

var (
	ErrQuotaExceeded = errors.New("token 额度已用完")
	ErrModelDenied   = errors.New("当前套餐无法使用该模型")
)

type QuotaService struct {
	userRepo *repository.UserRepository
	cfg      *config.Config
}

func NewQuotaService(userRepo *repository.UserRepository, cfg *config.Config) *QuotaService {
	return &QuotaService{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

// CheckTokens 检查用户还有没有可用 token（订阅额度 + 按量余额）
func (s *QuotaService) CheckTokens(userID int64) (bool, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return false, err
	}

	return user.TokensUsed < user.SubLimit || user.TokenBalance > 0, nil
}

// ConsumeTokens 扣减消耗：先吃订阅额度，超出部分走按量余额。
// 订阅额度允许最后一次请求冲破上限（超出部分不转嫁到余额），
// 下一次请求会被 CheckTokens 拦住。
func (s *QuotaService) ConsumeTokens(userID int64, tokens int64) error {
	if tokens <= 0 {
		return nil
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}

	if user.TokensUsed < user.SubLimit {
		return s.userRepo.AddTokensUsed(userID, tokens)
	}

	// 订阅额度已耗尽，从按量余额扣
	ok, err := s.userRepo.DebitTokenBalance(userID, tokens)
	if err != nil {
		return err
	}
	if !ok {
		// 余额不够整笔扣减时清零，消耗已经发生，不能留着负债
		return s.userRepo.UpdateFields(userID, map[string]interface{}{
			"token_balance": 0,
		})
	}
	return nil
}

// CheckModelPermission 检查模型权限
func (s *QuotaService) CheckModelPermission(plan, modelName string) error {
	var modelConfig *config.ModelConfig
	for i := range s.cfg.Models {
		if s.cfg.Models[i].Name == modelName {
			modelConfig = &s.cfg.Models[i]
			break
		}
	}

	if modelConfig == nil {
		return ErrModelDenied
	}

	if !planSatisfies(plan, modelConfig.RequiredPlan) {
		return ErrModelDenied
	}
	return nil
}

// planSatisfies FREE < PRO < TEAM
func planSatisfies(plan, required string) bool {
	rank := map[string]int{
		model.PlanFree: 0,
		model.PlanPro:  1,
		model.PlanTeam: 2,
	}
	planRank, ok := rank[plan]
	if !ok {
		planRank = 0
	}
	requiredRank, ok := rank[required]
	if !ok {
		requiredRank = 0
	}
	return planRank >= requiredRank
}

// ResetAllUsage 重置所有用户的订阅期用量（按量余额不动）
func (s *QuotaService) ResetAllUsage() error {
	return s.userRepo.ResetAllUsage(NextMonthStart(time.Now()))
}

// NextMonthStart 下个月 1 日 UTC 零点
func NextMonthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

// GetQuotaInfo 获取用户配额信息
func (s *QuotaService) GetQuotaInfo(userID int64) (*dto.QuotaInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	remaining := user.SubLimit - user.TokensUsed
	if remaining < 0 {
		remaining = 0
	}
	remaining += user.TokenBalance

	info := &dto.QuotaInfo{
		Plan:         user.Plan,
		SubLimit:     user.SubLimit,
		TokensUsed:   user.TokensUsed,
		TokenBalance: user.TokenBalance,
		Remaining:    remaining,
	}

	if user.UsageResetAt != nil {
		info.ResetAt = user.UsageResetAt.Format(time.RFC3339)
	}

	return info, nil
}
