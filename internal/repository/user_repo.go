package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/nexusrbx/nexusrbx-server/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) GetByID(id int64) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByUID(uid string) (*model.User, error) {
	var user model.User
	err := r.db.Where("uid = ?", uid).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByUsername(username string) (*model.User, error) {
	var user model.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByGithubID(githubID string) (*model.User, error) {
	var user model.User
	err := r.db.Where("github_id = ?", githubID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByStripeCustomerID(customerID string) (*model.User, error) {
	var user model.User
	err := r.db.Where("stripe_customer_id = ?", customerID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Update(user *model.User) error {
	return r.db.Save(user).Error
}

func (r *UserRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

// UpsertEntitlement 按 uid 把套餐和对应额度写成同一条记录。
// 行不存在时创建，存在时覆盖。plan 和 sub_limit 永远在同一次写入里
// 一起落库，避免出现套餐和额度不一致的中间状态。
func (r *UserRepository) UpsertEntitlement(uid string, plan string, cycle string) error {
	fields := map[string]interface{}{
		"plan":          plan,
		"sub_limit":     model.AllowanceFor(plan),
		"billing_cycle": cycle,
	}
	res := r.db.Model(&model.User{}).Where("uid = ?", uid).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		user := &model.User{
			UID:          uid,
			Username:     uid,
			Plan:         plan,
			SubLimit:     model.AllowanceFor(plan),
			BillingCycle: cycle,
		}
		return r.db.Create(user).Error
	}
	return nil
}

func (r *UserRepository) SetStripeCustomerID(id int64, customerID string) error {
	return r.db.Model(&model.User{}).Where("id = ?", id).
		Update("stripe_customer_id", customerID).Error
}

// AddTokensUsed 累加订阅期用量
func (r *UserRepository) AddTokensUsed(id int64, tokens int64) error {
	return r.db.Model(&model.User{}).Where("id = ?", id).
		Update("tokens_used", gorm.Expr("tokens_used + ?", tokens)).Error
}

// CreditTokens 充值按量 token 余额
func (r *UserRepository) CreditTokens(id int64, tokens int64) error {
	return r.db.Model(&model.User{}).Where("id = ?", id).
		Update("token_balance", gorm.Expr("token_balance + ?", tokens)).Error
}

// DebitTokenBalance 按量余额扣减，带下限保护：余额不足时不扣并返回 0 行
func (r *UserRepository) DebitTokenBalance(id int64, tokens int64) (bool, error) {
	res := r.db.Model(&model.User{}).
		Where("id = ? AND token_balance >= ?", id, tokens).
		Update("token_balance", gorm.Expr("token_balance - ?", tokens))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *UserRepository) ResetAllUsage(nextResetAt time.Time) error {
	return r.db.Model(&model.User{}).Where("1 = 1").Updates(map[string]interface{}{
		"tokens_used":    0,
		"usage_reset_at": nextResetAt,
	}).Error
}

func (r *UserRepository) ExistsByEmail(email string) (bool, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) ExistsByUsername(username string) (bool, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}
