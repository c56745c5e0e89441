package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/nexusrbx/nexusrbx-server/internal/model"
)

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	nano := time.Now().UnixNano()
	email := fmt.Sprintf("test_%d@example.com", nano)
	passwordHash := "$2a$10$abcdefghijklmnopqrstuvwxyz123456" // bcrypt hash placeholder
	user := &model.User{
		UID:          fmt.Sprintf("u_test%d", nano),
		Username:     fmt.Sprintf("testuser_%d", nano%100000),
		Email:        &email,
		PasswordHash: &passwordHash,
		Plan:         model.PlanFree,
		SubLimit:     model.AllowanceFor(model.PlanFree),
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUID 设置 uid
func WithUID(uid string) func(*model.User) {
	return func(u *model.User) {
		u.UID = uid
	}
}

// WithUsername 设置用户名
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = username
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = &email
	}
}

// WithPlan 设置套餐，额度跟随套餐标准值
func WithPlan(plan string) func(*model.User) {
	return func(u *model.User) {
		u.Plan = plan
		u.SubLimit = model.AllowanceFor(plan)
	}
}

// WithTokensUsed 设置已使用 token 数
func WithTokensUsed(used int64) func(*model.User) {
	return func(u *model.User) {
		u.TokensUsed = used
	}
}

// WithTokenBalance 设置按量 token 余额
func WithTokenBalance(balance int64) func(*model.User) {
	return func(u *model.User) {
		u.TokenBalance = balance
	}
}

// WithStripeCustomer 设置 Stripe 客户 ID
func WithStripeCustomer(customerID string) func(*model.User) {
	return func(u *model.User) {
		u.StripeCustomerID = &customerID
	}
}

// TestScript 创建测试脚本
func TestScript(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Script)) *model.Script {
	t.Helper()

	script := &model.Script{
		UserID:    userID,
		Title:     fmt.Sprintf("Test Script %d", time.Now().UnixNano()%100000),
		Prompt:    "make a part that changes color when touched",
		ModelName: "gemini-1.5-flash",
		Status:    model.ScriptStatusQueued,
	}

	for _, opt := range opts {
		opt(script)
	}

	if err := db.Create(script).Error; err != nil {
		t.Fatalf("Failed to create test script: %v", err)
	}

	return script
}

// WithScriptStatus 设置脚本状态
func WithScriptStatus(status string) func(*model.Script) {
	return func(s *model.Script) {
		s.Status = status
	}
}

// TestJob 创建测试生成任务
func TestJob(t *testing.T, db *gorm.DB, scriptID, userID int64, opts ...func(*model.GenerationJob)) *model.GenerationJob {
	t.Helper()

	job := &model.GenerationJob{
		ScriptID:  scriptID,
		UserID:    userID,
		ModelName: "gemini-1.5-flash",
		Status:    model.JobStatusQueued,
	}

	for _, opt := range opts {
		opt(job)
	}

	if err := db.Create(job).Error; err != nil {
		t.Fatalf("Failed to create test job: %v", err)
	}

	return job
}

// WithJobStatus 设置任务状态
func WithJobStatus(status string) func(*model.GenerationJob) {
	return func(j *model.GenerationJob) {
		j.Status = status
	}
}
