package cron

import (
	"log"
	"time"

	"github.com/nexusrbx/nexusrbx-server/internal/repository"
	"github.com/nexusrbx/nexusrbx-server/internal/service"
)

// Service 后台定时任务：每月额度重置 + 卡死任务清理
type Service struct {
	quotaService *service.QuotaService
	jobRepo      *repository.JobRepository
	stopChan     chan struct{}
}

func NewService(quotaService *service.QuotaService, jobRepo *repository.JobRepository) *Service {
	return &Service{
		quotaService: quotaService,
		jobRepo:      jobRepo,
		stopChan:     make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runMonthlyUsageReset()
	go s.runStaleJobSweep()
	log.Println("Cron service started (usage reset + stale job sweep)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// runMonthlyUsageReset 每月 1 日 UTC 零点重置所有用户的 tokens_used
func (s *Service) runMonthlyUsageReset() {
	for {
		next := service.NextMonthStart(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			s.resetUsage()
		}
	}
}

func (s *Service) resetUsage() {
	log.Println("Starting monthly usage reset...")
	if err := s.quotaService.ResetAllUsage(); err != nil {
		log.Printf("Failed to reset monthly usage: %v", err)
		return
	}
	log.Println("Monthly usage reset completed")
}

// runStaleJobSweep 每小时把长时间停留在 generating 的任务标记为失败
func (s *Service) runStaleJobSweep() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			n, err := s.jobRepo.FailStaleJobs(2 * time.Hour)
			if err != nil {
				log.Printf("Stale job sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("Stale job sweep: failed %d jobs", n)
			}
		}
	}
}

// RunNow 立即执行额度重置（用于手动触发）
func (s *Service) RunNow() error {
	log.Println("Manual usage reset triggered...")
	return s.quotaService.ResetAllUsage()
}
