package detector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"premier-care-hub/internal/domain"
	"premier-care-hub/internal/repository"
)

// SweeperConfig 扫描配置
type SweeperConfig struct {
	TenantID     string
	Interval     time.Duration
	LookbackDays int
	BatchSize    int
}

// Sweeper 定时扫描器
// 违规判定依赖墙钟时间（窗口是否关闭），与打卡事件是否到达无关，
// 因此用定时扫描而非纯事件驱动
type Sweeper struct {
	detector   *Detector
	visitsRepo repository.VisitsRepository
	cfg        SweeperConfig
	logger     *zap.Logger
}

// NewSweeper 创建定时扫描器
func NewSweeper(detector *Detector, visitsRepo repository.VisitsRepository, cfg SweeperConfig, logger *zap.Logger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 2
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Sweeper{
		detector:   detector,
		visitsRepo: visitsRepo,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run 启动扫描循环，ctx 取消后返回
// 先立即执行一轮，之后按固定间隔执行
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("violation sweeper started",
		zap.String("tenant_id", s.cfg.TenantID),
		zap.Duration("interval", s.cfg.Interval),
		zap.Int("lookback_days", s.cfg.LookbackDays))

	s.SweepOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("violation sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce 扫描回看窗口内的全部访视
// 单个访视的失败只记日志，不中断本轮其余访视
func (s *Sweeper) SweepOnce(ctx context.Context) {
	now := s.detector.now()
	from := now.AddDate(0, 0, -s.cfg.LookbackDays).Format(domain.DateLayout)
	to := now.Format(domain.DateLayout)

	visits, err := s.visitsRepo.ListVisitsByDateRange(ctx, s.cfg.TenantID, from, to)
	if err != nil {
		s.logger.Error("sweep failed to list visits",
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err))
		return
	}

	opened := 0
	for i, visit := range visits {
		// 批次间检查取消信号，访视之间无半完成副作用
		if i%s.cfg.BatchSize == 0 && ctx.Err() != nil {
			return
		}

		n, err := s.detector.EvaluateVisit(ctx, s.cfg.TenantID, visit)
		if err != nil {
			s.logger.Error("sweep failed to evaluate visit",
				zap.String("visit_id", visit.VisitID),
				zap.Error(err))
			continue
		}
		opened += n
	}

	if opened > 0 {
		s.logger.Info("sweep completed",
			zap.Int("visits_checked", len(visits)),
			zap.Int("alerts_opened", opened))
	}
}
