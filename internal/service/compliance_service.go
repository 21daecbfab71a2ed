package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"premier-care-hub/internal/cache"
	"premier-care-hub/internal/domain"
	"premier-care-hub/internal/repository"
)

// Tolerances 打卡宽限窗口
type Tolerances struct {
	In  time.Duration
	Out time.Duration
}

// ComplianceService 合规聚合服务
// 所有指标按需从台账推导，不落盘；快照经缓存加速，告警变更时整租户失效
type ComplianceService struct {
	visitsRepo   repository.VisitsRepository
	outreachRepo repository.OutreachRepository
	cache        *cache.Manager
	tolerances   Tolerances
	logger       *zap.Logger
}

// NewComplianceService 创建合规聚合服务
func NewComplianceService(
	visitsRepo repository.VisitsRepository,
	outreachRepo repository.OutreachRepository,
	cacheMgr *cache.Manager,
	tolerances Tolerances,
	logger *zap.Logger,
) *ComplianceService {
	return &ComplianceService{
		visitsRepo:   visitsRepo,
		outreachRepo: outreachRepo,
		cache:        cacheMgr,
		tolerances:   tolerances,
		logger:       logger,
	}
}

// round1 四舍五入到一位小数（half-up）
func round1(x float64) float64 {
	return math.Floor(x*10+0.5) / 10
}

// Band 阈值分档：≥90 excellent，80–89 good，<80 needs_attention
func Band(pct float64) string {
	switch {
	case pct >= 90:
		return domain.BandExcellent
	case pct >= 80:
		return domain.BandGood
	default:
		return domain.BandNeedsAttention
	}
}

// scopeRange 解析时间范围：day 为单日，week 为 weekStart 起七天
func scopeRange(scope domain.Scope) (from, to string, fromTime, toTime time.Time, err error) {
	start, err := time.ParseInLocation(domain.DateLayout, scope.Date, time.UTC)
	if err != nil {
		return "", "", time.Time{}, time.Time{}, fmt.Errorf("invalid scope date %q: %w", scope.Date, err)
	}

	switch scope.Kind {
	case domain.ScopeDay:
		return scope.Date, scope.Date, start, start.AddDate(0, 0, 1), nil
	case domain.ScopeWeek:
		end := start.AddDate(0, 0, 6)
		return scope.Date, end.Format(domain.DateLayout), start, start.AddDate(0, 0, 7), nil
	default:
		return "", "", time.Time{}, time.Time{}, fmt.Errorf("unknown scope kind: %s", scope.Kind)
	}
}

// visitStats 时间范围内访视的合规统计
type visitStats struct {
	scheduled int
	completed int
	onTimeIn  int
	onTimeOut int
}

func (s *ComplianceService) collectStats(visits []*domain.Visit) visitStats {
	stats := visitStats{scheduled: len(visits)}
	for _, v := range visits {
		// 完成口径看事实：两次打卡都有记录即完成，与告警处理状态无关
		if v.Completed() {
			stats.completed++
		}
		if v.ClockInOnTime(s.tolerances.In) {
			stats.onTimeIn++
		}
		if v.ClockOutOnTime(s.tolerances.Out) {
			stats.onTimeOut++
		}
	}
	return stats
}

func (st visitStats) rates() (compliance, clockIn, clockOut float64) {
	if st.scheduled == 0 {
		return 0, 0, 0
	}
	n := float64(st.scheduled)
	return round1(100 * float64(st.completed) / n),
		round1(100 * float64(st.onTimeIn) / n),
		round1(100 * float64(st.onTimeOut) / n)
}

// Snapshot 计算时间范围内的合规快照
func (s *ComplianceService) Snapshot(ctx context.Context, tenantID string, scope domain.Scope) (*domain.ComplianceSnapshot, error) {
	from, to, fromTime, toTime, err := scopeRange(scope)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("snapshot:%s:%s", scope.Kind, scope.Date)
	var cached domain.ComplianceSnapshot
	if s.cache.GetJSON(ctx, tenantID, cacheKey, &cached) {
		return &cached, nil
	}

	visits, err := s.visitsRepo.ListVisitsByDateRange(ctx, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits for snapshot: %w", err)
	}
	stats := s.collectStats(visits)
	compliance, clockIn, clockOut := stats.rates()

	sms, voice, err := s.outreachRepo.CountByChannel(ctx, tenantID, fromTime, toTime)
	if err != nil {
		return nil, fmt.Errorf("failed to count outreach: %w", err)
	}

	snapshot := &domain.ComplianceSnapshot{
		Scope:              scope,
		ScheduledVisits:    stats.scheduled,
		CompletedVisits:    stats.completed,
		ClockInSuccessRate: clockIn,
		ClockOutSuccessRate: clockOut,
		EVVCompliance:      compliance,
		SMSCount:           sms,
		VoiceCount:         voice,
	}
	s.cache.SetJSON(ctx, tenantID, cacheKey, snapshot)
	return snapshot, nil
}

// Rankings 周排行：按护理员分组，整体合规降序，同分按护理员ID升序
// 窗口内零访视的护理员不参与排行
func (s *ComplianceService) Rankings(ctx context.Context, tenantID, weekStart string) ([]*domain.CaregiverRanking, error) {
	scope := domain.Scope{Kind: domain.ScopeWeek, Date: weekStart}
	from, to, _, _, err := scopeRange(scope)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("rankings:%s", weekStart)
	var cached []*domain.CaregiverRanking
	if s.cache.GetJSON(ctx, tenantID, cacheKey, &cached) {
		return cached, nil
	}

	visits, err := s.visitsRepo.ListVisitsByDateRange(ctx, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits for rankings: %w", err)
	}

	byCaregiver := map[string][]*domain.Visit{}
	for _, v := range visits {
		byCaregiver[v.CaregiverID] = append(byCaregiver[v.CaregiverID], v)
	}

	rankings := make([]*domain.CaregiverRanking, 0, len(byCaregiver))
	for caregiverID, cgVisits := range byCaregiver {
		stats := s.collectStats(cgVisits)
		compliance, clockIn, clockOut := stats.rates()
		rankings = append(rankings, &domain.CaregiverRanking{
			CaregiverID:       caregiverID,
			Visits:            stats.scheduled,
			ClockInRate:       clockIn,
			ClockOutRate:      clockOut,
			OverallCompliance: compliance,
		})
	}

	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].OverallCompliance != rankings[j].OverallCompliance {
			return rankings[i].OverallCompliance > rankings[j].OverallCompliance
		}
		return rankings[i].CaregiverID < rankings[j].CaregiverID
	})
	for i := range rankings {
		rankings[i].Rank = i + 1
	}

	s.cache.SetJSON(ctx, tenantID, cacheKey, rankings)
	return rankings, nil
}

// DailyBreakdown 周内逐日合规明细
func (s *ComplianceService) DailyBreakdown(ctx context.Context, tenantID, weekStart string) ([]*domain.DailyCompliance, error) {
	start, err := time.ParseInLocation(domain.DateLayout, weekStart, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid week start %q: %w", weekStart, err)
	}

	days := make([]*domain.DailyCompliance, 0, 7)
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		date := day.Format(domain.DateLayout)

		visits, err := s.visitsRepo.ListVisitsByDate(ctx, tenantID, date)
		if err != nil {
			return nil, fmt.Errorf("failed to list visits for %s: %w", date, err)
		}
		stats := s.collectStats(visits)
		compliance, clockIn, clockOut := stats.rates()

		days = append(days, &domain.DailyCompliance{
			Date:         date,
			Weekday:      day.Weekday().String(),
			Visits:       stats.scheduled,
			Compliance:   compliance,
			ClockInRate:  clockIn,
			ClockOutRate: clockOut,
		})
	}
	return days, nil
}

// WeeklyTrend 最近 N 周合规趋势，按周起始日升序
func (s *ComplianceService) WeeklyTrend(ctx context.Context, tenantID, weekStart string, weeks int) ([]*domain.WeeklyTrendPoint, error) {
	if weeks <= 0 {
		weeks = 4
	}
	if weeks > 12 {
		weeks = 12
	}
	latest, err := time.ParseInLocation(domain.DateLayout, weekStart, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid week start %q: %w", weekStart, err)
	}

	points := make([]*domain.WeeklyTrendPoint, 0, weeks)
	for i := weeks - 1; i >= 0; i-- {
		ws := latest.AddDate(0, 0, -7*i)
		from := ws.Format(domain.DateLayout)
		to := ws.AddDate(0, 0, 6).Format(domain.DateLayout)

		visits, err := s.visitsRepo.ListVisitsByDateRange(ctx, tenantID, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to list visits for week %s: %w", from, err)
		}
		stats := s.collectStats(visits)
		compliance, _, _ := stats.rates()

		points = append(points, &domain.WeeklyTrendPoint{
			WeekStart:  from,
			Visits:     stats.scheduled,
			Compliance: compliance,
		})
	}
	return points, nil
}
