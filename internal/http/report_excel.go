package httpapi

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"premier-care-hub/internal/domain"
	"premier-care-hub/internal/service"
)

// WeeklyReportRankingHeader 排行页表头
var WeeklyReportRankingHeader = []string{
	"Rank",
	"Caregiver ID",
	"Visits",
	"Clock-In Rate (%)",
	"Clock-Out Rate (%)",
	"Overall Compliance (%)",
	"Band",
}

// WeeklyReportDailyHeader 日分解页表头
var WeeklyReportDailyHeader = []string{
	"Date",
	"Weekday",
	"Visits",
	"Compliance (%)",
	"Clock-In Rate (%)",
	"Clock-Out Rate (%)",
}

// GenerateWeeklyReport 生成周合规 Excel 报表
// Summary 页放快照，Rankings 页放护理员排行，Daily 页放逐日分解
func GenerateWeeklyReport(
	weekStart string,
	snapshot *domain.ComplianceSnapshot,
	rankings []*domain.CaregiverRanking,
	days []*domain.DailyCompliance,
) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	summary := "Summary"
	index, err := f.NewSheet(summary)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	summaryRows := [][]any{
		{"Week Start", weekStart},
		{"Scheduled Visits", snapshot.ScheduledVisits},
		{"Completed Visits", snapshot.CompletedVisits},
		{"EVV Compliance (%)", snapshot.EVVCompliance},
		{"Clock-In Success Rate (%)", snapshot.ClockInSuccessRate},
		{"Clock-Out Success Rate (%)", snapshot.ClockOutSuccessRate},
		{"SMS Reminders", snapshot.SMSCount},
		{"Voice Calls", snapshot.VoiceCount},
	}
	for i, row := range summaryRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	if err := writeSheet(f, "Rankings", WeeklyReportRankingHeader, rankingRows(rankings)); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSheet(f, "Daily", WeeklyReportDailyHeader, dailyRows(days)); err != nil {
		f.Close()
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to serialize report: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func rankingRows(rankings []*domain.CaregiverRanking) [][]any {
	rows := make([][]any, 0, len(rankings))
	for _, r := range rankings {
		rows = append(rows, []any{
			r.Rank,
			r.CaregiverID,
			r.Visits,
			r.ClockInRate,
			r.ClockOutRate,
			r.OverallCompliance,
			service.Band(r.OverallCompliance),
		})
	}
	return rows
}

func dailyRows(days []*domain.DailyCompliance) [][]any {
	rows := make([][]any, 0, len(days))
	for _, d := range days {
		rows = append(rows, []any{
			d.Date,
			d.Weekday,
			d.Visits,
			d.Compliance,
			d.ClockInRate,
			d.ClockOutRate,
		})
	}
	return rows
}

func writeSheet(f *excelize.File, name string, header []string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", name, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row of %s: %w", name, err)
		}
	}
	return nil
}
