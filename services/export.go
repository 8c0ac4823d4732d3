package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"wavecrest-planner/models"
)

const (
	calendarSheet   = "Calendar"
	complianceSheet = "Compliance"
	weeksSheet      = "Weeks"
)

// ExportService renders a month plan and its compliance report as an Excel
// workbook.
type ExportService struct {
	planner *PlanningService
}

func NewExportService(planner *PlanningService) *ExportService {
	return &ExportService{planner: planner}
}

// ExportMonth builds the workbook for month and returns its bytes.
func (es *ExportService) ExportMonth(ctx context.Context, month models.Month) ([]byte, error) {
	plan, err := es.planner.MonthlyPlan(ctx, month)
	if err != nil {
		return nil, err
	}
	report, err := es.planner.CheckCompliance(ctx, month, nil)
	if err != nil {
		return nil, err
	}
	return RenderWorkbook(plan, report)
}

// RenderWorkbook writes three sheets: the calendar, the pillar mix with
// compliance reasons, and the weekly counts.
func RenderWorkbook(plan models.MonthlyPlan, report models.ComplianceReport) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("error closing Excel file", "error", err)
		}
	}()

	index, err := f.NewSheet(calendarSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeCalendar(f, plan, headerStyle); err != nil {
		return nil, err
	}
	if err := writeCompliance(f, report, headerStyle); err != nil {
		return nil, err
	}
	if err := writeWeeks(f, report, headerStyle); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeHeader(f *excelize.File, sheet string, style int, headers ...any) error {
	if err := writeRow(f, sheet, 1, headers...); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeCalendar(f *excelize.File, plan models.MonthlyPlan, style int) error {
	if err := writeHeader(f, calendarSheet, style,
		"Date", "Time", "Platform", "Content Type", "Pillar", "Status",
		"Caption", "Hashtags", "Script ID", "Idea ID", "Media", "Notes", "Post ID"); err != nil {
		return fmt.Errorf("failed to write calendar header: %w", err)
	}
	for i, p := range plan.Posts {
		err := writeRow(f, calendarSheet, i+2,
			p.Date.Format(models.DateLayout), p.ScheduledTime, string(p.Platform), string(p.ContentType),
			string(p.Pillar), string(p.Status), p.Caption, strings.Join(p.Hashtags, " "),
			p.SourceScriptID, p.SourceIdeaID, p.MediaPath, p.Notes, p.ID)
		if err != nil {
			return fmt.Errorf("failed to write calendar row %d: %w", i, err)
		}
	}
	_ = f.SetColWidth(calendarSheet, "G", "G", 60)
	_ = f.SetPanes(calendarSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return nil
}

func writeCompliance(f *excelize.File, report models.ComplianceReport, style int) error {
	if _, err := f.NewSheet(complianceSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeHeader(f, complianceSheet, style, "Pillar", "Posts", "Actual %", "Target %", "Deviation pp", "Within"); err != nil {
		return err
	}
	row := 2
	for _, share := range report.PillarMix {
		if err := writeRow(f, complianceSheet, row, string(share.Pillar), share.Count, share.Actual, share.Target, share.Deviation, share.Within); err != nil {
			return err
		}
		row++
	}

	row++
	summary := [][]any{
		{"Month", report.Month.String()},
		{"Overall status", string(report.OverallStatus)},
		{"Evaluated posts", report.EvaluatedPosts},
		{"Instagram appearances", report.PlatformCoverage.Instagram},
		{"Facebook appearances", report.PlatformCoverage.Facebook},
		{"Gap violations", len(report.GapViolations)},
	}
	for _, line := range summary {
		if err := writeRow(f, complianceSheet, row, line...); err != nil {
			return err
		}
		row++
	}

	row++
	for _, reason := range append(append([]models.Advisory{}, report.Reasons...), report.Advisories...) {
		if err := writeRow(f, complianceSheet, row, reason.Code, reason.Message); err != nil {
			return err
		}
		row++
	}
	for _, g := range report.GapViolations {
		if err := writeRow(f, complianceSheet, row, models.ReasonGap,
			g.Start.Format(models.DateLayout), g.End.Format(models.DateLayout), g.Days); err != nil {
			return err
		}
		row++
	}
	return nil
}

func writeWeeks(f *excelize.File, report models.ComplianceReport, style int) error {
	if _, err := f.NewSheet(weeksSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeHeader(f, weeksSheet, style, "Week of", "From", "To", "Days", "Posts", "Min", "Max", "Flag"); err != nil {
		return err
	}
	for i, w := range report.WeeklyCounts {
		err := writeRow(f, weeksSheet, i+2,
			w.WeekStart.Format(models.DateLayout), w.From.Format(models.DateLayout), w.To.Format(models.DateLayout),
			w.Days, w.Count, w.Min, w.Max, string(w.Flag))
		if err != nil {
			return err
		}
	}
	return nil
}
