package calendar

import (
	"testing"
	"time"

	"wavecrest-planner/models"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestMonthWeeksClipToMonth(t *testing.T) {
	weeks := june.Weeks()
	if len(weeks) != 6 {
		t.Fatalf("June 2025 spans 6 Monday weeks, got %d", len(weeks))
	}
	if weeks[0].Days != 1 || weeks[0].From.Format(models.DateLayout) != "2025-06-01" {
		t.Fatalf("first window should be Sunday 06-01 alone: %+v", weeks[0])
	}
	if weeks[0].WeekStart.Format(models.DateLayout) != "2025-05-26" {
		t.Fatalf("first window should start on the Monday before: %+v", weeks[0])
	}
	total := 0
	for _, w := range weeks {
		total += w.Days
	}
	if total != 30 {
		t.Fatalf("windows should cover every day once, got %d", total)
	}
}

func TestFrequencyWarningsIgnoreSkippedAndZeroRange(t *testing.T) {
	plan := models.MonthlyPlan{Month: june}
	for _, d := range []string{"2025-06-09", "2025-06-10", "2025-06-11"} {
		plan.Posts = append(plan.Posts, models.Post{Date: mustDate(t, d), Status: models.PostPlanned})
	}
	plan.Posts = append(plan.Posts, models.Post{Date: mustDate(t, "2025-06-12"), Status: models.PostSkipped})

	if got := FrequencyWarnings(plan, models.FrequencyRange{}); got != nil {
		t.Fatalf("zero range should disable warnings, got %v", got)
	}
	for _, w := range FrequencyWarnings(plan, models.FrequencyRange{Min: 3, Max: 3}) {
		if w.Date.Format(models.DateLayout) == "2025-06-09" {
			t.Fatalf("skipped post should not count towards week of 06-09: %+v", w)
		}
	}
}
