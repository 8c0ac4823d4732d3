package calendar

import (
	"fmt"

	"wavecrest-planner/models"
)

// FrequencyWarnings flags weeks of the plan whose active post count falls
// outside the target range. Partial weeks at the month edges use a
// proportionally smaller minimum.
func FrequencyWarnings(plan models.MonthlyPlan, target models.FrequencyRange) []models.PlacementWarning {
	if target.IsZero() {
		return nil
	}
	var out []models.PlacementWarning
	for _, week := range plan.Month.Weeks() {
		count := 0
		for i := range plan.Posts {
			if plan.Posts[i].Active() && week.Contains(plan.Posts[i].Date) {
				count++
			}
		}
		start := week.From
		switch least := target.MinFor(week.Days); {
		case count < least:
			out = append(out, models.PlacementWarning{
				Kind:           models.WarnFrequencyLow,
				CandidateIndex: -1,
				Date:           &start,
				Message:        fmt.Sprintf("week of %s has %d post(s), target at least %d", start.Format(models.DateLayout), count, least),
			})
		case target.Max > 0 && count > target.Max:
			out = append(out, models.PlacementWarning{
				Kind:           models.WarnFrequencyHigh,
				CandidateIndex: -1,
				Date:           &start,
				Message:        fmt.Sprintf("week of %s has %d post(s), target at most %d", start.Format(models.DateLayout), count, target.Max),
			})
		}
	}
	return out
}
