// Package compliance evaluates a monthly plan against pillar-mix, gap,
// platform and weekly frequency targets. Check is a pure function of its
// inputs; the same plan, config and snapshots always yield the same report.
package compliance

import (
	"fmt"
	"math"
	"sort"
	"time"

	"wavecrest-planner/models"
)

// Check evaluates plan against cfg. Snapshots only annotate the report with
// hints and never change OverallStatus. An invalid target mix fails before
// any report is produced.
func Check(plan models.MonthlyPlan, cfg Config, snaps models.SnapshotSet) (models.ComplianceReport, error) {
	if err := cfg.Validate(); err != nil {
		return models.ComplianceReport{}, err
	}
	if plan.Month.IsZero() {
		return models.ComplianceReport{}, fmt.Errorf("%w: plan has no month", ErrInvalidConfig)
	}

	active := activePosts(plan)
	report := models.ComplianceReport{
		Month:          plan.Month,
		EvaluatedPosts: len(active),
		GapViolations:  []models.GapViolation{},
		Summary:        summarize(plan),
	}

	report.PillarMix, report.PillarMixActual = pillarMix(active, cfg)
	if len(active) == 0 {
		report.Advisories = append(report.Advisories, models.Advisory{
			Code:    models.AdvisoryNoContent,
			Message: fmt.Sprintf("no active posts scheduled in %s", plan.Month),
		})
	}
	report.GapViolations = gaps(plan, active, cfg.MaxGapDays)
	report.PlatformCoverage = coverage(active)
	report.WeeklyCounts = weeklyCounts(plan.Month, active, cfg.Weekly)
	report.Hints = Hints(plan, snaps)

	report.OverallStatus, report.Reasons = verdict(report)
	return report, nil
}

// activePosts returns the non-Skipped posts dated inside the plan month,
// ordered by date then id.
func activePosts(plan models.MonthlyPlan) []models.Post {
	out := make([]models.Post, 0, len(plan.Posts))
	for _, p := range plan.Posts {
		if p.Active() && plan.Month.Contains(p.Date) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortKey() < out[j].SortKey() })
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func pillarMix(active []models.Post, cfg Config) ([]models.PillarShare, map[models.Pillar]float64) {
	counts := map[models.Pillar]int{}
	for _, p := range active {
		counts[p.Pillar]++
	}
	total := len(active)

	actual := make(map[models.Pillar]float64, len(models.Pillars))
	shares := make([]models.PillarShare, 0, len(models.Pillars))
	for _, pillar := range models.Pillars {
		pct := 0.0
		if total > 0 {
			pct = round1(float64(counts[pillar]) * 100 / float64(total))
		}
		target := cfg.Targets[pillar]
		dev := round1(pct - target)
		actual[pillar] = pct
		shares = append(shares, models.PillarShare{
			Pillar:    pillar,
			Count:     counts[pillar],
			Actual:    pct,
			Target:    target,
			Deviation: dev,
			Within:    math.Abs(dev) <= cfg.TolerancePP+1e-9,
		})
	}
	return shares, actual
}

// gaps measures the intervals between consecutive active post dates. The
// month edges are only measured when the plan knows a neighbouring post
// outside the month; otherwise a plan starting late in the month would
// always fail on an interval nobody scheduled against.
func gaps(plan models.MonthlyPlan, active []models.Post, maxGap int) []models.GapViolation {
	var dates []time.Time
	for _, p := range active {
		d := models.DateOf(p.Date)
		if len(dates) == 0 || !dates[len(dates)-1].Equal(d) {
			dates = append(dates, d)
		}
	}

	out := []models.GapViolation{}
	add := func(start, end time.Time) {
		if days := models.DaysBetween(start, end); days > maxGap {
			out = append(out, models.GapViolation{Start: start, End: end, Days: days})
		}
	}

	first, last := plan.Month.First(), plan.Month.Last()
	if len(dates) == 0 {
		if plan.LeadIn != nil || plan.LeadOut != nil {
			add(first, last)
		}
		return out
	}
	if plan.LeadIn != nil {
		add(first, dates[0])
	}
	for i := 1; i < len(dates); i++ {
		add(dates[i-1], dates[i])
	}
	if plan.LeadOut != nil {
		add(dates[len(dates)-1], last)
	}
	return out
}

func coverage(active []models.Post) models.PlatformCoverage {
	var c models.PlatformCoverage
	for _, p := range active {
		if p.Platform.Covers(models.PlatformInstagram) {
			c.Instagram++
		}
		if p.Platform.Covers(models.PlatformFacebook) {
			c.Facebook++
		}
	}
	c.Covered = c.Instagram > 0 && c.Facebook > 0
	return c
}

// weeklyCounts counts a Both post once per week. Partial weeks at the month
// edges get a proportionally smaller minimum; the maximum is not scaled.
func weeklyCounts(month models.Month, active []models.Post, target models.FrequencyRange) []models.WeekCount {
	weeks := month.Weeks()
	out := make([]models.WeekCount, 0, len(weeks))
	for _, w := range weeks {
		wc := models.WeekCount{
			WeekStart: w.WeekStart,
			From:      w.From,
			To:        w.To,
			Days:      w.Days,
			Min:       target.MinFor(w.Days),
			Max:       target.Max,
		}
		for _, p := range active {
			if w.Contains(p.Date) {
				wc.Count++
			}
		}
		switch {
		case target.IsZero():
		case wc.Count < wc.Min:
			wc.Flag = models.WeekUnderfilled
		case wc.Max > 0 && wc.Count > wc.Max:
			wc.Flag = models.WeekOverfilled
		}
		out = append(out, wc)
	}
	return out
}

// summarize counts every post in the month, Skipped included, so the
// dashboard can show what was dropped.
func summarize(plan models.MonthlyPlan) models.MonthSummary {
	s := models.MonthSummary{
		ByContentType: map[models.ContentType]int{},
		ByPillar:      map[models.Pillar]int{},
		ByStatus:      map[models.PostStatus]int{},
	}
	for _, p := range plan.Posts {
		if !plan.Month.Contains(p.Date) {
			continue
		}
		s.Total++
		if p.Platform.Covers(models.PlatformInstagram) {
			s.Instagram++
		}
		if p.Platform.Covers(models.PlatformFacebook) {
			s.Facebook++
		}
		s.ByContentType[p.ContentType]++
		s.ByPillar[p.Pillar]++
		s.ByStatus[p.Status]++
	}
	return s
}

func verdict(r models.ComplianceReport) (models.ComplianceStatus, []models.Advisory) {
	var reasons []models.Advisory
	for _, share := range r.PillarMix {
		if !share.Within {
			reasons = append(reasons, models.Advisory{
				Code: models.ReasonPillarMix,
				Message: fmt.Sprintf("%s at %.1f%% against a %.1f%% target (%+.1fpp)",
					share.Pillar, share.Actual, share.Target, share.Deviation),
			})
		}
	}
	for _, g := range r.GapViolations {
		reasons = append(reasons, models.Advisory{
			Code: models.ReasonGap,
			Message: fmt.Sprintf("%d days between %s and %s",
				g.Days, g.Start.Format(models.DateLayout), g.End.Format(models.DateLayout)),
		})
	}
	if !r.PlatformCoverage.Covered {
		reasons = append(reasons, models.Advisory{
			Code: models.ReasonPlatformCoverage,
			Message: fmt.Sprintf("instagram has %d post(s), facebook has %d",
				r.PlatformCoverage.Instagram, r.PlatformCoverage.Facebook),
		})
	}
	for _, w := range r.WeeklyCounts {
		if w.Flag != models.WeekOK {
			reasons = append(reasons, models.Advisory{
				Code: models.ReasonWeeklyCount,
				Message: fmt.Sprintf("week of %s is %s with %d post(s) (target %d-%d)",
					w.WeekStart.Format(models.DateLayout), w.Flag, w.Count, w.Min, w.Max),
			})
		}
	}
	if len(reasons) > 0 {
		return models.StatusNonCompliant, reasons
	}
	return models.StatusCompliant, nil
}
