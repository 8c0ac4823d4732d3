package compliance

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"wavecrest-planner/models"
)

var june = models.Month{Year: 2025, Month: 6}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

type postFixture struct {
	day      int
	platform models.Platform
	pillar   models.Pillar
	status   models.PostStatus
}

func planOf(fixtures ...postFixture) models.MonthlyPlan {
	plan := models.MonthlyPlan{Month: june}
	for i, s := range fixtures {
		status := s.status
		if status == "" {
			status = models.PostPlanned
		}
		plan.Posts = append(plan.Posts, models.Post{
			ID:          fmt.Sprintf("p%02d", i),
			Date:        time.Date(2025, 6, s.day, 0, 0, 0, 0, time.UTC),
			Platform:    s.platform,
			Pillar:      s.pillar,
			ContentType: models.ContentStill,
			Status:      status,
		})
	}
	return plan
}

func reasonCodes(r models.ComplianceReport) map[string]int {
	codes := map[string]int{}
	for _, a := range r.Reasons {
		codes[a.Code]++
	}
	return codes
}

func TestGapBetweenTwoPosts(t *testing.T) {
	plan := planOf(
		postFixture{day: 1, platform: models.PlatformInstagram, pillar: models.PillarEducation},
		postFixture{day: 6, platform: models.PlatformFacebook, pillar: models.PillarEducation},
	)
	report, err := Check(plan, DefaultConfig(), models.SnapshotSet{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(report.GapViolations) != 1 {
		t.Fatalf("expected one gap violation, got %+v", report.GapViolations)
	}
	g := report.GapViolations[0]
	if g.Days != 5 || !g.Start.Equal(date(t, "2025-06-01")) || !g.End.Equal(date(t, "2025-06-06")) {
		t.Fatalf("unexpected violation %+v", g)
	}
}

func TestGapAcrossMonthEdgesWithNeighbours(t *testing.T) {
	plan := planOf(
		postFixture{day: 5, platform: models.PlatformBoth, pillar: models.PillarEducation},
		postFixture{day: 7, platform: models.PlatformBoth, pillar: models.PillarEducation},
	)
	in, out := date(t, "2025-05-30"), date(t, "2025-07-02")
	plan.LeadIn, plan.LeadOut = &in, &out

	report, err := Check(plan, DefaultConfig(), models.SnapshotSet{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(report.GapViolations) != 2 {
		t.Fatalf("expected leading and trailing violations, got %+v", report.GapViolations)
	}
	lead, trail := report.GapViolations[0], report.GapViolations[1]
	if !lead.Start.Equal(june.First()) || lead.Days != 4 {
		t.Fatalf("unexpected leading violation %+v", lead)
	}
	if !trail.End.Equal(june.Last()) || trail.Days != 23 {
		t.Fatalf("unexpected trailing violation %+v", trail)
	}
}

func TestSkippedPostsDoNotCloseGaps(t *testing.T) {
	plan := planOf(
		postFixture{day: 1, platform: models.PlatformInstagram, pillar: models.PillarEducation},
		postFixture{day: 3, platform: models.PlatformInstagram, pillar: models.PillarEducation, status: models.PostSkipped},
		postFixture{day: 6, platform: models.PlatformFacebook, pillar: models.PillarEducation},
	)
	report, err := Check(plan, DefaultConfig(), models.SnapshotSet{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(report.GapViolations) != 1 || report.EvaluatedPosts != 2 {
		t.Fatalf("skipped post should be ignored: %+v", report.GapViolations)
	}
	if report.Summary.Total != 3 || report.Summary.ByStatus[models.PostSkipped] != 1 {
		t.Fatalf("summary should still count skipped posts: %+v", report.Summary)
	}
}

func TestFullCompliance(t *testing.T) {
	var pillars []models.Pillar
	for _, pc := range []struct {
		p models.Pillar
		n int
	}{
		{models.PillarEducation, 5},
		{models.PillarAffirming, 4},
		{models.PillarCommunity, 3},
		{models.PillarClientStory, 2},
		{models.PillarTreatmentInfo, 1},
	} {
		for i := 0; i < pc.n; i++ {
			pillars = append(pillars, pc.p)
		}
	}

	var fixtures []postFixture
	for i, p := range pillars {
		platform := models.PlatformInstagram
		if i%2 == 1 {
			platform = models.PlatformFacebook
		}
		fixtures = append(fixtures, postFixture{day: 1 + 2*i, platform: platform, pillar: p})
	}
	report, err := Check(planOf(fixtures...), DefaultConfig(), models.SnapshotSet{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if report.OverallStatus != models.StatusCompliant {
		t.Fatalf("expected Compliant, got %s: %+v", report.OverallStatus, report.Reasons)
	}
	want := map[models.Pillar]float64{
		models.PillarEducation:     33.3,
		models.PillarAffirming:     26.7,
		models.PillarCommunity:     20,
		models.PillarClientStory:   13.3,
		models.PillarTreatmentInfo: 6.7,
	}
	if !reflect.DeepEqual(report.PillarMixActual, want) {
		t.Fatalf("pillar mix: got %v want %v", report.PillarMixActual, want)
	}
	if !report.PlatformCoverage.Covered {
		t.Fatal("both platforms should be covered")
	}
}

// 14 posts alternating Instagram and Facebook, with the week of 06-16
// carrying only two posts.
func TestUnderfilledWeekIsNonCompliant(t *testing.T) {
	days := []int{1, 2, 5, 8, 11, 12, 13, 15, 18, 21, 24, 26, 28, 30}
	pillars := []models.Pillar{
		models.PillarEducation, models.PillarEducation, models.PillarEducation, models.PillarEducation,
		models.PillarAffirming, models.PillarAffirming, models.PillarAffirming, models.PillarAffirming,
		models.PillarCommunity, models.PillarCommunity, models.PillarCommunity,
		models.PillarClientStory, models.PillarClientStory,
		models.PillarTreatmentInfo,
	}
	var fixtures []postFixture
	for i, d := range days {
		platform := models.PlatformInstagram
		if i%2 == 1 {
			platform = models.PlatformFacebook
		}
		fixtures = append(fixtures, postFixture{day: d, platform: platform, pillar: pillars[i]})
	}
	report, err := Check(planOf(fixtures...), DefaultConfig(), models.SnapshotSet{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if report.PlatformCoverage.Instagram != 7 || report.PlatformCoverage.Facebook != 7 {
		t.Fatalf("unexpected coverage %+v", report.PlatformCoverage)
	}
	if len(report.GapViolations) != 0 {
		t.Fatalf("no gap should exceed 3 days: %+v", report.GapViolations)
	}
	var flagged []models.WeekCount
	for _, w := range report.WeeklyCounts {
		if w.Flag != models.WeekOK {
			flagged = append(flagged, w)
		}
	}
	if len(flagged) != 1 || flagged[0].Flag != models.WeekUnderfilled || !flagged[0].WeekStart.Equal(date(t, "2025-06-16")) {
		t.Fatalf("expected only the week of 06-16 underfilled, got %+v", flagged)
	}
	if report.OverallStatus != models.StatusNonCompliant {
		t.Fatalf("expected NonCompliant, got %s", report.OverallStatus)
	}
	if codes := reasonCodes(report); len(codes) != 1 || codes[models.ReasonWeeklyCount] != 1 {
		t.Fatalf("weekly count should be the only reason: %+v", report.Reasons)
	}
}

func TestBothCountsOnceWeeklyAndCoversBothPlatforms(t *testing.T) {
	plan := planOf(postFixture{day: 10, platform: models.PlatformBoth, pillar: models.PillarEducation})
	report, err := Check(plan, DefaultConfig(), models.SnapshotSet{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !report.PlatformCoverage.Covered {
		t.Fatal("a Both post should cover both platforms")
	}
	for _, w := range report.WeeklyCounts {
		if w.WeekStart.Equal(date(t, "2025-06-09")) && w.Count != 1 {
			t.Fatalf("a Both post should count once, got %d", w.Count)
		}
	}
}

func TestEmptyPlanRaisesNoContent(t *testing.T) {
	report, err := Check(models.MonthlyPlan{Month: june}, DefaultConfig(), models.SnapshotSet{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	for _, p := range models.Pillars {
		if report.PillarMixActual[p] != 0 {
			t.Fatalf("%s should be 0, got %v", p, report.PillarMixActual[p])
		}
	}
	if len(report.Advisories) != 1 || report.Advisories[0].Code != models.AdvisoryNoContent {
		t.Fatalf("expected a no_content advisory, got %+v", report.Advisories)
	}
	if report.OverallStatus != models.StatusNonCompliant {
		t.Fatal("an empty month cannot be compliant")
	}
}

func TestCheckIsIdempotent(t *testing.T) {
	plan := planOf(
		postFixture{day: 2, platform: models.PlatformInstagram, pillar: models.PillarEducation},
		postFixture{day: 9, platform: models.PlatformFacebook, pillar: models.PillarCommunity},
		postFixture{day: 9, platform: models.PlatformBoth, pillar: models.PillarAffirming},
	)
	snaps := models.SnapshotSet{
		Metrics: []models.MetricSnapshot{{PostID: "p00", Impressions: 100, Engagements: 7}},
		Competitors: []models.CompetitorSnapshot{
			{CompetitorName: "harbor", Date: date(t, "2025-06-01"), FollowerCount: 100},
			{CompetitorName: "harbor", Date: date(t, "2025-06-20"), FollowerCount: 130, NotablePostURLs: []string{"https://example.com/p/1"}},
		},
	}
	a, errA := Check(plan, DefaultConfig(), snaps)
	b, errB := Check(plan, DefaultConfig(), snaps)
	if errA != nil || errB != nil {
		t.Fatalf("Check: %v / %v", errA, errB)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("reports differ:\n%+v\n%+v", a, b)
	}
}

func TestInvalidTargetMixFailsBeforeReport(t *testing.T) {
	cases := []map[models.Pillar]float64{
		{models.PillarEducation: 50, models.PillarAffirming: 40},
		{models.PillarEducation: 110, models.PillarAffirming: -10},
		{"Memes": 100},
		{},
	}
	for i, targets := range cases {
		cfg := DefaultConfig()
		cfg.Targets = targets
		report, err := Check(planOf(), cfg, models.SnapshotSet{})
		if !errors.Is(err, ErrInvalidTargetMix) {
			t.Errorf("case %d: expected ErrInvalidTargetMix, got %v", i, err)
		}
		if !reflect.DeepEqual(report, models.ComplianceReport{}) {
			t.Errorf("case %d: report produced despite invalid mix", i)
		}
	}
}

// Random mixes either sum to 100 and validate, or fail with ErrInvalidTargetMix.
func TestTargetMixValidationProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		targets := map[models.Pillar]float64{}
		sum := 0.0
		for _, p := range models.Pillars {
			v := float64(rng.Intn(40))
			targets[p] = v
			sum += v
		}
		cfg := DefaultConfig()
		cfg.Targets = targets
		err := cfg.Validate()
		if sum == 100 && err != nil {
			t.Fatalf("valid mix %v rejected: %v", targets, err)
		}
		if sum != 100 && !errors.Is(err, ErrInvalidTargetMix) {
			t.Fatalf("mix summing to %v accepted", sum)
		}
	}
}

// Rounded pillar percentages always sum to 100 within rounding.
func TestPillarMixSumsToHundred(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(40)
		var fixtures []postFixture
		for j := 0; j < n; j++ {
			fixtures = append(fixtures, postFixture{
				day:      1 + rng.Intn(30),
				platform: models.PlatformInstagram,
				pillar:   models.Pillars[rng.Intn(len(models.Pillars))],
			})
		}
		report, err := Check(planOf(fixtures...), DefaultConfig(), models.SnapshotSet{})
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		sum := 0.0
		for _, v := range report.PillarMixActual {
			sum += v
		}
		if math.Abs(sum-100) > 0.25 {
			t.Fatalf("pillar mix sums to %v for %d posts", sum, n)
		}
	}
}

func TestHintsRankByEngagement(t *testing.T) {
	plan := planOf(
		postFixture{day: 2, platform: models.PlatformInstagram, pillar: models.PillarEducation},
		postFixture{day: 4, platform: models.PlatformFacebook, pillar: models.PillarCommunity},
	)
	hints := Hints(plan, models.SnapshotSet{Metrics: []models.MetricSnapshot{
		{PostID: "p00", Impressions: 200, Engagements: 10},
		{PostID: "p01", Impressions: 100, Engagements: 12},
		{PostID: "unknown", Impressions: 100, Engagements: 90},
	}})
	var pillarHints []models.PerformanceHint
	for _, h := range hints {
		if h.Kind == models.HintPillar {
			pillarHints = append(pillarHints, h)
		}
	}
	if len(pillarHints) != 2 {
		t.Fatalf("expected two pillar hints, got %+v", hints)
	}
	if pillarHints[0].Subject != string(models.PillarCommunity) || pillarHints[0].Value != 12 {
		t.Fatalf("community should rank first at 12%%: %+v", pillarHints[0])
	}
}
