package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"

	"wavecrest-planner/internal/cache"
	"wavecrest-planner/internal/compliance"
	"wavecrest-planner/internal/lifecycle"
	"wavecrest-planner/internal/store"
	"wavecrest-planner/models"
)

var june = models.Month{Year: 2025, Month: 6}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*PlanningService, *store.Entities) {
	t.Helper()
	entities := store.NewMemoryEntities()
	return NewPlanningService(entities, PlanningServiceOptions{Logger: quietLogger()}), entities
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// selectedScript walks a new script through Draft -> Selected.
func selectedScript(t *testing.T, svc *PlanningService, pillar models.Pillar) *models.Script {
	t.Helper()
	ctx := context.Background()
	script, err := svc.CreateScript(ctx, models.CreateScriptRequest{Title: "Session notes", Pillar: pillar, Source: models.SourceTherapist})
	if err != nil {
		t.Fatalf("CreateScript: %v", err)
	}
	if _, err := svc.Transition(ctx, models.TransitionRequest{Kind: models.KindScript, ID: script.ID, To: "Selected", ExpectedVersion: script.Version}); err != nil {
		t.Fatalf("select script: %v", err)
	}
	return script
}

func TestCreateIdeaDefaultsAndValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	idea, err := svc.CreateIdea(ctx, models.CreateIdeaRequest{Title: "  Myths about therapy ", Pillar: "Affirming Messages", ContentType: "carousel"})
	if err != nil {
		t.Fatalf("CreateIdea: %v", err)
	}
	if idea.Status != models.IdeaNew || idea.Priority != models.PriorityMedium || idea.Pillar != models.PillarAffirming {
		t.Fatalf("unexpected defaults: %+v", idea)
	}
	if idea.Title != "Myths about therapy" || idea.ContentType != string(models.ContentCarousel) || idea.Version != 1 {
		t.Fatalf("unexpected idea: %+v", idea)
	}

	bad := []models.CreateIdeaRequest{
		{Title: "", Pillar: models.PillarEducation},
		{Title: "x", Pillar: "Memes"},
		{Title: "x", Pillar: models.PillarEducation, Priority: "urgent"},
		{Title: "x", Pillar: models.PillarEducation, InspirationURL: "ftp://example.com"},
	}
	for i, req := range bad {
		if _, err := svc.CreateIdea(ctx, req); !errors.Is(err, ErrValidation) {
			t.Errorf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
}

func TestCreateScriptRequiresLinkedIdea(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateScript(context.Background(), models.CreateScriptRequest{
		Title: "x", Pillar: models.PillarEducation, Source: models.SourceUGC, LinkedIdeaID: "missing",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBuildAndCheckCompliance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	script := selectedScript(t, svc, models.PillarEducation)

	res, err := svc.BuildMonthPlan(ctx, models.BuildRequest{
		Month: june,
		Candidates: []models.Candidate{
			{SourceScriptID: script.ID, Date: "2025-06-01", Platform: models.PlatformInstagram, ContentType: models.ContentStill},
			{SourceScriptID: script.ID, Date: "2025-06-06", Platform: models.PlatformFacebook, ContentType: models.ContentStill},
		},
	})
	if err != nil {
		t.Fatalf("BuildMonthPlan: %v", err)
	}
	if len(res.Created) != 2 {
		t.Fatalf("expected 2 created posts, got %v", res.Rejected)
	}
	var low int
	for _, w := range res.Warnings {
		if w.Kind == models.WarnFrequencyLow {
			low++
		}
	}
	if low == 0 {
		t.Fatal("configured weekly range should produce frequency warnings for a sparse plan")
	}

	report, err := svc.CheckCompliance(ctx, june, nil)
	if err != nil {
		t.Fatalf("CheckCompliance: %v", err)
	}
	if len(report.GapViolations) != 1 || report.GapViolations[0].Days != 5 {
		t.Fatalf("expected one 5-day gap, got %+v", report.GapViolations)
	}
	if report.OverallStatus != models.StatusNonCompliant {
		t.Fatal("sparse plan cannot be compliant")
	}

	bad := compliance.DefaultConfig()
	bad.Targets = map[models.Pillar]float64{models.PillarEducation: 90}
	if _, err := svc.CheckCompliance(ctx, june, &bad); !errors.Is(err, compliance.ErrInvalidTargetMix) {
		t.Fatalf("expected ErrInvalidTargetMix, got %v", err)
	}
}

func TestMonthlyPlanAttachesNeighbours(t *testing.T) {
	svc, entities := newTestService(t)
	ctx := context.Background()
	for _, p := range []*models.Post{
		{Date: mustDate(t, "2025-05-20"), Status: models.PostPlanned},
		{Date: mustDate(t, "2025-05-29"), Status: models.PostPublished},
		{Date: mustDate(t, "2025-05-31"), Status: models.PostSkipped},
		{Date: mustDate(t, "2025-06-10"), Status: models.PostPlanned},
		{Date: mustDate(t, "2025-07-03"), Status: models.PostPlanned},
	} {
		if _, err := entities.Posts.Create(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	plan, err := svc.MonthlyPlan(ctx, june)
	if err != nil {
		t.Fatalf("MonthlyPlan: %v", err)
	}
	if len(plan.Posts) != 1 {
		t.Fatalf("expected one June post, got %d", len(plan.Posts))
	}
	if plan.LeadIn == nil || !plan.LeadIn.Equal(mustDate(t, "2025-05-29")) {
		t.Fatalf("lead-in should skip the skipped post: %v", plan.LeadIn)
	}
	if plan.LeadOut == nil || !plan.LeadOut.Equal(mustDate(t, "2025-07-03")) {
		t.Fatalf("unexpected lead-out %v", plan.LeadOut)
	}
}

func TestCheckComplianceUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	entities := store.NewMemoryEntities()
	svc := NewPlanningService(entities, PlanningServiceOptions{
		Logger: quietLogger(),
		Cache:  cache.NewReportCache(rdb, time.Minute, quietLogger(), nil),
	})
	ctx := context.Background()
	if _, err := entities.Posts.Create(ctx, &models.Post{Date: mustDate(t, "2025-06-02"), Status: models.PostPlanned, Platform: models.PlatformBoth}); err != nil {
		t.Fatal(err)
	}

	first, err := svc.CheckCompliance(ctx, june, nil)
	if err != nil {
		t.Fatalf("CheckCompliance: %v", err)
	}
	if len(mr.Keys()) != 1 {
		t.Fatalf("expected one cached report, got %v", mr.Keys())
	}
	second, err := svc.CheckCompliance(ctx, june, nil)
	if err != nil {
		t.Fatalf("CheckCompliance: %v", err)
	}
	if first.OverallStatus != second.OverallStatus || first.EvaluatedPosts != second.EvaluatedPosts {
		t.Fatalf("cached report differs: %+v vs %+v", first, second)
	}

	if _, err := entities.Posts.Create(ctx, &models.Post{Date: mustDate(t, "2025-06-04"), Status: models.PostPlanned, Platform: models.PlatformBoth}); err != nil {
		t.Fatal(err)
	}
	third, err := svc.CheckCompliance(ctx, june, nil)
	if err != nil {
		t.Fatalf("CheckCompliance: %v", err)
	}
	if third.EvaluatedPosts != 2 {
		t.Fatalf("changed plan must not be served from cache: %d", third.EvaluatedPosts)
	}
}

func TestUpdatePostPublishedOnlyAllowsMetadata(t *testing.T) {
	svc, entities := newTestService(t)
	ctx := context.Background()
	id, _ := entities.Posts.Create(ctx, &models.Post{Date: mustDate(t, "2025-06-02"), Status: models.PostPlanned, Platform: models.PlatformInstagram, ContentType: models.ContentStill})

	caption := "Draft caption"
	post, err := svc.UpdatePost(ctx, id, models.PostPatch{Version: 1, Caption: &caption, Hashtags: []string{"care"}})
	if err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	if post.Caption != caption || post.Version != 2 || post.Hashtags[0] != "#care" {
		t.Fatalf("unexpected post %+v", post)
	}

	if _, err := svc.Transition(ctx, models.TransitionRequest{Kind: models.KindPost, ID: id, To: "Published", Now: mustDate(t, "2025-06-02")}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := svc.UpdatePost(ctx, id, models.PostPatch{Version: 3, Caption: &caption}); !errors.Is(err, ErrPublishedImmutable) {
		t.Fatalf("expected ErrPublishedImmutable, got %v", err)
	}
	metaID := "1789_22"
	post, err = svc.UpdatePost(ctx, id, models.PostPatch{Version: 3, MetaPostID: &metaID})
	if err != nil {
		t.Fatalf("metadata correction: %v", err)
	}
	if post.MetaPostID != metaID {
		t.Fatalf("meta_post_id not stored: %+v", post)
	}
	if _, err := svc.UpdatePost(ctx, id, models.PostPatch{Version: 1, MetaPostID: &metaID}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := svc.RemovePost(ctx, id, 0); !errors.Is(err, ErrPublishedImmutable) {
		t.Fatalf("published post removed: %v", err)
	}
}

func TestUpdatePostReportsSlotCollision(t *testing.T) {
	svc, entities := newTestService(t)
	ctx := context.Background()
	first, _ := entities.Posts.Create(ctx, &models.Post{Date: mustDate(t, "2025-06-03"), Status: models.PostPlanned, Platform: models.PlatformInstagram})
	second, _ := entities.Posts.Create(ctx, &models.Post{Date: mustDate(t, "2025-06-04"), Status: models.PostPlanned, Platform: models.PlatformInstagram})
	skipped, _ := entities.Posts.Create(ctx, &models.Post{Date: mustDate(t, "2025-06-10"), Status: models.PostSkipped, Platform: models.PlatformInstagram})

	date := "2025-06-03"
	update, err := svc.UpdatePost(ctx, second, models.PostPatch{Version: 1, Date: &date})
	if err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	if update.Version != 2 || update.Date.Format(models.DateLayout) != date {
		t.Fatalf("move not stored: %+v", update.Post)
	}
	if len(update.Warnings) != 1 {
		t.Fatalf("expected one collision warning, got %+v", update.Warnings)
	}
	warn := update.Warnings[0]
	if warn.Kind != models.WarnCollision || warn.PostID != second || len(warn.ConflictingIDs) != 1 || warn.ConflictingIDs[0] != first {
		t.Fatalf("unexpected warning %+v", warn)
	}

	// Widening to Both still collides on the Instagram slot.
	both := models.PlatformBoth
	update, err = svc.UpdatePost(ctx, first, models.PostPatch{Version: 1, Platform: &both})
	if err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	if len(update.Warnings) != 1 || update.Warnings[0].ConflictingIDs[0] != second {
		t.Fatalf("expected Both to collide with the Instagram post, got %+v", update.Warnings)
	}

	caption := "No move"
	update, err = svc.UpdatePost(ctx, first, models.PostPatch{Version: 2, Caption: &caption})
	if err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	if len(update.Warnings) != 0 {
		t.Fatalf("a caption edit should not re-report collisions: %+v", update.Warnings)
	}

	free := "2025-06-10"
	update, err = svc.UpdatePost(ctx, second, models.PostPatch{Version: 2, Date: &free})
	if err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	if len(update.Warnings) != 0 {
		t.Fatalf("skipped post %s should not occupy the slot: %+v", skipped, update.Warnings)
	}
}

func TestRemovePlannedPost(t *testing.T) {
	svc, entities := newTestService(t)
	ctx := context.Background()
	id, _ := entities.Posts.Create(ctx, &models.Post{Date: mustDate(t, "2025-06-02"), Status: models.PostPlanned})
	if err := svc.RemovePost(ctx, id, 2); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := svc.RemovePost(ctx, id, 1); err != nil {
		t.Fatalf("RemovePost: %v", err)
	}
	if _, err := entities.Posts.Get(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("post still present: %v", err)
	}
}

func TestListByStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	low, _ := svc.CreateIdea(ctx, models.CreateIdeaRequest{Title: "low one", Pillar: models.PillarCommunity, Priority: models.PriorityLow})
	high, _ := svc.CreateIdea(ctx, models.CreateIdeaRequest{Title: "high one", Pillar: models.PillarCommunity, Priority: models.PriorityHigh})
	_ = selectedScript(t, svc, models.PillarEducation)

	list, err := svc.ListByStatus(ctx, models.KindIdea, models.ListFilter{Status: "New"}, true)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if list.Count != 2 || list.Ideas[0].ID != high.ID || list.Ideas[1].ID != low.ID {
		t.Fatalf("expected high priority first: %+v", list.Ideas)
	}
	scripts, err := svc.ListByStatus(ctx, models.KindScript, models.ListFilter{Status: "Selected"}, false)
	if err != nil || scripts.Count != 1 {
		t.Fatalf("expected one selected script, got %d (%v)", scripts.Count, err)
	}
	if _, err := svc.ListByStatus(ctx, models.KindScript, models.ListFilter{Status: "Developing"}, false); !errors.Is(err, ErrValidation) {
		t.Fatalf("Developing is not a script status, got %v", err)
	}
}

func TestArchiveStaleScripts(t *testing.T) {
	svc, entities := newTestService(t)
	ctx := context.Background()
	now := mustDate(t, "2025-06-30")
	old, _ := entities.Scripts.Create(ctx, &models.Script{Title: "old", Status: models.ScriptDraft, CreatedAt: now.AddDate(0, 0, -45)})
	fresh, _ := entities.Scripts.Create(ctx, &models.Script{Title: "fresh", Status: models.ScriptDraft, CreatedAt: now.AddDate(0, 0, -3)})
	selected, _ := entities.Scripts.Create(ctx, &models.Script{Title: "kept", Status: models.ScriptSelected, CreatedAt: now.AddDate(0, 0, -90)})

	results, err := svc.ArchiveStaleScripts(ctx, 30, now)
	if err != nil {
		t.Fatalf("ArchiveStaleScripts: %v", err)
	}
	if len(results) != 1 || results[0].ID != old {
		t.Fatalf("only the old draft should be archived: %+v", results)
	}
	for id, want := range map[string]models.ScriptStatus{old: models.ScriptArchived, fresh: models.ScriptDraft, selected: models.ScriptSelected} {
		s, _ := entities.Scripts.Get(ctx, id)
		if s.Status != want {
			t.Errorf("%s: status %s, want %s", s.Title, s.Status, want)
		}
	}
	history, err := svc.History(ctx, old)
	if err != nil || len(history) != 1 || history[0].Actor != "archive-stale" {
		t.Fatalf("archive should be logged: %+v (%v)", history, err)
	}
	if err := lifecycle.VerifyHistory(history); err != nil {
		t.Fatal(err)
	}
}

func TestIngestSnapshotsFeedHints(t *testing.T) {
	svc, entities := newTestService(t)
	ctx := context.Background()
	postID, _ := entities.Posts.Create(ctx, &models.Post{
		Date: mustDate(t, "2025-06-03"), Status: models.PostPublished, Platform: models.PlatformInstagram,
		Pillar: models.PillarClientStory, ContentType: models.ContentUGCVideo,
	})

	if _, err := svc.IngestMetrics(ctx, []models.MetricSnapshot{{Date: mustDate(t, "2025-06-04"), Platform: "Myspace"}}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	ids, err := svc.IngestMetrics(ctx, []models.MetricSnapshot{
		{Date: mustDate(t, "2025-06-04").Add(5 * time.Hour), Platform: models.PlatformInstagram, PostID: postID, Impressions: 400, Engagements: 36},
	})
	if err != nil || len(ids) != 1 {
		t.Fatalf("IngestMetrics: %v", err)
	}
	if _, err := svc.IngestCompetitors(ctx, []models.CompetitorSnapshot{
		{CompetitorName: " Harbor Counseling ", Date: mustDate(t, "2025-06-01"), FollowerCount: 1000},
		{CompetitorName: "Harbor Counseling", Date: mustDate(t, "2025-06-28"), FollowerCount: 1120, NotablePostURLs: []string{"https://instagram.com/p/abc"}},
	}); err != nil {
		t.Fatalf("IngestCompetitors: %v", err)
	}

	report, err := svc.CheckCompliance(ctx, june, nil)
	if err != nil {
		t.Fatalf("CheckCompliance: %v", err)
	}
	var pillarHint, competitorHint *models.PerformanceHint
	for i := range report.Hints {
		switch report.Hints[i].Kind {
		case models.HintPillar:
			pillarHint = &report.Hints[i]
		case models.HintCompetitor:
			competitorHint = &report.Hints[i]
		}
	}
	if pillarHint == nil || pillarHint.Subject != string(models.PillarClientStory) || pillarHint.Value != 9 {
		t.Fatalf("unexpected pillar hint %+v", pillarHint)
	}
	if competitorHint == nil || competitorHint.Value != 120 || len(competitorHint.URLs) != 1 {
		t.Fatalf("unexpected competitor hint %+v", competitorHint)
	}
}

func TestRenderWorkbook(t *testing.T) {
	plan := models.MonthlyPlan{Month: june, Posts: []models.Post{{
		ID: "p1", Date: mustDate(t, "2025-06-02"), Platform: models.PlatformBoth, ContentType: models.ContentStill,
		Pillar: models.PillarEducation, Status: models.PostPlanned, Caption: "Hello", Hashtags: []string{"#a", "#b"},
	}}}
	report, err := compliance.Check(plan, compliance.DefaultConfig(), models.SnapshotSet{})
	if err != nil {
		t.Fatal(err)
	}
	raw, err := RenderWorkbook(plan, report)
	if err != nil {
		t.Fatalf("RenderWorkbook: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 3 || got[0] != calendarSheet {
		t.Fatalf("unexpected sheets %v", got)
	}
	if v, _ := f.GetCellValue(calendarSheet, "A2"); v != "2025-06-02" {
		t.Fatalf("calendar date cell = %q", v)
	}
	if v, _ := f.GetCellValue(calendarSheet, "H2"); v != "#a #b" {
		t.Fatalf("hashtags cell = %q", v)
	}
	if v, _ := f.GetCellValue(complianceSheet, "A2"); v != string(models.PillarEducation) {
		t.Fatalf("compliance first pillar = %q", v)
	}
}

var errStoreDown = errors.New("store down")

// failOnCreate fails the failAt-th Create and delegates everything else.
type failOnCreate[T models.Record[T]] struct {
	store.Collection[T]
	failAt  int
	creates int
}

func (f *failOnCreate[T]) Create(ctx context.Context, rec T) (string, error) {
	f.creates++
	if f.creates == f.failAt {
		return "", errStoreDown
	}
	return f.Collection.Create(ctx, rec)
}

func TestIngestStoreFailureKeepsNothing(t *testing.T) {
	svc, entities := newTestService(t)
	ctx := context.Background()
	day := mustDate(t, "2025-06-02")
	entities.Metrics = &failOnCreate[*models.MetricSnapshot]{Collection: entities.Metrics, failAt: 3}
	entities.Competitors = &failOnCreate[*models.CompetitorSnapshot]{Collection: entities.Competitors, failAt: 2}

	metrics := []models.MetricSnapshot{
		{Date: day, Platform: models.PlatformInstagram, Impressions: 100, Engagements: 5},
		{Date: day, Platform: models.PlatformFacebook, Impressions: 80, Engagements: 2},
		{Date: day, Platform: models.PlatformInstagram, Impressions: 60, Engagements: 1},
	}
	ids, err := svc.IngestMetrics(ctx, metrics)
	if !errors.Is(err, errStoreDown) || ids != nil {
		t.Fatalf("expected the store error and no ids, got %v %v", ids, err)
	}
	if stored, _ := entities.Metrics.List(ctx, models.ListFilter{}); len(stored) != 0 {
		t.Fatalf("failed batch left %d metric snapshots behind", len(stored))
	}

	competitors := []models.CompetitorSnapshot{
		{CompetitorName: "Calm Collective", Date: day, FollowerCount: 1200},
		{CompetitorName: "Mindful Ways", Date: day, FollowerCount: 900},
	}
	if _, err := svc.IngestCompetitors(ctx, competitors); !errors.Is(err, errStoreDown) {
		t.Fatalf("expected the store error, got %v", err)
	}
	if stored, _ := entities.Competitors.List(ctx, models.ListFilter{}); len(stored) != 0 {
		t.Fatalf("failed batch left %d competitor snapshots behind", len(stored))
	}
}
