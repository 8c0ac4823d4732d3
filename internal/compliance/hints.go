package compliance

import (
	"fmt"
	"math"
	"sort"

	"wavecrest-planner/models"
)

type rate struct {
	impressions int64
	engagements int64
	samples     int
}

// Hints derives "what performed well" notes from snapshots. Metrics join to
// plan posts on post_id; snapshots for unknown posts are ignored. Competitor
// hints report follower growth across the supplied snapshots.
func Hints(plan models.MonthlyPlan, snaps models.SnapshotSet) []models.PerformanceHint {
	var out []models.PerformanceHint
	out = append(out, engagementHints(plan, snaps.Metrics)...)
	out = append(out, competitorHints(snaps.Competitors)...)
	return out
}

func engagementHints(plan models.MonthlyPlan, metrics []models.MetricSnapshot) []models.PerformanceHint {
	if len(metrics) == 0 {
		return nil
	}
	posts := make(map[string]*models.Post, len(plan.Posts))
	for i := range plan.Posts {
		posts[plan.Posts[i].ID] = &plan.Posts[i]
	}
	byPillar := map[string]*rate{}
	byType := map[string]*rate{}
	bump := func(m map[string]*rate, key string, s models.MetricSnapshot) {
		r, ok := m[key]
		if !ok {
			r = &rate{}
			m[key] = r
		}
		r.impressions += s.Impressions
		r.engagements += s.Engagements
		r.samples++
	}
	for _, s := range metrics {
		post, ok := posts[s.PostID]
		if s.PostID == "" || !ok {
			continue
		}
		bump(byPillar, string(post.Pillar), s)
		bump(byType, string(post.ContentType), s)
	}

	var out []models.PerformanceHint
	out = append(out, rateHints(models.HintPillar, byPillar)...)
	out = append(out, rateHints(models.HintContentType, byType)...)
	return out
}

func rateHints(kind models.HintKind, rates map[string]*rate) []models.PerformanceHint {
	out := make([]models.PerformanceHint, 0, len(rates))
	for subject, r := range rates {
		if r.impressions <= 0 {
			continue
		}
		pct := math.Round(float64(r.engagements)*1000/float64(r.impressions)) / 10
		out = append(out, models.PerformanceHint{
			Kind:    kind,
			Subject: subject,
			Value:   pct,
			Samples: r.samples,
			Message: fmt.Sprintf("%s %s engaged %.1f%% of %d impressions", kind, subject, pct, r.impressions),
		})
	}
	sortHints(out)
	return out
}

func competitorHints(snaps []models.CompetitorSnapshot) []models.PerformanceHint {
	if len(snaps) == 0 {
		return nil
	}
	byName := map[string][]models.CompetitorSnapshot{}
	for _, s := range snaps {
		byName[s.CompetitorName] = append(byName[s.CompetitorName], s)
	}

	out := make([]models.PerformanceHint, 0, len(byName))
	for name, list := range byName {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })
		growth := list[len(list)-1].FollowerCount - list[0].FollowerCount

		var urls []string
		seen := map[string]bool{}
		for _, s := range list {
			for _, u := range s.NotablePostURLs {
				if u != "" && !seen[u] {
					seen[u] = true
					urls = append(urls, u)
				}
			}
		}
		out = append(out, models.PerformanceHint{
			Kind:    models.HintCompetitor,
			Subject: name,
			Value:   float64(growth),
			Samples: len(list),
			URLs:    urls,
			Message: fmt.Sprintf("%s grew by %d followers over %d snapshot(s)", name, growth, len(list)),
		})
	}
	sortHints(out)
	return out
}

// sortHints orders best performers first, breaking ties by subject.
func sortHints(h []models.PerformanceHint) {
	sort.Slice(h, func(i, j int) bool {
		if h[i].Value != h[j].Value {
			return h[i].Value > h[j].Value
		}
		return h[i].Subject < h[j].Subject
	})
}
