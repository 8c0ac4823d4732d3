package models

import "time"

type ComplianceStatus string

const (
	StatusCompliant    ComplianceStatus = "Compliant"
	StatusNonCompliant ComplianceStatus = "NonCompliant"
)

type WeekFlag string

const (
	WeekOK          WeekFlag = ""
	WeekUnderfilled WeekFlag = "Underfilled"
	WeekOverfilled  WeekFlag = "Overfilled"
)

// Reason codes attached to a NonCompliant report.
const (
	ReasonPillarMix        = "pillar_mix"
	ReasonGap              = "gap"
	ReasonPlatformCoverage = "platform_coverage"
	ReasonWeeklyCount      = "weekly_count"
)

// Advisory codes.
const (
	AdvisoryNoContent = "no_content"
)

type ComplianceReport struct {
	Month            Month              `json:"month"`
	EvaluatedPosts   int                `json:"evaluated_posts"`
	PillarMixActual  map[Pillar]float64 `json:"pillar_mix_actual"`
	PillarMix        []PillarShare      `json:"pillar_mix"`
	GapViolations    []GapViolation     `json:"gap_violations"`
	PlatformCoverage PlatformCoverage   `json:"platform_coverage"`
	WeeklyCounts     []WeekCount        `json:"weekly_counts"`
	Summary          MonthSummary       `json:"summary"`
	Advisories       []Advisory         `json:"advisories,omitempty"`
	Hints            []PerformanceHint  `json:"hints,omitempty"`
	OverallStatus    ComplianceStatus   `json:"overall_status"`
	Reasons          []Advisory         `json:"reasons,omitempty"`
}

type PillarShare struct {
	Pillar    Pillar  `json:"pillar"`
	Count     int     `json:"count"`
	Actual    float64 `json:"actual"`
	Target    float64 `json:"target"`
	Deviation float64 `json:"deviation"`
	Within    bool    `json:"within_tolerance"`
}

type GapViolation struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
	Days  int       `json:"days"`
}

type PlatformCoverage struct {
	Instagram int  `json:"instagram"`
	Facebook  int  `json:"facebook"`
	Covered   bool `json:"covered"`
}

// WeekCount covers the days of one Monday-started week that fall inside the
// month. Partial weeks at the month edges carry Days < 7.
type WeekCount struct {
	WeekStart time.Time `json:"week_start"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Days      int       `json:"days"`
	Count     int       `json:"count"`
	Min       int       `json:"min"`
	Max       int       `json:"max"`
	Flag      WeekFlag  `json:"flag,omitempty"`
}

type MonthSummary struct {
	Total         int                 `json:"total"`
	Instagram     int                 `json:"instagram"`
	Facebook      int                 `json:"facebook"`
	ByContentType map[ContentType]int `json:"by_content_type"`
	ByPillar      map[Pillar]int      `json:"by_pillar"`
	ByStatus      map[PostStatus]int  `json:"by_status"`
}

type Advisory struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type HintKind string

const (
	HintPillar      HintKind = "pillar"
	HintContentType HintKind = "content_type"
	HintCompetitor  HintKind = "competitor"
)

// PerformanceHint annotates a report with what performed well. Hints never
// affect OverallStatus.
type PerformanceHint struct {
	Kind    HintKind `json:"kind"`
	Subject string   `json:"subject"`
	Value   float64  `json:"value"`
	Samples int      `json:"samples"`
	URLs    []string `json:"urls,omitempty"`
	Message string   `json:"message"`
}
