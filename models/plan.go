package models

import (
	"time"
)

// MonthlyPlan is the derived set of posts dated inside Month. LeadIn and
// LeadOut are the nearest active post dates outside the month, when known,
// so gap checks can run across the month edges.
type MonthlyPlan struct {
	Month   Month      `json:"month"`
	Posts   []Post     `json:"posts"`
	LeadIn  *time.Time `json:"lead_in,omitempty"`
	LeadOut *time.Time `json:"lead_out,omitempty"`
}

// FrequencyRange is a target number of posts per calendar week.
type FrequencyRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Candidate is one caller-decided placement handed to the calendar builder.
// The builder never picks dates, platforms or pillars on its own.
type Candidate struct {
	SourceScriptID string      `json:"source_script_id,omitempty"`
	SourceIdeaID   string      `json:"source_idea_id,omitempty"`
	Date           string      `json:"date"` // YYYY-MM-DD
	ScheduledTime  string      `json:"scheduled_time,omitempty"`
	Platform       Platform    `json:"platform"`
	ContentType    ContentType `json:"content_type"`
	Pillar         Pillar      `json:"pillar,omitempty"`
	Caption        string      `json:"caption,omitempty"`
	Hashtags       []string    `json:"hashtags,omitempty"`
	MediaPath      string      `json:"media_path,omitempty"`
	Notes          string      `json:"notes,omitempty"`
}

type BuildRequest struct {
	Month      Month          `json:"month"`
	Candidates []Candidate    `json:"candidates"`
	Frequency  FrequencyRange `json:"frequency"`
}

// WarningKind classifies a placement warning.
type WarningKind string

const (
	WarnCollision         WarningKind = "collision"
	WarnSourceNotSelected WarningKind = "source_not_selected"
	WarnSourceNotFound    WarningKind = "source_not_found"
	WarnMissingSource     WarningKind = "missing_source"
	WarnPillarMismatch    WarningKind = "pillar_mismatch"
	WarnOutOfMonth        WarningKind = "out_of_month"
	WarnInvalidCandidate  WarningKind = "invalid_candidate"
	WarnFrequencyLow      WarningKind = "frequency_low"
	WarnFrequencyHigh     WarningKind = "frequency_high"
)

// PlacementWarning is advisory; the caller decides whether to act on it.
type PlacementWarning struct {
	Kind           WarningKind `json:"kind"`
	CandidateIndex int         `json:"candidate_index"` // -1 for plan-wide warnings
	Date           *time.Time  `json:"date,omitempty"`
	Platform       Platform    `json:"platform,omitempty"`
	PostID         string      `json:"post_id,omitempty"`
	ConflictingIDs []string    `json:"conflicting_ids,omitempty"`
	Message        string      `json:"message"`
}

// Rejection identifies a candidate that was not placed.
type Rejection struct {
	CandidateIndex int         `json:"candidate_index"`
	SourceScriptID string      `json:"source_script_id,omitempty"`
	SourceIdeaID   string      `json:"source_idea_id,omitempty"`
	Reason         WarningKind `json:"reason"`
	Error          string      `json:"error"`
}

type BuildResult struct {
	Plan     MonthlyPlan        `json:"plan"`
	Created  []string           `json:"created"`
	Rejected []Rejection        `json:"rejected"`
	Warnings []PlacementWarning `json:"warnings"`
}

// IsZero reports an unset range, which disables frequency checks.
func (r FrequencyRange) IsZero() bool { return r.Min == 0 && r.Max == 0 }

// MinFor scales the weekly minimum down for a partial week of days days.
func (r FrequencyRange) MinFor(days int) int {
	if days >= 7 {
		return r.Min
	}
	return r.Min * days / 7
}
