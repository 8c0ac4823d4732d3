package models

import (
	"time"
)

// Record is implemented by every entity persisted through the entity store.
// T is the pointer type itself so Clone can return a detached copy.
type Record[T any] interface {
	RecordID() string
	SetRecordID(id string)
	RecordVersion() int64
	SetRecordVersion(v int64)
	Matches(f ListFilter) bool
	SortKey() string
	Clone() T
}

// ListFilter narrows a list query. Zero-valued fields do not filter.
// From and To are inclusive and apply to the entity's primary date
// (post date, script session date, idea creation date, snapshot date).
type ListFilter struct {
	Status        string    `json:"status,omitempty" form:"status"`
	ExcludeStatus string    `json:"exclude_status,omitempty" form:"exclude_status"`
	Pillar        Pillar    `json:"pillar,omitempty" form:"pillar"`
	Platform      Platform  `json:"platform,omitempty" form:"platform"`
	SourceID      string    `json:"source_id,omitempty" form:"source_id"`
	From          time.Time `json:"from,omitempty" form:"-"`
	To            time.Time `json:"to,omitempty" form:"-"`
}

// MonthFilter limits a list to the days of m.
func MonthFilter(m Month) ListFilter {
	return ListFilter{From: m.First(), To: m.Last()}
}

func (f ListFilter) matchStatus(status string) bool {
	if f.Status != "" && f.Status != status {
		return false
	}
	if f.ExcludeStatus != "" && f.ExcludeStatus == status {
		return false
	}
	return true
}

func (f ListFilter) matchDate(t time.Time) bool {
	d := DateOf(t)
	if !f.From.IsZero() && d.Before(DateOf(f.From)) {
		return false
	}
	if !f.To.IsZero() && d.After(DateOf(f.To)) {
		return false
	}
	return true
}

func (f ListFilter) matchPillar(p Pillar) bool {
	return f.Pillar == "" || f.Pillar == p
}
