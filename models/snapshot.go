package models

import "time"

// MetricSnapshot is a performance reading handed in by the snapshot ingestor.
type MetricSnapshot struct {
	ID          string    `bson:"_id" json:"id"`
	Version     int64     `bson:"version" json:"version"`
	Date        time.Time `bson:"date" json:"date"`
	Platform    Platform  `bson:"platform" json:"platform"`
	PostID      string    `bson:"post_id,omitempty" json:"post_id,omitempty"`
	Impressions int64     `bson:"impressions" json:"impressions"`
	Engagements int64     `bson:"engagements" json:"engagements"`
}

// CompetitorSnapshot is a point-in-time reading of a competitor account.
type CompetitorSnapshot struct {
	ID              string    `bson:"_id" json:"id"`
	Version         int64     `bson:"version" json:"version"`
	CompetitorName  string    `bson:"competitor_name" json:"competitor_name"`
	Date            time.Time `bson:"date" json:"date"`
	FollowerCount   int64     `bson:"follower_count" json:"follower_count"`
	NotablePostURLs []string  `bson:"notable_post_urls,omitempty" json:"notable_post_urls,omitempty"`
}

// SnapshotSet bundles already-materialized external readings for a check.
type SnapshotSet struct {
	Metrics     []MetricSnapshot     `json:"metrics,omitempty"`
	Competitors []CompetitorSnapshot `json:"competitors,omitempty"`
}

func (s *MetricSnapshot) RecordID() string         { return s.ID }
func (s *MetricSnapshot) SetRecordID(id string)    { s.ID = id }
func (s *MetricSnapshot) RecordVersion() int64     { return s.Version }
func (s *MetricSnapshot) SetRecordVersion(v int64) { s.Version = v }

func (s *MetricSnapshot) SortKey() string {
	return DateOf(s.Date).Format(DateLayout) + "|" + s.ID
}

func (s *MetricSnapshot) Matches(f ListFilter) bool {
	if f.Platform != "" && f.Platform != s.Platform {
		return false
	}
	if f.SourceID != "" && f.SourceID != s.PostID {
		return false
	}
	return f.matchDate(s.Date)
}

func (s *MetricSnapshot) Clone() *MetricSnapshot {
	c := *s
	return &c
}

func (s *CompetitorSnapshot) RecordID() string         { return s.ID }
func (s *CompetitorSnapshot) SetRecordID(id string)    { s.ID = id }
func (s *CompetitorSnapshot) RecordVersion() int64     { return s.Version }
func (s *CompetitorSnapshot) SetRecordVersion(v int64) { s.Version = v }

func (s *CompetitorSnapshot) SortKey() string {
	return DateOf(s.Date).Format(DateLayout) + "|" + s.ID
}

func (s *CompetitorSnapshot) Matches(f ListFilter) bool {
	if f.SourceID != "" && f.SourceID != s.CompetitorName {
		return false
	}
	return f.matchDate(s.Date)
}

func (s *CompetitorSnapshot) Clone() *CompetitorSnapshot {
	c := *s
	if s.NotablePostURLs != nil {
		c.NotablePostURLs = append([]string(nil), s.NotablePostURLs...)
	}
	return &c
}
