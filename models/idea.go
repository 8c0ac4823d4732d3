package models

import "time"

// Idea is a raw content idea in the idea bank. Ideas are archived, never
// deleted.
type Idea struct {
	ID                string     `bson:"_id" json:"id"`
	Version           int64      `bson:"version" json:"version"`
	Title             string     `bson:"title" json:"title"`
	Pillar            Pillar     `bson:"pillar" json:"pillar"`
	Priority          Priority   `bson:"priority" json:"priority"`
	Status            IdeaStatus `bson:"status" json:"status"`
	ContentType       string     `bson:"content_type,omitempty" json:"content_type,omitempty"`
	InspirationSource string     `bson:"inspiration_source,omitempty" json:"inspiration_source,omitempty"`
	InspirationURL    string     `bson:"inspiration_url,omitempty" json:"inspiration_url,omitempty"`
	Notes             string     `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt         time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `bson:"updated_at" json:"updated_at"`
}

type CreateIdeaRequest struct {
	Title             string   `json:"title" binding:"required,min=2,max=300"`
	Pillar            Pillar   `json:"pillar" binding:"required"`
	Priority          Priority `json:"priority,omitempty"`
	ContentType       string   `json:"content_type,omitempty"`
	InspirationSource string   `json:"inspiration_source,omitempty"`
	InspirationURL    string   `json:"inspiration_url,omitempty"`
	Notes             string   `json:"notes,omitempty"`
}

func (i *Idea) RecordID() string         { return i.ID }
func (i *Idea) SetRecordID(id string)    { i.ID = id }
func (i *Idea) RecordVersion() int64     { return i.Version }
func (i *Idea) SetRecordVersion(v int64) { i.Version = v }
func (i *Idea) SortKey() string          { return i.ID }

func (i *Idea) Matches(f ListFilter) bool {
	return f.matchStatus(string(i.Status)) && f.matchPillar(i.Pillar) && f.matchDate(i.CreatedAt)
}

func (i *Idea) Clone() *Idea {
	c := *i
	return &c
}
