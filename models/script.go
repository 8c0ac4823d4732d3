package models

import "time"

// Script is a recorded therapist interview or creator submission that can be
// promoted into a post.
type Script struct {
	ID           string       `bson:"_id" json:"id"`
	Version      int64        `bson:"version" json:"version"`
	Title        string       `bson:"title" json:"title"`
	Body         string       `bson:"body,omitempty" json:"body,omitempty"`
	Pillar       Pillar       `bson:"pillar" json:"pillar"`
	Source       ScriptSource `bson:"source" json:"source"`
	ScriptType   string       `bson:"script_type,omitempty" json:"script_type,omitempty"`
	SessionDate  time.Time    `bson:"session_date" json:"session_date"`
	Status       ScriptStatus `bson:"status" json:"status"`
	LinkedIdeaID string       `bson:"linked_idea_id,omitempty" json:"linked_idea_id,omitempty"`
	Notes        string       `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt    time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `bson:"updated_at" json:"updated_at"`
}

type CreateScriptRequest struct {
	Title        string       `json:"title" binding:"required,min=2,max=300"`
	Body         string       `json:"body,omitempty"`
	Pillar       Pillar       `json:"pillar" binding:"required"`
	Source       ScriptSource `json:"source" binding:"required"`
	ScriptType   string       `json:"script_type,omitempty"`
	SessionDate  string       `json:"session_date,omitempty"` // YYYY-MM-DD
	LinkedIdeaID string       `json:"linked_idea_id,omitempty"`
	Notes        string       `json:"notes,omitempty"`
}

func (s *Script) RecordID() string         { return s.ID }
func (s *Script) SetRecordID(id string)    { s.ID = id }
func (s *Script) RecordVersion() int64     { return s.Version }
func (s *Script) SetRecordVersion(v int64) { s.Version = v }
func (s *Script) SortKey() string          { return s.ID }

func (s *Script) Matches(f ListFilter) bool {
	if f.SourceID != "" && f.SourceID != s.LinkedIdeaID {
		return false
	}
	return f.matchStatus(string(s.Status)) && f.matchPillar(s.Pillar) && f.matchDate(s.SessionDate)
}

func (s *Script) Clone() *Script {
	c := *s
	return &c
}
