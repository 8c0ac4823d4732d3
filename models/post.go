package models

import (
	"strings"
	"time"
)

// Post is a dated calendar slot on one platform (or both). Source ids are
// weak references resolved through the store on demand.
type Post struct {
	ID             string      `bson:"_id" json:"id"`
	Version        int64       `bson:"version" json:"version"`
	Date           time.Time   `bson:"date" json:"date"`
	ScheduledTime  string      `bson:"scheduled_time,omitempty" json:"scheduled_time,omitempty"` // HH:MM
	Platform       Platform    `bson:"platform" json:"platform"`
	ContentType    ContentType `bson:"content_type" json:"content_type"`
	Pillar         Pillar      `bson:"pillar" json:"pillar"`
	Caption        string      `bson:"caption,omitempty" json:"caption,omitempty"`
	Hashtags       []string    `bson:"hashtags,omitempty" json:"hashtags,omitempty"`
	SourceScriptID string      `bson:"source_script_id,omitempty" json:"source_script_id,omitempty"`
	SourceIdeaID   string      `bson:"source_idea_id,omitempty" json:"source_idea_id,omitempty"`
	Status         PostStatus  `bson:"status" json:"status"`
	MediaPath      string      `bson:"media_path,omitempty" json:"media_path,omitempty"`
	Notes          string      `bson:"notes,omitempty" json:"notes,omitempty"`
	MetaPostID     string      `bson:"meta_post_id,omitempty" json:"meta_post_id,omitempty"`
	PublishedAt    *time.Time  `bson:"published_at,omitempty" json:"published_at,omitempty"`
	CreatedAt      time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `bson:"updated_at" json:"updated_at"`
}

// PostPatch carries a partial update. Caption, hashtags, scheduling and media
// fields are rejected on a Published post; Notes and MetaPostID are the
// metadata corrections still allowed there.
type PostPatch struct {
	Version       int64        `json:"version" binding:"required"`
	Date          *string      `json:"date,omitempty"`
	ScheduledTime *string      `json:"scheduled_time,omitempty"`
	Platform      *Platform    `json:"platform,omitempty"`
	ContentType   *ContentType `json:"content_type,omitempty"`
	Caption       *string      `json:"caption,omitempty"`
	Hashtags      []string     `json:"hashtags,omitempty"`
	MediaPath     *string      `json:"media_path,omitempty"`
	Notes         *string      `json:"notes,omitempty"`
	MetaPostID    *string      `json:"meta_post_id,omitempty"`
}

// TouchesContent reports whether the patch changes anything beyond the
// metadata corrections.
func (p PostPatch) TouchesContent() bool {
	return p.Date != nil || p.ScheduledTime != nil || p.Platform != nil ||
		p.ContentType != nil || p.Caption != nil || p.Hashtags != nil || p.MediaPath != nil
}

// Active reports whether the post counts toward the plan.
func (p *Post) Active() bool { return p.Status != PostSkipped }

func (p *Post) RecordID() string         { return p.ID }
func (p *Post) SetRecordID(id string)    { p.ID = id }
func (p *Post) RecordVersion() int64     { return p.Version }
func (p *Post) SetRecordVersion(v int64) { p.Version = v }

func (p *Post) SortKey() string {
	return DateOf(p.Date).Format(DateLayout) + "|" + p.ID
}

func (p *Post) Matches(f ListFilter) bool {
	if f.Platform != "" && f.Platform != p.Platform {
		return false
	}
	if f.SourceID != "" && f.SourceID != p.SourceScriptID && f.SourceID != p.SourceIdeaID {
		return false
	}
	return f.matchStatus(string(p.Status)) && f.matchPillar(p.Pillar) && f.matchDate(p.Date)
}

func (p *Post) Clone() *Post {
	c := *p
	if p.Hashtags != nil {
		c.Hashtags = append([]string(nil), p.Hashtags...)
	}
	if p.PublishedAt != nil {
		at := *p.PublishedAt
		c.PublishedAt = &at
	}
	return &c
}

// NormalizeHashtags trims tags, prefixes '#', and drops repeats
// (case-insensitive) while keeping first-seen order.
func NormalizeHashtags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		for _, tag := range strings.Fields(strings.ReplaceAll(raw, ",", " ")) {
			tag = "#" + strings.TrimLeft(tag, "#")
			if tag == "#" {
				continue
			}
			key := strings.ToLower(tag)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, tag)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
