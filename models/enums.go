package models

import (
	"fmt"
	"strings"
)

// Pillar is a content category used to keep topical balance across a month.
type Pillar string

const (
	PillarEducation     Pillar = "Education"
	PillarAffirming     Pillar = "Affirming"
	PillarCommunity     Pillar = "Community"
	PillarClientStory   Pillar = "ClientStory"
	PillarTreatmentInfo Pillar = "TreatmentInfo"
)

// Pillars lists every pillar in reporting order.
var Pillars = []Pillar{
	PillarEducation,
	PillarAffirming,
	PillarCommunity,
	PillarClientStory,
	PillarTreatmentInfo,
}

func (p Pillar) Valid() bool {
	for _, known := range Pillars {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePillar accepts the canonical name in any case, plus the long display
// names used on the dashboard ("Affirming Messages", "Client Stories", ...).
func ParsePillar(s string) (Pillar, error) {
	key := strings.ToLower(strings.Join(strings.Fields(s), ""))
	switch key {
	case "education":
		return PillarEducation, nil
	case "affirming", "affirmingmessages":
		return PillarAffirming, nil
	case "community":
		return PillarCommunity, nil
	case "clientstory", "clientstories":
		return PillarClientStory, nil
	case "treatmentinfo", "treatment":
		return PillarTreatmentInfo, nil
	}
	return "", fmt.Errorf("unknown pillar %q", s)
}

// Platform is where a post is published. PlatformBoth occupies the Instagram
// and Facebook slots at once.
type Platform string

const (
	PlatformInstagram Platform = "Instagram"
	PlatformFacebook  Platform = "Facebook"
	PlatformBoth      Platform = "Both"
)

func (p Platform) Valid() bool {
	return p == PlatformInstagram || p == PlatformFacebook || p == PlatformBoth
}

// Slots expands a platform into the singular platforms it occupies.
func (p Platform) Slots() []Platform {
	switch p {
	case PlatformBoth:
		return []Platform{PlatformInstagram, PlatformFacebook}
	case PlatformInstagram, PlatformFacebook:
		return []Platform{p}
	}
	return nil
}

// Covers reports whether a post on p appears on the singular platform other.
func (p Platform) Covers(other Platform) bool {
	for _, s := range p.Slots() {
		if s == other {
			return true
		}
	}
	return false
}

func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "instagram", "ig":
		return PlatformInstagram, nil
	case "facebook", "fb":
		return PlatformFacebook, nil
	case "both":
		return PlatformBoth, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

type ContentType string

const (
	ContentStill          ContentType = "Still"
	ContentTherapistVideo ContentType = "TherapistVideo"
	ContentUGCVideo       ContentType = "UGCVideo"
	ContentCarousel       ContentType = "Carousel"
	ContentStory          ContentType = "Story"
)

var ContentTypes = []ContentType{
	ContentStill,
	ContentTherapistVideo,
	ContentUGCVideo,
	ContentCarousel,
	ContentStory,
}

func (c ContentType) Valid() bool {
	for _, known := range ContentTypes {
		if c == known {
			return true
		}
	}
	return false
}

func ParseContentType(s string) (ContentType, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	switch key {
	case "still", "stillimage":
		return ContentStill, nil
	case "therapistvideo":
		return ContentTherapistVideo, nil
	case "ugcvideo":
		return ContentUGCVideo, nil
	case "carousel":
		return ContentCarousel, nil
	case "story":
		return ContentStory, nil
	}
	return "", fmt.Errorf("unknown content type %q", s)
}

type ScriptSource string

const (
	SourceTherapist ScriptSource = "Therapist"
	SourceUGC       ScriptSource = "UGC"
)

func (s ScriptSource) Valid() bool {
	return s == SourceTherapist || s == SourceUGC
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Rank orders priorities high first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

type IdeaStatus string

const (
	IdeaNew        IdeaStatus = "New"
	IdeaDeveloping IdeaStatus = "Developing"
	IdeaSelected   IdeaStatus = "Selected"
	IdeaArchived   IdeaStatus = "Archived"
)

type ScriptStatus string

const (
	ScriptDraft    ScriptStatus = "Draft"
	ScriptSelected ScriptStatus = "Selected"
	ScriptArchived ScriptStatus = "Archived"
)

type PostStatus string

const (
	PostPlanned   PostStatus = "Planned"
	PostPublished PostStatus = "Published"
	PostSkipped   PostStatus = "Skipped"
)

// EntityKind names one of the plannable entity classes.
type EntityKind string

const (
	KindIdea   EntityKind = "idea"
	KindScript EntityKind = "script"
	KindPost   EntityKind = "post"
)

func ParseEntityKind(s string) (EntityKind, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s") {
	case "idea":
		return KindIdea, nil
	case "script":
		return KindScript, nil
	case "post":
		return KindPost, nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}
