package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// TransitionRequest asks the lifecycle manager to move one entity to a new
// status. ExpectedVersion is the version the caller last read; zero skips the
// pre-check but the store still guards the write itself.
type TransitionRequest struct {
	Kind            EntityKind `json:"kind" binding:"required"`
	ID              string     `json:"id" binding:"required"`
	To              string     `json:"to" binding:"required"`
	ExpectedVersion int64      `json:"expected_version,omitempty"`
	Demote          bool       `json:"demote,omitempty"`
	Now             time.Time  `json:"now,omitempty"`
	Actor           string     `json:"actor,omitempty"`
	Reason          string     `json:"reason,omitempty"`
}

// TransitionResult is returned for every applied transition.
type TransitionResult struct {
	Kind    EntityKind `json:"kind"`
	ID      string     `json:"id"`
	From    string     `json:"from"`
	To      string     `json:"to"`
	Version int64      `json:"version"`
	Demoted bool       `json:"demoted,omitempty"`
	At      time.Time  `json:"at"`
}

// TransitionEvent is an insert-only log entry. Events for one entity form a
// hash chain so a rewritten history is detectable.
type TransitionEvent struct {
	ID           string     `bson:"_id" json:"id"`
	Version      int64      `bson:"version" json:"version"`
	Kind         EntityKind `bson:"kind" json:"kind"`
	EntityID     string     `bson:"entity_id" json:"entity_id"`
	From         string     `bson:"from" json:"from"`
	To           string     `bson:"to" json:"to"`
	Demoted      bool       `bson:"demoted" json:"demoted"`
	Actor        string     `bson:"actor,omitempty" json:"actor,omitempty"`
	Reason       string     `bson:"reason,omitempty" json:"reason,omitempty"`
	At           time.Time  `bson:"at" json:"at"`
	PreviousHash string     `bson:"previous_hash" json:"previous_hash"`
	CurrentHash  string     `bson:"current_hash" json:"current_hash"`
}

// ComputeHash hashes the event contents together with the previous hash.
func (e *TransitionEvent) ComputeHash() string {
	data := fmt.Sprintf("%s|%s|%s|%s|%t|%s|%s|%s",
		e.Kind,
		e.EntityID,
		e.From,
		e.To,
		e.Demoted,
		e.Actor,
		e.At.UTC().Format(time.RFC3339Nano),
		e.PreviousHash,
	)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

func (e *TransitionEvent) RecordID() string         { return e.ID }
func (e *TransitionEvent) SetRecordID(id string)    { e.ID = id }
func (e *TransitionEvent) RecordVersion() int64     { return e.Version }
func (e *TransitionEvent) SetRecordVersion(v int64) { e.Version = v }
func (e *TransitionEvent) SortKey() string          { return e.ID }

func (e *TransitionEvent) Matches(f ListFilter) bool {
	if f.SourceID != "" && f.SourceID != e.EntityID {
		return false
	}
	return f.matchDate(e.At)
}

func (e *TransitionEvent) Clone() *TransitionEvent {
	c := *e
	return &c
}
