// Package lifecycle enforces the status state machines of ideas, scripts
// and posts.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"wavecrest-planner/models"
)

// ErrInvalidTransition is returned for any move the tables do not allow.
var ErrInvalidTransition = errors.New("invalid transition")

// Table maps a from-state to the states it may move to. Every state of the
// machine appears as a key; terminal states map to an empty list.
type Table[S ~string] map[S][]S

// Allows reports whether from -> to is an edge of the table.
func (t Table[S]) Allows(from, to S) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Has reports whether s is a state of the machine.
func (t Table[S]) Has(s S) bool {
	_, ok := t[s]
	return ok
}

// Terminal reports whether s has no outgoing edges.
func (t Table[S]) Terminal(s S) bool {
	return t.Has(s) && len(t[s]) == 0
}

var IdeaTransitions = Table[models.IdeaStatus]{
	models.IdeaNew:        {models.IdeaDeveloping, models.IdeaArchived},
	models.IdeaDeveloping: {models.IdeaSelected, models.IdeaArchived},
	models.IdeaSelected:   {models.IdeaArchived},
	models.IdeaArchived:   {},
}

// IdeaDemotions are the explicit backward moves. A Selected idea may go
// back to Developing or all the way to New.
var IdeaDemotions = Table[models.IdeaStatus]{
	models.IdeaSelected:   {models.IdeaDeveloping, models.IdeaNew},
	models.IdeaDeveloping: {models.IdeaNew},
}

var ScriptTransitions = Table[models.ScriptStatus]{
	models.ScriptDraft:    {models.ScriptSelected, models.ScriptArchived},
	models.ScriptSelected: {models.ScriptArchived},
	models.ScriptArchived: {},
}

var ScriptDemotions = Table[models.ScriptStatus]{
	models.ScriptSelected: {models.ScriptDraft},
}

var PostTransitions = Table[models.PostStatus]{
	models.PostPlanned:   {models.PostPublished, models.PostSkipped},
	models.PostPublished: {},
	models.PostSkipped:   {},
}

// check validates from -> to against the forward table, or the demotion
// table when demote is set.
func check[S ~string](forward, demotions Table[S], from, to S, demote bool) error {
	if !forward.Has(to) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if demote {
		if !demotions.Allows(from, to) {
			return fmt.Errorf("%w: cannot demote %s to %s", ErrInvalidTransition, from, to)
		}
		return nil
	}
	if !forward.Allows(from, to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func CheckIdea(from, to models.IdeaStatus, demote bool) error {
	return check(IdeaTransitions, IdeaDemotions, from, to, demote)
}

func CheckScript(from, to models.ScriptStatus, demote bool) error {
	return check(ScriptTransitions, ScriptDemotions, from, to, demote)
}

// CheckPost validates a post move. Publishing requires a now reference and a
// post date on or before that day.
func CheckPost(post *models.Post, to models.PostStatus, demote bool, now time.Time) error {
	if demote {
		return fmt.Errorf("%w: posts cannot be demoted", ErrInvalidTransition)
	}
	if err := check(PostTransitions, nil, post.Status, to, false); err != nil {
		return err
	}
	if to == models.PostPublished {
		if now.IsZero() {
			return fmt.Errorf("%w: publishing requires a now reference", ErrInvalidTransition)
		}
		if models.DateOf(post.Date).After(models.DateOf(now)) {
			return fmt.Errorf("%w: post dated %s cannot be published before %s",
				ErrInvalidTransition, post.Date.Format(models.DateLayout), models.DateOf(now).Format(models.DateLayout))
		}
	}
	return nil
}

// KnownStatus reports whether status is a state of kind's machine.
func KnownStatus(kind models.EntityKind, status string) bool {
	switch kind {
	case models.KindIdea:
		return IdeaTransitions.Has(models.IdeaStatus(status))
	case models.KindScript:
		return ScriptTransitions.Has(models.ScriptStatus(status))
	case models.KindPost:
		return PostTransitions.Has(models.PostStatus(status))
	}
	return false
}
