// Package classify turns a before/after pair from a mutation into zero or
// more domain events. Classification is a pure function: no I/O, no clock,
// deterministic output order, so it can run inside the mutation transaction.
package classify

import (
	"fmt"

	"github.com/haventeam/haven/internal/model"
)

// Changes classifies an item mutation. before is nil for a freshly created
// item. Recipient lists inside each event are deduplicated; a principal who
// qualifies through several relations gets exactly one slot per event. The
// acting principal is excluded wherever a rule says so, and fan-out drops the
// actor again unconditionally as a backstop.
func Changes(before, after *model.Item, actor model.Principal) []model.Event {
	var events []model.Event

	events = append(events, sharedWithAdditions(before, after, actor)...)
	events = append(events, commentAdditions(before, after, actor)...)

	switch after.Kind {
	case model.KindTodo:
		events = append(events, assigneeTransitions(before, after, actor)...)
		events = append(events, statusTransitions(before, after, actor)...)
	case model.KindGoal:
		events = append(events, milestoneCompletions(before, after, actor)...)
	}
	return events
}

// TeamChanges classifies a team mutation.
func TeamChanges(before, after *model.Team, actor model.Principal) []model.Event {
	var events []model.Event

	// Newly invited users each get a team_invite.
	if added := addedStrings(invitedOf(before), after.InvitedMembers); len(added) > 0 {
		events = append(events, model.Event{
			Type:       model.EventTeamInvite,
			ItemType:   "team",
			ItemID:     after.TeamID,
			ActorID:    actor.ID,
			Title:      after.Name,
			Message:    fmt.Sprintf("%s invited you to the team %q", actorName(actor), after.Name),
			Recipients: dedupe(added, ""),
		})
	}

	// A member removing themselves notifies the owner.
	if before != nil {
		for _, m := range before.Members {
			if m.UserID != actor.ID {
				continue
			}
			if !hasMember(after.Members, actor.ID) {
				events = append(events, model.Event{
					Type:       model.EventTeamLeave,
					ItemType:   "team",
					ItemID:     after.TeamID,
					ActorID:    actor.ID,
					Title:      after.Name,
					Message:    fmt.Sprintf("%s left the team %q", actorName(actor), after.Name),
					Recipients: []string{after.OwnerID},
				})
			}
			break
		}
	}
	return events
}

func sharedWithAdditions(before, after *model.Item, actor model.Principal) []model.Event {
	var prior []model.Share
	if before != nil {
		prior = before.SharedWith
	}
	var added []string
	for _, s := range after.SharedWith {
		if !hasShare(prior, s.UserID) {
			added = append(added, s.UserID)
		}
	}
	if len(added) == 0 {
		return nil
	}
	return []model.Event{{
		Type:       sharedEventType(after.Kind),
		ItemType:   string(after.Kind),
		ItemID:     after.ItemID,
		ActorID:    actor.ID,
		Title:      after.Title,
		Message:    fmt.Sprintf("%s shared %q with you", actorName(actor), after.Title),
		Recipients: dedupe(added, ""),
	}}
}

func commentAdditions(before, after *model.Item, actor model.Principal) []model.Event {
	priorCount := 0
	if before != nil {
		priorCount = len(before.Comments)
	}
	if len(after.Comments) <= priorCount {
		return nil
	}
	// Everyone related to the item hears about a new comment, except the
	// commenter themselves.
	recipients := []string{after.CreatedBy}
	for _, c := range after.Collaborators {
		recipients = append(recipients, c.UserID)
	}
	for _, s := range after.SharedWith {
		recipients = append(recipients, s.UserID)
	}
	recipients = dedupe(recipients, actor.ID)
	if len(recipients) == 0 {
		return nil
	}
	return []model.Event{{
		Type:       model.EventCommentAdded,
		ItemType:   string(after.Kind),
		ItemID:     after.ItemID,
		ActorID:    actor.ID,
		Title:      after.Title,
		Message:    fmt.Sprintf("%s commented on %q", actorName(actor), after.Title),
		Recipients: recipients,
	}}
}

func assigneeTransitions(before, after *model.Item, actor model.Principal) []model.Event {
	var prev, next *string
	if before != nil {
		prev = before.Assignee
	}
	next = after.Assignee

	var events []model.Event
	if next != nil && (prev == nil || *prev != *next) {
		events = append(events, model.Event{
			Type:       model.EventTaskAssigned,
			ItemType:   string(after.Kind),
			ItemID:     after.ItemID,
			ActorID:    actor.ID,
			Title:      after.Title,
			Message:    fmt.Sprintf("%s assigned you to %q", actorName(actor), after.Title),
			Recipients: []string{*next},
		})
	}
	if prev != nil && (next == nil || *next != *prev) && *prev != actor.ID {
		events = append(events, model.Event{
			Type:       model.EventTaskUpdated,
			ItemType:   string(after.Kind),
			ItemID:     after.ItemID,
			ActorID:    actor.ID,
			Title:      after.Title,
			Message:    fmt.Sprintf("%s unassigned you from %q", actorName(actor), after.Title),
			Recipients: []string{*prev},
		})
	}
	return events
}

func statusTransitions(before, after *model.Item, actor model.Principal) []model.Event {
	var prev string
	if before != nil && before.Status != nil {
		prev = *before.Status
	}
	if after.Status == nil || *after.Status != model.TodoStatusDone || prev == model.TodoStatusDone {
		return nil
	}
	recipients := dedupe(after.Watchers, actor.ID)
	if len(recipients) == 0 {
		return nil
	}
	return []model.Event{{
		Type:       model.EventTaskCompleted,
		ItemType:   string(after.Kind),
		ItemID:     after.ItemID,
		ActorID:    actor.ID,
		Title:      after.Title,
		Message:    fmt.Sprintf("%s completed %q", actorName(actor), after.Title),
		Recipients: recipients,
	}}
}

func milestoneCompletions(before, after *model.Item, actor model.Principal) []model.Event {
	done := map[string]bool{}
	if before != nil {
		for _, m := range before.Milestones {
			done[m.MilestoneID] = m.Done
		}
	}
	var events []model.Event
	for _, m := range after.Milestones {
		if !m.Done || done[m.MilestoneID] {
			continue
		}
		var recipients []string
		for _, c := range after.Collaborators {
			recipients = append(recipients, c.UserID)
		}
		recipients = dedupe(recipients, actor.ID)
		if len(recipients) == 0 {
			continue
		}
		events = append(events, model.Event{
			Type:       model.EventMilestoneReached,
			ItemType:   string(after.Kind),
			ItemID:     after.ItemID,
			ActorID:    actor.ID,
			Title:      after.Title,
			Message:    fmt.Sprintf("Milestone %q reached on %q", m.Title, after.Title),
			Recipients: recipients,
			Metadata:   map[string]string{"milestoneId": m.MilestoneID},
		})
	}
	return events
}

func sharedEventType(kind model.Kind) model.EventType {
	switch kind {
	case model.KindGoal:
		return model.EventGoalShared
	case model.KindResource:
		return model.EventResourceShared
	default:
		return model.EventNoteShared
	}
}

func actorName(actor model.Principal) string {
	if actor.DisplayName != "" {
		return actor.DisplayName
	}
	return actor.ID
}

// dedupe preserves first-seen order, drops empty ids and the excluded id.
func dedupe(ids []string, exclude string) []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range ids {
		if id == "" || id == exclude || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func hasShare(shares []model.Share, userID string) bool {
	for _, s := range shares {
		if s.UserID == userID {
			return true
		}
	}
	return false
}

func hasMember(members []model.TeamMember, userID string) bool {
	for _, m := range members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func addedStrings(prior, current []string) []string {
	seen := map[string]bool{}
	for _, s := range prior {
		seen[s] = true
	}
	var out []string
	for _, s := range current {
		if !seen[s] {
			out = append(out, s)
		}
	}
	return out
}

func invitedOf(t *model.Team) []string {
	if t == nil {
		return nil
	}
	return t.InvitedMembers
}
