package gateway

import (
	"time"

	"github.com/google/uuid"

	"github.com/haventeam/haven/internal/model"
)

// Patch is a partial update to an item. Nil fields are left untouched.
// BaseVersion, when set, is the version the client read before editing; the
// write is rejected with Conflict if the stored version moved on. When unset
// the loaded version is used, so the compare-and-swap still catches writers
// racing within the same request.
type Patch struct {
	BaseVersion *int64 `json:"baseVersion,omitempty"`

	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	Tags        *[]string         `json:"tags,omitempty"`
	Visibility  *model.Visibility `json:"visibility,omitempty"`
	TeamID      *string           `json:"teamId,omitempty"`

	Collaborators *[]model.Collaborator `json:"collaborators,omitempty"`
	SharedWith    *[]model.Share        `json:"sharedWith,omitempty"`

	Assignee      *string    `json:"assignee,omitempty"`
	ClearAssignee bool       `json:"clearAssignee,omitempty"`
	Status        *string    `json:"status,omitempty"`
	Watchers      *[]string  `json:"watchers,omitempty"`
	DueDate       *time.Time `json:"dueDate,omitempty"`

	Milestones *[]model.Milestone `json:"milestones,omitempty"`

	URL *string `json:"url,omitempty"`

	AddComment *CommentInput `json:"addComment,omitempty"`
}

// CommentInput is an append-only comment carried by a patch.
type CommentInput struct {
	Body string `json:"body"`
}

// commentOnly reports whether the patch does nothing but append a comment.
// Such patches are admissible under the comment action alone, which explicit
// "comment" shares grant without general write access.
func (p *Patch) commentOnly() bool {
	return p.AddComment != nil &&
		p.Title == nil && p.Description == nil && p.Tags == nil &&
		p.Visibility == nil && p.TeamID == nil &&
		p.Collaborators == nil && p.SharedWith == nil &&
		p.Assignee == nil && !p.ClearAssignee && p.Status == nil &&
		p.Watchers == nil && p.DueDate == nil && p.Milestones == nil &&
		p.URL == nil
}

// changesACL reports whether the patch touches fields that administer who can
// access the item, which require the manage grant held only by the owner.
func (p *Patch) changesACL() bool {
	return p.Collaborators != nil || p.SharedWith != nil || p.Visibility != nil || p.TeamID != nil
}

// apply copies the item and overlays the patch. CreatedBy, Kind and ItemID
// are immutable and never touched.
func (p *Patch) apply(before *model.Item, actor model.Principal, now time.Time) *model.Item {
	after := *before
	after.Collaborators = append([]model.Collaborator(nil), before.Collaborators...)
	after.SharedWith = append([]model.Share(nil), before.SharedWith...)
	after.Tags = append([]string(nil), before.Tags...)
	after.Comments = append([]model.Comment(nil), before.Comments...)
	after.Watchers = append([]string(nil), before.Watchers...)
	after.Milestones = append([]model.Milestone(nil), before.Milestones...)

	if p.Title != nil {
		after.Title = *p.Title
	}
	if p.Description != nil {
		after.Description = p.Description
	}
	if p.Tags != nil {
		after.Tags = *p.Tags
	}
	if p.Visibility != nil {
		after.Visibility = *p.Visibility
	}
	if p.TeamID != nil {
		if *p.TeamID == "" {
			after.TeamID = nil
		} else {
			after.TeamID = p.TeamID
		}
	}
	if p.Collaborators != nil {
		after.Collaborators = *p.Collaborators
	}
	if p.SharedWith != nil {
		after.SharedWith = *p.SharedWith
	}
	if p.ClearAssignee {
		after.Assignee = nil
	} else if p.Assignee != nil {
		after.Assignee = p.Assignee
	}
	if p.Status != nil {
		after.Status = p.Status
	}
	if p.Watchers != nil {
		after.Watchers = *p.Watchers
	}
	if p.DueDate != nil {
		after.DueDate = p.DueDate
	}
	if p.Milestones != nil {
		prior := map[string]bool{}
		for _, m := range before.Milestones {
			prior[m.MilestoneID] = m.Done
		}
		next := append([]model.Milestone(nil), (*p.Milestones)...)
		for i := range next {
			if next[i].MilestoneID == "" {
				next[i].MilestoneID = uuid.New().String()
			}
			if next[i].Done && !prior[next[i].MilestoneID] && next[i].DoneAt == nil {
				t := now
				next[i].DoneAt = &t
			}
		}
		after.Milestones = next
	}
	if p.URL != nil {
		after.URL = p.URL
	}
	if p.AddComment != nil {
		after.Comments = append(after.Comments, model.Comment{
			CommentID:    uuid.New().String(),
			AuthorID:     actor.ID,
			Body:         p.AddComment.Body,
			CreationTime: now,
		})
	}
	return &after
}
