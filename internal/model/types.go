package model

import "time"

// Kind discriminates the item variants subject to access control.
type Kind string

const (
	KindNote     Kind = "note"
	KindTodo     Kind = "todo"
	KindGoal     Kind = "goal"
	KindResource Kind = "resource"
)

// Valid reports whether k names a known item kind.
func (k Kind) Valid() bool {
	switch k {
	case KindNote, KindTodo, KindGoal, KindResource:
		return true
	}
	return false
}

// Visibility controls default readability of an item.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityTeam    Visibility = "team"
	VisibilityPublic  Visibility = "public"
)

// Principal is the authenticated actor attached to every request.
// Team memberships are derived through the membership index, never stored.
type Principal struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
}

// Collaborator grants a standing role on an item.
type Collaborator struct {
	UserID string `json:"user"`
	Role   string `json:"role"`
}

// Share is a one-off permission grant, distinct from collaboration.
type Share struct {
	UserID     string `json:"user"`
	Permission string `json:"permission"`
}

// Comment is an append-only subdocument on notes and resources.
type Comment struct {
	CommentID    string    `json:"commentId"`
	AuthorID     string    `json:"authorId"`
	Body         string    `json:"body"`
	CreationTime time.Time `json:"creationTime"`
}

// Milestone is a goal checkpoint; completing one fans out to collaborators.
type Milestone struct {
	MilestoneID string     `json:"milestoneId"`
	Title       string     `json:"title"`
	Done        bool       `json:"done"`
	DoneAt      *time.Time `json:"doneAt,omitempty"`
}

// Item is the polymorphic resource document. Access metadata is common to
// every kind; content fields apply per kind and are omitted when empty.
// CreatedBy is immutable and always implies full rights. Version increases
// by one on every successful write and backs optimistic concurrency.
type Item struct {
	ItemID        string         `json:"itemId"`
	Kind          Kind           `json:"kind"`
	CreatedBy     string         `json:"createdBy"`
	TeamID        *string        `json:"teamId,omitempty"`
	Visibility    Visibility     `json:"visibility"`
	Collaborators []Collaborator `json:"collaborators,omitempty"`
	SharedWith    []Share        `json:"sharedWith,omitempty"`

	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Comments    []Comment `json:"comments,omitempty"`

	// todo
	Assignee *string    `json:"assignee,omitempty"`
	Status   *string    `json:"status,omitempty"`
	Watchers []string   `json:"watchers,omitempty"`
	DueDate  *time.Time `json:"dueDate,omitempty"`

	// goal
	Milestones []Milestone `json:"milestones,omitempty"`

	// resource
	URL *string `json:"url,omitempty"`

	Version      int64     `json:"version"`
	CreationTime time.Time `json:"creationTime"`
	UpdateTime   time.Time `json:"updateTime"`
}

// TodoStatusDone is the terminal todo status that triggers task_completed.
const TodoStatusDone = "done"

// TeamMember relates a user to a team with a role.
type TeamMember struct {
	UserID string `json:"user"`
	Role   string `json:"role"`
}

const (
	TeamRoleMember = "member"
	TeamRoleAdmin  = "admin"
)

// Team groups users. The owner is an implicit admin-equivalent member and is
// not repeated in Members.
type Team struct {
	TeamID         string       `json:"teamId"`
	Name           string       `json:"name"`
	OwnerID        string       `json:"ownerId"`
	Members        []TeamMember `json:"members,omitempty"`
	InvitedMembers []string     `json:"invitedMembers,omitempty"`
	Version        int64        `json:"version"`
	CreationTime   time.Time    `json:"creationTime"`
	UpdateTime     time.Time    `json:"updateTime"`
}

// EventType classifies a detected state transition.
type EventType string

const (
	EventTaskAssigned     EventType = "task_assigned"
	EventTaskUpdated      EventType = "task_updated"
	EventTaskCompleted    EventType = "task_completed"
	EventGoalShared       EventType = "goal_shared"
	EventMilestoneReached EventType = "milestone_reached"
	EventNoteShared       EventType = "note_shared"
	EventResourceShared   EventType = "resource_shared"
	EventCommentAdded     EventType = "comment_added"
	EventTeamInvite       EventType = "team_invite"
	EventTeamLeave        EventType = "team_leave"
)

// Event is the in-memory record handed from the classifier to fan-out.
// It is persisted only as an outbox payload, never as a notification row.
// Recipients are candidate ids; fan-out drops the actor and dedupes again
// before building records.
type Event struct {
	Type       EventType         `json:"type"`
	ItemType   string            `json:"itemType"`
	ItemID     string            `json:"itemId"`
	ActorID    string            `json:"actorId"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Recipients []string          `json:"recipients"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// NotificationData carries the reference block embedded in a notification.
type NotificationData struct {
	ItemType string            `json:"itemType"`
	ItemID   string            `json:"itemId"`
	ActorID  string            `json:"actorId"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Notification is the persisted per-recipient record a client polls for.
// Content is immutable after creation; only the read flag and deletion are
// permitted, and only by the recipient.
type Notification struct {
	NotificationID string           `json:"notificationId"`
	Recipient      string           `json:"recipient"`
	Type           EventType        `json:"type"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	Data           NotificationData `json:"data"`
	IsRead         bool             `json:"isRead"`
	CreationTime   time.Time        `json:"creationTime"`
	ReadAt         *time.Time       `json:"readAt,omitempty"`
}

// Pagination is the envelope returned by list endpoints.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// ListItemsRequest captures filters used when listing items.
type ListItemsRequest struct {
	Kind   Kind
	TeamID *string
	Tag    *string
	Page   int
	Limit  int
}

// ListNotificationsRequest captures filters for the notification feed.
type ListNotificationsRequest struct {
	Recipient  string
	UnreadOnly bool
	Page       int
	Limit      int
}
