// Package policy computes whether a principal may perform an action on an
// item. Authorization is the union of independent grant rules (ownership,
// collaborator role, explicit share, team membership, public visibility)
// evaluated against a declarative per-kind rule table, replacing the ad hoc
// per-entity query filters this logic grew out of.
package policy

import "github.com/haventeam/haven/internal/model"

// Action names an operation a principal can request on an item.
type Action string

const (
	ActionRead    Action = "read"
	ActionWrite   Action = "write"
	ActionComment Action = "comment"
	ActionDelete  Action = "delete"
	ActionManage  Action = "manage"
)

// ActionSet is a bitmask of granted actions.
type ActionSet uint8

const (
	setRead ActionSet = 1 << iota
	setWrite
	setComment
	setDelete
	setManage
)

func bit(a Action) ActionSet {
	switch a {
	case ActionRead:
		return setRead
	case ActionWrite:
		return setWrite
	case ActionComment:
		return setComment
	case ActionDelete:
		return setDelete
	case ActionManage:
		return setManage
	}
	return 0
}

// Allows reports whether the set grants the action. Write subsumes comment:
// anyone allowed to edit an item may also comment on it.
func (s ActionSet) Allows(a Action) bool {
	if a == ActionComment && s&setWrite != 0 {
		return true
	}
	return s&bit(a) != 0
}

// Capability is the generic three-tier grant level that the per-kind role
// vocabularies collapse onto.
type Capability int

const (
	CapabilityRead Capability = iota + 1
	CapabilityContribute
	CapabilityAdminister
)

// Actions expands a capability tier into concrete actions. Administer stops
// short of manage: only ownership grants manage.
func (c Capability) Actions() ActionSet {
	switch c {
	case CapabilityRead:
		return setRead
	case CapabilityContribute:
		return setRead | setWrite | setComment
	case CapabilityAdminister:
		return setRead | setWrite | setComment | setDelete
	}
	return 0
}

const ownerActions = setRead | setWrite | setComment | setDelete | setManage

// Rules is the per-kind rule table: stored collaborator role strings map to
// capability tiers, share permission strings map to action sets, and
// TeamWrite marks kinds whose product rules allow team-wide write.
type Rules struct {
	Roles       map[string]Capability
	Permissions map[string]ActionSet
	TeamWrite   bool
}

// sharePermissions is shared by all kinds: read→view, comment→view plus the
// implicit comment write, edit→full content write.
var sharePermissions = map[string]ActionSet{
	"read":    setRead,
	"comment": setRead | setComment,
	"edit":    setRead | setWrite | setComment,
}

var rulesByKind = map[model.Kind]Rules{
	model.KindNote: {
		Roles:       map[string]Capability{"viewer": CapabilityRead, "editor": CapabilityContribute, "admin": CapabilityAdminister},
		Permissions: sharePermissions,
	},
	model.KindTodo: {
		Roles:       map[string]Capability{"viewer": CapabilityRead, "editor": CapabilityContribute, "admin": CapabilityAdminister},
		Permissions: sharePermissions,
		TeamWrite:   true,
	},
	model.KindGoal: {
		Roles:       map[string]Capability{"viewer": CapabilityRead, "contributor": CapabilityContribute, "owner": CapabilityAdminister},
		Permissions: sharePermissions,
	},
	model.KindResource: {
		Roles:       map[string]Capability{"viewer": CapabilityRead, "editor": CapabilityContribute, "admin": CapabilityAdminister},
		Permissions: sharePermissions,
	},
}

// RulesFor returns the rule table for a kind.
func RulesFor(kind model.Kind) Rules { return rulesByKind[kind] }
