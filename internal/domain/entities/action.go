package entities

// ActionStatus is the lifecycle position of a dual-control action node.
type ActionStatus string

const (
	ActionPendingApproval ActionStatus = "PendingApproval"
	ActionActive          ActionStatus = "Active"
	ActionPendingRetire   ActionStatus = "PendingRetire"
	ActionRetired         ActionStatus = "Retired"
	ActionUnknown         ActionStatus = "Unknown"
)

// ActionEdges records which audit edges an action node has.
type ActionEdges struct {
	AddedBy            bool
	AddAuthorisedBy    bool
	RemovedBy          bool
	RemoveAuthorisedBy bool
}

// DeriveActionStatus maps the presence of audit edges to a status.
// Only the four prefixes of the lifecycle are valid; anything else is Unknown.
func DeriveActionStatus(e ActionEdges) ActionStatus {
	switch e {
	case ActionEdges{AddedBy: true}:
		return ActionPendingApproval
	case ActionEdges{AddedBy: true, AddAuthorisedBy: true}:
		return ActionActive
	case ActionEdges{AddedBy: true, AddAuthorisedBy: true, RemovedBy: true}:
		return ActionPendingRetire
	case ActionEdges{AddedBy: true, AddAuthorisedBy: true, RemovedBy: true, RemoveAuthorisedBy: true}:
		return ActionRetired
	default:
		return ActionUnknown
	}
}

// ActionKind describes one family of togglable decisions.
type ActionKind struct {
	Name          string `json:"name"`
	SubjectLabel  string `json:"subject_label"`
	ActionRelType string `json:"action_rel_type"`
	ActionLabel   string `json:"action_label"`
}

// Built-in action kinds.
var (
	KindPathogenicity = ActionKind{
		Name:          "pathogenicity",
		SubjectLabel:  LabelVariant,
		ActionRelType: RelHasPathogenicity,
		ActionLabel:   LabelPathogenicity,
	}
	KindPanelMembership = ActionKind{
		Name:          "panel-membership",
		SubjectLabel:  LabelVirtualPanel,
		ActionRelType: RelHasMembershipAction,
		ActionLabel:   LabelPanelMembership,
	}
)

// ActionKinds lists every built-in kind.
var ActionKinds = []ActionKind{KindPathogenicity, KindPanelMembership}

// ActionKindByName looks up a kind by its name.
func ActionKindByName(name string) (ActionKind, bool) {
	for _, k := range ActionKinds {
		if k.Name == name {
			return k, true
		}
	}
	return ActionKind{}, false
}

// AuditStamp is one audit edge as seen by history consumers.
type AuditStamp struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Date     int64  `json:"date"`
	Evidence string `json:"evidence,omitempty"`
}

// ActionRecord is an action node with its derived status and audit trail.
type ActionRecord struct {
	ID             string         `json:"id"`
	SubjectID      string         `json:"subject_id"`
	Kind           string         `json:"kind"`
	Status         ActionStatus   `json:"status"`
	Classification Classification `json:"classification,omitempty"`
	Props          map[string]any `json:"props,omitempty"`
	Audit          []AuditStamp   `json:"audit"`
}
