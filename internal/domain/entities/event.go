package entities

// EventStatus is the resolution state of one event in a subject's chain.
type EventStatus string

const (
	EventPendingAuth EventStatus = "PendingAuth"
	EventActive      EventStatus = "Active"
	EventRejected    EventStatus = "Rejected"
)

// EventRecord is an event node with its derived status.
type EventRecord struct {
	ID        string         `json:"id"`
	Label     string         `json:"label"`
	SubjectID string         `json:"subject_id"`
	Position  int            `json:"position"`
	Status    EventStatus    `json:"status"`
	Props     map[string]any `json:"props,omitempty"`
	Audit     []AuditStamp   `json:"audit"`
}

// EventLabels lists the event labels the chain engine accepts.
var EventLabels = []string{LabelVariantEvent, LabelFeatureEvent, LabelSymbolEvent, LabelPanelEvent}

// IsEventLabel reports whether label names an event node.
func IsEventLabel(label string) bool {
	for _, l := range EventLabels {
		if l == label {
			return true
		}
	}
	return false
}
