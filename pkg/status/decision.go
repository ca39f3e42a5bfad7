package status

// Reason explains a notification decision.
type Reason string

const (
	ReasonChanged Reason = "changed"
	ReasonStale   Reason = "stale"
	ReasonNone    Reason = "none"
)

// Decision is handed to the notification delivery collaborator.
type Decision struct {
	Notify              bool   `json:"notify"`
	Reason              Reason `json:"reason"`
	StatusFingerprint   string `json:"statusFingerprint"`
	PreviousFingerprint string `json:"previousFingerprint"`
	PreviousTimestamp   int64  `json:"previousTimestamp"`
}

// Decide maps the change and staleness checks to a notification intent.
// A change wins over staleness when both hold.
func Decide(changed, stale bool) (bool, Reason) {
	switch {
	case changed:
		return true, ReasonChanged
	case stale:
		return true, ReasonStale
	default:
		return false, ReasonNone
	}
}
