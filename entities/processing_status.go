package entities

// ProcessingStatus is the lifecycle of a TrackedEntry from capture to analysed.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "Pending"
	StatusProcessing ProcessingStatus = "Processing"
	StatusCompleted  ProcessingStatus = "Completed"
	StatusFailed     ProcessingStatus = "Failed"
	StatusSkipped    ProcessingStatus = "Skipped"
)

var allowedTransitions = map[ProcessingStatus][]ProcessingStatus{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusSkipped, StatusPending},
	StatusFailed:     {StatusProcessing},
	StatusSkipped:    {StatusProcessing},
}

// AllStatuses lists every status in lifecycle order.
func AllStatuses() []ProcessingStatus {
	return []ProcessingStatus{StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusSkipped}
}

func (s ProcessingStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// IsTerminal reports whether no further automatic transition follows s.
func (s ProcessingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// IsRetryable reports whether a user may re-run analysis from s.
func (s ProcessingStatus) IsRetryable() bool {
	return s == StatusFailed || s == StatusSkipped
}

// CanTransitionTo reports whether s -> next is a legal move.
// Processing -> Pending is reserved for recovery and cancellation.
func (s ProcessingStatus) CanTransitionTo(next ProcessingStatus) bool {
	for _, candidate := range allowedTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}
