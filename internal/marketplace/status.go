package marketplace

type Status string

const (
	StatusDraft        Status = "draft"
	StatusOpen         Status = "open"
	StatusPendingOffer Status = "pending-offer"
	StatusInProgress   Status = "in-progress"
	StatusCompleted    Status = "completed"
	StatusDeclined     Status = "declined"
)

var transitions = map[Status][]Status{
	StatusDraft:        {StatusOpen},
	StatusOpen:         {StatusPendingOffer, StatusDeclined},
	StatusPendingOffer: {StatusInProgress, StatusDeclined},
	StatusInProgress:   {StatusCompleted},
}

// CanTransition reports whether from -> to is an edge of the job state
// machine. Staying in the same state is not a transition.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusOpen, StatusPendingOffer, StatusInProgress, StatusCompleted, StatusDeclined:
		return true
	}
	return false
}

// Terminal states accept no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusDeclined
}

// acceptsOffers is true while workers can still bid or be invited.
func (s Status) acceptsOffers() bool {
	return s == StatusOpen || s == StatusPendingOffer
}
