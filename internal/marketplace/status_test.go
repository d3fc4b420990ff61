package marketplace

import "testing"

func TestCanTransition(t *testing.T) {
	all := []Status{StatusDraft, StatusOpen, StatusPendingOffer, StatusInProgress, StatusCompleted, StatusDeclined}
	allowed := map[[2]Status]bool{
		{StatusDraft, StatusOpen}:              true,
		{StatusOpen, StatusPendingOffer}:       true,
		{StatusOpen, StatusDeclined}:           true,
		{StatusPendingOffer, StatusInProgress}: true,
		{StatusPendingOffer, StatusDeclined}:   true,
		{StatusInProgress, StatusCompleted}:    true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusDeclined} {
		if !s.Terminal() {
			t.Errorf("expected %s terminal", s)
		}
		for _, to := range []Status{StatusDraft, StatusOpen, StatusPendingOffer, StatusInProgress} {
			if CanTransition(s, to) {
				t.Errorf("terminal %s must not move to %s", s, to)
			}
		}
	}
	if Status("archived").Valid() {
		t.Error("unknown status reported valid")
	}
}
