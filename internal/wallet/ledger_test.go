package wallet

import "testing"

func TestPayoutFallsBackToBudget(t *testing.T) {
	tests := []struct {
		offer, budget, want int64
	}{
		{offer: 900, budget: 1200, want: 900},
		{offer: 0, budget: 1200, want: 1200},
		{offer: -5, budget: 1200, want: 1200},
	}
	for _, tt := range tests {
		if got := Payout(tt.offer, tt.budget); got != tt.want {
			t.Errorf("Payout(%d, %d) = %d, want %d", tt.offer, tt.budget, got, tt.want)
		}
	}
}

func TestPendingTotalMatchesPayout(t *testing.T) {
	jobs := []pendingJob{
		{offerAmount: 900, budget: 1200},
		// an accepted invitation with no amount is paid at budget
		{offerAmount: 0, budget: 650},
	}
	if got := pendingTotal(jobs); got != 1550 {
		t.Fatalf("pendingTotal = %d, want 1550", got)
	}
	if got := pendingTotal(nil); got != 0 {
		t.Fatalf("empty pendingTotal = %d", got)
	}
}
