package domain

import "testing"

func TestValidateTransition(t *testing.T) {
	cases := []struct {
		current Status
		target  Status
		allowed bool
	}{
		{StatusReceived, StatusConfirmed, true},
		{StatusReceived, StatusCancelled, true},
		{StatusReceived, StatusPreparing, false},
		{StatusReceived, StatusCompleted, false},
		{StatusConfirmed, StatusPreparing, true},
		{StatusConfirmed, StatusCompleted, false},
		{StatusPreparing, StatusReady, true},
		{StatusPreparing, StatusOutForDelivery, false},
		{StatusReady, StatusOutForDelivery, true},
		{StatusOutForDelivery, StatusCompleted, true},
		{StatusOutForDelivery, StatusCancelled, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusReceived, false},
		// A status can never transition to itself.
		{StatusConfirmed, StatusConfirmed, false},
		{StatusCompleted, StatusCompleted, false},
	}

	for _, tc := range cases {
		if got := ValidateTransition(tc.current, tc.target); got != tc.allowed {
			t.Errorf("ValidateTransition(%s, %s) = %v, want %v", tc.current, tc.target, got, tc.allowed)
		}
	}
}

func TestAllowedNext(t *testing.T) {
	allowed := AllowedNext(StatusConfirmed)
	want := map[Status]bool{StatusPreparing: true, StatusCancelled: true}
	if len(allowed) != len(want) {
		t.Fatalf("AllowedNext(CONFIRMED) = %v, want PREPARING and CANCELLED", allowed)
	}
	for _, status := range allowed {
		if !want[status] {
			t.Fatalf("AllowedNext(CONFIRMED) contains unexpected %s", status)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusCancelled} {
		if !Terminal(status) {
			t.Errorf("Terminal(%s) = false, want true", status)
		}
	}
	for _, status := range []Status{StatusReceived, StatusConfirmed, StatusPreparing, StatusReady, StatusOutForDelivery} {
		if Terminal(status) {
			t.Errorf("Terminal(%s) = true, want false", status)
		}
	}
}
