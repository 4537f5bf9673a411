package models

import (
	"testing"
)

func TestStatusRoundTrip(t *testing.T) {
	for _, status := range []RequestStatus{
		RequestStatus_Pending,
		RequestStatus_Accepted,
		RequestStatus_Completed,
		RequestStatus_Cancelled,
	} {
		t.Run(status.String(), func(t *testing.T) {
			token := status.BackendToken()
			if len(token) == 0 {
				t.Fatalf("no backend token for status %s", status)
			}
			parsed, found := ParseRequestStatus(token)
			if !found {
				t.Fatalf("token %q did not parse", token)
			}
			if parsed != status {
				t.Errorf("round trip mismatch: found=%s, expected=%s", parsed, status)
			}
		})
	}
}

func TestParseRequestStatus(t *testing.T) {
	tests := map[string]struct {
		token         string
		expected      RequestStatus
		expectedFound bool
	}{
		"pending token":     {token: "pendiente", expected: RequestStatus_Pending, expectedFound: true},
		"accepted token":    {token: "aceptado", expected: RequestStatus_Accepted, expectedFound: true},
		"completed token":   {token: "finalizado", expected: RequestStatus_Completed, expectedFound: true},
		"cancelled token":   {token: "cancelado", expected: RequestStatus_Cancelled, expectedFound: true},
		"unknown token":     {token: "en_proceso", expected: RequestStatus_Pending, expectedFound: false},
		"empty token":       {token: "", expected: RequestStatus_Pending, expectedFound: false},
		"internal spelling": {token: "accepted", expected: RequestStatus_Pending, expectedFound: false},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			status, found := ParseRequestStatus(test.token)
			if found != test.expectedFound {
				t.Errorf("incorrect found flag: found=%v, expected=%v", found, test.expectedFound)
			}
			if status != test.expected {
				t.Errorf("incorrect status: found=%s, expected=%s", status, test.expected)
			}
			// The lenient variant always lands on a valid status
			if fallback := RequestStatusFromBackend(test.token); fallback != test.expected {
				t.Errorf("incorrect fallback status: found=%s, expected=%s", fallback, test.expected)
			}
		})
	}
}

func TestPresentationFor(t *testing.T) {
	for _, status := range []RequestStatus{
		RequestStatus_Pending,
		RequestStatus_Accepted,
		RequestStatus_Completed,
		RequestStatus_Cancelled,
	} {
		t.Run(status.String(), func(t *testing.T) {
			p := PresentationFor(status)
			if len(p.Label) == 0 || len(p.ColorToken) == 0 || len(p.IconKind) == 0 {
				t.Errorf("incomplete presentation for %s: %+v", status, p)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	tests := map[RequestStatus]bool{
		RequestStatus_Pending:   false,
		RequestStatus_Accepted:  false,
		RequestStatus_Completed: true,
		RequestStatus_Cancelled: true,
	}
	for status, expected := range tests {
		if status.Terminal() != expected {
			t.Errorf("incorrect terminal flag for %s: expected=%v", status, expected)
		}
	}
}
