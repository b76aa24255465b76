package domain

import "testing"

func TestStatus_TransitionMatrix(t *testing.T) {
	all := []Status{StatusPending, StatusAccepted, StatusRejected, StatusCompleted}
	allowed := map[[2]Status]bool{
		{StatusPending, StatusAccepted}:   true,
		{StatusPending, StatusRejected}:   true,
		{StatusAccepted, StatusCompleted}: true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]Status{from, to}]
			if got := from.CanTransition(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestStatus_Terminal(t *testing.T) {
	cases := map[Status]bool{
		StatusPending:   false,
		StatusAccepted:  false,
		StatusRejected:  true,
		StatusCompleted: true,
	}
	for status, want := range cases {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", status, got, want)
		}
		if got := status.IsOpen(); got == want {
			t.Errorf("%s.IsOpen() = %v, want %v", status, got, !want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := ParseStatus("accepted"); !ok || s != StatusAccepted {
		t.Errorf("expected accepted, got %q %v", s, ok)
	}
	for _, bad := range []string{"", "ACCEPTED", "done"} {
		if _, ok := ParseStatus(bad); ok {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}
