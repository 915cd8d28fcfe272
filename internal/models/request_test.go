package models

import "testing"

func TestRequestAction_TargetIsFixed(t *testing.T) {
	want := map[RequestAction]RequestStatus{
		ActionAccept:  RequestOnTheWay,
		ActionDecline: RequestAvailable,
		ActionFulfill: RequestCompleted,
		ActionCancel:  RequestCancelled,
	}
	for _, a := range RequestActions {
		if got := a.Target(); got != want[a] {
			t.Errorf("%s.Target() = %q, want %q", a, got, want[a])
		}
	}
}

func TestRequestAction_AllowedFrom(t *testing.T) {
	allowed := map[RequestAction]map[RequestStatus]bool{
		ActionAccept:  {RequestRequested: true, RequestAvailable: true},
		ActionDecline: {RequestRequested: true, RequestOnTheWay: true},
		ActionFulfill: {RequestOnTheWay: true},
		ActionCancel:  {RequestRequested: true, RequestOnTheWay: true, RequestAvailable: true},
	}

	for _, a := range RequestActions {
		for _, st := range RequestStatuses {
			if got := a.AllowedFrom(st); got != allowed[a][st] {
				t.Errorf("%s.AllowedFrom(%s) = %v, want %v", a, st, got, allowed[a][st])
			}
		}
	}
}

func TestRequestAction_TerminalStatusesAreClosedInStrictMode(t *testing.T) {
	for _, a := range RequestActions {
		if a.AllowedFrom(RequestCompleted) || a.AllowedFrom(RequestCancelled) {
			t.Errorf("%s should not be allowed from a terminal status", a)
		}
	}
}

func TestParseRequestAction(t *testing.T) {
	for _, in := range []string{"accept", "DECLINE", " fulfill ", "Cancel"} {
		if _, err := ParseRequestAction(in); err != nil {
			t.Errorf("ParseRequestAction(%q) returned error: %v", in, err)
		}
	}
	if _, err := ParseRequestAction("fullfilled"); err == nil {
		t.Error("ParseRequestAction(fullfilled) should fail")
	}
}

func TestParseRequestStatus(t *testing.T) {
	got, err := ParseRequestStatus("on the way")
	if err != nil || got != RequestOnTheWay {
		t.Errorf("ParseRequestStatus(on the way) = (%q, %v)", got, err)
	}
	if _, err := ParseRequestStatus("lost"); err == nil {
		t.Error("ParseRequestStatus(lost) should fail")
	}
}
