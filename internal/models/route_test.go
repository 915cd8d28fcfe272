package models

import "testing"

func TestNextRouteStatus_TransitionTable(t *testing.T) {
	tests := []struct {
		event RouteEvent
		from  RouteStatus
		want  RouteStatus
		ok    bool
	}{
		{RouteStart, RouteScheduled, RouteOnTheWay, true},
		{RouteStart, RouteOnTheWay, "", false},
		{RouteStart, RouteArrived, "", false},
		{RouteStart, RouteCompleted, "", false},
		{RouteStart, RouteCancelled, "", false},

		{RouteArrive, RouteScheduled, "", false},
		{RouteArrive, RouteOnTheWay, RouteArrived, true},
		{RouteArrive, RouteArrived, "", false},
		{RouteArrive, RouteCompleted, "", false},
		{RouteArrive, RouteCancelled, "", false},

		{RouteComplete, RouteScheduled, "", false},
		{RouteComplete, RouteOnTheWay, "", false},
		{RouteComplete, RouteArrived, RouteCompleted, true},
		{RouteComplete, RouteCompleted, "", false},
		{RouteComplete, RouteCancelled, "", false},

		{RouteCancel, RouteScheduled, RouteCancelled, true},
		{RouteCancel, RouteOnTheWay, RouteCancelled, true},
		{RouteCancel, RouteArrived, RouteCancelled, true},
		{RouteCancel, RouteCompleted, "", false},
		{RouteCancel, RouteCancelled, "", false},
	}

	for _, tt := range tests {
		got, ok := NextRouteStatus(tt.from, tt.event)
		if ok != tt.ok || got != tt.want {
			t.Errorf("NextRouteStatus(%s, %s) = (%q, %v), want (%q, %v)", tt.from, tt.event, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNextRouteStatus_UnknownEvent(t *testing.T) {
	if _, ok := NextRouteStatus(RouteScheduled, RouteEvent("teleport")); ok {
		t.Error("unknown event should not be allowed")
	}
}

func TestParseRouteStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    RouteStatus
		wantErr bool
	}{
		{"scheduled", RouteScheduled, false},
		{"on_the_way", RouteOnTheWay, false},
		{"on the way", RouteOnTheWay, false},
		{"On-The-Way", RouteOnTheWay, false},
		{" ARRIVED ", RouteArrived, false},
		{"completed", RouteCompleted, false},
		{"cancelled", RouteCancelled, false},
		{"canceled", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseRouteStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRouteStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRouteStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRouteStatus_Predicates(t *testing.T) {
	for _, st := range RouteStatuses {
		wantTerminal := st == RouteCompleted || st == RouteCancelled
		wantActive := st == RouteOnTheWay || st == RouteArrived
		wantAccepts := st == RouteScheduled || st == RouteOnTheWay

		if st.IsTerminal() != wantTerminal {
			t.Errorf("%s.IsTerminal() = %v", st, st.IsTerminal())
		}
		if st.IsActive() != wantActive {
			t.Errorf("%s.IsActive() = %v", st, st.IsActive())
		}
		if st.AcceptsRequests() != wantAccepts {
			t.Errorf("%s.AcceptsRequests() = %v", st, st.AcceptsRequests())
		}
	}
}
