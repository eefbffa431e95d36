package highlight

import "testing"

func TestIntake_SortsAndAssignsIDs(t *testing.T) {
	events := []Event{
		{Type: TypeSteal, StartTime: 5, EndTime: 7},
		{Type: TypeDunk, StartTime: 0, EndTime: 2},
		{Type: TypeBlock, StartTime: 3, EndTime: 4},
	}

	got := Intake(events, 10)

	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].StartTime < got[i-1].StartTime {
			t.Fatalf("events not sorted: %v before %v", got[i-1].StartTime, got[i].StartTime)
		}
	}
	for i, e := range got {
		if e.ID != i+1 {
			t.Errorf("event %d ID = %d, want %d", i, e.ID, i+1)
		}
	}
	if got[0].Type != TypeDunk {
		t.Errorf("first event type = %s, want %s", got[0].Type, TypeDunk)
	}
}

func TestIntake_StableOnTies(t *testing.T) {
	events := []Event{
		{Type: TypeDunk, StartTime: 2, EndTime: 3, Description: "first"},
		{Type: TypeSteal, StartTime: 2, EndTime: 4, Description: "second"},
	}

	got := Intake(events, 10)

	if got[0].Description != "first" || got[1].Description != "second" {
		t.Errorf("tie order not preserved: %q then %q", got[0].Description, got[1].Description)
	}
}

func TestIntake_ClampsAndDrops(t *testing.T) {
	events := []Event{
		{StartTime: 8, EndTime: 15},  // clamped to 10
		{StartTime: 12, EndTime: 14}, // starts past the end, dropped
		{StartTime: -1, EndTime: 2},  // negative start, dropped
		{StartTime: 3, EndTime: 3},   // empty range, dropped
	}

	got := Intake(events, 10)

	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].EndTime != 10 {
		t.Errorf("end time = %v, want clamped 10", got[0].EndTime)
	}
}

func TestIntake_UnknownDuration(t *testing.T) {
	events := []Event{{StartTime: 100, EndTime: 200}}

	got := Intake(events, 0)

	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 (no clamping without a known duration)", len(got))
	}
}

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		in   string
		want EventType
	}{
		{"dunk", TypeDunk},
		{"DUNK", TypeDunk},
		{"3point", TypeThreePoint},
		{"three_pointer", TypeThreePoint},
		{"steal", TypeSteal},
		{"somersault", TypeOther},
		{"", TypeOther},
	}

	for _, tc := range tests {
		if got := NormalizeType(tc.in); got != tc.want {
			t.Errorf("NormalizeType(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
