package application

import "testing"

func TestCanMutate(t *testing.T) {
	locked := TimeSlot{ID: "t1", CreatedBy: "creator", UserID: "owner", IsLocked: true}
	unlocked := TimeSlot{ID: "t2", CreatedBy: "creator", UserID: "owner", IsLocked: false}

	cases := []struct {
		name    string
		slot    TimeSlot
		request string
		want    bool
	}{
		{"unlocked slot open to anyone", unlocked, "stranger", true},
		{"locked slot allows creator", locked, "creator", true},
		{"locked slot allows owner", locked, "owner", true},
		{"locked slot refuses third party", locked, "stranger", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanMutate(tc.slot, tc.request); got != tc.want {
				t.Fatalf("CanMutate(%s, %s) = %v, want %v", tc.slot.ID, tc.request, got, tc.want)
			}
		})
	}
}

func TestRefusedSlotIDsPreservesBatchOrder(t *testing.T) {
	slots := []TimeSlot{
		{ID: "a", IsLocked: true, CreatedBy: "x", UserID: "y"},
		{ID: "b", IsLocked: false},
		{ID: "c", IsLocked: true, CreatedBy: "x", UserID: "y"},
	}

	refused := refusedSlotIDs(slots, "stranger")
	if len(refused) != 2 || refused[0] != "a" || refused[1] != "c" {
		t.Fatalf("unexpected refusals: %v", refused)
	}
}
