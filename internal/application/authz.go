package application

// CanMutate decides whether the requesting user may change or remove the
// slot. Unlocked slots are open to every project member; locked slots only
// to their creator or the user they describe.
func CanMutate(slot TimeSlot, requestUserID string) bool {
	if !slot.IsLocked {
		return true
	}
	return slot.CreatedBy == requestUserID || slot.UserID == requestUserID
}

// refusedSlotIDs returns the ids within the batch that fail the lock policy,
// preserving batch order.
func refusedSlotIDs(slots []TimeSlot, requestUserID string) []string {
	var refused []string
	for _, slot := range slots {
		if !CanMutate(slot, requestUserID) {
			refused = append(refused, slot.ID)
		}
	}
	return refused
}
