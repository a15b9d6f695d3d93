package event

// Notifiable is the static event gate evaluated before any policy lookup or
// side effect. Critical events and membership changes always qualify;
// ordinary ticket/task traffic only qualifies when the entity is hot enough
// to be worth an interruption.
func Notifiable(req DispatchRequest) bool {
	if Critical(req.Type) {
		return true
	}
	switch req.Type {
	case TeamMemberAdded, TeamMemberRemoved:
		return true
	}
	return req.After.Priority == PriorityHigh || req.After.Priority == PriorityUrgent
}
