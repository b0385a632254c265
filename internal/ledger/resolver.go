package ledger

// NotAcquired is the effective level of a pair with no events.
const NotAcquired = 0

// Latest returns the most recent event in events, or nil if empty.
// The input order does not matter.
func Latest(events []Event) *Event {
	var latest *Event
	for i := range events {
		if latest == nil || events[i].After(*latest) {
			latest = &events[i]
		}
	}
	return latest
}

// ResolveLevel is the effective level implied by events: the level of the
// most recent one, or NotAcquired for an empty log.
func ResolveLevel(events []Event) int {
	if latest := Latest(events); latest != nil {
		return latest.Level
	}
	return NotAcquired
}

// RestoreTarget picks the level a lightweight re-confirmation should grant.
//
// When the latest event is a zero-level Debuff (the skill was revoked, not
// never held), it returns the level of the most recent positive Acquired or
// AdminSet event before it, so a previously earned ceiling survives a missed
// audit. In every other case it returns minimal.
func RestoreTarget(events []Event, minimal int) int {
	latest := Latest(events)
	if latest == nil || latest.Type != Debuff || latest.Level != 0 {
		return minimal
	}

	var restore *Event
	for i := range events {
		e := &events[i]
		if e.Type != Acquired && e.Type != AdminSet {
			continue
		}
		if !latest.After(*e) {
			continue
		}
		if restore == nil || e.After(*restore) {
			restore = e
		}
	}
	if restore == nil || restore.Level <= 0 {
		return minimal
	}
	return restore.Level
}
