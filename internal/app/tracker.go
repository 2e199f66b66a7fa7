package app

// tracker is the per-session counting barrier that gates question advancement.
// It is only touched while the owning session's lock is held.
type tracker struct {
	expected int
	received int
	index    int
	answered map[string]struct{}
}

func newTracker(expected int) tracker {
	return tracker{
		expected: expected,
		answered: make(map[string]struct{}),
	}
}

func (t *tracker) hasAnswered(userID string) bool {
	_, ok := t.answered[userID]
	return ok
}

// record counts one answer and reports whether the round is complete.
func (t *tracker) record(userID string) bool {
	t.answered[userID] = struct{}{}
	t.received++
	return t.complete()
}

// withdraw removes a participant from the barrier and reports whether the
// remaining participants have all answered.
func (t *tracker) withdraw(userID string) bool {
	if t.expected > 0 {
		t.expected--
	}
	if t.hasAnswered(userID) {
		delete(t.answered, userID)
		t.received--
	}
	return t.complete()
}

func (t *tracker) complete() bool {
	return t.expected > 0 && t.received >= t.expected
}

func (t *tracker) advance() {
	t.received = 0
	t.index++
	t.answered = make(map[string]struct{})
}
