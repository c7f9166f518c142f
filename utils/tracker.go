package utils

// Tracker remembers the previous value of a signal so callers can act on
// transitions instead of levels.
type Tracker[T comparable] struct {
	LastValue T
	Value     T
	Changes   int
}

func (t *Tracker[T]) Update(val T) (updated bool) {
	if t.Value == val {
		t.LastValue = val
		return false
	}
	t.LastValue = t.Value
	t.Value = val
	t.Changes++
	return true
}

// Rose reports whether the last update moved the value from zero to val.
func (t *Tracker[T]) Rose(val T) bool {
	var zero T
	return t.Value == val && t.LastValue == zero && val != zero
}

func (t *Tracker[T]) Reset() {
	var zero T
	t.LastValue = zero
	t.Value = zero
	t.Changes = 0
}
