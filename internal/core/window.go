package core

// DateWindow is a half-open range of calendar dates [From, Until).
// A zero Until means the window has no upper bound.
type DateWindow struct {
	From  Date
	Until Date
}

func (w DateWindow) IsOpen() bool {
	return w.Until.IsZero()
}

func (w DateWindow) Contains(d Date) bool {
	if d.Before(w.From.Time) {
		return false
	}
	return w.IsOpen() || d.Before(w.Until.Time)
}
