package availability

import (
	"time"

	"staybook/internal/domain/shared/daterange"
)

// Selection is the date-range picker state machine: no start, start chosen,
// or a complete range. It consults the oracle so the calendar can never show
// a pickable range the server would refuse; it holds no timers and performs
// no I/O, refresh policy belongs to the caller.
type Selection struct {
	start   time.Time
	end     time.Time
	blocked []BlockedDate
	stays   []daterange.DateRange
}

func NewSelection(blocked []BlockedDate, stays []daterange.DateRange) *Selection {
	return &Selection{blocked: blocked, stays: stays}
}

// Refresh replaces the unavailability snapshot the selection validates
// against, keeping any current picks that remain valid.
func (s *Selection) Refresh(blocked []BlockedDate, stays []daterange.DateRange) {
	s.blocked = blocked
	s.stays = stays
	if !s.start.IsZero() && !IsDateAvailable(s.start, blocked, stays) {
		s.Reset()
		return
	}
	if !s.end.IsZero() {
		dr := daterange.DateRange{CheckIn: s.start, CheckOut: s.end}
		if !IsRangeAvailable(dr, blocked, stays) {
			s.end = time.Time{}
		}
	}
}

// Click advances the state machine. Unavailable days are ignored. A click
// before the current start, or one whose span crosses an unavailable night,
// restarts the selection at the clicked day.
func (s *Selection) Click(day time.Time) {
	day = daterange.Day(day)
	if !IsDateAvailable(day, s.blocked, s.stays) {
		return
	}
	if s.start.IsZero() || !s.end.IsZero() || !day.After(s.start) {
		s.start = day
		s.end = time.Time{}
		return
	}
	dr := daterange.DateRange{CheckIn: s.start, CheckOut: day}
	if !IsRangeAvailable(dr, s.blocked, s.stays) {
		s.start = day
		return
	}
	s.end = day
}

func (s *Selection) Reset() {
	s.start = time.Time{}
	s.end = time.Time{}
}

// Range returns the completed selection, if any.
func (s *Selection) Range() (daterange.DateRange, bool) {
	if s.start.IsZero() || s.end.IsZero() {
		return daterange.DateRange{}, false
	}
	return daterange.DateRange{CheckIn: s.start, CheckOut: s.end}, true
}

// Start returns the pending check-in pick, if any.
func (s *Selection) Start() (time.Time, bool) {
	return s.start, !s.start.IsZero()
}
