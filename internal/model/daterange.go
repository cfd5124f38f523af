package model

import "time"

const secondsPerDay = 24 * 60 * 60

// DateLayout: формат календарной даты в API и в логах.
const DateLayout = "2006-01-02"

// Date возвращает календарную дату как полночь UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf отбрасывает время суток у t в часовом поясе loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return Date(y, m, d)
}

// DateRange описывает полуинтервал дат [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Overlaps сообщает, пересекаются ли два полуинтервала.
// Смежные диапазоны (r.End == o.Start) не пересекаются.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Covers сообщает, попадает ли день в диапазон.
func (r DateRange) Covers(day time.Time) bool {
	return !day.Before(r.Start) && day.Before(r.End)
}

// Days возвращает число суток аренды, неполные сутки округляются вверх.
// Считается по Unix-секундам: time.Duration ограничен ~292 годами.
func (r DateRange) Days() int64 {
	secs := r.End.Unix() - r.Start.Unix()
	if secs <= 0 {
		return 0
	}
	return (secs + secondsPerDay - 1) / secondsPerDay
}

// String форматирует диапазон для логов.
func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}
