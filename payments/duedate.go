package payments

import "time"

// The provider expects calendar dates in the NGO's local day, fixed UTC-3.
var brazilZone = time.FixedZone("UTC-3", -3*60*60)

const dateLayout = "2006-01-02"

// TomorrowBrazil returns tomorrow's date in the fixed UTC-3 zone.
func TomorrowBrazil(now time.Time) string {
	return now.In(brazilZone).AddDate(0, 0, 1).Format(dateLayout)
}

// NextDueDate maps a day-of-month to the next concrete date, using
// tomorrow (UTC-3) as the earliest allowed day. A due day earlier than
// tomorrow's day rolls over to the next month, December rolling into
// January of the next year.
func NextDueDate(now time.Time, dueDay int) string {
	tomorrow := now.In(brazilZone).AddDate(0, 0, 1)
	year, month, day := tomorrow.Date()

	switch {
	case dueDay == day:
		return tomorrow.Format(dateLayout)
	case dueDay > day:
		return time.Date(year, month, dueDay, 0, 0, 0, 0, brazilZone).Format(dateLayout)
	default:
		month++
		if month > time.December {
			month = time.January
			year++
		}
		return time.Date(year, month, dueDay, 0, 0, 0, 0, brazilZone).Format(dateLayout)
	}
}
