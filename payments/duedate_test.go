package payments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// brazilTime builds an instant whose UTC-3 representation is the given date.
func brazilTime(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, brazilZone)
}

func TestTomorrowBrazil(t *testing.T) {
	now := brazilTime(2024, time.March, 30)
	assert.Equal(t, "2024-03-31", TomorrowBrazil(now))
}

func TestTomorrowBrazilCrossesUTCDay(t *testing.T) {
	// 01:30 UTC is still the previous day in UTC-3.
	now := time.Date(2024, time.June, 10, 1, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-06-10", TomorrowBrazil(now))
}

func TestNextDueDateEqualsTomorrow(t *testing.T) {
	now := brazilTime(2024, time.March, 30) // tomorrow = 2024-03-31
	assert.Equal(t, "2024-03-31", NextDueDate(now, 31))
}

func TestNextDueDateLaterThisMonth(t *testing.T) {
	now := brazilTime(2024, time.March, 9) // tomorrow = 2024-03-10
	assert.Equal(t, "2024-03-15", NextDueDate(now, 15))
}

func TestNextDueDateRollsToNextMonth(t *testing.T) {
	now := brazilTime(2024, time.March, 30) // tomorrow = 2024-03-31
	assert.Equal(t, "2024-04-15", NextDueDate(now, 15))
}

func TestNextDueDateRollsYearAtDecember(t *testing.T) {
	now := brazilTime(2024, time.December, 30) // tomorrow = 2024-12-31
	assert.Equal(t, "2025-01-05", NextDueDate(now, 5))
}
