package availability_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/availability"
	"staybook/internal/domain/shared/daterange"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustRange(t *testing.T, in, out time.Time) daterange.DateRange {
	t.Helper()
	dr, err := daterange.New(in, out)
	require.NoError(t, err)
	return dr
}

func TestIsDateAvailable_BlockedDateWins(t *testing.T) {
	blocked := []availability.BlockedDate{
		{PropertyID: "p1", Date: date(2024, time.July, 12), Reason: availability.ReasonHostBlock, EventID: "evt-1"},
	}

	assert.False(t, availability.IsDateAvailable(date(2024, time.July, 12), blocked, nil))
	assert.True(t, availability.IsDateAvailable(date(2024, time.July, 13), blocked, nil))
}

func TestIsDateAvailable_StayNightsBlock(t *testing.T) {
	stay := mustRange(t, date(2024, time.July, 10), date(2024, time.July, 14))

	assert.False(t, availability.IsDateAvailable(date(2024, time.July, 10), nil, []daterange.DateRange{stay}))
	assert.False(t, availability.IsDateAvailable(date(2024, time.July, 13), nil, []daterange.DateRange{stay}))
	// Check-out day is free: same-day turnover.
	assert.True(t, availability.IsDateAvailable(date(2024, time.July, 14), nil, []daterange.DateRange{stay}))
}

func TestIsRangeAvailable_AllNightsMustBeFree(t *testing.T) {
	blocked := []availability.BlockedDate{
		{PropertyID: "p1", Date: date(2024, time.July, 12), Reason: availability.ReasonBooked, EventID: "evt-1"},
	}

	assert.False(t, availability.IsRangeAvailable(mustRange(t, date(2024, time.July, 10), date(2024, time.July, 14)), blocked, nil))
	assert.True(t, availability.IsRangeAvailable(mustRange(t, date(2024, time.July, 10), date(2024, time.July, 12)), blocked, nil))
	// Starting on the blocked day's successor is fine.
	assert.True(t, availability.IsRangeAvailable(mustRange(t, date(2024, time.July, 13), date(2024, time.July, 15)), blocked, nil))
}

func TestIsRangeAvailable_BackToBackStays(t *testing.T) {
	existing := mustRange(t, date(2024, time.July, 10), date(2024, time.July, 14))
	incoming := mustRange(t, date(2024, time.July, 14), date(2024, time.July, 17))

	assert.True(t, availability.IsRangeAvailable(incoming, nil, []daterange.DateRange{existing}))
}

func TestMaterializeRows_OneRowPerNightSharedEvent(t *testing.T) {
	dr := mustRange(t, date(2024, time.July, 10), date(2024, time.July, 13))
	now := time.Date(2024, time.July, 1, 12, 0, 0, 0, time.UTC)

	rows := availability.MaterializeRows("p1", dr, availability.ReasonBooked, "evt-9", now)

	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, "evt-9", row.EventID)
		assert.Equal(t, availability.ReasonBooked, row.Reason)
		assert.Equal(t, date(2024, time.July, 10+i), row.Date)
	}
}
