package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestForDate_FirstHalf(t *testing.T) {
	p := ForDate(date(2025, time.June, 1))
	assert.Equal(t, date(2025, time.June, 1), p.Start)
	assert.Equal(t, date(2025, time.June, 15), p.End)

	p = ForDate(date(2025, time.June, 15))
	assert.Equal(t, "2025-06-01_2025-06-15", p.Key())
}

func TestForDate_SecondHalf(t *testing.T) {
	p := ForDate(date(2025, time.June, 16))
	assert.Equal(t, date(2025, time.June, 16), p.Start)
	assert.Equal(t, date(2025, time.June, 30), p.End)

	// February, non-leap year
	p = ForDate(date(2025, time.February, 20))
	assert.Equal(t, "2025-02-16_2025-02-28", p.Key())
}

func TestForDate_DecemberRollover(t *testing.T) {
	p := ForDate(date(2025, time.December, 31))
	assert.Equal(t, date(2025, time.December, 16), p.Start)
	assert.Equal(t, date(2025, time.December, 31), p.End)
}

func TestParse_RoundTrip(t *testing.T) {
	original := ForDate(date(2025, time.June, 10))
	parsed, err := Parse(original.Key())
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func TestParse_Invalid(t *testing.T) {
	for _, key := range []string{"", "2025-06-01", "junk_junk", "2025-06-15_2025-06-01"} {
		_, err := Parse(key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestContains(t *testing.T) {
	p := ForDate(date(2025, time.June, 1))
	assert.True(t, p.Contains(date(2025, time.June, 1)))
	assert.True(t, p.Contains(time.Date(2025, time.June, 15, 23, 30, 0, 0, time.UTC)))
	assert.False(t, p.Contains(date(2025, time.June, 16)))
	assert.False(t, p.Contains(date(2025, time.May, 31)))
}
