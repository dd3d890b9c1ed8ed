package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTargetDate_UsesJST(t *testing.T) {
	// 2024-05-31 16:00 UTC is already June 1st in Tokyo
	now := time.Date(2024, time.May, 31, 16, 0, 0, 0, time.UTC)

	d := NewTargetDate(now, nil)

	assert.Equal(t, TargetDate{Year: 2024, Month: time.June, Day: 1}, d)
	assert.Equal(t, "20240601", d.Format())
	assert.Equal(t, "2024-06-01", d.String())
}

func TestParseTargetDate(t *testing.T) {
	d, err := ParseTargetDate("2023-12-05")
	require.NoError(t, err)
	assert.Equal(t, TargetDate{Year: 2023, Month: time.December, Day: 5}, d)

	_, err = ParseTargetDate("2023/12/05")
	assert.Error(t, err)
}

func TestTargetDate_MonthsUntil(t *testing.T) {
	d := TargetDate{Year: 2024, Month: time.February, Day: 10}

	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.February, 0},
		{2024, time.January, 1},
		{2023, time.November, 3},
		{2024, time.March, -1},
		{2025, time.February, -12},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, d.MonthsUntil(c.year, c.month), "%d-%02d", c.year, c.month)
	}
	assert.True(t, d.SameMonth(2024, time.February))
	assert.False(t, d.SameMonth(2023, time.February))
}

func TestTargetDate_After(t *testing.T) {
	a := TargetDate{Year: 2024, Month: time.January, Day: 31}
	b := TargetDate{Year: 2024, Month: time.February, Day: 1}

	assert.True(t, b.After(a))
	assert.False(t, a.After(b))
	assert.False(t, a.After(a))
}
