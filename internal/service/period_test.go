package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		yearMonth string
		begin     string
		end       string
	}{
		{"2024-02", "2024-02-01", "2024-02-29"}, // leap year
		{"2023-02", "2023-02-01", "2023-02-28"},
		{"2024-12", "2024-12-01", "2024-12-31"},
		{"2024-04", "2024-04-01", "2024-04-30"},
	}
	for _, tt := range tests {
		begin, end, err := monthBounds(tt.yearMonth)
		require.NoError(t, err, tt.yearMonth)
		assert.Equal(t, tt.begin, begin)
		assert.Equal(t, tt.end, end)
	}
}

func TestMonthBoundsRejectsMalformedPeriods(t *testing.T) {
	for _, bad := range []string{"", "February", "2024-13", "2024-2", "2024/02"} {
		_, _, err := monthBounds(bad)
		assert.Error(t, err, bad)
	}
}

func TestSameDay(t *testing.T) {
	noon := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	assert.True(t, sameDay(noon, noon.Add(11*time.Hour)))
	assert.False(t, sameDay(noon, noon.Add(13*time.Hour)))
	assert.False(t, sameDay(noon, noon.AddDate(-1, 0, 0)))
}
