package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAdjustFollowing(t *testing.T) {
	hols, err := Hols(SIFMA)
	require.NoError(t, err)

	// Saturday rolls past the Labor Day Monday to Tuesday.
	sat, _ := time.Parse(Layout, "2025-08-30")
	adj2 := AdjustFollowing(sat, hols)
	require.Equal(t, "2025-09-02", adj2.Format(Layout))

	// A holiday rolls forward too.
	jul4, _ := time.Parse(Layout, "2025-07-04")
	adj := AdjustFollowing(jul4, hols)
	require.True(t, adj.After(jul4))
	require.True(t, IsWeekday(adj))

	// A plain weekday stays put.
	wed, _ := time.Parse(Layout, "2025-08-27")
	require.Equal(t, wed, AdjustFollowing(wed, hols))
}

func TestSettleDate(t *testing.T) {
	sat := time.Date(2025, 8, 30, 15, 4, 5, 0, time.UTC)
	s, err := SettleDate(sat)
	require.NoError(t, err)
	require.Equal(t, "20250902", s) // Monday 2025-09-01 is Labor Day
}

func TestIsHol(t *testing.T) {
	hols, err := Hols(SIFMA)
	require.NoError(t, err)
	jul4, _ := time.Parse(Layout, "2025-07-04")
	require.True(t, IsHol(jul4, hols))
	require.False(t, IsHol(jul4.AddDate(0, 0, 1), hols))
	require.False(t, IsHol(jul4, nil))
}
