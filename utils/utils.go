// Package utils holds the calendar helpers the runner uses to stamp
// settlement dates.
package utils

import (
	"time"

	"github.com/tmglimp/Zfut-arbs/fincalc"
)

const Layout = "2006-01-02"

// Bond-market holidays observed when rolling settlement dates.
var SIFMA = []string{"2025-01-01", "2025-01-20", "2025-02-17", "2025-04-18", "2025-05-26", "2025-06-19", "2025-07-04", "2025-09-01", "2025-10-13", "2025-11-11", "2025-11-27", "2025-12-25", "2026-01-01", "2026-01-19", "2026-02-16", "2026-04-03", "2026-05-25", "2026-06-19", "2026-07-03", "2026-09-07", "2026-10-12", "2026-11-11", "2026-11-26", "2026-12-25"}

// Convert holidays from string to time.Time format
func Hols(s []string) ([]time.Time, error) {
	h := make([]time.Time, len(s))
	var err error
	var d time.Time
	for i, v := range s {
		d, err = time.Parse(Layout, v)
		if err != nil {
			return nil, err
		}
		h[i] = d
	}
	return h, err
}

func IsHol(d time.Time, hols []time.Time) bool {
	if hols == nil {
		return false
	}
	for _, v := range hols {
		if d.Equal(v) {
			return true
		}
	}
	return false
}

func IsWeekday(d time.Time) bool {
	if d.Weekday() > 0 && d.Weekday() < 6 {
		return true
	}
	return false
}

func AdjustFollowing(d time.Time, hols []time.Time) time.Time {
	for {
		if IsHol(d, hols) || !IsWeekday(d) {
			d = d.AddDate(0, 0, 1)
		} else {
			return d
		}
	}
}

// SettleDate returns the settlement date for a run started at t: the next
// good business day, formatted for the bond calculators.
func SettleDate(t time.Time) (string, error) {
	hols, err := Hols(SIFMA)
	if err != nil {
		return "", err
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return AdjustFollowing(d, hols).Format(fincalc.Layout), nil
}
