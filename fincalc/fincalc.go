// Package fincalc provides bond price and risk calculations for US Treasury
// instruments. All functions are pure and safe for concurrent use.
package fincalc

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Date layout for coupon and settlement dates.
const Layout = "20060102"

// Day count conventions accepted by the calculators.
const (
	DayCount30360  = 0
	DayCountActAct = 1
)

// ErrNumericDomain is returned when an input configuration has no defined
// result, e.g. a missing coupon date needed for accrual.
var ErrNumericDomain = errors.New("fincalc: input outside numeric domain")

// dv01Bump is the yield bump used by the finite-difference sensitivities.
const dv01Bump = 1e-4

// schedule captures the remaining cash-flow timing of a bond: the fraction w
// of the current coupon period still to run at settlement and the number of
// remaining coupon payments.
type schedule struct {
	w float64
	n int
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: missing date", ErrNumericDomain)
	}
	d, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrNumericDomain, s)
	}
	return d, nil
}

// days30360 counts days between two dates under the 30/360 US convention.
func days30360(a, b time.Time) float64 {
	d1, d2 := a.Day(), b.Day()
	if d1 == 31 {
		d1 = 30
	}
	if d2 == 31 && d1 == 30 {
		d2 = 30
	}
	return float64(360*(b.Year()-a.Year()) + 30*(int(b.Month())-int(a.Month())) + (d2 - d1))
}

func daysActual(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24.0
}

// buildSchedule derives the remaining-period fraction and coupon count from
// the coupon dates bracketing settlement and the term to maturity.
func buildSchedule(term float64, period int, begin, settle, next string, dayCount int) (schedule, error) {
	var s schedule
	if period <= 0 {
		return s, fmt.Errorf("%w: period must be positive, got %d", ErrNumericDomain, period)
	}
	if term <= 0 {
		return s, fmt.Errorf("%w: term must be positive, got %v", ErrNumericDomain, term)
	}
	prev, err := parseDate(begin)
	if err != nil {
		return s, err
	}
	stl, err := parseDate(settle)
	if err != nil {
		return s, err
	}
	nxt, err := parseDate(next)
	if err != nil {
		return s, err
	}

	var full, remain float64
	switch dayCount {
	case DayCount30360:
		full = days30360(prev, nxt)
		remain = days30360(stl, nxt)
	case DayCountActAct:
		full = daysActual(prev, nxt)
		remain = daysActual(stl, nxt)
	default:
		return s, fmt.Errorf("%w: unknown day count %d", ErrNumericDomain, dayCount)
	}
	if full <= 0 {
		return s, fmt.Errorf("%w: coupon period is empty (%s..%s)", ErrNumericDomain, begin, next)
	}
	if remain < 0 || remain > full {
		return s, fmt.Errorf("%w: settle %s outside coupon period %s..%s", ErrNumericDomain, settle, begin, next)
	}

	s.w = remain / full
	s.n = int(math.Round(term * float64(period)))
	if s.n < 1 {
		s.n = 1
	}
	return s, nil
}

// dirtyPrice discounts the remaining coupon and principal cash flows at the
// given annual yield. Returns the dirty price and the accrued interest, both
// per 100 face. The zero-yield case reduces to the undiscounted sum.
func dirtyPrice(cpn, yld float64, period int, s schedule) (dirty, accrued float64, err error) {
	m := float64(period)
	c := cpn / m
	base := 1.0 + yld/m
	if base <= 0 {
		return 0, 0, fmt.Errorf("%w: yield %v too negative for period %d", ErrNumericDomain, yld, period)
	}
	for k := 0; k < s.n; k++ {
		dirty += c / math.Pow(base, float64(k)+s.w)
	}
	dirty += 100.0 / math.Pow(base, float64(s.n-1)+s.w)
	accrued = c * (1.0 - s.w)
	if math.IsNaN(dirty) || math.IsInf(dirty, 0) {
		return 0, 0, fmt.Errorf("%w: non-finite price", ErrNumericDomain)
	}
	return dirty, accrued, nil
}

// BPrice returns the clean price per 100 face of a bond with annual coupon
// rate cpn (in percent of face, e.g. 4.25), term years to maturity and annual
// yield yld (decimal), paying period coupons per year. begin, settle and next
// are YYYYMMDD dates bracketing the current coupon period; dayCount selects
// the accrual convention.
func BPrice(cpn, term, yld float64, period int, begin, settle, next string, dayCount int) (float64, error) {
	s, err := buildSchedule(term, period, begin, settle, next, dayCount)
	if err != nil {
		return 0, err
	}
	dirty, accrued, err := dirtyPrice(cpn, yld, period, s)
	if err != nil {
		return 0, err
	}
	return dirty - accrued, nil
}

// MacDur returns the Macaulay duration in years, the present-value weighted
// mean time to the remaining cash flows.
func MacDur(cpn, term, yld float64, period int, begin, settle, next string, dayCount int) (float64, error) {
	s, err := buildSchedule(term, period, begin, settle, next, dayCount)
	if err != nil {
		return 0, err
	}
	m := float64(period)
	c := cpn / m
	base := 1.0 + yld/m
	if base <= 0 {
		return 0, fmt.Errorf("%w: yield %v too negative for period %d", ErrNumericDomain, yld, period)
	}
	var pv, tpv float64
	for k := 0; k < s.n; k++ {
		t := (float64(k) + s.w) / m
		v := c / math.Pow(base, float64(k)+s.w)
		pv += v
		tpv += t * v
	}
	tn := (float64(s.n-1) + s.w) / m
	v := 100.0 / math.Pow(base, float64(s.n-1)+s.w)
	pv += v
	tpv += tn * v
	if pv <= 0 || math.IsNaN(tpv) {
		return 0, fmt.Errorf("%w: degenerate cash flows", ErrNumericDomain)
	}
	return tpv / pv, nil
}

// MDur returns the modified duration in years.
func MDur(cpn, term, yld float64, period int, begin, settle, next string, dayCount int) (float64, error) {
	mac, err := MacDur(cpn, term, yld, period, begin, settle, next, dayCount)
	if err != nil {
		return 0, err
	}
	return mac / (1.0 + yld/float64(period)), nil
}

// DV01 returns the price change per 100 face for a one basis point drop in
// yield, by central finite difference on the clean price.
func DV01(cpn, term, yld float64, period int, begin, settle, next string, dayCount int) (float64, error) {
	s, err := buildSchedule(term, period, begin, settle, next, dayCount)
	if err != nil {
		return 0, err
	}
	up, _, err := dirtyPrice(cpn, yld+dv01Bump, period, s)
	if err != nil {
		return 0, err
	}
	dn, _, err := dirtyPrice(cpn, yld-dv01Bump, period, s)
	if err != nil {
		return 0, err
	}
	return (dn - up) / 2.0, nil
}

// Cvx returns the convexity of the bond, the second derivative of price with
// respect to yield scaled by price, by central finite difference.
func Cvx(cpn, term, yld float64, period int, begin, settle, next string, dayCount int) (float64, error) {
	s, err := buildSchedule(term, period, begin, settle, next, dayCount)
	if err != nil {
		return 0, err
	}
	mid, _, err := dirtyPrice(cpn, yld, period, s)
	if err != nil {
		return 0, err
	}
	up, _, err := dirtyPrice(cpn, yld+dv01Bump, period, s)
	if err != nil {
		return 0, err
	}
	dn, _, err := dirtyPrice(cpn, yld-dv01Bump, period, s)
	if err != nil {
		return 0, err
	}
	if mid == 0 {
		return 0, fmt.Errorf("%w: zero price", ErrNumericDomain)
	}
	return (up + dn - 2.0*mid) / (mid * dv01Bump * dv01Bump), nil
}
