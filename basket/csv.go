package basket

import (
	"encoding/csv"
	"io"
	"strconv"
)

func f(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Fields returns the record as ordered header/value pairs, used by the csv
// writers here and by the side-prefixed combination output.
func (r CTDRecord) Fields() ([]string, []string) {
	header := []string{
		"symbol", "product_code", "years_to_expiry", "futures_price",
		"ctd_id", "ctd_cusip", "ctd_coupon", "ctd_maturity_date",
		"ctd_prev_coupon", "ctd_next_coupon", "ctd_ytm", "ctd_curve_yield",
		"ctd_bid_price", "ctd_ask_price", "ctd_bid_yield", "ctd_ask_yield",
		"ctd_conversion_factor", "ctd_theo_price", "ctd_implied_repo",
		"ctd_mdur", "ctd_macdur", "ctd_cvx", "ctd_dv01",
		"fut_mdur", "fut_macdur", "fut_cvx", "fut_dv01",
	}
	values := []string{
		r.Symbol, r.ProductCode, f(r.YearsToExpiry), f(r.FuturesPrice),
		r.CTDID, r.CTDCusip, f(r.CTDCoupon), r.CTDMaturityDate,
		r.CTDPrevCoupon, r.CTDNextCoupon, f(r.CTDYTM), f(r.CTDCurveYield),
		f(r.CTDBidPrice), f(r.CTDAskPrice), f(r.CTDBidYield), f(r.CTDAskYield),
		f(r.CTDConversionFactor), f(r.CTDTheoPrice), f(r.CTDImpliedRepo),
		f(r.CTDMDur), f(r.CTDMacDur), f(r.CTDCvx), f(r.CTDDV01),
		f(r.FutMDur), f(r.FutMacDur), f(r.FutCvx), f(r.FutDV01),
	}
	return header, values
}

// WriteCSV writes the hedge table.
func WriteCSV(w io.Writer, records []CTDRecord) error {
	cw := csv.NewWriter(w)
	header, _ := CTDRecord{}.Fields()
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		_, values := r.Fields()
		if err := cw.Write(values); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
