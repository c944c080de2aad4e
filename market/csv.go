package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// num parses a float field, mapping blank or malformed values to NaN so the
// row-cleaning stage can drop them instead of failing the batch.
func num(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func readAll(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("market: read %s: %w", path, err)
	}
	if len(rows) > 0 {
		rows = rows[1:] // header
	}
	return rows, nil
}

// ReadZeroes loads the zero-coupon observation table:
// maturity_years,yield,original_maturity.
func ReadZeroes(path string) ([]YieldObservation, error) {
	rows, err := readAll(path)
	if err != nil {
		return nil, err
	}
	out := make([]YieldObservation, 0, len(rows))
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		out = append(out, YieldObservation{
			MaturityYears:    num(row[0]),
			Yield:            num(row[1]),
			OriginalMaturity: num(row[2]),
		})
	}
	return out, nil
}

// ReadBonds loads the deliverable instrument table:
// id,cusip,coupon,maturity_date,prev_coupon,next_coupon,years_to_maturity,
// original_maturity,conversion_factor,bid_price,ask_price,bid_yield,ask_yield.
func ReadBonds(path string) ([]Bond, error) {
	rows, err := readAll(path)
	if err != nil {
		return nil, err
	}
	out := make([]Bond, 0, len(rows))
	for _, row := range rows {
		if len(row) < 13 {
			continue
		}
		out = append(out, Bond{
			ID:               row[0],
			Cusip:            row[1],
			Coupon:           num(row[2]),
			MaturityDate:     row[3],
			PrevCoupon:       row[4],
			NextCoupon:       row[5],
			YearsToMaturity:  num(row[6]),
			OriginalMaturity: num(row[7]),
			ConversionFactor: num(row[8]),
			BidPrice:         num(row[9]),
			AskPrice:         num(row[10]),
			BidYield:         num(row[11]),
			AskYield:         num(row[12]),
		})
	}
	return out, nil
}

// ReadFutures loads the futures table: symbol,product_code,years_to_expiry,price.
func ReadFutures(path string) ([]Future, error) {
	rows, err := readAll(path)
	if err != nil {
		return nil, err
	}
	out := make([]Future, 0, len(rows))
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		out = append(out, Future{
			Symbol:        row[0],
			ProductCode:   row[1],
			YearsToExpiry: num(row[2]),
			Price:         num(row[3]),
		})
	}
	return out, nil
}

// WriteImplied writes the curve-augmented bond table.
func WriteImplied(w io.Writer, bonds []Bond) error {
	cw := csv.NewWriter(w)
	header := []string{"id", "cusip", "coupon", "maturity_date", "prev_coupon", "next_coupon",
		"years_to_maturity", "original_maturity", "conversion_factor",
		"bid_price", "ask_price", "bid_yield", "ask_yield", "curve_yield", "theo_price"}
	if err := cw.Write(header); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, b := range bonds {
		row := []string{b.ID, b.Cusip, f(b.Coupon), b.MaturityDate, b.PrevCoupon, b.NextCoupon,
			f(b.YearsToMaturity), f(b.OriginalMaturity), f(b.ConversionFactor),
			f(b.BidPrice), f(b.AskPrice), f(b.BidYield), f(b.AskYield),
			f(b.CurveYield), f(b.TheoPrice)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
