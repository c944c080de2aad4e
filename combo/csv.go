package combo

import (
	"encoding/csv"
	"io"

	"github.com/tmglimp/Zfut-arbs/basket"
)

// WriteCSV writes the combination table with A_/B_ side-prefixed columns.
func WriteCSV(w io.Writer, combos []Combination) error {
	cw := csv.NewWriter(w)
	base, _ := basket.CTDRecord{}.Fields()
	header := make([]string, 0, 2*len(base))
	for _, h := range base {
		header = append(header, "A_"+h)
	}
	for _, h := range base {
		header = append(header, "B_"+h)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, c := range combos {
		_, a := c.A.Fields()
		_, b := c.B.Fields()
		if err := cw.Write(append(a, b...)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
