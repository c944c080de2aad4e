package combo

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tmglimp/Zfut-arbs/basket"
)

func TestWriteCSVSidePrefixes(t *testing.T) {
	g := NewGenerator(quietLogger())
	recs := g.ComputeKPIs([]basket.CTDRecord{record("A", 0.8), record("B", 0.9)}, settle)
	combos := g.Combine(recs)
	require.Len(t, combos, 2)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, combos))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	base, _ := basket.CTDRecord{}.Fields()
	header := rows[0]
	require.Len(t, header, 2*len(base))
	// Every source field appears once per side.
	for i, h := range base {
		require.Equal(t, "A_"+h, header[i])
		require.Equal(t, "B_"+h, header[len(base)+i])
	}
	for _, row := range rows[1:] {
		require.Len(t, row, 2*len(base))
	}
	require.True(t, strings.HasPrefix(header[0], "A_"))
}
