package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tmglimp/Zfut-arbs/curve"
	"github.com/tmglimp/Zfut-arbs/market"
	"github.com/tmglimp/Zfut-arbs/pipeline"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func testRunner(t *testing.T, run bool) *pipeline.Runner {
	t.Helper()
	r := pipeline.NewRunner(curve.DefaultConfig(), quietLogger())
	if !run {
		return r
	}

	var obs []market.YieldObservation
	for i := 0; i < 100; i++ {
		x := 0.25 + 29.75*float64(i)/99.0
		obs = append(obs, market.YieldObservation{MaturityYears: x, Yield: 2.0 + 0.1*x, OriginalMaturity: x})
	}
	bonds := []market.Bond{{
		ID: "N1", Cusip: "912810AA", Coupon: 4.0,
		MaturityDate: "20350515", PrevCoupon: "20250515", NextCoupon: "20251115",
		YearsToMaturity: 7.0, OriginalMaturity: 10.0, ConversionFactor: 0.88,
		BidPrice: 99.0, AskPrice: 99.1, BidYield: 0.041, AskYield: 0.040,
	}}
	futures := []market.Future{{Symbol: "ZNZ5", ProductCode: "ZN", YearsToExpiry: 0.25, Price: 110.0}}

	_, err := r.Run(obs, bonds, futures, "20250830")
	require.NoError(t, err)
	return r
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	h.ServeHTTP(rec, req)
	return rec
}

func TestEndpointsBeforeFirstRun(t *testing.T) {
	srv := NewServer(testRunner(t, false))

	rec := get(t, srv.Handler(), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "waiting")

	for _, path := range []string{"/v1/curve", "/v1/bonds", "/v1/hedges", "/v1/combos"} {
		rec := get(t, srv.Handler(), path)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestEndpointsAfterRun(t *testing.T) {
	srv := NewServer(testRunner(t, true))

	rec := get(t, srv.Handler(), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")

	rec = get(t, srv.Handler(), "/v1/curve")
	require.Equal(t, http.StatusOK, rec.Code)
	var c curve.Curve
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	require.NotEmpty(t, c.Coef)

	rec = get(t, srv.Handler(), "/v1/hedges")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "912810AA")

	rec = get(t, srv.Handler(), "/v1/bonds")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "N1")
}
