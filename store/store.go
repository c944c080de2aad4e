// Package store persists published snapshots to Postgres. The pipeline does
// not depend on it; the cmd layer saves each snapshot after publication.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/tmglimp/Zfut-arbs/pipeline"
)

// Store wraps the snapshot database.
type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Init creates the snapshot tables if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS "CurveFits" (
			"Stamp" TIMESTAMPTZ NOT NULL,
			"Knots" INT NOT NULL,
			"Lambda" DOUBLE PRECISION NOT NULL,
			"GCV" DOUBLE PRECISION NOT NULL,
			"Basis" JSONB NOT NULL,
			"Coefficients" JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS "Hedges" (
			"Stamp" TIMESTAMPTZ NOT NULL,
			"Symbol" TEXT NOT NULL,
			"ProductCode" TEXT NOT NULL,
			"CTDCusip" TEXT NOT NULL,
			"ImpliedRepo" DOUBLE PRECISION NOT NULL,
			"TheoPrice" DOUBLE PRECISION NOT NULL,
			"FutDV01" DOUBLE PRECISION NOT NULL,
			"FutMDur" DOUBLE PRECISION NOT NULL
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("store: init: %w", err)
		}
	}
	return nil
}

// SaveSnapshot records the curve parameters and hedge rows of one published
// snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, snap *pipeline.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer tx.Rollback()

	basis, err := json.Marshal(snap.Curve.Basis)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	coef, err := json.Marshal(snap.Curve.Coef)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO "CurveFits"("Stamp", "Knots", "Lambda", "GCV", "Basis", "Coefficients") VALUES($1, $2, $3, $4, $5, $6)`,
		snap.Stamp, snap.Curve.Knots, snap.Curve.Lambda, snap.Curve.GCV, basis, coef)
	if err != nil {
		return fmt.Errorf("store: insert curve: %w", err)
	}

	for _, h := range snap.Hedges {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO "Hedges"("Stamp", "Symbol", "ProductCode", "CTDCusip", "ImpliedRepo", "TheoPrice", "FutDV01", "FutMDur") VALUES($1, $2, $3, $4, $5, $6, $7, $8)`,
			snap.Stamp, h.Symbol, h.ProductCode, h.CTDCusip, h.CTDImpliedRepo, h.CTDTheoPrice, h.FutDV01, h.FutMDur)
		if err != nil {
			return fmt.Errorf("store: insert hedge: %w", err)
		}
	}
	return tx.Commit()
}

// LatestCurve reloads the most recently saved curve parameters.
func (s *Store) LatestCurve(ctx context.Context) (knots int, lambda, gcv float64, err error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT "Knots", "Lambda", "GCV" FROM "CurveFits" ORDER BY "Stamp" DESC LIMIT 1`)
	if err := row.Scan(&knots, &lambda, &gcv); err != nil {
		return 0, 0, 0, fmt.Errorf("store: %w", err)
	}
	return knots, lambda, gcv, nil
}
