// Command zfut drives the curve/CTD pipeline on an interval: it loads the
// input tables, runs one pass, persists the outputs and serves the published
// snapshot over HTTP. All scheduling and I/O lives here, outside the
// computation core.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/tmglimp/Zfut-arbs/api"
	"github.com/tmglimp/Zfut-arbs/basket"
	"github.com/tmglimp/Zfut-arbs/combo"
	"github.com/tmglimp/Zfut-arbs/config"
	"github.com/tmglimp/Zfut-arbs/market"
	"github.com/tmglimp/Zfut-arbs/pipeline"
	"github.com/tmglimp/Zfut-arbs/store"
	"github.com/tmglimp/Zfut-arbs/utils"
)

func main() {
	cfgPath := flag.String("config", "", "yaml config file (defaults used when empty)")
	once := flag.Bool("once", false, "run a single pass and exit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			logger.Error("config load failed", "err", err)
			os.Exit(1)
		}
	}

	runner := pipeline.NewRunner(cfg.Curve, logger)

	var db *store.Store
	if cfg.DatabaseURL != "" {
		var err error
		db, err = store.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Error("store open failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Init(context.Background()); err != nil {
			logger.Error("store init failed", "err", err)
			os.Exit(1)
		}
	}

	if cfg.ListenAddr != "" && !*once {
		srv := api.NewServer(runner)
		go func() {
			if err := srv.Start(cfg.ListenAddr); err != nil {
				logger.Error("api server stopped", "err", err)
				os.Exit(1)
			}
		}()
		logger.Info("snapshot api listening", "addr", cfg.ListenAddr)
	}

	for {
		runOnce(cfg, runner, db, logger)
		if *once {
			return
		}
		time.Sleep(cfg.Interval())
	}
}

func runOnce(cfg config.Config, runner *pipeline.Runner, db *store.Store, logger *slog.Logger) {
	obs, err := market.ReadZeroes(cfg.ZeroesPath)
	if err != nil {
		logger.Error("zeroes table unavailable", "err", err)
		return
	}
	bonds, err := market.ReadBonds(cfg.BondsPath)
	if err != nil {
		logger.Error("bonds table unavailable", "err", err)
		return
	}
	futures, err := market.ReadFutures(cfg.FuturesPath)
	if err != nil {
		logger.Error("futures table unavailable", "err", err)
		return
	}

	settle, err := utils.SettleDate(time.Now())
	if err != nil {
		logger.Error("settlement date", "err", err)
		return
	}

	snap, err := runner.Run(obs, bonds, futures, settle)
	if err != nil {
		// Previous snapshot stays published.
		logger.Error("run failed", "err", err)
		return
	}

	writeCSV(cfg.ImpliedPath, logger, func(f *os.File) error {
		return market.WriteImplied(f, snap.Bonds)
	})
	writeCSV(cfg.HedgesPath, logger, func(f *os.File) error {
		return basket.WriteCSV(f, snap.Hedges)
	})
	writeCSV(cfg.CombosPath, logger, func(f *os.File) error {
		return combo.WriteCSV(f, snap.Combos)
	})

	if db != nil {
		if err := db.SaveSnapshot(context.Background(), snap); err != nil {
			logger.Error("snapshot persistence failed", "err", err)
		}
	}
}

func writeCSV(path string, logger *slog.Logger, write func(*os.File) error) {
	if path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		logger.Error("csv open failed", "path", path, "err", err)
		return
	}
	defer f.Close()
	if err := write(f); err != nil {
		logger.Error("csv write failed", "path", path, "err", err)
	}
}
