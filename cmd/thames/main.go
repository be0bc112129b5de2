package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log/level"
	"github.com/maxhlc/thames"
)

// Reads a scenario, propagates it and writes the results.

const defaultScenario = "~~unset~~"

var (
	scenario    string
	metricsAddr string
	workers     int
	outDir      string
)

func init() {
	flag.StringVar(&scenario, "scenario", defaultScenario, "scenario file (TOML, JSON or YAML)")
	flag.StringVar(&metricsAddr, "metrics", "", "serve Prometheus metrics on this address, e.g. :9090")
	flag.IntVar(&workers, "workers", 0, "number of batch workers (overrides run.workers)")
	flag.StringVar(&outDir, "out", "", "output directory (overrides output.directory)")
}

func main() {
	flag.Parse()
	logger := thames.NewDefaultLogger()
	if scenario == defaultScenario {
		level.Error(logger).Log("err", "no scenario provided")
		flag.Usage()
		os.Exit(2)
	}

	sc, err := thames.LoadScenario(scenario)
	if err != nil {
		level.Error(logger).Log("subsys", "conf", "err", err)
		os.Exit(1)
	}
	if workers > 0 {
		sc.Workers = workers
	}
	if outDir != "" {
		sc.Output.Directory = outDir
	}

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: thames.MetricsHandler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				level.Error(logger).Log("subsys", "metrics", "err", err)
			}
		}()
		defer srv.Close()
		level.Info(logger).Log("subsys", "metrics", "addr", metricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := thames.NewMission(sc, logger).Run(ctx)
	if err != nil {
		level.Error(logger).Log("subsys", "prop", "err", err)
		os.Exit(1)
	}
	paths, err := thames.WriteResult(sc.Output.Directory, sc.Output.Format, res)
	if err != nil {
		level.Error(logger).Log("subsys", "export", "err", err)
		os.Exit(1)
	}
	for _, p := range paths {
		level.Info(logger).Log("subsys", "export", "file", p)
	}
}
