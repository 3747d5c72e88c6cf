package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/contactkeval/oilsim/internal/config"
	"github.com/contactkeval/oilsim/internal/eventlog"
	"github.com/contactkeval/oilsim/internal/kernel"
	"github.com/contactkeval/oilsim/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run oilsim as a REST server accepting backtest jobs and exposing Prometheus metrics",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
}

// runRequest is the POST /run request body: a single config inlined,
// plus the seed to simulate.
type runRequest struct {
	Config config.Config `json:"config"`
	Seed   uint64        `json:"seed"`
}

func runServe(cmd *cobra.Command, args []string) error {
	reg := prometheus.NewRegistry()
	metrics := kernel.NewMetrics(reg)
	lg := logger.New(logger.Info, os.Stderr)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/run", func(w http.ResponseWriter, r *http.Request) {
		var req runRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := config.Validate(&req.Config); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		res, err := runOneOffSimulation(&req.Config, req.Seed, lg, metrics)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	})

	lg.Infof("event=serve_start addr=%s", serveAddr)
	return http.ListenAndServe(serveAddr, mux)
}

func runOneOffSimulation(cfg *config.Config, seed uint64, lg *logger.Logger, metrics *kernel.Metrics) (*kernel.Result, error) {
	log := eventlog.NewMemoryStore()
	k := kernel.New(cfg, log, lg, metrics)
	return k.Run(context.Background(), seed)
}
