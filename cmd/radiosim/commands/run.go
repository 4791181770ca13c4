package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dgwcamk/radiosim/cmd/radiosim/config"
	"github.com/dgwcamk/radiosim/radio/log"
	"github.com/dgwcamk/radiosim/radio/simulation"
	"github.com/dgwcamk/radiosim/radio/telemetry"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a scenario for its configured number of TTIs and print a summary",
		Args:  cobra.NoArgs,
		RunE:  runRun,
	}
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	sim, users, err := buildSimulation(cfg)
	if err != nil {
		return fmt.Errorf("build simulation: %w", err)
	}
	logger.Infow("simulation built", "basestations", len(sim.BaseStations()), "users", len(users), "ttis", cfg.TTIs)

	reg := prometheus.NewRegistry()
	collector := telemetry.New(reg)

	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorw("metrics server failed", "error", err)
			}
		}()
		defer metricsServer.Shutdown(context.Background())
		fmt.Printf("serving metrics on %s%s\n", cfg.Metrics.Addr, cfg.Metrics.Path)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	for i := 0; i < cfg.TTIs; i++ {
		if err := sim.Tick(ctx); err != nil {
			logger.Errorw("tick failed", "tti", i, "error", err)
			return fmt.Errorf("tick %d: %w", i, err)
		}
		for _, u := range users {
			u.user.SetSpectralEfficiency(u.se)
		}
		recordTick(collector, sim)
	}
	logger.Infow("simulation finished", "ttis", cfg.TTIs)

	printSummary(sim)
	return nil
}

// buildLogger constructs a zap-backed Logger at the configured level. An
// unrecognized level falls back to info rather than failing the run.
func buildLogger(cfg config.LogConfig) (*log.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level = zapcore.InfoLevel
		}
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	z, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return log.New(z), nil
}

// recordTick pushes the most recently completed TTI's reward, RBG
// allocation, sent/dropped bits and scheduler duration into the
// Prometheus collector (and its HDR side channel) for every
// basestation/slice.
func recordTick(c *telemetry.Collector, sim *simulation.Simulation) {
	for _, bs := range sim.BaseStations() {
		c.SetReward(bs.ID(), bs.LastReward(), bs.CumulativeReward())
		for _, s := range bs.Slices() {
			c.SetAllocatedRBGs(bs.ID(), s.ID(), len(s.RBGs()))
			c.AddSentBits(bs.ID(), s.ID(), s.LastSentBits())
			c.AddDroppedBits(bs.ID(), s.ID(), s.LastDroppedBits())
		}
		if elapsed := bs.SchedulerElapsed(); len(elapsed) > 0 {
			c.ObserveSchedulerDuration(bs.ID(), time.Duration(elapsed[len(elapsed)-1]*float64(time.Second)))
		}
	}
}

// printSummary renders a per-basestation/slice table and an ASCII reward
// sparkline, standing in for the external plotting pipeline this simulator
// does not itself implement.
func printSummary(sim *simulation.Simulation) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("basestation", "slice", "type", "users", "served thr (bit/s)", "avg lat (s)", "loss rate")

	for _, bs := range sim.BaseStations() {
		for _, s := range bs.Slices() {
			_ = table.Append(
				fmt.Sprintf("%d", bs.ID()),
				fmt.Sprintf("%d", s.ID()),
				string(s.Type()),
				fmt.Sprintf("%d", len(s.Users())),
				fmt.Sprintf("%.1f", s.ServedThroughput()),
				fmt.Sprintf("%.4f", s.AvgBufferLatency()),
				fmt.Sprintf("%.4f", s.PktLossRate(bs.Window())),
			)
		}
	}
	_ = table.Render()

	for _, bs := range sim.BaseStations() {
		history := bs.CumulativeRewardHistory()
		if len(history) < 2 {
			continue
		}
		if bs.CumulativeReward() < 0 {
			color.Yellow("\nbasestation %d cumulative reward: %.2f", bs.ID(), bs.CumulativeReward())
		} else {
			color.Green("\nbasestation %d cumulative reward: %.2f", bs.ID(), bs.CumulativeReward())
		}
		fmt.Println(asciigraph.Plot(history, asciigraph.Height(10), asciigraph.Width(70), asciigraph.Caption("cumulative reward")))
	}
}
