package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/LixenWraith/hiviz"
)

func newDemoCommand(ctx *commandContext) *cobra.Command {
	var workers int
	var records int
	var logFile string
	var maxBytes int64
	var backups int
	var showMetrics bool

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Log bursts from concurrent goroutines into a rotating file",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger(func(cfg *hiviz.Config) {
				cfg.Log = true
				cfg.LogFile = logFile
				cfg.MaxBytes = hiviz.ByteSize(maxBytes)
				cfg.BackupCount = backups
			})
			if err != nil {
				return err
			}

			registry := prometheus.NewRegistry()
			if err := registry.Register(logger.Metrics()); err != nil {
				return fmt.Errorf("register metrics: %w", err)
			}

			runLogger := logger.With("run_id", uuid.NewString())
			runDemo(cmd.Context(), runLogger, workers, records)

			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := logger.Close(closeCtx); err != nil {
				return err
			}

			if showMetrics {
				rows, err := metricRows(registry)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Metric", "Labels", "Value"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "Number of emitting goroutines")
	cmd.Flags().IntVarP(&records, "records", "n", 200, "Records per goroutine")
	cmd.Flags().StringVar(&logFile, "log-file", "logs/demo.log", "File sink path")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 16*1024, "Rotate past this many bytes")
	cmd.Flags().IntVar(&backups, "backups", 3, "Backups kept on rotation")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print delivery metrics when done")

	return cmd
}

var errDemoRetry = errors.New("upstream temporarily unavailable")

func runDemo(ctx context.Context, logger *hiviz.Logger, workers, records int) {
	defer logger.Timeit("demo", "workers", workers, "records", records)()

	levels := []hiviz.Level{hiviz.LevelDebug, hiviz.LevelInfo, hiviz.LevelWarning, hiviz.LevelError}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			wctx := hiviz.WithThreadName(ctx, "worker-"+strconv.Itoa(id))
			wctx = hiviz.WithFields(wctx, "worker", id)
			for i := 0; i < records; i++ {
				level := levels[rand.IntN(len(levels))]
				logger.Log(wctx, level, "processing item", "item", i, "latency_ms", rand.Float64()*50)
				if rand.IntN(50) == 0 {
					time.Sleep(time.Millisecond)
				}
			}
		}(w)
	}
	wg.Wait()

	_ = logger.WrapErrors(func() error {
		return fmt.Errorf("fetch batch: %w", errDemoRetry)
	})

	_ = logger.Override(func() error {
		logger.Debug("trace-enabled section", "phase", "cleanup")
		return nil
	}, hiviz.WithTermLevel(hiviz.LevelDebug), hiviz.WithTraceDepth(3))
}

// metricRows flattens the gathered families into table rows.
func metricRows(registry *prometheus.Registry) ([][]string, error) {
	families, err := registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	var rows [][]string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := ""
			for _, lp := range m.GetLabel() {
				if labels != "" {
					labels += ","
				}
				labels += lp.GetName() + "=" + lp.GetValue()
			}

			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			}
			rows = append(rows, []string{mf.GetName(), labels, strconv.FormatFloat(value, 'f', -1, 64)})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	return rows, nil
}
