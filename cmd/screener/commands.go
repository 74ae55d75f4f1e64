package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"stock-screener/internal/jobs"
	"stock-screener/internal/logger"
	"stock-screener/internal/provider"
	"stock-screener/internal/report"
	"stock-screener/internal/server"
	"stock-screener/internal/types"
	"stock-screener/internal/universe"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "screener",
		Short: "Fundamental stock screener",
		Long: `screener grades tickers against five fundamental conditions: analyst
buy ratings, market cap, price target upside, forward P/E against a
benchmark, and insider plus institutional ownership.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeSystem()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file (default config.yaml or $SCREENER_CONFIG)")

	rootCmd.AddCommand(newServeCmd(&cfgFile))
	rootCmd.AddCommand(newRunCmd(&cfgFile))
	rootCmd.AddCommand(newUniverseCmd())

	return rootCmd
}

func newServeCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath(*cfgFile))
		},
	}
}

func runServe(path string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, path)
	if err != nil {
		return err
	}
	p, err := initializeProvider(ctx, cfg)
	if err != nil {
		return err
	}
	jobStore, err := initializeJobStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer jobStore.Close()

	var opts []jobs.Option
	if audit := initializeAudit(ctx, cfg); audit != nil {
		opts = append(opts, jobs.WithRecorder(audit))
	}
	manager := jobs.NewManager(jobStore, initializeScreener(cfg, p), opts...)
	if err := manager.StartEviction(cfg.Jobs.EvictSchedule, cfg.Jobs.Retention); err != nil {
		return err
	}

	srv := server.New(cfg.Server.Addr, manager, report.NewBuilder(), universe.NewScraper(),
		server.WithDefaultFormat(cfg.Report.DefaultFormat))
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start()
	}()

	select {
	case err := <-errc:
		if err != nil {
			logger.ErrorWithErr(ctx, "HTTP server stopped", err)
		}
		shutdownJobs(manager, cfg.Server.ShutdownTimeout)
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "HTTP server shutdown incomplete", "error", err)
	}
	shutdownJobs(manager, cfg.Server.ShutdownTimeout)
	_ = logger.Shutdown(shutdownCtx)
	return nil
}

func shutdownJobs(m *jobs.Manager, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		logger.Warn(ctx, "Running jobs were cancelled at shutdown", "error", err)
	}
}

type runOptions struct {
	tickers   string
	file      string
	sp500     bool
	benchmark float64
	out       string
	save      bool
	format    string
}

func newRunCmd(cfgFile *string) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Screen tickers once and print the verdicts",
		Example: `  screener run --tickers "AAPL, MSFT, NVDA" --benchmark 25
  screener run --sp500 --benchmark 22.5 --out reports --format pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), configPath(*cfgFile), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.tickers, "tickers", "t", "", "comma separated tickers")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "file with one or more tickers per line")
	cmd.Flags().BoolVar(&opts.sp500, "sp500", false, "screen the S&P 500 constituents")
	cmd.Flags().Float64VarP(&opts.benchmark, "benchmark", "b", 0, "benchmark forward P/E")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "directory to write the report to")
	cmd.Flags().BoolVar(&opts.save, "save", false, "write the report to the configured report dir")
	cmd.Flags().StringVar(&opts.format, "format", "", "report format: pdf, csv, json or text (default from config)")
	_ = cmd.MarkFlagRequired("benchmark")

	return cmd
}

func resolveTickers(ctx context.Context, opts runOptions, src server.UniverseSource) ([]string, error) {
	tickers := provider.ParseTickers(opts.tickers)
	if opts.file != "" {
		fromFile, err := universe.FromFile(opts.file)
		if err != nil {
			return nil, err
		}
		tickers = append(tickers, fromFile...)
	}
	if opts.sp500 {
		sp, err := src.SP500(ctx)
		if err != nil {
			return nil, err
		}
		tickers = append(tickers, sp...)
	}
	if len(tickers) == 0 {
		return nil, errors.New("no tickers: use --tickers, --file or --sp500")
	}
	return tickers, nil
}

func runOnce(parent context.Context, path string, opts runOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, path)
	if err != nil {
		return err
	}
	if opts.format == "" {
		opts.format = cfg.Report.DefaultFormat
	}
	if opts.out == "" && opts.save {
		opts.out = cfg.Report.Dir
	}
	if _, err := report.ParseFormat(opts.format); err != nil {
		return err
	}
	tickers, err := resolveTickers(ctx, opts, universe.NewScraper())
	if err != nil {
		return err
	}
	p, err := initializeProvider(ctx, cfg)
	if err != nil {
		return err
	}

	records, runErr := initializeScreener(cfg, p).Run(ctx, tickers, opts.benchmark, func(completed, total int) {
		fmt.Fprintf(os.Stderr, "\rscreened %d/%d", completed, total)
	})
	fmt.Fprintln(os.Stderr)
	if runErr != nil && len(records) == 0 {
		return runErr
	}

	result := &types.JobResult{
		JobID:         uuid.NewString(),
		Benchmark:     opts.benchmark,
		Records:       records,
		BuyCandidates: types.BuyCandidates(records),
		CompletedAt:   time.Now().UTC(),
	}

	if audit := initializeAudit(ctx, cfg); audit != nil {
		if err := audit.Append(result.JobID, records); err != nil {
			logger.Warn(ctx, "Failed to append audit log", "error", err)
		}
	}

	fmt.Println(renderResults(result))

	if opts.out != "" {
		file, err := report.NewBuilder().Save(result, opts.format, opts.out)
		if err != nil {
			return err
		}
		fmt.Println(mutedStyle.Render("report written to " + file))
	}
	return runErr
}

func newUniverseCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "universe",
		Short: "Print the S&P 500 constituent tickers",
		RunE: func(cmd *cobra.Command, args []string) error {
			tickers, err := universe.NewScraper(universe.WithURL(url)).SP500(cmd.Context())
			if err != nil {
				return err
			}
			for _, t := range tickers {
				fmt.Println(t)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", universe.SP500URL, "constituents page")
	return cmd
}
