package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"arbscan-service/internal/bootstrap"
	"arbscan-service/internal/domain"
	"arbscan-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	once := flag.Bool("once", false, "run a single scan, print the ranked opportunities and exit")
	flag.Parse()

	logger := logx.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := bootstrap.ProvideConfig()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := bootstrap.InitApp(ctx, cfg, logger)
	if err != nil {
		cleanup()
		logger.Fatal("bootstrap", zap.Error(err))
	}
	defer cleanup()

	if *once {
		report, err := app.ScanOnce(ctx)
		if err != nil {
			logger.Error("scan failed", zap.Error(err))
			cleanup()
			os.Exit(1)
		}
		printReport(os.Stdout, report)
		return
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("scanner exited", zap.Error(err))
		cleanup()
		os.Exit(1)
	}
	logger.Info("scanner stopped")
}

func printReport(w io.Writer, report domain.ScanReport) {
	d := report.Diagnostics
	fmt.Fprintf(w, "scan %s: %d/%d lookups succeeded in %s\n", report.ID, d.Succeeded, d.Attempted, report.Duration().Round(time.Millisecond))
	if report.Opportunities.Empty() {
		fmt.Fprintln(w, "no arbitrage opportunities found")
		return
	}
	fmt.Fprintf(w, "%d arbitrage opportunities found\n\n", len(report.Opportunities))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPAIR\tBUY ON\tBUY PRICE\tSELL ON\tSELL PRICE\tPROFIT/UNIT\tPROFIT %")
	for i, o := range report.Opportunities {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s%%\n",
			i+1, o.Pair,
			strings.ToUpper(o.BuySource), o.BuyPrice.StringFixed(4),
			strings.ToUpper(o.SellSource), o.SellPrice.StringFixed(4),
			o.ProfitPerUnit().StringFixed(4), o.ProfitPct.StringFixed(2),
		)
	}
	_ = tw.Flush()
}
